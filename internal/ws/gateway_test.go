package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nico-byte/Mirror-Dash-sub000/internal/game"
	"github.com/nico-byte/Mirror-Dash-sub000/internal/leaderboard"
	"github.com/nico-byte/Mirror-Dash-sub000/internal/lobby"
	"github.com/nico-byte/Mirror-Dash-sub000/internal/protocol"
)

func playerUpdate(x, y *float64, anim game.Animation, dir game.Direction) game.PlayerUpdate {
	return game.PlayerUpdate{X: x, Y: y, Animation: &anim, Direction: &dir}
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	logger := zap.NewNop()
	lobbies := lobby.NewService(lobby.Options{
		MaxPlayersPerLobby: 2,
		InitialTimer:       180,
		MaxIdleTime:        time.Hour,
		FullSyncInterval:   3 * time.Second,
	}, logger)
	board := leaderboard.New(t.TempDir()+"/leaderboard.json", logger)
	return NewGateway(lobbies, board, NewRooms(logger), []string{"*"}, logger)
}

// connect registers a session without a real socket; dispatch writes into
// its outbox, which the test reads directly.
func connect(t *testing.T, g *Gateway, id string) *Session {
	t.Helper()
	s := newSession(id, zap.NewNop())
	g.rooms.Register(s)
	return s
}

// recv pops the next queued message; dispatch is synchronous, so anything
// sent is already there.
func recv(t *testing.T, s *Session) map[string]any {
	t.Helper()
	select {
	case data, ok := <-s.outbox:
		require.True(t, ok, "outbox closed unexpectedly")
		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func recvType(t *testing.T, s *Session, want string) map[string]any {
	t.Helper()
	m := recv(t, s)
	require.Equal(t, want, m["type"], "unexpected message %v", m)
	return m
}

func recvNone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case data := <-s.outbox:
		t.Fatalf("expected no message, got %s", data)
	default:
	}
}

func drain(s *Session) {
	for {
		select {
		case <-s.outbox:
		default:
			return
		}
	}
}

// createAndJoin builds the standard two-player lobby and clears both
// outboxes.
func createAndJoin(t *testing.T, g *Gateway, host, guest *Session) string {
	t.Helper()
	g.dispatch(host, protocol.CreateLobby{LobbyName: "room", PlayerName: "Host"})
	ack := recvType(t, host, protocol.EvtCreateLobbyResult)
	lobbyID, _ := ack["lobbyId"].(string)
	require.NotEmpty(t, lobbyID)
	g.dispatch(guest, protocol.JoinLobby{LobbyID: lobbyID, PlayerName: "Guest"})
	drain(host)
	drain(guest)
	return lobbyID
}

func TestGateway_CreateLobby(t *testing.T) {
	g := newTestGateway(t)
	s := connect(t, g, "p1")

	g.dispatch(s, protocol.CreateLobby{Seq: 7, LobbyName: "room", PlayerName: "Ana"})

	ack := recvType(t, s, protocol.EvtCreateLobbyResult)
	assert.Equal(t, float64(7), ack["seq"])
	assert.Equal(t, true, ack["success"])
	assert.NotEmpty(t, ack["lobbyId"])

	state := recvType(t, s, protocol.EvtLobbyState)
	lobbyObj := state["lobby"].(map[string]any)
	assert.Equal(t, "p1", lobbyObj["host"])

	list := recvType(t, s, protocol.EvtLobbiesList)
	assert.Len(t, list["lobbies"], 1)
}

func TestGateway_JoinBroadcastsStateToRoom(t *testing.T) {
	g := newTestGateway(t)
	host := connect(t, g, "p1")
	guest := connect(t, g, "p2")

	g.dispatch(host, protocol.CreateLobby{LobbyName: "room", PlayerName: "Host"})
	ack := recvType(t, host, protocol.EvtCreateLobbyResult)
	lobbyID := ack["lobbyId"].(string)
	drain(host)
	drain(guest)

	g.dispatch(guest, protocol.JoinLobby{Seq: 1, LobbyID: lobbyID, PlayerName: "Guest"})

	join := recvType(t, guest, protocol.EvtJoinLobbyResult)
	assert.Equal(t, true, join["success"])
	assert.Equal(t, "p1", join["lobbyHost"])
	assert.Equal(t, "level1", join["currentLevel"])

	// Both room members see the refreshed state.
	hostState := recvType(t, host, protocol.EvtLobbyState)
	players := hostState["lobby"].(map[string]any)["players"].([]any)
	assert.Len(t, players, 2)
	recvType(t, guest, protocol.EvtLobbyState)
}

func TestGateway_JoinUnknownLobbyFailsQuietlyForOthers(t *testing.T) {
	g := newTestGateway(t)
	bystander := connect(t, g, "p1")
	joiner := connect(t, g, "p2")

	g.dispatch(joiner, protocol.JoinLobby{Seq: 2, LobbyID: "nope", PlayerName: "Ana"})

	res := recvType(t, joiner, protocol.EvtJoinLobbyResult)
	assert.Equal(t, false, res["success"])
	assert.NotEmpty(t, res["error"])
	recvNone(t, bystander)
}

func TestGateway_LobbyErrorGoesToRequesterOnly(t *testing.T) {
	g := newTestGateway(t)
	host := connect(t, g, "p1")
	guest := connect(t, g, "p2")
	lobbyID := createAndJoin(t, g, host, guest)

	// Non-host asks to start.
	g.dispatch(guest, protocol.RequestGameStart{LobbyID: lobbyID})

	errMsg := recvType(t, guest, protocol.EvtLobbyError)
	assert.NotEmpty(t, errMsg["message"])
	recvNone(t, host)
}

func TestGateway_GameStartBroadcast(t *testing.T) {
	g := newTestGateway(t)
	host := connect(t, g, "p1")
	guest := connect(t, g, "p2")
	lobbyID := createAndJoin(t, g, host, guest)

	g.dispatch(host, protocol.RequestGameStart{LobbyID: lobbyID})

	for _, s := range []*Session{host, guest} {
		start := recvType(t, s, protocol.EvtGameStart)
		lobbyObj := start["lobby"].(map[string]any)
		assert.Equal(t, true, lobbyObj["gameStarted"])
		assert.Equal(t, float64(180), lobbyObj["timeLeft"])
	}
	// Lobby is no longer joinable, so the list refresh goes out.
	list := recvType(t, host, protocol.EvtLobbiesList)
	assert.Empty(t, list["lobbies"])
}

func TestGateway_PlayerUpdateBroadcastExceptSender(t *testing.T) {
	g := newTestGateway(t)
	host := connect(t, g, "p1")
	guest := connect(t, g, "p2")
	lobbyID := createAndJoin(t, g, host, guest)

	x, y := 33.0, 44.0
	g.dispatch(guest, protocol.PlayerUpdate{
		LobbyID: lobbyID,
		LevelID: "level1",
		Update:  playerUpdate(&x, &y, "run", "left"),
	})

	moved := recvType(t, host, protocol.EvtPlayerMoved)
	assert.Equal(t, "p2", moved["playerId"])
	assert.Equal(t, 33.0, moved["x"])
	assert.Equal(t, "run", moved["animation"])

	// The first update after lobby creation also trips the periodic full
	// sync, which goes to everyone including the sender.
	recvType(t, host, protocol.EvtLobbyState)
	recvType(t, guest, protocol.EvtLobbyState)
	recvNone(t, guest)
}

func TestGateway_PlayerFinishedFlow(t *testing.T) {
	g := newTestGateway(t)
	host := connect(t, g, "p1")
	guest := connect(t, g, "p2")
	lobbyID := createAndJoin(t, g, host, guest)
	g.dispatch(host, protocol.RequestGameStart{LobbyID: lobbyID})
	drain(host)
	drain(guest)

	g.dispatch(host, protocol.PlayerFinished{LobbyID: lobbyID})
	fin := recvType(t, host, protocol.EvtPlayerFinished)
	assert.Equal(t, float64(1), fin["finishedPlayers"])
	assert.Equal(t, float64(2), fin["totalPlayers"])
	assert.Equal(t, false, fin["allFinished"])
	recvType(t, guest, protocol.EvtPlayerFinished)

	g.dispatch(guest, protocol.PlayerFinished{LobbyID: lobbyID})
	fin = recvType(t, host, protocol.EvtPlayerFinished)
	assert.Equal(t, float64(2), fin["finishedPlayers"])
	assert.Equal(t, true, fin["allFinished"])
	// All finished: the room gets the current standings.
	recvType(t, host, protocol.EvtLeaderboardUpdate)
	recvType(t, guest, protocol.EvtPlayerFinished)
	recvType(t, guest, protocol.EvtLeaderboardUpdate)
}

func TestGateway_LeaveMigratesHostAndNotifiesRemainder(t *testing.T) {
	g := newTestGateway(t)
	host := connect(t, g, "p1")
	guest := connect(t, g, "p2")
	lobbyID := createAndJoin(t, g, host, guest)

	g.dispatch(host, protocol.LeaveLobby{LobbyID: lobbyID})

	left := recvType(t, guest, protocol.EvtPlayerLeftLobby)
	assert.Equal(t, "p1", left["playerId"])
	assert.Equal(t, "p2", left["newHost"])
	state := recvType(t, guest, protocol.EvtLobbyState)
	assert.Equal(t, "p2", state["lobby"].(map[string]any)["host"])
}

func TestGateway_DisconnectCleansUpLikeLeave(t *testing.T) {
	g := newTestGateway(t)
	host := connect(t, g, "p1")
	guest := connect(t, g, "p2")
	lobbyID := createAndJoin(t, g, host, guest)

	g.disconnect(host)

	left := recvType(t, guest, protocol.EvtPlayerLeftLobby)
	assert.Equal(t, "p1", left["playerId"])
	recvType(t, guest, protocol.EvtLobbyState)
	list := recvType(t, guest, protocol.EvtLobbiesList)
	assert.Len(t, list["lobbies"], 1, "one-seat lobby is joinable again")

	snap, err := g.lobbies.Snapshot(lobbyID)
	require.NoError(t, err)
	assert.Equal(t, "p2", snap.Host)
}

func TestGateway_LevelCompletedBroadcastsGlobally(t *testing.T) {
	g := newTestGateway(t)
	inLobby := connect(t, g, "p1")
	outOfLobby := connect(t, g, "p2")
	g.dispatch(inLobby, protocol.CreateLobby{LobbyName: "room", PlayerName: "Ana"})
	drain(inLobby)
	drain(outOfLobby)

	g.dispatch(inLobby, protocol.LevelCompleted{PlayerName: "Ana", LevelID: "level2", TimeLeft: 150, Stars: 2})

	for _, s := range []*Session{inLobby, outOfLobby} {
		update := recvType(t, s, protocol.EvtLeaderboardUpdate)
		entries := update["entries"].([]any)
		require.Len(t, entries, 1)
		assert.Equal(t, "Ana", entries[0].(map[string]any)["name"])
	}
}

func TestGateway_PlatformSyncCacheAndReplay(t *testing.T) {
	g := newTestGateway(t)
	host := connect(t, g, "p1")
	guest := connect(t, g, "p2")
	lobbyID := createAndJoin(t, g, host, guest)

	g.dispatch(host, protocol.PlatformSync{
		LobbyID:   lobbyID,
		Platforms: json.RawMessage(`[{"id":1,"x":10}]`),
		Time:      4.5,
	})

	sync := recvType(t, guest, protocol.EvtPlatformSync)
	assert.Equal(t, "p1", sync["senderId"])
	recvNone(t, host)

	g.dispatch(guest, protocol.RequestPlatformSync{LobbyID: lobbyID})
	replay := recvType(t, guest, protocol.EvtPlatformSync)
	assert.Equal(t, 4.5, replay["time"])
}

func TestGateway_MembershipGuard(t *testing.T) {
	g := newTestGateway(t)
	host := connect(t, g, "p1")
	guest := connect(t, g, "p2")
	lobbyID := createAndJoin(t, g, host, guest)

	outsider := connect(t, g, "p3")
	g.dispatch(outsider, protocol.UpdateTimer{LobbyID: lobbyID, TimeLeft: 1})

	recvType(t, outsider, protocol.EvtLobbyError)
	recvNone(t, host)
	recvNone(t, guest)

	left, err := g.lobbies.TimeLeft(lobbyID)
	require.NoError(t, err)
	assert.Zero(t, left, "guarded request must not mutate the lobby")
}

func TestGateway_PlayerGameOverBroadcastsToRoom(t *testing.T) {
	g := newTestGateway(t)
	host := connect(t, g, "p1")
	guest := connect(t, g, "p2")
	lobbyID := createAndJoin(t, g, host, guest)

	g.dispatch(guest, protocol.PlayerGameOver{LobbyID: lobbyID, Reason: "fell"})

	for _, s := range []*Session{host, guest} {
		over := recvType(t, s, protocol.EvtGameOverBroadcast)
		assert.Equal(t, "p2", over["playerId"])
		assert.Equal(t, "Guest", over["playerName"])
		assert.Equal(t, "fell", over["reason"])
	}
}

func TestGateway_PlayerGameOverFromOutsiderIsRejected(t *testing.T) {
	g := newTestGateway(t)
	host := connect(t, g, "p1")
	guest := connect(t, g, "p2")
	lobbyID := createAndJoin(t, g, host, guest)

	outsider := connect(t, g, "p3")
	g.dispatch(outsider, protocol.PlayerGameOver{LobbyID: lobbyID, Reason: "spoofed"})

	recvType(t, outsider, protocol.EvtLobbyError)
	recvNone(t, host)
	recvNone(t, guest)
}

func TestGateway_UpdateTimerToZeroEmitsTimeout(t *testing.T) {
	g := newTestGateway(t)
	host := connect(t, g, "p1")
	guest := connect(t, g, "p2")
	lobbyID := createAndJoin(t, g, host, guest)
	g.dispatch(host, protocol.RequestGameStart{LobbyID: lobbyID})
	drain(host)
	drain(guest)

	// A penalty that wipes the whole countdown is still a timeout.
	g.dispatch(host, protocol.UpdateTimer{LobbyID: lobbyID, TimeLeft: 0, IsPenalty: true})

	for _, s := range []*Session{host, guest} {
		sync := recvType(t, s, protocol.EvtTimerSync)
		assert.Equal(t, float64(0), sync["timeLeft"])
		over := recvType(t, s, protocol.EvtGameOverBroadcast)
		assert.Equal(t, "timeout", over["reason"])
	}

	// The tick driver never re-reports the crossing it did not see.
	g.TickTimers(time.Now().Add(time.Minute))
	recvNone(t, host)
	recvNone(t, guest)
}

func TestGateway_TimerTickAndTimeout(t *testing.T) {
	g := newTestGateway(t)
	host := connect(t, g, "p1")
	guest := connect(t, g, "p2")
	lobbyID := createAndJoin(t, g, host, guest)
	g.dispatch(host, protocol.RequestGameStart{LobbyID: lobbyID})
	drain(host)
	drain(guest)

	g.TickTimers(time.Now().Add(5 * time.Second))
	sync := recvType(t, host, protocol.EvtTimerSync)
	assert.Equal(t, float64(175), sync["timeLeft"])
	recvType(t, guest, protocol.EvtTimerSync)

	// Push the countdown near zero, then tick past it.
	g.dispatch(host, protocol.UpdateTimer{LobbyID: lobbyID, TimeLeft: 3, IsPenalty: true})
	drain(host)
	drain(guest)

	g.TickTimers(time.Now().Add(10 * time.Second))
	recvType(t, host, protocol.EvtTimerSync)
	over := recvType(t, host, protocol.EvtGameOverBroadcast)
	assert.Equal(t, "timeout", over["reason"])
	recvType(t, guest, protocol.EvtTimerSync)
	recvType(t, guest, protocol.EvtGameOverBroadcast)

	// Once at zero, further ticks stay quiet.
	g.TickTimers(time.Now().Add(20 * time.Second))
	recvNone(t, host)
	recvNone(t, guest)
}

func TestGateway_SweepIdleDropsLobbyAndRefreshesList(t *testing.T) {
	g := newTestGateway(t)
	s := connect(t, g, "p1")
	g.dispatch(s, protocol.CreateLobby{LobbyName: "room", PlayerName: "Ana"})
	drain(s)

	g.SweepIdle(time.Now().Add(2 * time.Hour))

	list := recvType(t, s, protocol.EvtLobbiesList)
	assert.Empty(t, list["lobbies"])
}
