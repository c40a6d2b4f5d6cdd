package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nico-byte/Mirror-Dash-sub000/internal/leaderboard"
	"github.com/nico-byte/Mirror-Dash-sub000/internal/lobby"
	"github.com/nico-byte/Mirror-Dash-sub000/internal/protocol"
)

// Gateway is the protocol boundary: it decodes client events, drives the
// services, and routes results back out as direct replies or room
// broadcasts. It never touches lobby internals directly.
type Gateway struct {
	lobbies        *lobby.Service
	board          *leaderboard.Service
	rooms          *Rooms
	originPatterns []string
	logger         *zap.Logger
}

func NewGateway(lobbies *lobby.Service, board *leaderboard.Service, rooms *Rooms, originPatterns []string, logger *zap.Logger) *Gateway {
	return &Gateway{
		lobbies:        lobbies,
		board:          board,
		rooms:          rooms,
		originPatterns: originPatterns,
		logger:         logger,
	}
}

// Handler upgrades the connection and runs the read loop. Teardown runs
// exactly once when the loop exits, whatever the reason.
func (g *Gateway) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: g.originPatterns,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		s := newSession(uuid.NewString(), g.logger)
		g.rooms.Register(s)
		defer g.disconnect(s)

		go s.writeLoop(r.Context(), conn)
		g.logger.Debug("client connected", zap.String("session_id", s.ID))

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			ev, err := protocol.ParseClient(data)
			if err != nil {
				var bad *protocol.BadRequestError
				if errors.As(err, &bad) {
					s.Send(protocol.NewLobbyError(bad.Reason))
				} else {
					s.Send(protocol.NewLobbyError("bad request"))
				}
				continue
			}
			g.dispatch(s, ev)
		}
	}
}

// dispatch runs one client event to completion. Failures reply to the
// requester only and leave shared state untouched.
func (g *Gateway) dispatch(s *Session, ev protocol.ClientEvent) {
	switch ev := ev.(type) {
	case protocol.CreateLobby:
		snap, deps, err := g.lobbies.Create(s.ID, ev.LobbyName, ev.PlayerName)
		g.notifyDepartures(s, deps)
		if err != nil {
			s.Send(protocol.NewCreateLobbyError(ev.Seq, err.Error()))
			return
		}
		g.rooms.JoinRoom(snap.ID, s)
		s.Send(protocol.NewCreateLobbyResult(ev.Seq, snap.ID))
		s.Send(protocol.NewLobbyState(snap))
		g.pushLobbyList()

	case protocol.JoinLobby:
		snap, deps, err := g.lobbies.Join(s.ID, ev.LobbyID, ev.PlayerName)
		g.notifyDepartures(s, deps)
		if err != nil {
			s.Send(protocol.NewJoinLobbyError(ev.Seq, err.Error()))
			return
		}
		g.rooms.JoinRoom(snap.ID, s)
		s.Send(protocol.NewJoinLobbyResult(ev.Seq, snap))
		g.rooms.Broadcast(snap.ID, "", protocol.NewLobbyState(snap))
		g.pushLobbyList()

	case protocol.LeaveLobby:
		dep, err := g.lobbies.Remove(s.ID, ev.LobbyID)
		if err != nil {
			s.Send(protocol.NewLobbyError(err.Error()))
			return
		}
		g.rooms.LeaveRoom(s)
		g.notifyDeparture(dep)
		g.pushLobbyList()

	case protocol.RequestLobbyState:
		snap, err := g.lobbies.Snapshot(ev.LobbyID)
		if err != nil {
			s.Send(protocol.NewLobbyError(err.Error()))
			return
		}
		s.Send(protocol.NewLobbyState(snap))

	case protocol.RequestGameStart:
		snap, err := g.lobbies.Start(ev.LobbyID, s.ID)
		if err != nil {
			s.Send(protocol.NewLobbyError(err.Error()))
			return
		}
		g.rooms.Broadcast(ev.LobbyID, "", protocol.NewGameStart(snap))
		g.pushLobbyList()

	case protocol.PlayerUpdate:
		p, fullSync, err := g.lobbies.UpdatePlayer(ev.LobbyID, s.ID, ev.Update)
		if err != nil {
			s.Send(protocol.NewLobbyError(err.Error()))
			return
		}
		g.rooms.Broadcast(ev.LobbyID, s.ID, protocol.NewPlayerMoved(ev.LobbyID, ev.LevelID, p))
		if fullSync {
			if snap, err := g.lobbies.Snapshot(ev.LobbyID); err == nil {
				g.rooms.Broadcast(ev.LobbyID, "", protocol.NewLobbyState(snap))
			}
		}

	case protocol.PlayerFinished:
		res, err := g.lobbies.Finish(ev.LobbyID, s.ID)
		if err != nil {
			s.Send(protocol.NewLobbyError(err.Error()))
			return
		}
		g.rooms.Broadcast(ev.LobbyID, "",
			protocol.NewPlayerFinished(ev.LobbyID, s.ID, res.Finished, res.Total, res.All))
		if res.All {
			g.rooms.Broadcast(ev.LobbyID, "",
				protocol.NewLeaderboardUpdate(g.board.Top(leaderboard.DefaultTop)))
		}

	case protocol.PlayerGameOver:
		if !g.requireMembership(s, ev.LobbyID) {
			return
		}
		name := s.ID
		if snap, err := g.lobbies.Snapshot(ev.LobbyID); err == nil {
			for _, p := range snap.Players {
				if p.ID == s.ID {
					name = p.Name
					break
				}
			}
		}
		g.rooms.Broadcast(ev.LobbyID, "",
			protocol.NewGameOverBroadcast(ev.LobbyID, s.ID, name, ev.Reason))

	case protocol.LevelCompleted:
		entries := g.board.Record(ev.PlayerName, ev.LevelID, ev.TimeLeft, ev.Stars)
		g.rooms.BroadcastAll(protocol.NewLeaderboardUpdate(entries))

	case protocol.ChangeLevel:
		if !g.requireMembership(s, ev.LobbyID) {
			return
		}
		if _, err := g.lobbies.ChangeLevel(ev.LobbyID, ev.LevelID); err != nil {
			s.Send(protocol.NewLobbyError(err.Error()))
			return
		}
		g.rooms.Broadcast(ev.LobbyID, s.ID, protocol.NewLevelChanged(ev.LobbyID, ev.LevelID))

	case protocol.ForceLevelChange:
		if !g.requireMembership(s, ev.LobbyID) {
			return
		}
		if _, err := g.lobbies.ChangeLevel(ev.LobbyID, ev.LevelID); err != nil {
			s.Send(protocol.NewLobbyError(err.Error()))
			return
		}
		g.rooms.Broadcast(ev.LobbyID, "", protocol.NewForceLevelChanged(ev))

	case protocol.PlatformSync:
		if !g.requireMembership(s, ev.LobbyID) {
			return
		}
		data := g.rooms.CachePlatformSync(ev.LobbyID, protocol.NewPlatformSync(s.ID, ev))
		if data != nil {
			g.rooms.BroadcastRaw(ev.LobbyID, s.ID, data)
		}

	case protocol.RequestPlatformSync:
		if data, ok := g.rooms.CachedPlatformSync(ev.LobbyID); ok {
			s.sendRaw(data)
		}

	case protocol.UpdateTimer:
		if !g.requireMembership(s, ev.LobbyID) {
			return
		}
		timeLeft, expired, err := g.lobbies.SetTimer(ev.LobbyID, ev.TimeLeft)
		if err != nil {
			s.Send(protocol.NewLobbyError(err.Error()))
			return
		}
		g.rooms.Broadcast(ev.LobbyID, "", protocol.NewTimerSync(ev.LobbyID, timeLeft, ev.IsPenalty))
		if expired {
			g.rooms.Broadcast(ev.LobbyID, "",
				protocol.NewGameOverBroadcast(ev.LobbyID, "", "", "timeout"))
		}

	case protocol.RequestTimerSync:
		timeLeft, err := g.lobbies.TimeLeft(ev.LobbyID)
		if err != nil {
			s.Send(protocol.NewLobbyError(err.Error()))
			return
		}
		s.Send(protocol.NewTimerSync(ev.LobbyID, timeLeft, false))

	case protocol.RequestLeaderboard:
		s.Send(protocol.NewLeaderboardUpdate(g.board.Top(leaderboard.DefaultTop)))

	case protocol.UpdateLeaderboard:
		entries := g.board.Record(ev.PlayerName, ev.LevelID, ev.TimeLeft, ev.Stars)
		g.rooms.BroadcastAll(protocol.NewLeaderboardUpdate(entries))

	case protocol.GetLobbyList:
		s.Send(protocol.NewLobbiesList(g.lobbies.Available()))
	}
}

// requireMembership rejects mutations aimed at a lobby the connection does
// not occupy.
func (g *Gateway) requireMembership(s *Session, lobbyID string) bool {
	if g.rooms.SessionLobby(s) != lobbyID {
		s.Send(protocol.NewLobbyError("not a member of that lobby"))
		return false
	}
	return true
}

// disconnect is the one cleanup path for a closed transport; identical to
// an explicit leave of every lobby the connection occupied.
func (g *Gateway) disconnect(s *Session) {
	deps := g.lobbies.RemoveFromAll(s.ID)
	g.rooms.Unregister(s)
	for _, dep := range deps {
		g.notifyDeparture(dep)
	}
	if len(deps) > 0 {
		g.pushLobbyList()
	}
	g.logger.Debug("client disconnected", zap.String("session_id", s.ID))
}

// notifyDepartures handles lobbies the player was implicitly pulled out of
// while creating or joining another one.
func (g *Gateway) notifyDepartures(s *Session, deps []lobby.Departure) {
	if len(deps) == 0 {
		return
	}
	g.rooms.LeaveRoom(s)
	for _, dep := range deps {
		g.notifyDeparture(dep)
	}
}

func (g *Gateway) notifyDeparture(dep lobby.Departure) {
	if dep.Deleted {
		g.rooms.DropRoom(dep.LobbyID)
		return
	}
	g.rooms.Broadcast(dep.LobbyID, "", protocol.NewPlayerLeftLobby(dep.LobbyID, dep.Player, dep.NewHost))
	g.rooms.Broadcast(dep.LobbyID, "", protocol.NewLobbyState(dep.Snapshot))
}

// pushLobbyList tells every client the joinable-lobby set changed.
func (g *Gateway) pushLobbyList() {
	g.rooms.BroadcastAll(protocol.NewLobbiesList(g.lobbies.Available()))
}

// TickTimers is the 1 Hz driver body: advance countdowns and broadcast the
// fallout. A timeout crossing emits gameOverBroadcast exactly once.
func (g *Gateway) TickTimers(now time.Time) {
	for _, ev := range g.lobbies.ProcessTimers(now) {
		g.rooms.Broadcast(ev.LobbyID, "", protocol.NewTimerSync(ev.LobbyID, ev.TimeLeft, false))
		if ev.Expired {
			g.rooms.Broadcast(ev.LobbyID, "",
				protocol.NewGameOverBroadcast(ev.LobbyID, "", "", "timeout"))
		}
	}
}

// SweepIdle is the cleanup driver body.
func (g *Gateway) SweepIdle(now time.Time) {
	removed := g.lobbies.CleanupInactive(now)
	for _, id := range removed {
		g.rooms.DropRoom(id)
	}
	if len(removed) > 0 {
		g.pushLobbyList()
	}
}
