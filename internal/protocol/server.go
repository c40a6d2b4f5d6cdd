package protocol

import (
	"encoding/json"

	"github.com/nico-byte/Mirror-Dash-sub000/internal/game"
)

// Server event names.
const (
	EvtLobbyError        = "lobbyError"
	EvtCreateLobbyResult = "createLobbyResult"
	EvtJoinLobbyResult   = "joinLobbyResult"
	EvtLobbyState        = "lobbyState"
	EvtPlayerLeftLobby   = "playerLeftLobby"
	EvtGameStart         = "gameStart"
	EvtPlayerMoved       = "playerMoved"
	EvtGameOverBroadcast = "gameOverBroadcast"
	EvtLeaderboardUpdate = "leaderboardUpdate"
	EvtLevelChanged      = "levelChanged"
	EvtForceLevelChanged = "forceLevelChanged"
	EvtTimerSync         = "timerSync"
	EvtLobbiesList       = "lobbiesList"
)

type LobbyErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewLobbyError is the only user-visible failure shape; it always goes to
// the requester alone, never the room.
func NewLobbyError(message string) LobbyErrorMsg {
	return LobbyErrorMsg{Type: EvtLobbyError, Message: message}
}

// CreateLobbyResult acknowledges a createLobby request. Seq echoes the
// client's request sequence, standing in for a socket.io ack callback.
type CreateLobbyResult struct {
	Type    string `json:"type"`
	Seq     int    `json:"seq,omitempty"`
	Success bool   `json:"success"`
	LobbyID string `json:"lobbyId,omitempty"`
	Error   string `json:"error,omitempty"`
}

func NewCreateLobbyResult(seq int, lobbyID string) CreateLobbyResult {
	return CreateLobbyResult{Type: EvtCreateLobbyResult, Seq: seq, Success: true, LobbyID: lobbyID}
}

func NewCreateLobbyError(seq int, errMsg string) CreateLobbyResult {
	return CreateLobbyResult{Type: EvtCreateLobbyResult, Seq: seq, Error: errMsg}
}

type JoinLobbyResult struct {
	Type         string `json:"type"`
	Seq          int    `json:"seq,omitempty"`
	Success      bool   `json:"success"`
	LobbyID      string `json:"lobbyId,omitempty"`
	LobbyHost    string `json:"lobbyHost,omitempty"`
	CurrentLevel string `json:"currentLevel,omitempty"`
	Error        string `json:"error,omitempty"`
}

func NewJoinLobbyResult(seq int, snap game.LobbySnapshot) JoinLobbyResult {
	return JoinLobbyResult{
		Type:         EvtJoinLobbyResult,
		Seq:          seq,
		Success:      true,
		LobbyID:      snap.ID,
		LobbyHost:    snap.Host,
		CurrentLevel: snap.CurrentLevel,
	}
}

func NewJoinLobbyError(seq int, errMsg string) JoinLobbyResult {
	return JoinLobbyResult{Type: EvtJoinLobbyResult, Seq: seq, Error: errMsg}
}

type LobbyStateMsg struct {
	Type  string             `json:"type"`
	Lobby game.LobbySnapshot `json:"lobby"`
}

func NewLobbyState(snap game.LobbySnapshot) LobbyStateMsg {
	return LobbyStateMsg{Type: EvtLobbyState, Lobby: snap}
}

type PlayerLeftLobbyMsg struct {
	Type       string `json:"type"`
	LobbyID    string `json:"lobbyId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	NewHost    string `json:"newHost,omitempty"`
}

func NewPlayerLeftLobby(lobbyID string, p game.Player, newHost string) PlayerLeftLobbyMsg {
	return PlayerLeftLobbyMsg{
		Type:       EvtPlayerLeftLobby,
		LobbyID:    lobbyID,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		NewHost:    newHost,
	}
}

type GameStartMsg struct {
	Type  string             `json:"type"`
	Lobby game.LobbySnapshot `json:"lobby"`
}

func NewGameStart(snap game.LobbySnapshot) GameStartMsg {
	return GameStartMsg{Type: EvtGameStart, Lobby: snap}
}

type PlayerMovedMsg struct {
	Type      string  `json:"type"`
	LobbyID   string  `json:"lobbyId"`
	PlayerID  string  `json:"playerId"`
	Name      string  `json:"name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Animation string  `json:"animation"`
	Direction string  `json:"direction"`
	LevelID   string  `json:"levelId,omitempty"`
}

func NewPlayerMoved(lobbyID, levelID string, p game.Player) PlayerMovedMsg {
	return PlayerMovedMsg{
		Type:      EvtPlayerMoved,
		LobbyID:   lobbyID,
		PlayerID:  p.ID,
		Name:      p.Name,
		X:         p.X,
		Y:         p.Y,
		Animation: string(p.Animation),
		Direction: string(p.Direction),
		LevelID:   levelID,
	}
}

type PlayerFinishedMsg struct {
	Type            string `json:"type"`
	LobbyID         string `json:"lobbyId"`
	PlayerID        string `json:"playerId"`
	FinishedPlayers int    `json:"finishedPlayers"`
	TotalPlayers    int    `json:"totalPlayers"`
	AllFinished     bool   `json:"allFinished"`
}

func NewPlayerFinished(lobbyID, playerID string, finished, total int, all bool) PlayerFinishedMsg {
	return PlayerFinishedMsg{
		Type:            EvtPlayerFinished,
		LobbyID:         lobbyID,
		PlayerID:        playerID,
		FinishedPlayers: finished,
		TotalPlayers:    total,
		AllFinished:     all,
	}
}

type GameOverBroadcastMsg struct {
	Type       string `json:"type"`
	LobbyID    string `json:"lobbyId"`
	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	Reason     string `json:"reason"`
}

func NewGameOverBroadcast(lobbyID, playerID, playerName, reason string) GameOverBroadcastMsg {
	return GameOverBroadcastMsg{
		Type:       EvtGameOverBroadcast,
		LobbyID:    lobbyID,
		PlayerID:   playerID,
		PlayerName: playerName,
		Reason:     reason,
	}
}

type LeaderboardUpdateMsg struct {
	Type    string             `json:"type"`
	Entries []game.RankedEntry `json:"entries"`
}

func NewLeaderboardUpdate(entries []game.RankedEntry) LeaderboardUpdateMsg {
	return LeaderboardUpdateMsg{Type: EvtLeaderboardUpdate, Entries: entries}
}

type LevelChangedMsg struct {
	Type    string `json:"type"`
	LobbyID string `json:"lobbyId"`
	LevelID string `json:"levelId"`
}

func NewLevelChanged(lobbyID, levelID string) LevelChangedMsg {
	return LevelChangedMsg{Type: EvtLevelChanged, LobbyID: lobbyID, LevelID: levelID}
}

type ForceLevelChangedMsg struct {
	Type          string `json:"type"`
	LobbyID       string `json:"lobbyId"`
	LevelID       string `json:"levelId"`
	InitiatorID   string `json:"initiatorId,omitempty"`
	InitiatorName string `json:"initiatorName,omitempty"`
}

func NewForceLevelChanged(ev ForceLevelChange) ForceLevelChangedMsg {
	return ForceLevelChangedMsg{
		Type:          EvtForceLevelChanged,
		LobbyID:       ev.LobbyID,
		LevelID:       ev.LevelID,
		InitiatorID:   ev.InitiatorID,
		InitiatorName: ev.InitiatorName,
	}
}

type PlatformSyncMsg struct {
	Type      string          `json:"type"`
	LobbyID   string          `json:"lobbyId"`
	SenderID  string          `json:"senderId"`
	Platforms json.RawMessage `json:"platforms"`
	Time      float64         `json:"time"`
}

func NewPlatformSync(senderID string, ev PlatformSync) PlatformSyncMsg {
	return PlatformSyncMsg{
		Type:      EvtPlatformSync,
		LobbyID:   ev.LobbyID,
		SenderID:  senderID,
		Platforms: ev.Platforms,
		Time:      ev.Time,
	}
}

type TimerSyncMsg struct {
	Type      string `json:"type"`
	LobbyID   string `json:"lobbyId"`
	TimeLeft  int    `json:"timeLeft"`
	IsPenalty bool   `json:"isPenalty,omitempty"`
}

func NewTimerSync(lobbyID string, timeLeft int, isPenalty bool) TimerSyncMsg {
	return TimerSyncMsg{Type: EvtTimerSync, LobbyID: lobbyID, TimeLeft: timeLeft, IsPenalty: isPenalty}
}

type LobbiesListMsg struct {
	Type    string              `json:"type"`
	Lobbies []game.LobbySummary `json:"lobbies"`
}

func NewLobbiesList(lobbies []game.LobbySummary) LobbiesListMsg {
	return LobbiesListMsg{Type: EvtLobbiesList, Lobbies: lobbies}
}
