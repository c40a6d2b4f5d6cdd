package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/nico-byte/Mirror-Dash-sub000/internal/game"
)

// Client event names. One variant per name; anything else is a bad request.
const (
	EvtCreateLobby         = "createLobby"
	EvtJoinLobby           = "joinLobby"
	EvtLeaveLobby          = "leaveLobby"
	EvtRequestLobbyState   = "requestLobbyState"
	EvtRequestGameStart    = "requestGameStart"
	EvtPlayerUpdate        = "playerUpdate"
	EvtPlayerFinished      = "playerFinished"
	EvtPlayerGameOver      = "playerGameOver"
	EvtLevelCompleted      = "levelCompleted"
	EvtChangeLevel         = "changeLevel"
	EvtForceLevelChange    = "forceLevelChange"
	EvtPlatformSync        = "platformSync"
	EvtRequestPlatformSync = "requestPlatformSync"
	EvtUpdateTimer         = "updateTimer"
	EvtRequestTimerSync    = "requestTimerSync"
	EvtRequestLeaderboard  = "requestLeaderboard"
	EvtUpdateLeaderboard   = "updateLeaderboard"
	EvtGetLobbyList        = "getLobbyList"
)

// BadRequestError rejects a malformed payload at the transport boundary so
// nothing undefined leaks into lobby state.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string { return "bad request: " + e.Reason }

func badRequest(format string, args ...any) error {
	return &BadRequestError{Reason: fmt.Sprintf(format, args...)}
}

type ClientEvent interface{ isClientEvent() }

type CreateLobby struct {
	Seq        int
	LobbyName  string
	PlayerName string
}

type JoinLobby struct {
	Seq        int
	LobbyID    string
	PlayerName string
}

type LeaveLobby struct{ LobbyID string }

type RequestLobbyState struct{ LobbyID string }

type RequestGameStart struct{ LobbyID string }

type PlayerUpdate struct {
	LobbyID string
	LevelID string
	Update  game.PlayerUpdate
}

type PlayerFinished struct{ LobbyID string }

type PlayerGameOver struct {
	LobbyID string
	Reason  string
}

type LevelCompleted struct {
	PlayerName string
	LevelID    string
	TimeLeft   int
	Stars      int
}

type ChangeLevel struct {
	LobbyID string
	LevelID string
}

type ForceLevelChange struct {
	LobbyID       string
	LevelID       string
	InitiatorID   string
	InitiatorName string
}

type PlatformSync struct {
	LobbyID   string
	Platforms json.RawMessage
	Time      float64
}

type RequestPlatformSync struct{ LobbyID string }

type UpdateTimer struct {
	LobbyID   string
	TimeLeft  int
	IsPenalty bool
}

type RequestTimerSync struct{ LobbyID string }

type RequestLeaderboard struct{}

type UpdateLeaderboard struct {
	PlayerName string
	LevelID    string
	TimeLeft   int
	Stars      int
}

type GetLobbyList struct{}

func (CreateLobby) isClientEvent()         {}
func (JoinLobby) isClientEvent()           {}
func (LeaveLobby) isClientEvent()          {}
func (RequestLobbyState) isClientEvent()   {}
func (RequestGameStart) isClientEvent()    {}
func (PlayerUpdate) isClientEvent()        {}
func (PlayerFinished) isClientEvent()      {}
func (PlayerGameOver) isClientEvent()      {}
func (LevelCompleted) isClientEvent()      {}
func (ChangeLevel) isClientEvent()         {}
func (ForceLevelChange) isClientEvent()    {}
func (PlatformSync) isClientEvent()        {}
func (RequestPlatformSync) isClientEvent() {}
func (UpdateTimer) isClientEvent()         {}
func (RequestTimerSync) isClientEvent()    {}
func (RequestLeaderboard) isClientEvent()  {}
func (UpdateLeaderboard) isClientEvent()   {}
func (GetLobbyList) isClientEvent()        {}

// envelope is the raw wire shape. Optional fields are pointers so a partial
// playerUpdate can be told apart from zero values.
type envelope struct {
	Type          string          `json:"type"`
	Seq           int             `json:"seq,omitempty"`
	LobbyID       string          `json:"lobbyId,omitempty"`
	LobbyName     string          `json:"lobbyName,omitempty"`
	PlayerName    string          `json:"playerName,omitempty"`
	LevelID       string          `json:"levelId,omitempty"`
	X             *float64        `json:"x,omitempty"`
	Y             *float64        `json:"y,omitempty"`
	Animation     *string         `json:"animation,omitempty"`
	Direction     *string         `json:"direction,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	TimeLeft      *int            `json:"timeLeft,omitempty"`
	IsPenalty     bool            `json:"isPenalty,omitempty"`
	Stars         *int            `json:"stars,omitempty"`
	Platforms     json.RawMessage `json:"platforms,omitempty"`
	Time          float64         `json:"time,omitempty"`
	InitiatorID   string          `json:"initiatorId,omitempty"`
	InitiatorName string          `json:"initiatorName,omitempty"`
}

// ParseClient decodes and validates one inbound message into its typed
// variant.
func ParseClient(data []byte) (ClientEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, badRequest("invalid json")
	}

	switch env.Type {
	case EvtCreateLobby:
		return CreateLobby{Seq: env.Seq, LobbyName: env.LobbyName, PlayerName: env.PlayerName}, nil

	case EvtJoinLobby:
		if env.LobbyID == "" {
			return nil, badRequest("%s: lobbyId required", env.Type)
		}
		return JoinLobby{Seq: env.Seq, LobbyID: env.LobbyID, PlayerName: env.PlayerName}, nil

	case EvtLeaveLobby:
		if env.LobbyID == "" {
			return nil, badRequest("%s: lobbyId required", env.Type)
		}
		return LeaveLobby{LobbyID: env.LobbyID}, nil

	case EvtRequestLobbyState:
		if env.LobbyID == "" {
			return nil, badRequest("%s: lobbyId required", env.Type)
		}
		return RequestLobbyState{LobbyID: env.LobbyID}, nil

	case EvtRequestGameStart:
		if env.LobbyID == "" {
			return nil, badRequest("%s: lobbyId required", env.Type)
		}
		return RequestGameStart{LobbyID: env.LobbyID}, nil

	case EvtPlayerUpdate:
		if env.LobbyID == "" {
			return nil, badRequest("%s: lobbyId required", env.Type)
		}
		upd := game.PlayerUpdate{X: env.X, Y: env.Y}
		if env.Animation != nil {
			if !game.ValidAnimation(*env.Animation) {
				return nil, badRequest("playerUpdate: unknown animation %q", *env.Animation)
			}
			a := game.Animation(*env.Animation)
			upd.Animation = &a
		}
		if env.Direction != nil {
			if !game.ValidDirection(*env.Direction) {
				return nil, badRequest("playerUpdate: unknown direction %q", *env.Direction)
			}
			d := game.Direction(*env.Direction)
			upd.Direction = &d
		}
		return PlayerUpdate{LobbyID: env.LobbyID, LevelID: env.LevelID, Update: upd}, nil

	case EvtPlayerFinished:
		if env.LobbyID == "" {
			return nil, badRequest("%s: lobbyId required", env.Type)
		}
		return PlayerFinished{LobbyID: env.LobbyID}, nil

	case EvtPlayerGameOver:
		if env.LobbyID == "" {
			return nil, badRequest("%s: lobbyId required", env.Type)
		}
		return PlayerGameOver{LobbyID: env.LobbyID, Reason: env.Reason}, nil

	case EvtLevelCompleted:
		return parseCompletion(env)

	case EvtChangeLevel:
		if env.LobbyID == "" || env.LevelID == "" {
			return nil, badRequest("%s: lobbyId and levelId required", env.Type)
		}
		return ChangeLevel{LobbyID: env.LobbyID, LevelID: env.LevelID}, nil

	case EvtForceLevelChange:
		if env.LobbyID == "" || env.LevelID == "" {
			return nil, badRequest("%s: lobbyId and levelId required", env.Type)
		}
		return ForceLevelChange{
			LobbyID:       env.LobbyID,
			LevelID:       env.LevelID,
			InitiatorID:   env.InitiatorID,
			InitiatorName: env.InitiatorName,
		}, nil

	case EvtPlatformSync:
		if env.LobbyID == "" {
			return nil, badRequest("%s: lobbyId required", env.Type)
		}
		if len(env.Platforms) == 0 {
			return nil, badRequest("platformSync: platforms required")
		}
		return PlatformSync{LobbyID: env.LobbyID, Platforms: env.Platforms, Time: env.Time}, nil

	case EvtRequestPlatformSync:
		if env.LobbyID == "" {
			return nil, badRequest("%s: lobbyId required", env.Type)
		}
		return RequestPlatformSync{LobbyID: env.LobbyID}, nil

	case EvtUpdateTimer:
		if env.LobbyID == "" {
			return nil, badRequest("%s: lobbyId required", env.Type)
		}
		if env.TimeLeft == nil || *env.TimeLeft < 0 {
			return nil, badRequest("updateTimer: timeLeft must be >= 0")
		}
		return UpdateTimer{LobbyID: env.LobbyID, TimeLeft: *env.TimeLeft, IsPenalty: env.IsPenalty}, nil

	case EvtRequestTimerSync:
		if env.LobbyID == "" {
			return nil, badRequest("%s: lobbyId required", env.Type)
		}
		return RequestTimerSync{LobbyID: env.LobbyID}, nil

	case EvtRequestLeaderboard:
		return RequestLeaderboard{}, nil

	case EvtUpdateLeaderboard:
		return parseCompletion(env)

	case EvtGetLobbyList:
		return GetLobbyList{}, nil

	default:
		return nil, badRequest("unknown event %q", env.Type)
	}
}

func parseCompletion(env envelope) (ClientEvent, error) {
	if env.PlayerName == "" || env.LevelID == "" {
		return nil, badRequest("%s: playerName and levelId required", env.Type)
	}
	if env.TimeLeft == nil || *env.TimeLeft < 0 {
		return nil, badRequest("%s: timeLeft must be >= 0", env.Type)
	}
	stars := 0
	if env.Stars != nil {
		stars = *env.Stars
	}
	if stars < 0 || stars > 3 {
		return nil, badRequest("%s: stars out of range", env.Type)
	}
	c := LevelCompleted{PlayerName: env.PlayerName, LevelID: env.LevelID, TimeLeft: *env.TimeLeft, Stars: stars}
	if env.Type == EvtUpdateLeaderboard {
		return UpdateLeaderboard(c), nil
	}
	return c, nil
}
