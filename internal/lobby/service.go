package lobby

import (
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/nico-byte/Mirror-Dash-sub000/internal/game"
)

const lobbyIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Options are the tunables the service needs from process config.
type Options struct {
	MaxPlayersPerLobby int
	InitialTimer       int // seconds
	MaxIdleTime        time.Duration
	FullSyncInterval   time.Duration
}

// Service is the process-wide lobby registry. Every mutation of any lobby
// goes through here, one operation at a time, so handlers never observe a
// half-applied change.
type Service struct {
	mu      sync.Mutex
	lobbies map[string]*game.Lobby
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(opts Options, logger *zap.Logger) *Service {
	return &Service{
		lobbies: make(map[string]*game.Lobby),
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// Departure describes one lobby a player was removed from, with everything
// the transport needs to notify the remaining members.
type Departure struct {
	LobbyID  string
	Player   game.Player
	Deleted  bool
	NewHost  string // set when the host seat moved
	Snapshot game.LobbySnapshot
}

// FinishResult reports progress after a playerFinished call.
type FinishResult struct {
	Finished int
	Total    int
	All      bool
}

// TimerEvent is one lobby's countdown movement from a ProcessTimers pass.
type TimerEvent struct {
	LobbyID  string
	TimeLeft int
	Expired  bool // this pass crossed to zero
}

// Create makes a fresh lobby with the requester as sole member and host.
// The requester is pulled out of any lobby it was in first; a connection
// lives in at most one lobby.
func (s *Service) Create(requesterID, lobbyName, playerName string) (game.LobbySnapshot, []Departure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	departures := s.removeFromOthersLocked(requesterID, "")

	now := s.now()
	id, err := gonanoid.Generate(lobbyIDAlphabet, 8)
	if err != nil {
		return game.LobbySnapshot{}, departures, err
	}
	if lobbyName == "" {
		lobbyName = playerName + "'s lobby"
	}
	l := game.NewLobby(id, lobbyName, s.opts.MaxPlayersPerLobby, now)
	_ = l.AddPlayer(game.NewPlayer(requesterID, playerName, now))
	s.lobbies[id] = l
	s.logger.Info("lobby created",
		zap.String("lobby_id", id),
		zap.String("host", requesterID))
	return l.Snapshot(), departures, nil
}

// Join adds the player to the lobby, removing it from any other lobby
// first.
func (s *Service) Join(playerID, lobbyID, playerName string) (game.LobbySnapshot, []Departure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[lobbyID]
	if !ok {
		return game.LobbySnapshot{}, nil, game.ErrLobbyNotFound
	}
	if _, member := l.Players[playerID]; !member && l.IsFull() {
		return game.LobbySnapshot{}, nil, game.ErrLobbyFull
	}

	departures := s.removeFromOthersLocked(playerID, lobbyID)
	// Capacity could only have opened up, never closed, so this cannot fail
	// after the check above.
	if err := l.AddPlayer(game.NewPlayer(playerID, playerName, s.now())); err != nil {
		return game.LobbySnapshot{}, departures, err
	}
	s.logger.Info("player joined lobby",
		zap.String("lobby_id", lobbyID),
		zap.String("player_id", playerID))
	return l.Snapshot(), departures, nil
}

// Remove takes the player out of one lobby, migrating the host seat and
// deleting the lobby if it empties.
func (s *Service) Remove(playerID, lobbyID string) (Departure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[lobbyID]
	if !ok {
		return Departure{}, game.ErrLobbyNotFound
	}
	dep, err := s.removeFromLobbyLocked(l, playerID)
	if err != nil {
		return Departure{}, err
	}
	return dep, nil
}

// RemoveFromAll is the disconnect path: the player leaves every lobby it is
// in. A no-op for players in none.
func (s *Service) RemoveFromAll(playerID string) []Departure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeFromOthersLocked(playerID, "")
}

// removeFromOthersLocked vacates the player from every lobby except the
// one named, so rejoining a lobby you already occupy does not tear it down.
func (s *Service) removeFromOthersLocked(playerID, exceptLobbyID string) []Departure {
	var departures []Departure
	for id, l := range s.lobbies {
		if id == exceptLobbyID {
			continue
		}
		if _, member := l.Players[playerID]; !member {
			continue
		}
		dep, err := s.removeFromLobbyLocked(l, playerID)
		if err != nil {
			continue
		}
		departures = append(departures, dep)
	}
	return departures
}

func (s *Service) removeFromLobbyLocked(l *game.Lobby, playerID string) (Departure, error) {
	oldHost := l.Host
	p, err := l.RemovePlayer(playerID)
	if err != nil {
		return Departure{}, err
	}
	dep := Departure{LobbyID: l.ID, Player: *p}
	if len(l.Players) == 0 {
		delete(s.lobbies, l.ID)
		dep.Deleted = true
		s.logger.Info("lobby deleted, last player left", zap.String("lobby_id", l.ID))
		return dep, nil
	}
	if l.Host != oldHost {
		dep.NewHost = l.Host
		s.logger.Info("host migrated",
			zap.String("lobby_id", l.ID),
			zap.String("new_host", l.Host))
	}
	dep.Snapshot = l.Snapshot()
	return dep, nil
}

// Start flips the lobby into the running game state. Host-only, two players
// minimum.
func (s *Service) Start(lobbyID, requesterID string) (game.LobbySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[lobbyID]
	if !ok {
		return game.LobbySnapshot{}, game.ErrLobbyNotFound
	}
	if err := l.Start(requesterID, s.opts.InitialTimer, s.now()); err != nil {
		return game.LobbySnapshot{}, err
	}
	s.logger.Info("game started", zap.String("lobby_id", lobbyID))
	return l.Snapshot(), nil
}

// ChangeLevel switches the lobby's level and resets per-level state.
func (s *Service) ChangeLevel(lobbyID, levelID string) (game.LobbySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[lobbyID]
	if !ok {
		return game.LobbySnapshot{}, game.ErrLobbyNotFound
	}
	l.ChangeLevel(levelID, s.opts.InitialTimer, s.now())
	return l.Snapshot(), nil
}

// UpdatePlayer applies a partial position/animation update. fullSync asks
// the caller to broadcast a complete lobbyState alongside the incremental
// playerMoved; it trips at a fixed interval per lobby.
func (s *Service) UpdatePlayer(lobbyID, playerID string, u game.PlayerUpdate) (game.Player, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[lobbyID]
	if !ok {
		return game.Player{}, false, game.ErrLobbyNotFound
	}
	p, ok := l.Players[playerID]
	if !ok {
		return game.Player{}, false, game.ErrPlayerNotFound
	}
	now := s.now()
	p.Apply(u, now)

	fullSync := false
	if now.Sub(l.LastFullSync) >= s.opts.FullSyncInterval {
		l.LastFullSync = now
		fullSync = true
	}
	return *p, fullSync, nil
}

// Finish marks the player done with the current level.
func (s *Service) Finish(lobbyID, playerID string) (FinishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[lobbyID]
	if !ok {
		return FinishResult{}, game.ErrLobbyNotFound
	}
	finished, total, all, err := l.MarkFinished(playerID)
	if err != nil {
		return FinishResult{}, err
	}
	return FinishResult{Finished: finished, Total: total, All: all}, nil
}

// SetTimer overrides a lobby's countdown with a client-reported value.
// expired reports a running countdown driven to zero by the override, since
// the tick driver will never see that crossing.
func (s *Service) SetTimer(lobbyID string, timeLeft int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[lobbyID]
	if !ok {
		return 0, false, game.ErrLobbyNotFound
	}
	expired := l.SetTimeLeft(timeLeft, s.now())
	if expired {
		s.logger.Info("lobby timer zeroed by client", zap.String("lobby_id", lobbyID))
	}
	return l.TimeLeft, expired, nil
}

// TimeLeft reads a lobby's countdown.
func (s *Service) TimeLeft(lobbyID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[lobbyID]
	if !ok {
		return 0, game.ErrLobbyNotFound
	}
	return l.TimeLeft, nil
}

// Snapshot returns the full state of one lobby.
func (s *Service) Snapshot(lobbyID string) (game.LobbySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[lobbyID]
	if !ok {
		return game.LobbySnapshot{}, game.ErrLobbyNotFound
	}
	return l.Snapshot(), nil
}

// Available lists joinable lobbies: not started, not full.
func (s *Service) Available() []game.LobbySummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]game.LobbySummary, 0)
	for _, l := range s.lobbies {
		if l.GameStarted || l.IsFull() {
			continue
		}
		out = append(out, l.Summary())
	}
	return out
}

// ProcessTimers advances every running countdown by whole elapsed seconds
// and reports the lobbies that moved. Expired fires exactly once per
// crossing.
func (s *Service) ProcessTimers(now time.Time) []TimerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []TimerEvent
	for _, l := range s.lobbies {
		changed, expired := l.AdvanceTimer(now)
		if !changed {
			continue
		}
		events = append(events, TimerEvent{LobbyID: l.ID, TimeLeft: l.TimeLeft, Expired: expired})
		if expired {
			s.logger.Info("lobby timer expired", zap.String("lobby_id", l.ID))
		}
	}
	return events
}

// CleanupInactive evicts lobbies idle past MaxIdleTime and returns their
// ids.
func (s *Service) CleanupInactive(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id, l := range s.lobbies {
		if !l.IsIdle(now, s.opts.MaxIdleTime) {
			continue
		}
		delete(s.lobbies, id)
		removed = append(removed, id)
		s.logger.Info("inactive lobby removed", zap.String("lobby_id", id))
	}
	return removed
}
