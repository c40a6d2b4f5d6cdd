package game

import (
	"sort"
	"time"
)

// Lobby owns its players. All methods assume the caller (the lobby service)
// serializes access; there is no locking at this level.
type Lobby struct {
	ID              string
	Name            string
	Host            string
	MaxPlayers      int
	Players         map[string]*Player
	GameStarted     bool
	CurrentLevel    string
	TimerStarted    bool
	TimeLeft        int
	LastTimerUpdate time.Time
	LastFullSync    time.Time
	PlayersFinished map[string]bool
	CreatedAt       time.Time
}

func NewLobby(id, name string, maxPlayers int, now time.Time) *Lobby {
	return &Lobby{
		ID:              id,
		Name:            name,
		MaxPlayers:      maxPlayers,
		Players:         make(map[string]*Player),
		CurrentLevel:    "level1",
		PlayersFinished: make(map[string]bool),
		LastTimerUpdate: now,
		CreatedAt:       now,
	}
}

func (l *Lobby) IsFull() bool { return len(l.Players) >= l.MaxPlayers }

// AddPlayer inserts the player, claiming the host seat if the lobby was
// empty. Re-adding an id that is already a member replaces its record and
// does not count against capacity; the replacement starts unfinished, so
// its old finished mark goes too.
func (l *Lobby) AddPlayer(p *Player) error {
	if _, member := l.Players[p.ID]; !member && l.IsFull() {
		return ErrLobbyFull
	}
	delete(l.PlayersFinished, p.ID)
	l.Players[p.ID] = p
	if l.Host == "" {
		l.Host = p.ID
	}
	return nil
}

// RemovePlayer drops the player and migrates the host seat to an arbitrary
// remaining member. Which member wins the seat is unspecified.
func (l *Lobby) RemovePlayer(id string) (*Player, error) {
	p, ok := l.Players[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	delete(l.Players, id)
	delete(l.PlayersFinished, id)
	if l.Host == id {
		l.Host = ""
		for remaining := range l.Players {
			l.Host = remaining
			break
		}
	}
	return p, nil
}

// Start begins the game. Host-only, needs at least two players.
func (l *Lobby) Start(requesterID string, initialTimer int, now time.Time) error {
	if requesterID != l.Host {
		return ErrNotHost
	}
	if len(l.Players) < 2 {
		return ErrNotEnoughPlayers
	}
	l.GameStarted = true
	l.TimerStarted = true
	l.TimeLeft = initialTimer
	l.LastTimerUpdate = now
	l.resetFinished()
	return nil
}

// ChangeLevel moves the lobby to a new level: fresh timer, nobody finished.
// GameStarted is left alone so a mid-game level switch stays in-game.
func (l *Lobby) ChangeLevel(levelID string, initialTimer int, now time.Time) {
	l.CurrentLevel = levelID
	l.TimeLeft = initialTimer
	l.LastTimerUpdate = now
	l.resetFinished()
}

func (l *Lobby) resetFinished() {
	l.PlayersFinished = make(map[string]bool)
	for _, p := range l.Players {
		p.HasFinished = false
	}
}

// MarkFinished records that the player reached the goal. Idempotent: a
// second report does not bump the count.
func (l *Lobby) MarkFinished(id string) (finished, total int, all bool, err error) {
	p, ok := l.Players[id]
	if !ok {
		return 0, 0, false, ErrPlayerNotFound
	}
	p.HasFinished = true
	l.PlayersFinished[id] = true
	finished = len(l.PlayersFinished)
	total = len(l.Players)
	return finished, total, finished >= total, nil
}

// AdvanceTimer moves the countdown forward by the whole seconds elapsed
// since the last advance, clamped at zero. Partial seconds stay banked in
// LastTimerUpdate so jittery ticks do not lose time. expired is true only
// on the call that crosses to zero.
func (l *Lobby) AdvanceTimer(now time.Time) (changed, expired bool) {
	if !l.GameStarted || !l.TimerStarted {
		return false, false
	}
	elapsed := int(now.Sub(l.LastTimerUpdate) / time.Second)
	if elapsed <= 0 {
		return false, false
	}
	l.LastTimerUpdate = l.LastTimerUpdate.Add(time.Duration(elapsed) * time.Second)
	if l.TimeLeft <= 0 {
		return false, false
	}
	l.TimeLeft -= elapsed
	if l.TimeLeft <= 0 {
		l.TimeLeft = 0
		return true, true
	}
	return true, false
}

// SetTimeLeft overrides the countdown, e.g. when a client reports a penalty.
// expired is true when the override itself drives a running countdown to
// zero; AdvanceTimer never reports that crossing because it only sees the
// clamped value.
func (l *Lobby) SetTimeLeft(seconds int, now time.Time) (expired bool) {
	if seconds < 0 {
		seconds = 0
	}
	expired = l.TimerStarted && l.TimeLeft > 0 && seconds == 0
	l.TimeLeft = seconds
	l.LastTimerUpdate = now
	return expired
}

// IsIdle reports whether the lobby has outlived maxIdle with no player
// activity inside that window.
func (l *Lobby) IsIdle(now time.Time, maxIdle time.Duration) bool {
	if now.Sub(l.CreatedAt) <= maxIdle {
		return false
	}
	for _, p := range l.Players {
		if now.Sub(p.LastUpdate) <= maxIdle {
			return false
		}
	}
	return true
}

// LobbySummary is the row shown in the lobby browser.
type LobbySummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Host        string `json:"host"`
}

func (l *Lobby) Summary() LobbySummary {
	return LobbySummary{
		ID:          l.ID,
		Name:        l.Name,
		PlayerCount: len(l.Players),
		MaxPlayers:  l.MaxPlayers,
		Host:        l.Host,
	}
}

// LobbySnapshot is the full lobbyState payload. Players are copied so the
// snapshot can cross goroutines safely.
type LobbySnapshot struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Host            string   `json:"host"`
	Players         []Player `json:"players"`
	GameStarted     bool     `json:"gameStarted"`
	CurrentLevel    string   `json:"currentLevel"`
	TimerStarted    bool     `json:"timerStarted"`
	TimeLeft        int      `json:"timeLeft"`
	PlayersFinished []string `json:"playersFinished"`
}

func (l *Lobby) Snapshot() LobbySnapshot {
	players := make([]Player, 0, len(l.Players))
	for _, p := range l.Players {
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	finished := make([]string, 0, len(l.PlayersFinished))
	for id := range l.PlayersFinished {
		finished = append(finished, id)
	}
	sort.Strings(finished)
	return LobbySnapshot{
		ID:              l.ID,
		Name:            l.Name,
		Host:            l.Host,
		Players:         players,
		GameStarted:     l.GameStarted,
		CurrentLevel:    l.CurrentLevel,
		TimerStarted:    l.TimerStarted,
		TimeLeft:        l.TimeLeft,
		PlayersFinished: finished,
	}
}
