package game

import "time"

type Animation string

const (
	AnimIdle Animation = "idle"
	AnimRun  Animation = "run"
	AnimJump Animation = "jump"
)

type Direction string

const (
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

func ValidAnimation(a string) bool {
	switch Animation(a) {
	case AnimIdle, AnimRun, AnimJump:
		return true
	}
	return false
}

func ValidDirection(d string) bool {
	switch Direction(d) {
	case DirLeft, DirRight:
		return true
	}
	return false
}

// Player is the per-connection state inside a lobby. Position and animation
// are whatever the client last reported; the server relays, it does not
// validate movement.
type Player struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Animation   Animation `json:"animation"`
	Direction   Direction `json:"direction"`
	HasFinished bool      `json:"hasFinished"`
	LastUpdate  time.Time `json:"-"`
}

// PlayerUpdate carries the fields of a playerUpdate event that were actually
// present in the payload. Nil means "not sent, leave as is".
type PlayerUpdate struct {
	X         *float64
	Y         *float64
	Animation *Animation
	Direction *Direction
}

func NewPlayer(id, name string, now time.Time) *Player {
	if name == "" {
		name = id
	}
	return &Player{
		ID:         id,
		Name:       name,
		Animation:  AnimIdle,
		Direction:  DirRight,
		LastUpdate: now,
	}
}

// Apply merges the present fields and refreshes LastUpdate.
func (p *Player) Apply(u PlayerUpdate, now time.Time) {
	if u.X != nil {
		p.X = *u.X
	}
	if u.Y != nil {
		p.Y = *u.Y
	}
	if u.Animation != nil {
		p.Animation = *u.Animation
	}
	if u.Direction != nil {
		p.Direction = *u.Direction
	}
	p.LastUpdate = now
}
