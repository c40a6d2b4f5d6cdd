package game

import "errors"

var ErrLobbyNotFound = errors.New("lobby not found")
var ErrLobbyFull = errors.New("lobby is full")
var ErrNotHost = errors.New("only the host can do that")
var ErrNotEnoughPlayers = errors.New("not enough players to start")
var ErrPlayerNotFound = errors.New("player not found in lobby")
