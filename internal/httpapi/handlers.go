package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/nico-byte/Mirror-Dash-sub000/internal/game"
	"github.com/nico-byte/Mirror-Dash-sub000/internal/lobby"
)

// ListLobbies serves the same joinable-lobby summaries as the getLobbyList
// socket event, for the browser page shown before a socket is opened.
func ListLobbies(lobbies *lobby.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Lobbies []game.LobbySummary `json:"lobbies"`
		}{Lobbies: lobbies.Available()})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
