package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/nico-byte/Mirror-Dash-sub000/internal/lobby"
	"github.com/nico-byte/Mirror-Dash-sub000/internal/ws"
)

func SetupRoutes(g *ws.Gateway, lobbies *lobby.Service, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// The game client is a browser/Electron app served from another origin.
	r.Use(cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler)

	r.Get("/lobbies", ListLobbies(lobbies))
	r.Get("/healthz", Healthz)
	r.Get("/ws", g.Handler())
	return r
}
