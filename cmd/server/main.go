package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nico-byte/Mirror-Dash-sub000/internal/config"
	"github.com/nico-byte/Mirror-Dash-sub000/internal/httpapi"
	"github.com/nico-byte/Mirror-Dash-sub000/internal/leaderboard"
	"github.com/nico-byte/Mirror-Dash-sub000/internal/lobby"
	"github.com/nico-byte/Mirror-Dash-sub000/internal/timer"
	"github.com/nico-byte/Mirror-Dash-sub000/internal/ws"
)

func main() {
	cfg := config.Load()

	logger := zap.Must(zap.NewProduction())
	defer func() { _ = logger.Sync() }()

	lobbies := lobby.NewService(lobby.Options{
		MaxPlayersPerLobby: cfg.MaxPlayersPerLobby,
		InitialTimer:       cfg.InitialTimer,
		MaxIdleTime:        cfg.MaxIdleTime,
		FullSyncInterval:   cfg.FullSyncInterval,
	}, logger.Named("lobby"))
	board := leaderboard.New(cfg.LeaderboardFile, logger.Named("leaderboard"))
	rooms := ws.NewRooms(logger.Named("rooms"))
	gateway := ws.NewGateway(lobbies, board, rooms, cfg.AllowedOrigins, logger.Named("ws"))

	countdown := timer.Start(time.Second, gateway.TickTimers)
	defer countdown.Stop()
	cleanup := timer.Start(cfg.CleanupInterval, gateway.SweepIdle)
	defer cleanup.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: httpapi.SetupRoutes(gateway, lobbies, cfg.AllowedOrigins),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}
