package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process contract: everything tunable comes from the
// environment, with defaults matching the production deployment.
type Config struct {
	Port               int
	MaxPlayersPerLobby int
	InitialTimer       int // seconds on a fresh level
	MaxIdleTime        time.Duration
	CleanupInterval    time.Duration
	FullSyncInterval   time.Duration
	LeaderboardFile    string
	AllowedOrigins     []string
}

// Load reads .env if present, then the environment. Unset or unparsable
// values fall back to defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:               envInt("PORT", 8080),
		MaxPlayersPerLobby: envInt("MAX_PLAYERS_PER_LOBBY", 2),
		InitialTimer:       envInt("INITIAL_TIMER", 180),
		MaxIdleTime:        envMillis("MAX_IDLE_TIME", time.Hour),
		CleanupInterval:    envMillis("CLEANUP_INTERVAL", 5*time.Minute),
		FullSyncInterval:   envMillis("FULL_SYNC_INTERVAL", 3*time.Second),
		LeaderboardFile:    envString("LEADERBOARD_FILE", "leaderboard.json"),
		AllowedOrigins:     envList("ALLOWED_ORIGINS", []string{"*"}),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// envMillis reads a duration expressed as milliseconds, the unit the
// deployment configs have always used.
func envMillis(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
