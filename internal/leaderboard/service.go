package leaderboard

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nico-byte/Mirror-Dash-sub000/internal/game"
)

// DefaultTop is how many rows leaderboardUpdate broadcasts carry.
const DefaultTop = 10

// Service owns the single leaderboard and its file. All writes funnel
// through one mutex so two lobbies finishing at once cannot interleave
// partial file contents.
type Service struct {
	mu     sync.Mutex
	path   string
	board  game.Leaderboard
	logger *zap.Logger
	now    func() time.Time
}

// New loads the board from path. A missing or unreadable file yields an
// empty board; the leaderboard is best-effort durable, never a reason to
// refuse startup.
func New(path string, logger *zap.Logger) *Service {
	s := &Service{
		path:   path,
		board:  make(game.Leaderboard),
		logger: logger,
		now:    time.Now,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("leaderboard file unreadable, starting empty",
				zap.String("path", path), zap.Error(err))
		}
		return s
	}
	if err := json.Unmarshal(data, &s.board); err != nil {
		logger.Warn("leaderboard file corrupt, starting empty",
			zap.String("path", path), zap.Error(err))
		s.board = make(game.Leaderboard)
	}
	return s
}

// Record applies a completion and persists the whole board before
// returning the fresh top view. Write failures are logged and swallowed.
func (s *Service) Record(name, levelID string, timeLeft, stars int) []game.RankedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.board.Record(name, levelID, timeLeft, stars, s.now()) {
		s.persistLocked()
	}
	return s.board.Sorted(DefaultTop)
}

// Top returns the first n ranked rows.
func (s *Service) Top(n int) []game.RankedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Sorted(n)
}

// persistLocked rewrites the whole file via temp-and-rename so a crash
// mid-write never leaves a truncated board behind.
func (s *Service) persistLocked() {
	data, err := json.MarshalIndent(s.board, "", "  ")
	if err != nil {
		s.logger.Error("leaderboard marshal failed", zap.Error(err))
		return
	}
	tmp := s.path + ".tmp"
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger.Error("leaderboard dir create failed", zap.Error(err))
			return
		}
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Error("leaderboard write failed", zap.String("path", tmp), zap.Error(err))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Error("leaderboard rename failed", zap.String("path", s.path), zap.Error(err))
	}
}
