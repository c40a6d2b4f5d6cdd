package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboard_RatchetNeverRegresses(t *testing.T) {
	b := make(Leaderboard)
	now := t0

	changed := b.Record("ana", "level2", 150, 2, now)
	require.True(t, changed)

	// Fewer stars, more time left: worse, must not overwrite.
	changed = b.Record("ana", "level2", 170, 1, now.Add(time.Minute))
	assert.False(t, changed)
	got := b["ana"].Levels["level2"]
	assert.Equal(t, 2, got.Stars)
	assert.Equal(t, 150, got.TimeLeft)

	// Same stars, more time left: strictly better, overwrites.
	changed = b.Record("ana", "level2", 170, 2, now.Add(2*time.Minute))
	assert.True(t, changed)
	got = b["ana"].Levels["level2"]
	assert.Equal(t, 2, got.Stars)
	assert.Equal(t, 170, got.TimeLeft)
}

func TestLeaderboard_WinsCountDistinctLevels(t *testing.T) {
	b := make(Leaderboard)

	b.Record("ana", "level1", 100, 1, t0)
	assert.Equal(t, 1, b["ana"].Wins)

	// Improving an already-recorded level does not add a win.
	b.Record("ana", "level1", 120, 3, t0.Add(time.Minute))
	assert.Equal(t, 1, b["ana"].Wins)

	b.Record("ana", "level2", 90, 1, t0.Add(2*time.Minute))
	assert.Equal(t, 2, b["ana"].Wins)
}

func TestLeaderboard_SortedOrder(t *testing.T) {
	b := make(Leaderboard)

	// bea reached a higher level than ana.
	b.Record("ana", "level1", 170, 3, t0)
	b.Record("bea", "level2", 100, 1, t0)

	// cam matches bea's level but finished it faster.
	b.Record("cam", "level2", 150, 1, t0)

	// dan ties cam on level and time but has more total stars.
	b.Record("dan", "level2", 150, 1, t0)
	b.Record("dan", "level1", 60, 3, t0)
	b.Record("cam", "level1", 60, 1, t0)

	ranked := b.Sorted(10)
	require.Len(t, ranked, 4)
	names := []string{ranked[0].Name, ranked[1].Name, ranked[2].Name, ranked[3].Name}
	assert.Equal(t, []string{"dan", "cam", "bea", "ana"}, names)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 2, ranked[0].HighestLevel)
	assert.Equal(t, LevelTotalTime-150, ranked[0].BestTime)
}

func TestLeaderboard_SortedTieBreakOnLastWin(t *testing.T) {
	b := make(Leaderboard)
	b.Record("old", "level1", 100, 2, t0)
	b.Record("new", "level1", 100, 2, t0.Add(time.Hour))

	ranked := b.Sorted(10)
	require.Len(t, ranked, 2)
	assert.Equal(t, "new", ranked[0].Name, "most recent win ranks first on full tie")
}

func TestLeaderboard_SortedNonNumericLevelIds(t *testing.T) {
	b := make(Leaderboard)

	// Both ids rank as level 0; the real run times must still decide.
	b.Record("slow", "tutorial", 60, 1, t0)
	b.Record("fast", "tutorial", 120, 1, t0)

	ranked := b.Sorted(10)
	require.Len(t, ranked, 2)
	assert.Equal(t, "fast", ranked[0].Name)
	assert.Equal(t, LevelTotalTime-120, ranked[0].BestTime, "BestTime is the actual elapsed, not a zero placeholder")
	assert.Equal(t, LevelTotalTime-60, ranked[1].BestTime)
}

func TestLeaderboard_SortedLimit(t *testing.T) {
	b := make(Leaderboard)
	b.Record("a", "level1", 10, 1, t0)
	b.Record("b", "level1", 20, 1, t0)
	b.Record("c", "level1", 30, 1, t0)

	assert.Len(t, b.Sorted(2), 2)
	assert.Len(t, b.Sorted(0), 3)
}

func TestLevelNumber(t *testing.T) {
	assert.Equal(t, 1, LevelNumber("level1"))
	assert.Equal(t, 12, LevelNumber("level12"))
	assert.Equal(t, 0, LevelNumber("tutorial"))
	assert.Equal(t, 0, LevelNumber(""))
}
