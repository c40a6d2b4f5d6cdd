package game

import (
	"sort"
	"strconv"
	"time"
)

// LevelTotalTime is the countdown every level starts from. Elapsed time on a
// run is LevelTotalTime minus the time left at the finish line.
const LevelTotalTime = 180

// LevelResult is a player's best recorded run on one level.
type LevelResult struct {
	TimeLeft    int       `json:"timeLeft"`
	Stars       int       `json:"stars"`
	CompletedAt time.Time `json:"completedAt"`
}

// Better reports whether the candidate run beats the recorded one: more
// stars wins outright, equal stars fall back to time left.
func (r LevelResult) Better(stars, timeLeft int) bool {
	if stars != r.Stars {
		return stars > r.Stars
	}
	return timeLeft > r.TimeLeft
}

type LeaderboardEntry struct {
	Name    string                 `json:"name"`
	Wins    int                    `json:"wins"`
	LastWin time.Time              `json:"lastWin"`
	Levels  map[string]LevelResult `json:"levels"`
}

// Leaderboard aggregates completions by player name. It is the shape
// persisted to disk verbatim.
type Leaderboard map[string]*LeaderboardEntry

// Record applies a completion with ratchet semantics: a level result is only
// overwritten by a strictly better run. Wins counts distinct levels
// completed, not improvements. Returns whether anything changed.
func (b Leaderboard) Record(name, levelID string, timeLeft, stars int, now time.Time) bool {
	entry, ok := b[name]
	if !ok {
		entry = &LeaderboardEntry{Name: name, Levels: make(map[string]LevelResult)}
		b[name] = entry
	}
	prev, seen := entry.Levels[levelID]
	if seen && !prev.Better(stars, timeLeft) {
		return false
	}
	entry.Levels[levelID] = LevelResult{TimeLeft: timeLeft, Stars: stars, CompletedAt: now}
	if !seen {
		entry.Wins++
	}
	entry.LastWin = now
	return true
}

// RankedEntry is one row of the sorted leaderboard view.
type RankedEntry struct {
	Rank         int       `json:"rank"`
	Name         string    `json:"name"`
	HighestLevel int       `json:"highestLevel"`
	BestTime     int       `json:"bestTime"` // elapsed seconds on the highest level
	TotalStars   int       `json:"totalStars"`
	Wins         int       `json:"wins"`
	LastWin      time.Time `json:"lastWin"`
}

// Sorted ranks entries by: highest level reached, fastest run on that level,
// total stars, most recent win. Fixed tie-break order, no randomness.
func (b Leaderboard) Sorted(limit int) []RankedEntry {
	ranked := make([]RankedEntry, 0, len(b))
	for _, entry := range b {
		row := RankedEntry{Name: entry.Name, Wins: entry.Wins, LastWin: entry.LastWin}
		first := true
		for levelID, result := range entry.Levels {
			row.TotalStars += result.Stars
			n := LevelNumber(levelID)
			elapsed := LevelTotalTime - result.TimeLeft
			// The first level seen seeds BestTime; a zero init would beat
			// any real run when every level id ranks as 0.
			if first || n > row.HighestLevel {
				row.HighestLevel = n
				row.BestTime = elapsed
			} else if n == row.HighestLevel && elapsed < row.BestTime {
				row.BestTime = elapsed
			}
			first = false
		}
		ranked = append(ranked, row)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.HighestLevel != b.HighestLevel {
			return a.HighestLevel > b.HighestLevel
		}
		if a.BestTime != b.BestTime {
			return a.BestTime < b.BestTime
		}
		if a.TotalStars != b.TotalStars {
			return a.TotalStars > b.TotalStars
		}
		return a.LastWin.After(b.LastWin)
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// LevelNumber extracts the trailing number of a level id ("level12" -> 12).
// Ids without one rank as 0.
func LevelNumber(levelID string) int {
	i := len(levelID)
	for i > 0 && levelID[i-1] >= '0' && levelID[i-1] <= '9' {
		i--
	}
	n, err := strconv.Atoi(levelID[i:])
	if err != nil {
		return 0
	}
	return n
}
