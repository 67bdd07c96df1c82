// Package stats keeps the running totals shown next to the coverage boards.
package stats

import (
	"time"

	"github.com/park285/board-coverage/internal/clock"
	"github.com/park285/board-coverage/internal/coverage"
	"github.com/park285/board-coverage/internal/lichess"
	"github.com/park285/board-coverage/internal/san"
)

// Snapshot is an immutable copy of the counters.
type Snapshot struct {
	GamesPlayed int     `json:"gamesPlayed"`
	Progress    float64 `json:"progress"`
	// ElapsedSeconds sums the clock time of both players in every game.
	ElapsedSeconds int `json:"elapsedSeconds"`
	// OwnSeconds is the part of ElapsedSeconds spent on the tracked side's clock.
	OwnSeconds int `json:"ownSeconds"`
}

func (s Snapshot) Elapsed() time.Duration {
	return time.Duration(s.ElapsedSeconds) * time.Second
}

// Tracker is single writer, like coverage.Tracker.
type Tracker struct {
	snap Snapshot
}

func NewTracker() *Tracker { return &Tracker{} }

// Update folds one processed game in. cov is the coverage after the game.
// Missing clock annotations contribute zero time.
func (t *Tracker) Update(game lichess.Game, cov coverage.Map, side san.Side) Snapshot {
	el := clock.Compute(game.PGN, game.ClockConfig())
	t.snap.GamesPlayed++
	t.snap.Progress = cov.Progress()
	t.snap.ElapsedSeconds += el.Total()
	switch side {
	case san.White:
		t.snap.OwnSeconds += el.White
	case san.Black:
		t.snap.OwnSeconds += el.Black
	}
	return t.snap
}

func (t *Tracker) Snapshot() Snapshot { return t.snap }
