package pgsink

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/park285/board-coverage/internal/coverage"
	"github.com/park285/board-coverage/internal/san"
	"github.com/park285/board-coverage/internal/stats"
	"github.com/park285/board-coverage/internal/tracker"
)

func TestNewRequiresURL(t *testing.T) {
	if _, err := New(context.Background(), " ", "alice"); !errors.Is(err, ErrDatabaseURLRequired) {
		t.Fatalf("err = %v", err)
	}
}

func TestRowColumns(t *testing.T) {
	var cov coverage.Map
	cov[san.Queen][0][3] = 4
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	u := tracker.Update{
		RunID:    "r",
		Seq:      3,
		Game:     tracker.GameSummary{ID: "g", Speed: "blitz", Opponent: "bob"},
		Side:     san.Black,
		Pushed:   20,
		Coverage: cov,
		Stats:    stats.Snapshot{GamesPlayed: 3, Progress: 0.5, ElapsedSeconds: 600},
		At:       at,
	}
	args, err := row(u, "alice")
	if err != nil {
		t.Fatalf("row: %v", err)
	}
	if n := strings.Count(insertGame, "$"); n != len(args) {
		t.Fatalf("placeholders = %d, args = %d", n, len(args))
	}
	if args[4] != "black" || args[3] != "alice" || args[13] != at {
		t.Fatalf("args = %v", args)
	}
	if !strings.Contains(args[12].(string), `"Q":1`) {
		t.Fatalf("visited = %v", args[12])
	}
}

func TestNilLedgerPublish(t *testing.T) {
	var l *Ledger
	if err := l.Publish(context.Background(), tracker.Update{}); err != nil {
		t.Fatalf("Publish on nil ledger: %v", err)
	}
}
