package gamestream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/park285/board-coverage/internal/lichess"
)

type fetchResult struct {
	page lichess.Page
	err  error
}

// scriptedSource replays canned results, then empty pages.
type scriptedSource struct {
	mu      sync.Mutex
	results []fetchResult
	since   []time.Time
}

func (s *scriptedSource) FetchPage(ctx context.Context, userID string, since time.Time) (lichess.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.since = append(s.since, since)
	if len(s.results) == 0 {
		return lichess.Page{}, nil
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r.page, r.err
}

// fakeClock fires immediately and records every requested wait.
type fakeClock struct {
	waits  []time.Duration
	onWait func(n int)
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.waits = append(c.waits, d)
	if c.onWait != nil {
		c.onWait(len(c.waits))
	}
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func timed(id string, created int64, speed string) lichess.Game {
	total := 180
	return lichess.Game{ID: id, CreatedAt: created, Speed: speed, Clock: &lichess.Clock{Initial: 180, TotalTime: &total}}
}

func untimed(id string, created int64) lichess.Game {
	return lichess.Game{ID: id, CreatedAt: created, Speed: "blitz"}
}

func TestStreamFiltersAndAdvancesCursor(t *testing.T) {
	src := &scriptedSource{results: []fetchResult{{page: lichess.Page{Games: []lichess.Game{
		timed("a", 1000, "blitz"),
		timed("b", 5000, lichess.SpeedCorrespondence),
		untimed("c", 4000),
		timed("d", 2000, "rapid"),
	}}}}}
	clk := &fakeClock{}
	s := New(src, "alice", time.UnixMilli(500), WithClock(clk))
	ctx := context.Background()

	g1, err := s.Next(ctx)
	if err != nil || g1.ID != "a" {
		t.Fatalf("first game = %q, %v", g1.ID, err)
	}
	if got := s.Cursor().UnixMilli(); got != 5000 {
		t.Fatalf("cursor = %d, want 5000 (max over filtered records too)", got)
	}
	g2, err := s.Next(ctx)
	if err != nil || g2.ID != "d" {
		t.Fatalf("second game = %q, %v", g2.ID, err)
	}
	if s.State() != StateIdle {
		t.Fatalf("state after draining page = %s, want idle", s.State())
	}
	if len(clk.waits) != 0 {
		t.Fatalf("no wait expected while draining a page, got %v", clk.waits)
	}
}

func TestStreamRateLimitKeepsCursor(t *testing.T) {
	src := &scriptedSource{results: []fetchResult{
		{page: lichess.Page{RateLimited: true}},
		{page: lichess.Page{Games: []lichess.Game{timed("a", 9000, "bullet")}}},
	}}
	clk := &fakeClock{}
	start := time.UnixMilli(100)
	s := New(src, "alice", start, WithClock(clk))

	g, err := s.Next(context.Background())
	if err != nil || g.ID != "a" {
		t.Fatalf("Next = %q, %v", g.ID, err)
	}
	if len(clk.waits) != 1 || clk.waits[0] != RateLimitCooldown {
		t.Fatalf("waits = %v, want [%s]", clk.waits, RateLimitCooldown)
	}
	if len(src.since) != 2 || !src.since[0].Equal(src.since[1]) || src.since[0].UnixMilli() != 100 {
		t.Fatalf("rate limited window not retried unchanged: %v", src.since)
	}
}

func TestStreamIdlesOnEmptyPageAndAfterPage(t *testing.T) {
	src := &scriptedSource{results: []fetchResult{
		{page: lichess.Page{}},
		{page: lichess.Page{Games: []lichess.Game{timed("a", 2000, "blitz")}}},
		{page: lichess.Page{Games: []lichess.Game{timed("b", 3000, "blitz")}}},
	}}
	clk := &fakeClock{}
	s := New(src, "alice", time.UnixMilli(0), WithClock(clk))
	ctx := context.Background()

	if g, err := s.Next(ctx); err != nil || g.ID != "a" {
		t.Fatalf("Next = %q, %v", g.ID, err)
	}
	if g, err := s.Next(ctx); err != nil || g.ID != "b" {
		t.Fatalf("Next = %q, %v", g.ID, err)
	}
	want := []time.Duration{PollInterval, PollInterval}
	if len(clk.waits) != len(want) {
		t.Fatalf("waits = %v, want %v", clk.waits, want)
	}
	for i := range want {
		if clk.waits[i] != want[i] {
			t.Fatalf("waits = %v, want %v", clk.waits, want)
		}
	}
	if src.since[2].UnixMilli() != 2000 {
		t.Fatalf("third fetch since = %d, want 2000", src.since[2].UnixMilli())
	}
}

func TestStreamSkipsBoundaryDuplicates(t *testing.T) {
	src := &scriptedSource{results: []fetchResult{
		{page: lichess.Page{Games: []lichess.Game{timed("a", 2000, "blitz")}}},
		{page: lichess.Page{Games: []lichess.Game{timed("a", 2000, "blitz"), timed("b", 2000, "blitz")}}},
	}}
	s := New(src, "alice", time.UnixMilli(0), WithClock(&fakeClock{}))
	ctx := context.Background()

	if g, _ := s.Next(ctx); g.ID != "a" {
		t.Fatalf("first = %q", g.ID)
	}
	if g, _ := s.Next(ctx); g.ID != "b" {
		t.Fatalf("second = %q, want b (a already seen at the cursor)", g.ID)
	}
	if s.Cursor().UnixMilli() != 2000 {
		t.Fatalf("cursor = %d", s.Cursor().UnixMilli())
	}
}

func TestStreamRetriesThenFails(t *testing.T) {
	unavailable := &lichess.SourceError{Status: 502}
	src := &scriptedSource{results: []fetchResult{
		{err: unavailable},
		{err: unavailable},
		{err: unavailable},
	}}
	clk := &fakeClock{}
	s := New(src, "alice", time.UnixMilli(0), WithClock(clk))

	_, err := s.Next(context.Background())
	if !errors.Is(err, lichess.ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
	if len(clk.waits) != 2 || clk.waits[0] != SourceRetryBase || clk.waits[1] != 2*SourceRetryBase {
		t.Fatalf("backoff waits = %v", clk.waits)
	}
	if s.State() != StateStopped {
		t.Fatalf("state = %s, want stopped", s.State())
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("Next after failure = %v, want ErrStopped", err)
	}
}

func TestStreamRecoversAfterTransientError(t *testing.T) {
	src := &scriptedSource{results: []fetchResult{
		{err: &lichess.SourceError{Status: 500}},
		{page: lichess.Page{Games: []lichess.Game{timed("a", 10, "blitz")}}},
	}}
	s := New(src, "alice", time.UnixMilli(0), WithClock(&fakeClock{}))
	g, err := s.Next(context.Background())
	if err != nil || g.ID != "a" {
		t.Fatalf("Next = %q, %v", g.ID, err)
	}
}

func TestStreamCancelStopsDuringIdle(t *testing.T) {
	src := &scriptedSource{}
	ctx, cancel := context.WithCancel(context.Background())
	clk := &fakeClock{onWait: func(n int) {
		if n == 3 {
			cancel()
		}
	}}
	s := New(src, "alice", time.UnixMilli(0), WithClock(clk))

	_, err := s.Next(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(src.since) != 3 {
		t.Fatalf("fetches = %d, want 3 (no fetch after cancellation)", len(src.since))
	}
}

type blockingClock struct{}

func (blockingClock) After(time.Duration) <-chan time.Time { return make(chan time.Time) }

func TestStreamCancelIsPrompt(t *testing.T) {
	s := New(&scriptedSource{}, "alice", time.UnixMilli(0), WithClock(blockingClock{}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Next(ctx)
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Next did not return after cancel")
	}
}

func TestQualifies(t *testing.T) {
	if Qualifies(&lichess.Game{Speed: "blitz"}) {
		t.Fatalf("game without clock qualified")
	}
	g := timed("x", 1, lichess.SpeedCorrespondence)
	if Qualifies(&g) {
		t.Fatalf("correspondence game qualified")
	}
	g = lichess.Game{Speed: "blitz", Clock: &lichess.Clock{Initial: 60}}
	if Qualifies(&g) {
		t.Fatalf("clock without totalTime qualified")
	}
}
