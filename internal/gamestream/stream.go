// Package gamestream turns the paged export endpoint into an endless,
// cursor-advancing sequence of games worth tracking.
package gamestream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/park285/board-coverage/internal/lichess"
	"go.uber.org/zap"
)

const (
	PollInterval        = 10 * time.Second
	RateLimitCooldown   = 60 * time.Second
	SourceRetryAttempts = 3
	SourceRetryBase     = 2 * time.Second
)

// ErrStopped is returned by Next once the stream has failed or been cancelled.
var ErrStopped = errors.New("game stream stopped")

// State is the polling state machine position.
type State int

const (
	StateFetching State = iota
	StateIdle
	StateRateLimited
	StateRetrying
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateIdle:
		return "idle"
	case StateRateLimited:
		return "rate_limited"
	case StateRetrying:
		return "retrying"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Clock supplies the waits between polls; tests inject a fake.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Observer receives per-fetch events (metrics hook).
type Observer interface {
	PageFetched(total, kept int)
	RateLimited()
	SourceError(err error)
}

type nopObserver struct{}

func (nopObserver) PageFetched(int, int) {}
func (nopObserver) RateLimited()         {}
func (nopObserver) SourceError(error)    {}

// Stream is not safe for concurrent use; one consumer drives it.
type Stream struct {
	src    lichess.Source
	userID string

	cursor time.Time
	// ids already handled whose createdAt equals the cursor; since is inclusive
	boundary map[string]struct{}

	state    State
	wait     time.Duration
	failures int
	pending  []lichess.Game
	lastErr  error

	clock    Clock
	logger   *zap.Logger
	observer Observer
}

type Option func(*Stream)

func WithClock(c Clock) Option {
	return func(s *Stream) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Stream) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Stream) {
		if o != nil {
			s.observer = o
		}
	}
}

// New starts a stream at start. A new cursor needs a new Stream.
func New(src lichess.Source, userID string, start time.Time, opts ...Option) *Stream {
	s := &Stream{
		src:      src,
		userID:   userID,
		cursor:   start.UTC().Truncate(time.Millisecond),
		boundary: map[string]struct{}{},
		state:    StateFetching,
		clock:    RealClock{},
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stream) Cursor() time.Time { return s.cursor }
func (s *Stream) State() State      { return s.state }

// Next blocks until a qualifying game is available. Cancellation is checked
// before every fetch and after every wait.
func (s *Stream) Next(ctx context.Context) (lichess.Game, error) {
	for {
		if len(s.pending) > 0 {
			g := s.pending[0]
			s.pending = s.pending[1:]
			if len(s.pending) == 0 {
				s.idle(PollInterval)
			}
			return g, nil
		}

		if err := ctx.Err(); err != nil {
			return lichess.Game{}, s.stop(err)
		}

		switch s.state {
		case StateIdle, StateRateLimited, StateRetrying:
			if err := s.sleep(ctx, s.wait); err != nil {
				return lichess.Game{}, s.stop(err)
			}
			s.state, s.wait = StateFetching, 0
		case StateFetching:
			if err := s.fetch(ctx); err != nil {
				return lichess.Game{}, s.stop(err)
			}
		case StateStopped:
			if s.lastErr != nil {
				return lichess.Game{}, fmt.Errorf("%w: %w", ErrStopped, s.lastErr)
			}
			return lichess.Game{}, ErrStopped
		default:
			return lichess.Game{}, s.stop(fmt.Errorf("unexpected stream state %s", s.state))
		}
	}
}

func (s *Stream) fetch(ctx context.Context) error {
	page, err := s.src.FetchPage(ctx, s.userID, s.cursor)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !errors.Is(err, lichess.ErrSourceUnavailable) {
			return err
		}
		s.failures++
		s.observer.SourceError(err)
		if s.failures >= SourceRetryAttempts {
			s.logger.Error("stream_source_failed", zap.Int("attempts", s.failures), zap.Error(err))
			return fmt.Errorf("fetch games after %d attempts: %w", s.failures, err)
		}
		s.state, s.wait = StateRetrying, backoffDuration(s.failures)
		s.logger.Warn("stream_source_retry", zap.Int("attempt", s.failures), zap.Duration("backoff", s.wait), zap.Error(err))
		return nil
	}
	s.failures = 0

	if page.RateLimited {
		s.observer.RateLimited()
		s.state, s.wait = StateRateLimited, RateLimitCooldown
		s.logger.Warn("stream_rate_limited", zap.Duration("cooldown", RateLimitCooldown), zap.Time("cursor", s.cursor))
		return nil
	}

	if len(page.Games) == 0 {
		s.observer.PageFetched(0, 0)
		s.idle(PollInterval)
		return nil
	}

	kept := s.accept(page.Games)
	s.observer.PageFetched(len(page.Games), len(kept))
	s.logger.Debug("stream_page",
		zap.Int("games", len(page.Games)),
		zap.Int("kept", len(kept)),
		zap.Time("cursor", s.cursor),
	)
	if len(kept) == 0 {
		s.idle(PollInterval)
		return nil
	}
	s.pending = kept
	return nil
}

// accept advances the cursor over every record, filtered or not, and returns
// the qualifying records in arrival order.
func (s *Stream) accept(games []lichess.Game) []lichess.Game {
	prevMs := s.cursor.UnixMilli()
	maxMs := prevMs
	for i := range games {
		if games[i].CreatedAt > maxMs {
			maxMs = games[i].CreatedAt
		}
	}

	kept := make([]lichess.Game, 0, len(games))
	for _, g := range games {
		if g.CreatedAt <= prevMs {
			if _, dup := s.boundary[g.ID]; dup {
				continue
			}
		}
		if Qualifies(&g) {
			kept = append(kept, g)
		}
	}

	if maxMs > prevMs {
		s.cursor = time.UnixMilli(maxMs).UTC()
		s.boundary = map[string]struct{}{}
	}
	for _, g := range games {
		if g.CreatedAt == maxMs {
			s.boundary[g.ID] = struct{}{}
		}
	}
	return kept
}

// Qualifies rejects correspondence games and games without clock metadata.
func Qualifies(g *lichess.Game) bool {
	if g.Speed == lichess.SpeedCorrespondence {
		return false
	}
	return g.HasClock()
}

func (s *Stream) idle(d time.Duration) {
	s.state, s.wait = StateIdle, d
}

func (s *Stream) stop(err error) error {
	s.state = StateStopped
	s.pending = nil
	if s.lastErr == nil {
		s.lastErr = err
	}
	return err
}

func (s *Stream) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return ctx.Err()
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * SourceRetryBase
}
