package lichess

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/board-coverage/internal/clock"
	"github.com/park285/board-coverage/internal/san"
)

// SpeedCorrespondence is the only speed category excluded from tracking.
const SpeedCorrespondence = "correspondence"

// Game is one record of the user games export (NDJSON, pgnInJson+clocks).
type Game struct {
	ID         string  `json:"id"`
	Rated      bool    `json:"rated"`
	Variant    string  `json:"variant"`
	Speed      string  `json:"speed"`
	Perf       string  `json:"perf,omitempty"`
	CreatedAt  int64   `json:"createdAt"`
	LastMoveAt int64   `json:"lastMoveAt"`
	Status     string  `json:"status"`
	Winner     string  `json:"winner,omitempty"`
	Players    Players `json:"players"`
	Moves      string  `json:"moves"`
	Clock      *Clock  `json:"clock,omitempty"`
	PGN        string  `json:"pgn,omitempty"`
}

type Players struct {
	White Player `json:"white"`
	Black Player `json:"black"`
}

// Player.User is nil for anonymous players and AI opponents.
type Player struct {
	User    *User `json:"user,omitempty"`
	Rating  int   `json:"rating,omitempty"`
	AILevel int   `json:"aiLevel,omitempty"`
}

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Clock struct {
	Initial   int  `json:"initial"`
	Increment int  `json:"increment"`
	TotalTime *int `json:"totalTime,omitempty"`
}

// CreatedTime converts the millisecond createdAt field.
func (g *Game) CreatedTime() time.Time { return time.UnixMilli(g.CreatedAt).UTC() }

// HasClock reports whether the record carries clock metadata with a total time.
func (g *Game) HasClock() bool { return g.Clock != nil && g.Clock.TotalTime != nil }

// ClockConfig returns the time control; zero when the game had no clock.
func (g *Game) ClockConfig() clock.Config {
	if g.Clock == nil {
		return clock.Config{}
	}
	return clock.Config{InitialSeconds: g.Clock.Initial, IncrementSeconds: g.Clock.Increment}
}

// MoveList splits the space separated SAN list.
func (g *Game) MoveList() []string { return san.SplitMoves(g.Moves) }

// SideOf returns the side userID played; false when the user is not a named player.
func (g *Game) SideOf(userID string) (san.Side, bool) {
	uid := strings.ToLower(strings.TrimSpace(userID))
	if uid == "" {
		return 0, false
	}
	if u := g.Players.White.User; u != nil && strings.ToLower(u.ID) == uid {
		return san.White, true
	}
	if u := g.Players.Black.User; u != nil && strings.ToLower(u.ID) == uid {
		return san.Black, true
	}
	return 0, false
}

// Involves reports whether userID played either side.
func (g *Game) Involves(userID string) bool {
	_, ok := g.SideOf(userID)
	return ok
}

// Page is one response of the export endpoint.
// RateLimited pages carry no games and must not advance the cursor.
type Page struct {
	Games       []Game
	RateLimited bool
	Skipped     []LineError
}

// ErrSourceUnavailable marks a failed fetch that is not a rate limit.
var ErrSourceUnavailable = errors.New("game source unavailable")

// SourceError carries the HTTP status of a failed export request.
type SourceError struct {
	Status int
	Body   string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("lichess request failed: %v", e.Err)
	}
	return fmt.Sprintf("lichess api error: status=%d body=%s", e.Status, e.Body)
}

func (e *SourceError) Unwrap() error {
	if e.Err != nil {
		return errors.Join(ErrSourceUnavailable, e.Err)
	}
	return ErrSourceUnavailable
}
