// Package coveragedto holds the JSON shapes served to dashboards and sinks.
package coveragedto

import "time"

// Snapshot is the state after one processed game.
type Snapshot struct {
	RunID     string          `json:"runId"`
	Seq       int             `json:"seq"`
	User      string          `json:"user,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Game      *GameSummary    `json:"game,omitempty"`
	Stats     Stats           `json:"stats"`
	Pieces    []PieceCoverage `json:"pieces"`
}

type Stats struct {
	GamesPlayed    int     `json:"gamesPlayed"`
	Progress       float64 `json:"progress"`
	Visited        int     `json:"visited"`
	TotalSquares   int     `json:"totalSquares"`
	ElapsedSeconds int     `json:"elapsedSeconds"`
	Elapsed        string  `json:"elapsed"`
	OwnSeconds     int     `json:"ownSeconds"`
	Own            string  `json:"own"`
}

// PieceCoverage carries one grid. Grid is [rank][file] with rank 1 first.
type PieceCoverage struct {
	Piece   string       `json:"piece"`
	Name    string       `json:"name"`
	Symbol  string       `json:"symbol"`
	Visited int          `json:"visited"`
	Grid    [8][8]uint64 `json:"grid"`
	Missing []string     `json:"missing"`
}

type GameSummary struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Speed     string    `json:"speed"`
	Perf      string    `json:"perf,omitempty"`
	Rated     bool      `json:"rated"`
	CreatedAt time.Time `json:"createdAt"`
	Side      string    `json:"side"`
	Opponent  string    `json:"opponent"`
	Status    string    `json:"status,omitempty"`
	Winner    string    `json:"winner,omitempty"`
	Plies     int       `json:"plies"`
	Pushed    int       `json:"pushed"`
}
