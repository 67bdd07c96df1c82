// Package coverage counts, per piece kind, how often each square was a move destination.
package coverage

import (
	"fmt"

	"github.com/park285/board-coverage/internal/san"
)

// TotalSquares is the number of (piece kind, square) cells tracked.
const TotalSquares = san.NumPieceKinds * 64

// Grid holds visit counters indexed [rank][file], rank 0 being rank 1.
type Grid [8][8]uint64

// Map is a full coverage snapshot. It is a value type: copies never alias.
type Map [san.NumPieceKinds]Grid

func (m *Map) Count(piece san.PieceKind, sq san.Square) uint64 {
	if !piece.Valid() || !sq.Valid() {
		return 0
	}
	return m[piece][sq.Rank][sq.File]
}

// Grid returns the counters for one piece kind.
func (m *Map) Grid(piece san.PieceKind) Grid {
	if !piece.Valid() {
		return Grid{}
	}
	return m[piece]
}

// Visited counts nonzero cells across all six grids.
func (m *Map) Visited() int {
	n := 0
	for _, p := range san.AllPieceKinds {
		n += m.VisitedFor(p)
	}
	return n
}

func (m *Map) VisitedFor(piece san.PieceKind) int {
	if !piece.Valid() {
		return 0
	}
	n := 0
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if m[piece][r][f] > 0 {
				n++
			}
		}
	}
	return n
}

// Total sums every counter.
func (m *Map) Total() uint64 {
	var sum uint64
	for p := range m {
		for r := 0; r < 8; r++ {
			for f := 0; f < 8; f++ {
				sum += m[p][r][f]
			}
		}
	}
	return sum
}

// Progress is the visited share of all 384 cells, in [0,1].
func (m *Map) Progress() float64 {
	return float64(m.Visited()) / float64(TotalSquares)
}

// Missing lists squares not yet reached by piece, a1 first.
func (m *Map) Missing(piece san.PieceKind) []san.Square {
	if !piece.Valid() {
		return nil
	}
	var out []san.Square
	for i := 0; i < 64; i++ {
		sq := san.SquareFromIndex(i)
		if m[piece][sq.Rank][sq.File] == 0 {
			out = append(out, sq)
		}
	}
	return out
}

// Tracker accumulates destinations. Single writer: callers serialize access.
type Tracker struct {
	m Map
}

func NewTracker() *Tracker { return &Tracker{} }

// Push increments the counter of piece at sq.
func (t *Tracker) Push(piece san.PieceKind, sq san.Square) error {
	if !piece.Valid() {
		return fmt.Errorf("push: unknown piece kind %d", int(piece))
	}
	if !sq.Valid() {
		return fmt.Errorf("push: square out of range %+v", sq)
	}
	t.m[piece][sq.Rank][sq.File]++
	return nil
}

// UpdateFromGame resolves side's plies from the full move list and pushes each
// destination. On a malformed move the error is returned and pushes made
// before it are kept.
func (t *Tracker) UpdateFromGame(moves []string, side san.Side) (int, error) {
	own, err := san.MovesForSide(moves, side)
	if err != nil {
		return 0, err
	}
	pushed := 0
	for _, mv := range own {
		piece, sq, err := san.Resolve(mv, side)
		if err != nil {
			return pushed, err
		}
		if err := t.Push(piece, sq); err != nil {
			return pushed, err
		}
		pushed++
	}
	return pushed, nil
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Map { return t.m }
