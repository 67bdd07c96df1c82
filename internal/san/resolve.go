// Package san maps recorded SAN move tokens onto the piece that moved and the
// square it landed on. No board state is kept and legality is never checked.
package san

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrMoveSyntax  = errors.New("unrecognized move")
	ErrInvalidSide = errors.New("invalid side")
)

// MoveSyntaxError reports a token matched by neither castling nor the regular move grammar.
type MoveSyntaxError struct {
	Token string
}

func (e *MoveSyntaxError) Error() string { return fmt.Sprintf("cannot parse move %q", e.Token) }
func (e *MoveSyntaxError) Is(target error) bool { return target == ErrMoveSyntax }

// InvalidSideError reports a Side value outside White/Black.
type InvalidSideError struct {
	Side Side
}

func (e *InvalidSideError) Error() string { return fmt.Sprintf("unknown side %s", e.Side) }
func (e *InvalidSideError) Is(target error) bool { return target == ErrInvalidSide }

var (
	castlingPattern = regexp.MustCompile(`^((O-O(-O)?)|(o-o(-o)?)|(0-0(-0)?))((\+{1,2})|#)?$`)
	movePattern     = regexp.MustCompile(`^@?([PNBRQK]?)[a-h1-8@]?x?([a-h][1-8])(=[NBRQ])?((\+{1,2})|#)?$`)
)

// Resolve returns the moved piece kind and its destination square.
// Disambiguation, capture, promotion and check suffixes never affect the result.
func Resolve(token string, side Side) (PieceKind, Square, error) {
	if !side.Valid() {
		return 0, Square{}, &InvalidSideError{Side: side}
	}
	move := strings.TrimSpace(token)

	if m := castlingPattern.FindStringSubmatch(move); m != nil {
		sq, err := castleDestination(len(m[1]), side)
		if err != nil {
			return 0, Square{}, err
		}
		return King, sq, nil
	}

	if m := movePattern.FindStringSubmatch(move); m != nil {
		piece := Pawn
		if m[1] != "" {
			piece, _ = PieceKindFromLetter(m[1][0])
		}
		sq, err := ParseSquare(m[2])
		if err != nil {
			return 0, Square{}, &MoveSyntaxError{Token: token}
		}
		return piece, sq, nil
	}

	return 0, Square{}, &MoveSyntaxError{Token: token}
}

func castleDestination(significant int, side Side) (Square, error) {
	rank := 0
	switch side {
	case White:
		rank = 0
	case Black:
		rank = 7
	default:
		return Square{}, &InvalidSideError{Side: side}
	}
	switch significant {
	case 3:
		return Square{Rank: rank, File: 6}, nil
	case 5:
		return Square{Rank: rank, File: 2}, nil
	default:
		return Square{}, fmt.Errorf("castling token of length %d: %w", significant, ErrMoveSyntax)
	}
}

// SplitMoves splits a space-separated move list, dropping empty fields.
func SplitMoves(moves string) []string {
	return strings.Fields(moves)
}

// MovesForSide keeps the plies at this side's parity (white even, black odd).
func MovesForSide(moves []string, side Side) ([]string, error) {
	parity, err := side.Parity()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(moves)/2+1)
	for i, mv := range moves {
		if i%2 == parity {
			out = append(out, mv)
		}
	}
	return out, nil
}
