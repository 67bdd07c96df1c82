package san

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Side identifies which player made a move.
type Side int

const (
	White Side = iota
	Black
)

func (s Side) String() string {
	switch s {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Parity returns the index parity of this side's plies in a full move list.
func (s Side) Parity() (int, error) {
	switch s {
	case White:
		return 0, nil
	case Black:
		return 1, nil
	default:
		return 0, &InvalidSideError{Side: s}
	}
}

// Valid reports whether s is one of the two sides.
func (s Side) Valid() bool {
	switch s {
	case White, Black:
		return true
	default:
		return false
	}
}

// ParseSide accepts "white"/"black" (and "w"/"b"), case-insensitive.
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSide, v)
	}
}

// PieceKind is one of the six chess piece types.
type PieceKind int

const (
	Pawn PieceKind = iota
	Knight
	Bishop
	Rook
	Queen
	King
)

// NumPieceKinds is the size of the closed PieceKind set.
const NumPieceKinds = 6

// AllPieceKinds lists piece kinds in display order.
var AllPieceKinds = [NumPieceKinds]PieceKind{Pawn, Knight, Bishop, Rook, Queen, King}

func (p PieceKind) Letter() string {
	switch p {
	case Pawn:
		return "P"
	case Knight:
		return "N"
	case Bishop:
		return "B"
	case Rook:
		return "R"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		return "?"
	}
}

func (p PieceKind) Name() string {
	switch p {
	case Pawn:
		return "Pawn"
	case Knight:
		return "Knight"
	case Bishop:
		return "Bishop"
	case Rook:
		return "Rook"
	case Queen:
		return "Queen"
	case King:
		return "King"
	default:
		return "Unknown"
	}
}

// Symbol returns the black chess glyph used for board titles.
func (p PieceKind) Symbol() string {
	switch p {
	case Pawn:
		return "♟"
	case Knight:
		return "♞"
	case Bishop:
		return "♝"
	case Rook:
		return "♜"
	case Queen:
		return "♛"
	case King:
		return "♚"
	default:
		return "?"
	}
}

func (p PieceKind) String() string { return p.Name() }

// Valid reports whether p is inside the closed set.
func (p PieceKind) Valid() bool { return p >= Pawn && p <= King }

// Chess maps the kind onto the chess library's piece type.
func (p PieceKind) Chess() nchess.PieceType {
	switch p {
	case Pawn:
		return nchess.Pawn
	case Knight:
		return nchess.Knight
	case Bishop:
		return nchess.Bishop
	case Rook:
		return nchess.Rook
	case Queen:
		return nchess.Queen
	case King:
		return nchess.King
	default:
		return nchess.NoPieceType
	}
}

// PieceKindFromLetter parses an upper-case SAN piece letter.
func PieceKindFromLetter(c byte) (PieceKind, bool) {
	switch c {
	case 'P':
		return Pawn, true
	case 'N':
		return Knight, true
	case 'B':
		return Bishop, true
	case 'R':
		return Rook, true
	case 'Q':
		return Queen, true
	case 'K':
		return King, true
	default:
		return 0, false
	}
}

// ParsePieceKind accepts a letter ("n") or a name ("knight").
func ParsePieceKind(v string) (PieceKind, bool) {
	v = strings.TrimSpace(v)
	if len(v) == 1 {
		return PieceKindFromLetter(strings.ToUpper(v)[0])
	}
	for _, p := range AllPieceKinds {
		if strings.EqualFold(p.Name(), v) {
			return p, true
		}
	}
	return 0, false
}

// Square is a board coordinate; rank and file are both in [0,7].
type Square struct {
	Rank int
	File int
}

// ParseSquare converts algebraic notation ("a1".."h8") to a Square.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return Square{}, fmt.Errorf("invalid square %q", s)
	}
	file := int(s[0]) - 'a'
	rank := int(s[1]) - '1'
	sq := Square{Rank: rank, File: file}
	if !sq.Valid() {
		return Square{}, fmt.Errorf("invalid square %q", s)
	}
	return sq, nil
}

func MustParseSquare(s string) Square {
	sq, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return sq
}

func (s Square) Valid() bool {
	return s.Rank >= 0 && s.Rank < 8 && s.File >= 0 && s.File < 8
}

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File), byte('1' + s.Rank)})
}

// Index is rank*8+file (a1=0, h8=63).
func (s Square) Index() int { return s.Rank*8 + s.File }

func SquareFromIndex(i int) Square { return Square{Rank: i / 8, File: i % 8} }

// Chess maps the square onto the chess library's square type.
func (s Square) Chess() nchess.Square {
	return nchess.NewSquare(nchess.File(s.File), nchess.Rank(s.Rank))
}
