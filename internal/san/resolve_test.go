package san

import (
	"errors"
	"testing"
)

func TestResolveCastling(t *testing.T) {
	tests := []struct {
		token string
		side  Side
		want  string
	}{
		{"O-O", White, "g1"},
		{"O-O-O", White, "c1"},
		{"o-o#", Black, "g8"},
		{"O-O-O++", Black, "c8"},
		{"0-0+", White, "g1"},
		{"0-0-0", Black, "c8"},
		{"o-o-o", White, "c1"},
		{"O-O#", Black, "g8"},
	}
	for _, tt := range tests {
		t.Run(tt.token+"/"+tt.side.String(), func(t *testing.T) {
			piece, sq, err := Resolve(tt.token, tt.side)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.token, err)
			}
			if piece != King {
				t.Fatalf("Resolve(%q) piece = %s, want King", tt.token, piece)
			}
			if sq.String() != tt.want {
				t.Fatalf("Resolve(%q) square = %s, want %s", tt.token, sq, tt.want)
			}
		})
	}
}

func TestResolveRegular(t *testing.T) {
	tests := []struct {
		token string
		piece PieceKind
		want  string
	}{
		{"e4", Pawn, "e4"},
		{"Nbd2", Knight, "d2"},
		{"Raxe1+", Rook, "e1"},
		{"e8=Q", Pawn, "e8"},
		{"dxc3", Pawn, "c3"},
		{"N@c3", Knight, "c3"},
		{"@c2", Pawn, "c2"},
		{"Qh4#", Queen, "h4"},
		{"R1a3", Rook, "a3"},
		{"Kxf7++", King, "f7"},
		{"exf8=N+", Pawn, "f8"},
		{"Bb5", Bishop, "b5"},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			for _, side := range []Side{White, Black} {
				piece, sq, err := Resolve(tt.token, side)
				if err != nil {
					t.Fatalf("Resolve(%q, %s): %v", tt.token, side, err)
				}
				if piece != tt.piece || sq.String() != tt.want {
					t.Fatalf("Resolve(%q, %s) = (%s, %s), want (%s, %s)", tt.token, side, piece, sq, tt.piece, tt.want)
				}
			}
		})
	}
}

func TestResolveRejectsGarbage(t *testing.T) {
	for _, token := range []string{"Z9", "", "e9", "i4", "O-O-O-O", "Nxx3", "1-0", "e4!!"} {
		_, _, err := Resolve(token, White)
		if !errors.Is(err, ErrMoveSyntax) {
			t.Fatalf("Resolve(%q) err = %v, want ErrMoveSyntax", token, err)
		}
		var se *MoveSyntaxError
		if !errors.As(err, &se) || se.Token != token {
			t.Fatalf("Resolve(%q) did not carry the offending token: %v", token, err)
		}
	}
}

func TestResolveInvalidSide(t *testing.T) {
	_, _, err := Resolve("e4", Side(7))
	if !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("err = %v, want ErrInvalidSide", err)
	}
}

func TestResolveIsPure(t *testing.T) {
	p1, s1, _ := Resolve("Raxe1+", White)
	p2, s2, _ := Resolve("Raxe1+", White)
	if p1 != p2 || s1 != s2 {
		t.Fatalf("Resolve not deterministic: (%s,%s) vs (%s,%s)", p1, s1, p2, s2)
	}
}

func TestSquareRoundTrip(t *testing.T) {
	for i := 0; i < 64; i++ {
		sq := SquareFromIndex(i)
		parsed, err := ParseSquare(sq.String())
		if err != nil {
			t.Fatalf("ParseSquare(%s): %v", sq, err)
		}
		if parsed != sq || parsed.Index() != i {
			t.Fatalf("round trip %d: got %+v want %+v", i, parsed, sq)
		}
		if sq.Chess().String() != sq.String() {
			t.Fatalf("chess square %s != %s", sq.Chess(), sq)
		}
	}
	if _, err := ParseSquare("j1"); err == nil {
		t.Fatalf("expected error for j1")
	}
}

func TestMovesForSide(t *testing.T) {
	moves := SplitMoves(" e4 e5  Nf3 Nc6 Bb5 ")
	white, err := MovesForSide(moves, White)
	if err != nil {
		t.Fatalf("MovesForSide white: %v", err)
	}
	black, err := MovesForSide(moves, Black)
	if err != nil {
		t.Fatalf("MovesForSide black: %v", err)
	}
	if len(white) != 3 || white[2] != "Bb5" {
		t.Fatalf("white moves = %v", white)
	}
	if len(black) != 2 || black[1] != "Nc6" {
		t.Fatalf("black moves = %v", black)
	}
	if _, err := MovesForSide(moves, Side(3)); !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("expected ErrInvalidSide, got %v", err)
	}
}

func TestParsePieceKind(t *testing.T) {
	for _, p := range AllPieceKinds {
		got, ok := ParsePieceKind(p.Letter())
		if !ok || got != p {
			t.Fatalf("ParsePieceKind(%s) = %v,%v", p.Letter(), got, ok)
		}
		got, ok = ParsePieceKind(p.Name())
		if !ok || got != p {
			t.Fatalf("ParsePieceKind(%s) = %v,%v", p.Name(), got, ok)
		}
	}
	if _, ok := ParsePieceKind("x"); ok {
		t.Fatalf("expected x to be rejected")
	}
}
