package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/park285/board-coverage/internal/coverage"
	"github.com/park285/board-coverage/internal/san"
)

func TestPiecePNG(t *testing.T) {
	r := New(Options{SquareSize: 32, ShowCounts: true})
	var g coverage.Grid
	g[0][0] = 1 // a1
	g[7][7] = 9 // h8

	b, err := r.PiecePNG(context.Background(), san.Knight, g)
	if err != nil {
		t.Fatalf("PiecePNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	size := r.Size()
	if img.Bounds().Dx() != size.X || img.Bounds().Dy() != size.Y {
		t.Fatalf("bounds = %v, want %v", img.Bounds(), size)
	}

	// h8 is the top-right cell, a1 the bottom-left; both carry a marker at the center.
	h8 := cellRect(0, 7, 32, originFor())
	a1 := cellRect(7, 0, 32, originFor())
	empty := cellRect(0, 0, 32, originFor())
	if sameColor(img.At(h8.Min.X+1, h8.Min.Y+16), img.At(h8.Min.X+16, h8.Min.Y+10)) {
		t.Fatalf("h8 marker not drawn")
	}
	if sameColor(img.At(a1.Min.X+2, a1.Min.Y+2), img.At(a1.Min.X+16, a1.Min.Y+9)) {
		t.Fatalf("a1 marker not drawn")
	}
	if !sameColor(img.At(empty.Min.X+2, empty.Min.Y+2), img.At(empty.Min.X+16, empty.Min.Y+9)) {
		t.Fatalf("a8 is empty but carries a marker")
	}
}

func TestPiecePNGRejects(t *testing.T) {
	r := New(Options{})
	if _, err := r.PiecePNG(context.Background(), san.PieceKind(42), coverage.Grid{}); err == nil {
		t.Fatalf("expected error for unknown piece")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.PiecePNG(ctx, san.Pawn, coverage.Grid{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestNewClampsSize(t *testing.T) {
	if New(Options{SquareSize: 5}).squareSize != minSquareSize {
		t.Fatalf("small size not clamped")
	}
	if New(Options{SquareSize: 1000}).squareSize != maxSquareSize {
		t.Fatalf("large size not clamped")
	}
}

func TestMarkerColorScale(t *testing.T) {
	if markerColor(1, 1) != markerLow {
		t.Fatalf("single visit should use low color")
	}
	if markerColor(50, 50) != markerHigh {
		t.Fatalf("max visits should use high color")
	}
}

func originFor() image.Point { return image.Point{X: sideMargin, Y: titleHeight} }

func sameColor(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar == br && ag == bg && ab == bb && aa == ba
}
