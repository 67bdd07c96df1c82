// Package render draws per-piece coverage boards as PNG images.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strconv"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/board-coverage/internal/coverage"
	"github.com/park285/board-coverage/internal/san"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultSquareSize = 48
	minSquareSize     = 24
	maxSquareSize     = 128
	sideMargin        = 24
	titleHeight       = 30
	bottomMargin      = 24
)

var (
	lightSquare    = color.RGBA{233, 207, 163, 255}
	darkSquare     = color.RGBA{187, 136, 96, 255}
	backgroundFill = color.RGBA{28, 31, 46, 255}
	titleText      = color.RGBA{236, 239, 255, 255}
	labelText      = color.RGBA{8, 214, 120, 255}
	markerLow      = color.NRGBA{R: 120, G: 200, B: 120, A: 150}
	markerHigh     = color.NRGBA{R: 20, G: 140, B: 40, A: 230}
	countText      = color.RGBA{255, 255, 255, 255}
)

// Options tune the image; zero values use defaults.
type Options struct {
	SquareSize int
	// ShowCounts prints the visit count inside each visited square.
	ShowCounts bool
}

type Renderer struct {
	squareSize int
	showCounts bool
}

func New(opts Options) *Renderer {
	size := opts.SquareSize
	if size <= 0 {
		size = DefaultSquareSize
	}
	if size < minSquareSize {
		size = minSquareSize
	}
	if size > maxSquareSize {
		size = maxSquareSize
	}
	return &Renderer{squareSize: size, showCounts: opts.ShowCounts}
}

// WithCounts returns a copy that prints visit counts.
func (r *Renderer) WithCounts() *Renderer {
	c := *r
	c.showCounts = true
	return &c
}

// Size returns the image dimensions.
func (r *Renderer) Size() image.Point {
	board := r.squareSize * 8
	return image.Point{X: board + sideMargin*2, Y: board + titleHeight + bottomMargin}
}

// PiecePNG renders one piece's grid with rank 8 at the top.
func (r *Renderer) PiecePNG(ctx context.Context, piece san.PieceKind, grid coverage.Grid) ([]byte, error) {
	if !piece.Valid() {
		return nil, fmt.Errorf("render: unknown piece kind %d", int(piece))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := r.Size()
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundFill), image.Point{}, imagedraw.Src)

	origin := image.Point{X: sideMargin, Y: titleHeight}
	drawSquares(img, r.squareSize, origin)
	maxCount := gridMax(grid)
	visited := drawMarkers(img, grid, maxCount, r.squareSize, origin)
	if r.showCounts {
		drawCounts(img, grid, r.squareSize, origin)
	}
	drawCoordinates(img, r.squareSize, origin)
	drawTitle(img, fmt.Sprintf("%s  %d/64", piece.Name(), visited), size.X)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	topDownRanks = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	files        = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

func drawSquares(dst imagedraw.Image, squareSize int, origin image.Point) {
	for row, rank := range topDownRanks {
		for col, file := range files {
			rect := cellRect(row, col, squareSize, origin)
			clr := squareColor(nchess.NewSquare(file, rank))
			imagedraw.Draw(dst, rect, image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

// drawMarkers fills a disc on every visited square; darker means more visits.
func drawMarkers(img *image.RGBA, grid coverage.Grid, maxCount uint64, squareSize int, origin image.Point) int {
	b := img.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), img, b)
	filler := rasterx.NewFiller(b.Dx(), b.Dy(), scanner)

	visited := 0
	radius := float64(squareSize) * 0.36
	for row := range topDownRanks {
		rankIdx := 7 - row
		for col := range files {
			n := grid[rankIdx][col]
			if n == 0 {
				continue
			}
			visited++
			rect := cellRect(row, col, squareSize, origin)
			cx := float64(rect.Min.X) + float64(squareSize)/2
			cy := float64(rect.Min.Y) + float64(squareSize)/2
			filler.Clear()
			rasterx.AddCircle(cx, cy, radius, filler)
			filler.SetColor(markerColor(n, maxCount))
			filler.Draw()
		}
	}
	return visited
}

func drawCounts(dst imagedraw.Image, grid coverage.Grid, squareSize int, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(countText)}
	ascent := face.Metrics().Ascent.Ceil()
	for row := range topDownRanks {
		for col := range files {
			n := grid[7-row][col]
			if n == 0 {
				continue
			}
			rect := cellRect(row, col, squareSize, origin)
			drawCenteredText(drawer, strconv.FormatUint(n, 10), rect.Min.X+squareSize/2, rect.Min.Y+squareSize/2+ascent/2)
		}
	}
}

func drawCoordinates(dst imagedraw.Image, squareSize int, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(labelText)}
	ascent := face.Metrics().Ascent.Ceil()
	boardEndY := origin.Y + 8*squareSize

	for row, rank := range topDownRanks {
		baseline := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCenteredText(drawer, rank.String(), origin.X-sideMargin/2, baseline)
	}
	for col, file := range files {
		center := origin.X + col*squareSize + squareSize/2
		drawCenteredText(drawer, file.String(), center, boardEndY+ascent+4)
	}
}

func drawTitle(dst imagedraw.Image, text string, width int) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(titleText)}
	drawCenteredText(drawer, text, width/2, titleHeight/2+face.Metrics().Ascent.Ceil()/2)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func cellRect(row, col, squareSize int, origin image.Point) image.Rectangle {
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

// markerColor interpolates on a log scale so a single visit is still visible.
func markerColor(n, maxCount uint64) color.NRGBA {
	var t float64
	if maxCount > 1 && n > 1 {
		t = math.Log1p(float64(n-1)) / math.Log1p(float64(maxCount-1))
	}
	lerp := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
	}
	return color.NRGBA{
		R: lerp(markerLow.R, markerHigh.R),
		G: lerp(markerLow.G, markerHigh.G),
		B: lerp(markerLow.B, markerHigh.B),
		A: lerp(markerLow.A, markerHigh.A),
	}
}

func gridMax(g coverage.Grid) uint64 {
	var m uint64
	for r := range g {
		for f := range g[r] {
			if g[r][f] > m {
				m = g[r][f]
			}
		}
	}
	return m
}
