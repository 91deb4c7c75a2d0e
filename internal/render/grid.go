package render

import (
	"errors"
	"image"
	"image/color"
	"strings"

	"github.com/park285/fengrid/internal/fen"
)

var ErrNoInput = errors.New("no fen input")

// GlyphLookup resolves a piece code to its pre-rasterized image.
type GlyphLookup interface {
	Get(code rune) (image.Image, bool)
}

// SplitPositions turns free-form input into position strings: one per
// non-blank line, trimmed, at most limit of them. A non-positive limit means
// DefaultMaxBoards.
func SplitPositions(input string, limit int) []string {
	return CleanPositions(strings.Split(strings.TrimSpace(input), "\n"), limit)
}

// CleanPositions trims each entry, drops blank ones and keeps at most limit.
// Entries are not split further, so an embedded newline stays part of its
// entry.
func CleanPositions(positions []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxBoards
	}
	var out []string
	for _, p := range positions {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Render paints positions onto surface as a grid of boards. Empty entries
// keep their cell but leave it blank; only non-empty entries count toward
// layout.MaxBoards, and everything after the last one that fits is dropped.
// When nothing is left to draw it returns ErrNoInput without touching the
// surface. A nil glyphs draws the boards without pieces.
func Render(surface Surface, positions []string, glyphs GlyphLookup, layout Layout) error {
	layout = layout.WithDefaults()
	positions, ok := capPositions(positions, layout.MaxBoards)
	if !ok {
		return ErrNoInput
	}

	grid := Geometry(len(positions), layout)
	surface.Reset(grid.Width, grid.Height, grid.Scale)

	squareSize := layout.SquareSize()
	for i, position := range positions {
		if strings.TrimSpace(position) == "" {
			continue
		}
		origin := grid.Origin(i)
		drawSquares(surface, squareSize, origin)
		drawPieces(surface, squareSize, origin, fen.ParsePlacement(position), glyphs)
	}
	return nil
}

// capPositions cuts positions right after the limit-th non-empty entry and
// reports whether any non-empty entry was seen.
func capPositions(positions []string, limit int) ([]string, bool) {
	seen := 0
	for i, p := range positions {
		if strings.TrimSpace(p) == "" {
			continue
		}
		seen++
		if seen == limit {
			return positions[:i+1], true
		}
	}
	return positions, seen > 0
}

func drawSquares(dst Surface, squareSize float64, origin image.Point) {
	for row := 0; row < boardSquares; row++ {
		for col := 0; col < boardSquares; col++ {
			x := float64(origin.X) + float64(col)*squareSize
			y := float64(origin.Y) + float64(row)*squareSize
			dst.FillRect(x, y, squareSize, squareSize, squareColor(row, col))
		}
	}
}

func drawPieces(dst Surface, squareSize float64, origin image.Point, pieces []fen.PlacedPiece, glyphs GlyphLookup) {
	if glyphs == nil {
		return
	}
	for _, piece := range pieces {
		img, ok := glyphs.Get(piece.Code)
		if !ok || img == nil {
			continue
		}
		x := float64(origin.X) + float64(piece.Col)*squareSize
		y := float64(origin.Y) + float64(piece.Row)*squareSize
		dst.DrawImage(img, x, y, squareSize, squareSize)
	}
}

func squareColor(row, col int) color.RGBA {
	if (row+col)%2 == 0 {
		return LightSquare
	}
	return DarkSquare
}
