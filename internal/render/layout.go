package render

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	DefaultBoardSize = 400
	DefaultPadding   = 50
	DefaultColumns   = 3
	DefaultScale     = 2
	DefaultMaxBoards = 12

	boardSquares = 8
)

// Board palette. Exported output must match these bit for bit.
var (
	LightSquare = hexRGBA("#f0d9b5")
	DarkSquare  = hexRGBA("#b58863")
)

func hexRGBA(hex string) color.RGBA {
	c, err := colorful.Hex(hex)
	if err != nil {
		panic("render: bad palette color " + hex + ": " + err.Error())
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Layout holds the grid constants. Sizes are logical units; Scale multiplies
// them into physical pixels.
type Layout struct {
	BoardSize int
	Padding   int
	Columns   int
	Scale     int
	MaxBoards int
}

func DefaultLayout() Layout {
	return Layout{
		BoardSize: DefaultBoardSize,
		Padding:   DefaultPadding,
		Columns:   DefaultColumns,
		Scale:     DefaultScale,
		MaxBoards: DefaultMaxBoards,
	}
}

// WithDefaults fills unset fields from DefaultLayout. The zero Layout is
// DefaultLayout; otherwise a zero Padding is kept.
func (l Layout) WithDefaults() Layout {
	def := DefaultLayout()
	if l == (Layout{}) {
		return def
	}
	if l.BoardSize <= 0 {
		l.BoardSize = def.BoardSize
	}
	if l.Padding < 0 {
		l.Padding = def.Padding
	}
	if l.Columns <= 0 {
		l.Columns = def.Columns
	}
	if l.Scale <= 0 {
		l.Scale = def.Scale
	}
	if l.MaxBoards <= 0 {
		l.MaxBoards = def.MaxBoards
	}
	return l
}

// SquareSize is the logical edge of one board square.
func (l Layout) SquareSize() float64 {
	return float64(l.BoardSize) / boardSquares
}

// Grid is the geometry derived for a given number of boards.
type Grid struct {
	Rows   int
	Cols   int
	Width  int
	Height int
	Scale  int

	layout Layout
}

// Geometry lays n boards out row by row. Rows is ceil(n/Columns); the
// canvas is only as wide as the columns actually used.
func Geometry(n int, layout Layout) Grid {
	layout = layout.WithDefaults()
	if n < 0 {
		n = 0
	}
	rows := (n + layout.Columns - 1) / layout.Columns
	cols := layout.Columns
	if n < cols {
		cols = n
	}
	return Grid{
		Rows:   rows,
		Cols:   cols,
		Width:  span(cols, layout.BoardSize, layout.Padding),
		Height: span(rows, layout.BoardSize, layout.Padding),
		Scale:  layout.Scale,
		layout: layout,
	}
}

func span(cells, size, padding int) int {
	if cells <= 0 {
		return 0
	}
	return cells*size + (cells-1)*padding
}

// Origin returns the logical top-left corner of board i.
func (g Grid) Origin(i int) image.Point {
	step := g.layout.BoardSize + g.layout.Padding
	return image.Point{
		X: (i % g.layout.Columns) * step,
		Y: (i / g.layout.Columns) * step,
	}
}

func (g Grid) PhysicalWidth() int  { return g.Width * g.Scale }
func (g Grid) PhysicalHeight() int { return g.Height * g.Scale }
