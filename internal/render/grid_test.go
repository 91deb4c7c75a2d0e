package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"
)

type fillOp struct {
	x, y, w, h float64
	clr        color.Color
}

type imageOp struct {
	img        image.Image
	x, y, w, h float64
}

// recordingSurface keeps every call made by Render.
type recordingSurface struct {
	resets int
	width  int
	height int
	scale  int
	fills  []fillOp
	images []imageOp
}

func (s *recordingSurface) Reset(width, height, scale int) {
	s.resets++
	s.width, s.height, s.scale = width, height, scale
}

func (s *recordingSurface) FillRect(x, y, w, h float64, c color.Color) {
	s.fills = append(s.fills, fillOp{x, y, w, h, c})
}

func (s *recordingSurface) DrawImage(img image.Image, x, y, w, h float64) {
	s.images = append(s.images, imageOp{img, x, y, w, h})
}

type glyphMap map[rune]image.Image

func (m glyphMap) Get(code rune) (image.Image, bool) {
	img, ok := m[code]
	return img, ok
}

const emptyBoard = "8/8/8/8/8/8/8/8"

func repeat(fen string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fen
	}
	return out
}

func TestGeometry_RowsAndOrigins(t *testing.T) {
	layout := DefaultLayout()
	for n := 1; n <= 12; n++ {
		g := Geometry(n, layout)
		wantRows := (n + 2) / 3
		if g.Rows != wantRows {
			t.Fatalf("n=%d: rows=%d want %d", n, g.Rows, wantRows)
		}
		if g.Height != wantRows*400+(wantRows-1)*50 {
			t.Fatalf("n=%d: height=%d", n, g.Height)
		}
		for i := 0; i < n; i++ {
			want := image.Pt((i%3)*450, (i/3)*450)
			if got := g.Origin(i); got != want {
				t.Fatalf("n=%d i=%d: origin=%v want %v", n, i, got, want)
			}
		}
	}
	if g := Geometry(7, layout); g.Width != 3*400+2*50 || g.PhysicalWidth() != 2*1300 {
		t.Fatalf("unexpected width for full rows: %d / %d", g.Width, g.PhysicalWidth())
	}
}

func TestRender_BoardOrigins(t *testing.T) {
	s := &recordingSurface{}
	if err := Render(s, repeat(emptyBoard, 5), nil, DefaultLayout()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(s.fills) != 5*64 {
		t.Fatalf("expected %d fills, got %d", 5*64, len(s.fills))
	}
	for i := 0; i < 5; i++ {
		first := s.fills[i*64]
		wantX, wantY := float64((i%3)*450), float64((i/3)*450)
		if first.x != wantX || first.y != wantY || first.w != 50 || first.h != 50 {
			t.Fatalf("board %d first square %+v, want origin (%v,%v)", i, first, wantX, wantY)
		}
	}
	if s.width != 1300 || s.height != 850 || s.scale != 2 {
		t.Fatalf("unexpected reset %dx%d@%d", s.width, s.height, s.scale)
	}
}

func TestRender_SquareColors(t *testing.T) {
	s := &recordingSurface{}
	if err := Render(s, []string{emptyBoard, emptyBoard}, nil, DefaultLayout()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	for board := 0; board < 2; board++ {
		fills := s.fills[board*64 : (board+1)*64]
		if fills[0].clr != LightSquare {
			t.Fatalf("board %d (0,0) = %v", board, fills[0].clr)
		}
		if fills[1].clr != DarkSquare {
			t.Fatalf("board %d (0,1) = %v", board, fills[1].clr)
		}
		if fills[8].clr != DarkSquare || fills[9].clr != LightSquare {
			t.Fatalf("board %d second rank does not alternate", board)
		}
	}
	if LightSquare != (color.RGBA{0xf0, 0xd9, 0xb5, 0xff}) || DarkSquare != (color.RGBA{0xb5, 0x88, 0x63, 0xff}) {
		t.Fatalf("palette drifted: light=%v dark=%v", LightSquare, DarkSquare)
	}
}

func TestRender_CapsAtMaxBoards(t *testing.T) {
	s := &recordingSurface{}
	if err := Render(s, repeat(emptyBoard, 15), nil, DefaultLayout()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := len(s.fills) / 64; got != 12 {
		t.Fatalf("rendered %d boards, want 12", got)
	}
	if s.height != 4*400+3*50 {
		t.Fatalf("height %d, want four rows", s.height)
	}
}

func TestRender_BlankEntriesDoNotCountTowardCap(t *testing.T) {
	s := &recordingSurface{}
	positions := append(repeat("", 12), emptyBoard)
	if err := Render(s, positions, nil, DefaultLayout()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(s.fills) != 64 {
		t.Fatalf("expected one board, got %d fills", len(s.fills))
	}
	if first := s.fills[0]; first.x != 0 || first.y != 4*450 {
		t.Fatalf("board drawn at (%v,%v), want the thirteenth cell", first.x, first.y)
	}

	s = &recordingSurface{}
	positions = nil
	for i := 0; i < 14; i++ {
		positions = append(positions, "", emptyBoard)
	}
	if err := Render(s, positions, nil, DefaultLayout()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := len(s.fills) / 64; got != 12 {
		t.Fatalf("rendered %d boards, want 12", got)
	}
	if s.height != 8*400+7*50 {
		t.Fatalf("height %d, want eight rows for 24 cells", s.height)
	}
}

func TestPalette(t *testing.T) {
	if LightSquare != (color.RGBA{R: 0xf0, G: 0xd9, B: 0xb5, A: 0xff}) {
		t.Fatalf("light square %v", LightSquare)
	}
	if DarkSquare != (color.RGBA{R: 0xb5, G: 0x88, B: 0x63, A: 0xff}) {
		t.Fatalf("dark square %v", DarkSquare)
	}
}

func TestRender_NoInputLeavesSurfaceUntouched(t *testing.T) {
	for _, positions := range [][]string{nil, {}, {""}, {"  ", ""}} {
		s := &recordingSurface{}
		err := Render(s, positions, nil, DefaultLayout())
		if !errors.Is(err, ErrNoInput) {
			t.Fatalf("%q: expected ErrNoInput, got %v", positions, err)
		}
		if s.resets != 0 || len(s.fills) != 0 || len(s.images) != 0 {
			t.Fatalf("%q: surface mutated", positions)
		}
	}
}

func TestRender_EmptyEntryLeavesCellBlank(t *testing.T) {
	s := &recordingSurface{}
	if err := Render(s, []string{emptyBoard, "", emptyBoard}, nil, DefaultLayout()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(s.fills) != 2*64 {
		t.Fatalf("expected two boards, got %d fills", len(s.fills))
	}
	if s.fills[64].x != 900 {
		t.Fatalf("third board drawn at x=%v, want 900", s.fills[64].x)
	}
}

func TestRender_PiecesPlacedOnSquares(t *testing.T) {
	king := image.NewRGBA(image.Rect(0, 0, 1, 1))
	pawn := image.NewRGBA(image.Rect(0, 0, 1, 1))
	glyphs := glyphMap{'K': king, 'p': pawn}

	s := &recordingSurface{}
	// The queen has no glyph and is skipped.
	positions := []string{emptyBoard, "p7/8/8/8/8/8/8/4K2q w - - 0 1"}
	if err := Render(s, positions, glyphs, DefaultLayout()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(s.images) != 2 {
		t.Fatalf("expected 2 glyph draws, got %d", len(s.images))
	}
	p, k := s.images[0], s.images[1]
	if p.img != pawn || p.x != 450 || p.y != 0 || p.w != 50 || p.h != 50 {
		t.Fatalf("pawn drawn at %+v", p)
	}
	if k.img != king || k.x != 450+4*50 || k.y != 7*50 {
		t.Fatalf("king drawn at %+v", k)
	}
}

func TestRender_PiecesDrawnAfterSquares(t *testing.T) {
	var order []string
	s := &orderSurface{log: &order}
	glyphs := glyphMap{'k': image.NewRGBA(image.Rect(0, 0, 1, 1))}
	if err := Render(s, []string{"k7/8/8/8/8/8/8/8", "k7/8/8/8/8/8/8/8"}, glyphs, DefaultLayout()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	joined := strings.Join(order, "")
	want := strings.Repeat("F", 64) + "I" + strings.Repeat("F", 64) + "I"
	if joined != "R"+want {
		t.Fatalf("unexpected call order %q", joined)
	}
}

type orderSurface struct{ log *[]string }

func (s *orderSurface) Reset(int, int, int) {
	*s.log = append(*s.log, "R")
}

func (s *orderSurface) FillRect(float64, float64, float64, float64, color.Color) {
	*s.log = append(*s.log, "F")
}

func (s *orderSurface) DrawImage(image.Image, float64, float64, float64, float64) {
	*s.log = append(*s.log, "I")
}

func TestSplitPositions(t *testing.T) {
	lines := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		lines = append(lines, fmt.Sprintf("%d7/8/8/8/8/8/8/8", i%8))
	}
	input := "\n  " + strings.Join(lines, "\r\n\n") + "  \n\n"
	got := SplitPositions(input, 12)
	if len(got) != 12 {
		t.Fatalf("expected 12 positions, got %d", len(got))
	}
	if got[0] != lines[0] || got[11] != lines[11] {
		t.Fatalf("unexpected trimming: %q / %q", got[0], got[11])
	}
	if got := SplitPositions("  \n \n", 12); len(got) != 0 {
		t.Fatalf("expected no positions, got %q", got)
	}
}

func TestCleanPositions_KeepsEntriesWhole(t *testing.T) {
	got := CleanPositions([]string{"  ", " 8/8/8/8/8/8/8/8\n8/8/8/8/8/8/8/8 ", "", emptyBoard}, 12)
	if len(got) != 2 {
		t.Fatalf("expected 2 positions, got %q", got)
	}
	if got[0] != "8/8/8/8/8/8/8/8\n8/8/8/8/8/8/8/8" || got[1] != emptyBoard {
		t.Fatalf("unexpected positions %q", got)
	}
	if got := CleanPositions(repeat(emptyBoard, 15), 0); len(got) != DefaultMaxBoards {
		t.Fatalf("default limit kept %d", len(got))
	}
}
