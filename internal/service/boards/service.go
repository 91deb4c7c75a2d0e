package boards

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sync"
	"time"

	"github.com/park285/fengrid/internal/fen"
	"github.com/park285/fengrid/internal/glyph"
	"github.com/park285/fengrid/internal/msgcat"
	"github.com/park285/fengrid/internal/render"
	"go.uber.org/zap"
)

const FileName = "chess_boards.png"

var ErrNotReady = errors.New("piece glyphs are not loaded yet")

type Config struct {
	Layout render.Layout
	Strict bool

	// GlyphFS replaces the embedded piece images when non-nil.
	GlyphFS  fs.FS
	GlyphDir string
}

// Artifact is one encoded composite image.
type Artifact struct {
	PNG      []byte
	FileName string
	Boards   int
	Width    int
	Height   int
}

func (a *Artifact) DataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(a.PNG)
}

// Service turns FEN text into composite board images. Generate is refused
// until Preload has loaded the glyph set.
type Service struct {
	cfg    Config
	layout render.Layout
	msgs   *msgcat.Catalog
	logger *zap.Logger

	preloadMu sync.Mutex
	ready     chan struct{}
	glyphs    *glyph.Set
}

func NewService(cfg Config, msgs *msgcat.Catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:    cfg,
		layout: cfg.Layout.WithDefaults(),
		msgs:   msgs,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// GlyphSize is the pixel edge of one physical board square.
func (s *Service) GlyphSize() int {
	return int(math.Round(s.layout.SquareSize() * float64(s.layout.Scale)))
}

// Preload loads every glyph and opens the readiness gate. Glyphs that fail
// to load are left out; only a cancelled ctx keeps the gate closed. Calling
// it again after success is a no-op.
func (s *Service) Preload(ctx context.Context) error {
	s.preloadMu.Lock()
	defer s.preloadMu.Unlock()
	if s.Ready() {
		return nil
	}

	loader := &glyph.Loader{
		FS:     s.cfg.GlyphFS,
		Dir:    s.cfg.GlyphDir,
		Size:   s.GlyphSize(),
		Logger: s.logger,
	}
	set, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	if missing := set.Missing(); len(missing) > 0 {
		s.logger.Warn("glyphs_missing", zap.String("codes", string(missing)))
	}

	s.glyphs = set
	close(s.ready)
	return nil
}

func (s *Service) Ready() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until Preload has finished or ctx is done.
func (s *Service) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Glyphs returns the loaded set, or nil before the gate opens.
func (s *Service) Glyphs() *glyph.Set {
	if !s.Ready() {
		return nil
	}
	return s.glyphs
}

// Generate renders newline-separated FEN text. Blank lines are ignored and
// only the first MaxBoards positions are used.
func (s *Service) Generate(ctx context.Context, input string) (*Artifact, error) {
	return s.GeneratePositions(ctx, render.SplitPositions(input, s.layout.MaxBoards))
}

// GeneratePositions renders an explicit list of FEN strings. Each entry is
// trimmed and blank ones are dropped before capping; entries are never split.
func (s *Service) GeneratePositions(ctx context.Context, positions []string) (*Artifact, error) {
	if !s.Ready() {
		return nil, ErrNotReady
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	positions = render.CleanPositions(positions, s.layout.MaxBoards)
	if len(positions) == 0 {
		return nil, render.ErrNoInput
	}
	if s.cfg.Strict {
		for i, p := range positions {
			if _, err := fen.ParsePlacementStrict(p); err != nil {
				return nil, fmt.Errorf("position %d: %w", i+1, err)
			}
		}
	}

	started := time.Now()
	canvas := render.NewCanvas()
	if err := render.Render(canvas, positions, s.glyphs, s.layout); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := render.PNGBytes(canvas)
	if err != nil {
		return nil, err
	}

	grid := render.Geometry(len(positions), s.layout)
	artifact := &Artifact{
		PNG:      data,
		FileName: FileName,
		Boards:   len(positions),
		Width:    grid.PhysicalWidth(),
		Height:   grid.PhysicalHeight(),
	}
	s.logger.Info("boards_generate",
		zap.Int("boards", artifact.Boards),
		zap.Int("width", artifact.Width),
		zap.Int("height", artifact.Height),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return artifact, nil
}

// UserMessage maps a Generate error to the text shown to the user.
func (s *Service) UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, render.ErrNoInput):
		return s.msgs.Text("input.empty", nil)
	case errors.Is(err, fen.ErrMalformed):
		return s.msgs.Text("input.malformed", map[string]any{"Detail": err.Error()})
	case errors.Is(err, ErrNotReady):
		return s.msgs.Text("render.not_ready", nil)
	default:
		return s.msgs.Text("render.failed", nil)
	}
}

// DoneMessage summarises a successful artifact.
func (s *Service) DoneMessage(a *Artifact) string {
	return s.msgs.Text("render.done", map[string]any{
		"Boards": a.Boards,
		"Width":  a.Width,
		"Height": a.Height,
	})
}
