package glyph

import (
	"context"
	"fmt"
	"image"
	"io/fs"
	"time"

	"github.com/park285/fengrid/internal/fen"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LoadError reports a glyph that could not be read or decoded.
type LoadError struct {
	Code rune
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load glyph %q from %s: %v", e.Code, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Set maps piece codes to rasterized glyphs. It is never modified after
// Load returns, so it can be shared freely.
type Set struct {
	images  map[rune]image.Image
	missing []rune
	size    int
}

// NewSet wraps an existing map. The map must not be modified afterwards.
func NewSet(images map[rune]image.Image) *Set {
	return &Set{images: images}
}

func (s *Set) Get(code rune) (image.Image, bool) {
	if s == nil {
		return nil, false
	}
	img, ok := s.images[code]
	return img, ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.images)
}

// Missing lists the codes whose load failed, in PieceCodes order.
func (s *Set) Missing() []rune {
	if s == nil {
		return nil
	}
	return append([]rune(nil), s.missing...)
}

// Size is the pixel edge SVG glyphs were rasterized at.
func (s *Set) Size() int {
	if s == nil {
		return 0
	}
	return s.size
}

// Loader reads the twelve piece glyphs from FS.
type Loader struct {
	FS     fs.FS
	Dir    string
	Size   int
	Logger *zap.Logger
}

// Load fetches every glyph concurrently and returns once all attempts have
// settled. Failed glyphs are logged and left out of the set; only context
// cancellation makes Load itself fail.
func (l *Loader) Load(ctx context.Context) (*Set, error) {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fsys := l.FS
	if fsys == nil {
		fsys = Assets()
	}
	dir := l.Dir
	if dir == "" {
		dir = "."
	}
	size := l.Size
	if size <= 0 {
		size = 100
	}

	started := time.Now()
	images := make([]image.Image, len(fen.PieceCodes))

	eg, gctx := errgroup.WithContext(ctx)
	for i, code := range fen.PieceCodes {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := loadOne(fsys, dir, code, size)
			if err != nil {
				logger.Error("glyph_load_failed",
					zap.String("code", string(code)),
					zap.String("path", err.Path),
					zap.Error(err),
				)
				return nil
			}
			images[i] = img
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("load glyphs: %w", err)
	}

	set := &Set{images: make(map[rune]image.Image, len(images)), size: size}
	for i, code := range fen.PieceCodes {
		if images[i] == nil {
			set.missing = append(set.missing, code)
			continue
		}
		set.images[code] = images[i]
	}

	logger.Info("glyphs_loaded",
		zap.Int("loaded", set.Len()),
		zap.Int("missing", len(set.missing)),
		zap.Int("size", size),
		zap.Duration("elapsed", time.Since(started)),
	)
	return set, nil
}

func loadOne(fsys fs.FS, dir string, code rune, size int) (image.Image, *LoadError) {
	stem, ok := AssetName(code)
	if !ok {
		return nil, &LoadError{Code: code, Path: dir, Err: fmt.Errorf("unknown piece code")}
	}
	name, data, err := readAsset(fsys, dir, stem)
	if err != nil {
		return nil, &LoadError{Code: code, Path: name, Err: err}
	}
	img, err := decodeAsset(name, data, size)
	if err != nil {
		return nil, &LoadError{Code: code, Path: name, Err: err}
	}
	return img, nil
}
