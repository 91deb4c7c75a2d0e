package glyph

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/png"
	"io/fs"
	"path"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/*.svg
var assetFiles embed.FS

// Assets returns the built-in glyph set, one SVG per piece.
func Assets() fs.FS {
	sub, err := fs.Sub(assetFiles, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

var pieceByCode = map[rune]nchess.Piece{
	'K': nchess.WhiteKing,
	'Q': nchess.WhiteQueen,
	'R': nchess.WhiteRook,
	'B': nchess.WhiteBishop,
	'N': nchess.WhiteKnight,
	'P': nchess.WhitePawn,
	'k': nchess.BlackKing,
	'q': nchess.BlackQueen,
	'r': nchess.BlackRook,
	'b': nchess.BlackBishop,
	'n': nchess.BlackKnight,
	'p': nchess.BlackPawn,
}

// AssetName returns the file stem for a piece code, e.g. "wk" for 'K'.
func AssetName(code rune) (string, bool) {
	piece, ok := pieceByCode[code]
	if !ok {
		return "", false
	}

	var prefix string
	if piece.Color() == nchess.White {
		prefix = "w"
	} else {
		prefix = "b"
	}

	var suffix string
	switch piece.Type() {
	case nchess.King:
		suffix = "k"
	case nchess.Queen:
		suffix = "q"
	case nchess.Rook:
		suffix = "r"
	case nchess.Bishop:
		suffix = "b"
	case nchess.Knight:
		suffix = "n"
	case nchess.Pawn:
		suffix = "p"
	}

	return prefix + suffix, true
}

// assetExtensions are tried in order for every piece.
var assetExtensions = []string{".svg", ".png"}

// readAsset finds the first existing file for stem under dir.
func readAsset(fsys fs.FS, dir, stem string) (string, []byte, error) {
	var lastErr error
	for _, ext := range assetExtensions {
		name := path.Join(dir, stem+ext)
		data, err := fs.ReadFile(fsys, name)
		if err == nil {
			return name, data, nil
		}
		lastErr = err
	}
	return path.Join(dir, stem+assetExtensions[0]), nil, lastErr
}

func decodeAsset(name string, data []byte, size int) (image.Image, error) {
	if path.Ext(name) == ".svg" {
		return rasterizeSVG(data, size)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return img, nil
}

// rasterizeSVG renders an SVG document into a transparent size×size image.
func rasterizeSVG(data []byte, size int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}

	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(size)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(size)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	return img, nil
}
