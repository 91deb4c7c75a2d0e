package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Surface is the drawing target of Render. Coordinates passed to FillRect
// and DrawImage are logical; Reset fixes the logical size and the scale that
// maps them onto the backing pixels.
type Surface interface {
	Reset(width, height, scale int)
	FillRect(x, y, w, h float64, c color.Color)
	DrawImage(img image.Image, x, y, w, h float64)
}

// Canvas is an RGBA Surface.
type Canvas struct {
	img   *image.RGBA
	scale float64
}

func NewCanvas() *Canvas {
	return &Canvas{}
}

// Reset reallocates the backing image at scale times the logical size.
// The new image is fully transparent.
func (c *Canvas) Reset(width, height, scale int) {
	if scale <= 0 {
		scale = 1
	}
	c.scale = float64(scale)
	c.img = image.NewRGBA(image.Rect(0, 0, width*scale, height*scale))
}

func (c *Canvas) FillRect(x, y, w, h float64, clr color.Color) {
	if c.img == nil {
		return
	}
	imagedraw.Draw(c.img, c.rect(x, y, w, h), image.NewUniform(clr), image.Point{}, imagedraw.Src)
}

// DrawImage composites img over the target rectangle, resampling when the
// image is not already the target size.
func (c *Canvas) DrawImage(img image.Image, x, y, w, h float64) {
	if c.img == nil || img == nil {
		return
	}
	dst := c.rect(x, y, w, h)
	if dst.Empty() {
		return
	}
	src := img.Bounds()
	if src.Dx() == dst.Dx() && src.Dy() == dst.Dy() {
		imagedraw.Draw(c.img, dst, img, src.Min, imagedraw.Over)
		return
	}
	xdraw.CatmullRom.Scale(c.img, dst, img, src, xdraw.Over, nil)
}

// Image returns the backing image, or nil before the first Reset.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

func (c *Canvas) rect(x, y, w, h float64) image.Rectangle {
	return image.Rect(
		int(math.Round(x*c.scale)),
		int(math.Round(y*c.scale)),
		int(math.Round((x+w)*c.scale)),
		int(math.Round((y+h)*c.scale)),
	)
}

var errEmptyCanvas = errors.New("canvas has not been drawn")

// EncodePNG writes the canvas as a PNG.
func EncodePNG(w io.Writer, c *Canvas) error {
	if c == nil || c.img == nil || c.img.Bounds().Empty() {
		return errEmptyCanvas
	}
	if err := png.Encode(w, c.img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// PNGBytes is EncodePNG into a fresh buffer.
func PNGBytes(c *Canvas) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
