// Package texture isolates the tiler core from any concrete image
// library behind two operations: reading pixel dimensions and
// resizing with high-quality interpolation. This keeps the mesh and
// tiler packages free of an image-library import, per the
// "image I/O dependency" design note: the core only ever needs
// (read dimensions, resize, write).
package texture

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// Dims is a decoded image's pixel dimensions.
type Dims struct {
	W, H int
}

// Dimensions reads just enough of the image at path to report its
// pixel dimensions, without decoding the full pixel buffer.
func Dimensions(path string) (Dims, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dims{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Dims{}, fmt.Errorf("decoding image config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Dims{}, fmt.Errorf("zero-sized image")
	}
	return Dims{W: cfg.Width, H: cfg.Height}, nil
}

// ResizeScale reads the image at inPath, scales every dimension by
// scaleFactor using bicubic-equivalent (Catmull-Rom) resampling, and
// writes the result to outPath. It mirrors the original tiler's
// resize_scale (uniform scale, no aspect constraint).
func ResizeScale(inPath, outPath string, scaleFactor float64) error {
	src, err := decode(inPath)
	if err != nil {
		return err
	}
	b := src.Bounds()
	outW := int(math.Round(scaleFactor * float64(b.Dx())))
	outH := int(math.Round(scaleFactor * float64(b.Dy())))
	return resizeAndEncode(src, outW, outH, outPath)
}

// ResizeTo reads the image at inPath and resizes it so it fits within
// maxW x maxH while preserving aspect ratio (matching ImageMagick's
// "convert -resize WxH" semantics used by the original tiler's
// resize_to). If scaleLimit > 0, the computed scale factor is capped
// at scaleLimit so the result never exceeds that fraction of the
// source resolution. Returns the scale factor actually applied.
func ResizeTo(inPath, outPath string, maxW, maxH int, scaleLimit float64) (float64, error) {
	src, err := decode(inPath)
	if err != nil {
		return 0, err
	}
	b := src.Bounds()
	inW, inH := b.Dx(), b.Dy()

	scale := math.Min(float64(maxW)/float64(inW), float64(maxH)/float64(inH))
	if scaleLimit > 0 && scaleLimit < scale {
		scale = scaleLimit
	}

	outW := int(math.Round(scale * float64(inW)))
	outH := int(math.Round(scale * float64(inH)))
	if err := resizeAndEncode(src, outW, outH, outPath); err != nil {
		return 0, err
	}
	return scale, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", path, err)
	}
	return img, nil
}

func resizeAndEncode(src image.Image, outW, outH int, outPath string) error {
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".png":
		return png.Encode(out, dst)
	case ".jpg", ".jpeg":
		return jpeg.Encode(out, dst, &jpeg.Options{Quality: 92})
	default:
		return png.Encode(out, dst)
	}
}
