package texture_test

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/joeblew999/mesh3dtiler/internal/texture"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.png")
	writePNG(t, path, 100, 50)

	dims, err := texture.Dimensions(path)
	if err != nil {
		t.Fatal(err)
	}
	if dims.W != 100 || dims.H != 50 {
		t.Fatalf("Dimensions = %+v, want 100x50", dims)
	}
}

func TestResizeScale(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	writePNG(t, in, 100, 50)

	if err := texture.ResizeScale(in, out, 0.5); err != nil {
		t.Fatal(err)
	}
	dims, err := texture.Dimensions(out)
	if err != nil {
		t.Fatal(err)
	}
	if dims.W != 50 || dims.H != 25 {
		t.Fatalf("Dimensions(out) = %+v, want 50x25", dims)
	}
}

func TestResizeToPreservesAspectAndRespectsLimit(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.jpg")
	writePNG(t, in, 200, 100)

	scale, err := texture.ResizeTo(in, out, 50, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if scale != 0.25 {
		t.Fatalf("scale = %v, want 0.25", scale)
	}
	dims, err := texture.Dimensions(out)
	if err != nil {
		t.Fatal(err)
	}
	if dims.W != 50 || dims.H != 25 {
		t.Fatalf("Dimensions(out) = %+v, want 50x25", dims)
	}
}

func TestResizeToScaleLimit(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	writePNG(t, in, 100, 100)

	// Without a limit this would upscale to 200x200; the limit caps it.
	scale, err := texture.ResizeTo(in, out, 200, 200, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if scale != 0.5 {
		t.Fatalf("scale = %v, want 0.5 (capped)", scale)
	}
}
