package tiler

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeblew999/mesh3dtiler/internal/mesh"
)

// StubRepacker is a deterministic in-memory Repacker for tests: it
// reads the input geometry, synthesizes a single solid-color packed
// image sized to the first bound material's texture, and writes an OBJ
// referencing it under a single material so downstream code can
// exercise the "exactly one material after repack" assumption without
// depending on a real atlas-packing tool.
type StubRepacker struct{}

func (StubRepacker) Repack(ctx context.Context, inputDir, inputOBJ, outputDir, outputName string) error {
	g, err := mesh.Read(filepath.Join(inputDir, inputOBJ+".obj"))
	if err != nil {
		return err
	}

	w, h := 4, 4
	if g.Lib != nil && len(g.Lib.Order) > 0 {
		b := g.Lib.Bindings[g.Lib.Order[0]]
		w, h = b.W, b.H
	}

	imgPath := filepath.Join(outputDir, outputName+".png")
	if err := writeSolidPNG(imgPath, w, h); err != nil {
		return err
	}

	// map_Kd is resolved relative to the MTL file, which sits beside imgPath.
	imgRel := filepath.Base(outputName) + ".png"
	lib := &mesh.Library{
		Lines: []string{"newmtl packed", "map_Kd " + imgRel},
		Bindings: map[string]mesh.Binding{
			"packed": {Name: "packed", ImagePath: imgRel, W: w, H: h},
		},
		Order: []string{"packed"},
	}
	g.Lib = lib
	g.Materials = []string{"packed"}
	for i := range g.F {
		g.F[i].Material = 0
	}

	return g.Write(filepath.Join(outputDir, outputName+".obj"), nil)
}

// StubContainerWriter is a deterministic in-memory ContainerWriter for
// tests: it writes a small placeholder file at outputPath rather than
// a real tile container, so tests can assert a file was produced
// without depending on a real converter binary.
type StubContainerWriter struct{}

func (StubContainerWriter) Write(ctx context.Context, inputOBJ, outputPath string) error {
	if _, err := os.Stat(inputOBJ + ".obj"); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("stub-container:"+strings.TrimSuffix(filepath.Base(inputOBJ), ".obj")), 0o644)
}

func writeSolidPNG(path string, w, h int) error {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.Gray{Y: 200})
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
