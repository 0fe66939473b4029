package tiler

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/joeblew999/mesh3dtiler/internal/mesh"
	"github.com/joeblew999/mesh3dtiler/internal/tile"
)

// buildTestMesh writes a tiny two-triangle OBJ/MTL/PNG fixture under
// dir and returns the parsed Geometry.
func buildTestMesh(t *testing.T, dir string) *mesh.Geometry {
	t.Helper()

	imgPath := filepath.Join(dir, "tex.png")
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.White)
		}
	}
	f, err := os.Create(imgPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	mtlPath := filepath.Join(dir, "mesh.mtl")
	if err := os.WriteFile(mtlPath, []byte("newmtl mat0\nmap_Kd tex.png\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	objPath := filepath.Join(dir, "mesh.obj")
	obj := `mtllib mesh.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
usemtl mat0
f 1/1/1 2/2/1 3/3/1
f 1/1/1 3/3/1 4/4/1
`
	if err := os.WriteFile(objPath, []byte(obj), 0o644); err != nil {
		t.Fatal(err)
	}

	g, err := mesh.Read(objPath)
	if err != nil {
		t.Fatalf("mesh.Read: %v", err)
	}
	return g
}

func TestGenerateProducesLeafTilesAndManifest(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	geom := buildTestMesh(t, srcDir)

	bbox := geom.GetBoundingBox()
	origin, scale, minZoom := tile.AutoConfig(bbox)
	sys := tile.NewSystem(origin, scale, "")

	gen := NewGenerator(Config{
		OutDir:              outDir,
		System:              sys,
		MinZoom:             minZoom,
		TargetTexelsPerTile: 16,
		Repacker:            StubRepacker{},
		Container:           StubContainerWriter{},
	})

	ts, stats, err := gen.Generate(context.Background(), geom)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if stats.LeafCount == 0 {
		t.Fatal("expected at least one leaf tile to be generated")
	}
	if len(ts.Root.Children) == 0 {
		t.Fatal("expected root to have children")
	}
	if ts.Asset.Version != "1.0" {
		t.Fatalf("Asset.Version = %q, want 1.0", ts.Asset.Version)
	}

	tilesetPath := filepath.Join(outDir, "tiles", "tileset.json")
	if _, err := os.Stat(tilesetPath); err != nil {
		t.Fatalf("expected installed tileset.json: %v", err)
	}
}
