package mesh

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestReadLibraryParsesBindings(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "diffuse.png"), 64, 32)

	mtlPath := filepath.Join(dir, "test.mtl")
	contents := "# comment\nnewmtl mat0\nKa 1 1 1\nmap_Kd diffuse.png\n"
	if err := os.WriteFile(mtlPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write mtl: %v", err)
	}

	lib, err := ReadLibrary(mtlPath)
	if err != nil {
		t.Fatalf("ReadLibrary: %v", err)
	}
	b, ok := lib.Bindings["mat0"]
	if !ok {
		t.Fatal("expected binding for mat0")
	}
	if b.W != 64 || b.H != 32 {
		t.Fatalf("binding dims = %dx%d, want 64x32", b.W, b.H)
	}
	if b.ImagePath != "diffuse.png" {
		t.Fatalf("ImagePath = %q, want diffuse.png", b.ImagePath)
	}
}

func TestReadLibraryRejectsMapKdBeforeNewmtl(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "diffuse.png"), 4, 4)

	mtlPath := filepath.Join(dir, "bad.mtl")
	contents := "map_Kd diffuse.png\n"
	if err := os.WriteFile(mtlPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write mtl: %v", err)
	}

	if _, err := ReadLibrary(mtlPath); err == nil {
		t.Fatal("expected error for map_Kd before newmtl")
	}
}

func TestLibraryWritePreservesUnknownLinesAndRemapsTexture(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "diffuse.png"), 16, 16)

	mtlPath := filepath.Join(dir, "test.mtl")
	contents := "newmtl mat0\nKa 1.0 1.0 1.0\nmap_Kd diffuse.png\nillum 2\n"
	if err := os.WriteFile(mtlPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write mtl: %v", err)
	}

	lib, err := ReadLibrary(mtlPath)
	if err != nil {
		t.Fatalf("ReadLibrary: %v", err)
	}

	outPath := filepath.Join(dir, "out.mtl")
	if err := lib.Write(outPath, map[string]string{"diffuse.png": "renamed.png"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	s := string(out)
	if !containsLine(s, "map_Kd renamed.png") {
		t.Fatalf("output missing remapped map_Kd line:\n%s", s)
	}
	if !containsLine(s, "illum 2") {
		t.Fatalf("output dropped unrecognized directive:\n%s", s)
	}
	if !containsLine(s, "Ka 1.0 1.0 1.0") {
		t.Fatalf("output dropped Ka line:\n%s", s)
	}
}

func containsLine(s, line string) bool {
	for _, l := range splitLines(s) {
		if l == line {
			return true
		}
	}
	return false
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
