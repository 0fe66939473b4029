package driver_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joeblew999/mesh3dtiler/internal/config"
	"github.com/joeblew999/mesh3dtiler/internal/driver"
	"github.com/joeblew999/mesh3dtiler/internal/tilererr"
)

func TestRunRefusesExistingOutDir(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}

	opts := config.Defaults()
	opts.InMesh = filepath.Join(dir, "mesh.obj")
	opts.OutDir = outDir

	_, _, err := driver.Run(context.Background(), opts)
	if err == nil {
		t.Fatal("expected error for existing output directory")
	}
	var terr *tilererr.Error
	if e, ok := err.(*tilererr.Error); ok {
		terr = e
	}
	if terr == nil || terr.Kind != tilererr.OutputExists {
		t.Fatalf("err = %v, want tilererr.OutputExists", err)
	}
}

func TestRunRejectsMissingMesh(t *testing.T) {
	dir := t.TempDir()
	opts := config.Defaults()
	opts.InMesh = filepath.Join(dir, "does-not-exist.obj")
	opts.OutDir = filepath.Join(dir, "out")

	_, _, err := driver.Run(context.Background(), opts)
	if err == nil {
		t.Fatal("expected error for missing input mesh")
	}
}
