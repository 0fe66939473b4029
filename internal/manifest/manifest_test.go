package manifest_test

import (
	"bytes"
	"testing"

	"github.com/joeblew999/mesh3dtiler/internal/manifest"
)

func TestWriteReadRoundTrip(t *testing.T) {
	ts := manifest.Tileset{
		Asset:          manifest.Asset{Version: "1.0"},
		GeometricError: 100,
		Root: manifest.Tile3D{
			BoundingVolume: manifest.BoundingVolume{Box: [12]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}},
			GeometricError: 100,
			Refine:         "REPLACE",
			Children: []*manifest.Tile3D{
				{GeometricError: 50, Content: &manifest.Content{URI: "0/0/0/0.b3dm"}},
			},
		},
	}

	var buf bytes.Buffer
	if err := manifest.Write(&buf, ts); err != nil {
		t.Fatal(err)
	}

	got, err := manifest.Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Root.GeometricError != 100 || len(got.Root.Children) != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Root.Children[0].Content.URI != "0/0/0/0.b3dm" {
		t.Fatalf("content uri mismatch: %+v", got.Root.Children[0].Content)
	}
}
