// Package meshclient reads a tile set produced by mesh3dtiler back
// from disk, the local-file analogue of the teacher's generated HTTP
// client SDK (pkg/geoclient): a small consumer-facing package wrapping
// the producer's output format, adapted to local files since network
// I/O is out of scope.
package meshclient

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joeblew999/mesh3dtiler/internal/manifest"
)

// Client reads tile sets rooted at a directory produced by the
// "mesh3dtiler tile" command (a directory containing tiles/tileset.json).
type Client struct {
	dir string
}

// New returns a Client rooted at outDir, the output directory passed
// to the tile command.
func New(outDir string) *Client {
	return &Client{dir: outDir}
}

// Tileset loads and parses tiles/tileset.json.
func (c *Client) Tileset() (manifest.Tileset, error) {
	path := filepath.Join(c.dir, "tiles", "tileset.json")
	f, err := os.Open(path)
	if err != nil {
		return manifest.Tileset{}, fmt.Errorf("opening tileset: %w", err)
	}
	defer f.Close()
	return manifest.Read(f)
}

// ContentPath resolves a tile's content.uri relative to the tileset
// document, returning the path to its container file (absolute when
// the client's output directory is absolute).
func (c *Client) ContentPath(uri string) string {
	return filepath.Join(c.dir, "tiles", uri)
}
