// Package manifest defines the streamable tile set metadata document
// (tileset.json) and its serialization, the Go realization of the 3D
// Tiles format's root/children tree.
package manifest

import (
	"encoding/json"
	"io"
)

// BoundingVolume is the 3D-Tiles box encoding: [center, x-half-axis,
// y-half-axis, z-half-axis] flattened to 12 numbers.
type BoundingVolume struct {
	Box [12]float64 `json:"box"`
}

// Content points at the tile's container file.
type Content struct {
	URI string `json:"uri"`
}

// Tile3D is one node of the tile set tree. Named Tile3D (not Tile) to
// avoid clashing with the octree index type in package tile.
type Tile3D struct {
	BoundingVolume BoundingVolume `json:"boundingVolume"`
	GeometricError float64        `json:"geometricError"`
	Refine         string         `json:"refine,omitempty"`
	Content        *Content       `json:"content,omitempty"`
	Children       []*Tile3D      `json:"children,omitempty"`
}

// Asset carries the tile set format version.
type Asset struct {
	Version string `json:"version"`
}

// Tileset is the root tileset.json document.
type Tileset struct {
	Asset          Asset   `json:"asset"`
	GeometricError float64 `json:"geometricError"`
	Root           Tile3D  `json:"root"`
}

// Write marshals t as indented JSON, matching the original's
// json.dump(..., indent=4).
func Write(w io.Writer, t Tileset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(t)
}

// Read parses a tileset.json document.
func Read(r io.Reader) (Tileset, error) {
	var t Tileset
	dec := json.NewDecoder(r)
	err := dec.Decode(&t)
	return t, err
}
