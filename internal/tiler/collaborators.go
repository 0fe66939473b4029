// Package tiler implements the recursive tile generator: crop, repack,
// downsample, and container-write a mesh into a streamable octree tile
// set, propagating screen-space geometric error as it descends.
package tiler

import "context"

// Repacker merges the (possibly several) texture images referenced by
// one cropped tile's OBJ into a single packed atlas, rewriting the OBJ
// and MTL to reference it. Implementations shell out to an external
// atlas-packing tool; core tile generation logic never depends on one
// concretely.
type Repacker interface {
	// Repack reads inputDir/inputOBJ.obj (and its MTL/textures) and
	// writes outputDir/outputName.obj (+ .mtl, packed texture) with a
	// single material referencing one packed image.
	Repack(ctx context.Context, inputDir, inputOBJ, outputDir, outputName string) error
}

// ContainerWriter converts a final OBJ (already downsampled to its
// tile's target resolution) into the streamable tile container format
// consumed by the client renderer.
type ContainerWriter interface {
	// Write reads inputOBJ (without extension) and writes outputPath
	// (with its container extension, e.g. ".b3dm").
	Write(ctx context.Context, inputOBJ, outputPath string) error
}
