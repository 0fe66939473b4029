package tiler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/joeblew999/mesh3dtiler/internal/bus"
	"github.com/joeblew999/mesh3dtiler/internal/manifest"
	"github.com/joeblew999/mesh3dtiler/internal/mesh"
	"github.com/joeblew999/mesh3dtiler/internal/texture"
	"github.com/joeblew999/mesh3dtiler/internal/tile"
	"github.com/joeblew999/mesh3dtiler/internal/tilererr"
)

// UpsampleFactor is the default pre-repack image upsampling factor.
// Increasing it improves resample quality (the repacker's own
// resampling is a crude nearest-ish algorithm) at the cost of memory;
// values above ~3 risk overflowing repackers that use 32-bit byte
// offsets for very large atlases, so the default stays conservative.
const UpsampleFactor = 1.0

// BigGeometricError is the 3D-Tiles geometricError used for the
// synthetic root tile and as the implicit parent error for top-level
// tiles, guaranteeing the renderer always has something to show.
const BigGeometricError = 100.0

// Config parameterizes a Generator.
type Config struct {
	OutDir              string
	System              tile.System
	MinZoom             int
	TargetTexelsPerTile int
	Upsample            float64 // 0 defaults to UpsampleFactor
	Concurrency         int     // 0 defaults to 4
	Repacker            Repacker
	Container           ContainerWriter
	Bus                 *bus.Bus // nil disables event publishing
	// OnTile, if set, is invoked after each non-empty tile is fully
	// generated (leaf or interior), so a caller can record it to
	// persistent storage without the generator depending on that store.
	OnTile func(t tile.Tile, meta *manifest.Tile3D, bytes int64)
}

// Stats accumulates counts across a Generate run.
type Stats struct {
	TileCount  int64
	LeafCount  int64
	EmptyCount int64
	TotalBytes int64
}

// Generator walks a TileSystem's octree over a Geometry, producing a
// manifest.Tileset and the external tile container files it references.
type Generator struct {
	cfg Config

	upTextureMap map[string]string
	inputTexel   float64
	stats        Stats
}

// NewGenerator constructs a Generator from cfg, applying defaults.
func NewGenerator(cfg Config) *Generator {
	if cfg.Upsample <= 0 {
		cfg.Upsample = UpsampleFactor
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Generator{cfg: cfg}
}

func (g *Generator) buildDir() string  { return filepath.Join(g.cfg.OutDir, "build") }
func (g *Generator) tilesDir() string  { return filepath.Join(g.cfg.OutDir, "tiles") }
func (g *Generator) tilesetPath() string {
	return filepath.Join(g.buildDir(), "tileset.json")
}

func (g *Generator) cropPath(t tile.Tile) string {
	return filepath.Join(g.buildDir(), g.cfg.System.Path(t)) + "_crop"
}

func (g *Generator) repackPath(t tile.Tile) string {
	return filepath.Join(g.buildDir(), g.cfg.System.Path(t)) + "_repack"
}

func (g *Generator) downsamplePath(t tile.Tile) string {
	return filepath.Join(g.buildDir(), g.cfg.System.Path(t)) + "_downsample"
}

func (g *Generator) outputPath(t tile.Tile) string {
	return filepath.Join(g.buildDir(), g.cfg.System.Path(t))
}

// Generate is the main driver: it computes the input texel size,
// upsamples source textures once, fans out over the top tiles that
// intersect geom's bounding box, and assembles the resulting tileset.
func (g *Generator) Generate(ctx context.Context, geom *mesh.Geometry) (manifest.Tileset, Stats, error) {
	texel, err := geom.GetMedianTexelSize()
	if err != nil {
		return manifest.Tileset{}, Stats{}, err
	}
	g.inputTexel = texel

	if err := g.upsampleTextures(geom); err != nil {
		return manifest.Tileset{}, Stats{}, err
	}

	topTiles := g.cfg.System.TopTiles(geom.GetBoundingBox(), g.cfg.MinZoom)
	children, err := g.generateTopTiles(ctx, geom, topTiles)
	if err != nil {
		return manifest.Tileset{}, Stats{}, err
	}

	root := manifest.Tile3D{
		BoundingVolume: manifest.BoundingVolume(geom.GetBoundingVolume()),
		GeometricError: BigGeometricError,
		Refine:         "REPLACE",
		Children:       children,
	}
	ts := manifest.Tileset{
		Asset:          manifest.Asset{Version: "1.0"},
		GeometricError: BigGeometricError,
		Root:           root,
	}

	if err := g.writeTileset(ts); err != nil {
		return manifest.Tileset{}, Stats{}, err
	}

	return ts, g.stats, nil
}

func (g *Generator) writeTileset(ts manifest.Tileset) error {
	if err := os.MkdirAll(filepath.Dir(g.tilesetPath()), 0o755); err != nil {
		return tilererr.New(tilererr.IOError, err).WithPath(g.tilesetPath())
	}
	f, err := os.Create(g.tilesetPath())
	if err != nil {
		return tilererr.New(tilererr.IOError, err).WithPath(g.tilesetPath())
	}
	if err := manifest.Write(f, ts); err != nil {
		f.Close()
		return tilererr.New(tilererr.IOError, err).WithPath(g.tilesetPath())
	}
	f.Close()
	return installFile(g.buildDir(), g.tilesDir(), g.tilesetPath())
}

// upsampleTextures upsamples every source material's diffuse image
// once, before any tile-specific processing, recording the mapping
// from original image path to upsampled path for use when writing
// cropped tiles.
func (g *Generator) upsampleTextures(geom *mesh.Geometry) error {
	g.upTextureMap = make(map[string]string)
	if geom.Lib == nil {
		return nil
	}
	for name, b := range geom.Lib.Bindings {
		inPath := filepath.Join(filepath.Dir(geom.Lib.SourcePath), b.ImagePath)
		outBase := "up_" + trimExt(filepath.Base(b.ImagePath)) + ".png"
		outPath := filepath.Join(g.buildDir(), outBase)
		if err := texture.ResizeScale(inPath, outPath, g.cfg.Upsample); err != nil {
			return tilererr.New(tilererr.BadTexture, fmt.Errorf("upsampling material %q: %w", name, err)).WithPath(inPath)
		}
		g.upTextureMap[b.ImagePath] = filepath.Join("..", "..", "..", outBase)
	}
	return nil
}

func trimExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}

// generateTopTiles fans out over the given top-level tiles with a
// bounded worker pool; each top tile's subtree is generated
// sequentially once claimed by a worker.
func (g *Generator) generateTopTiles(ctx context.Context, geom *mesh.Geometry, tiles []tile.Tile) ([]*manifest.Tile3D, error) {
	type result struct {
		idx  int
		meta *manifest.Tile3D
	}

	jobs := make(chan int, len(tiles))
	results := make(chan result, len(tiles))
	errCh := make(chan error, 1)

	var wg sync.WaitGroup
	for w := 0; w < g.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				meta, err := g.generateTile(ctx, geom, tiles[idx], true, BigGeometricError)
				if err != nil {
					select {
					case errCh <- err:
					default:
					}
					return
				}
				results <- result{idx: idx, meta: meta}
			}
		}()
	}

	for i := range tiles {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(results)

	select {
	case err := <-errCh:
		return nil, err
	default:
	}

	ordered := make([]*manifest.Tile3D, len(tiles))
	for r := range results {
		ordered[r.idx] = r.meta
	}
	var out []*manifest.Tile3D
	for _, m := range ordered {
		if m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

// generateTile produces one node of the tile tree, recursing into
// children sequentially until the tile's texture reaches full source
// resolution (the leaf condition) or cropping yields no geometry.
func (g *Generator) generateTile(ctx context.Context, parent *mesh.Geometry, t tile.Tile, root bool, parentMaxError float64) (*manifest.Tile3D, error) {
	geom := parent.GetCropped(g.cfg.System.BoundingBox(t))
	if geom.IsEmpty() {
		atomic.AddInt64(&g.stats.EmptyCount, 1)
		g.publish(bus.Event{Kind: bus.TileSkippedEmpty, Tile: t})
		return nil, nil
	}

	if err := g.writeCroppedTile(geom, t); err != nil {
		return nil, err
	}
	if err := g.repackTexture(ctx, t); err != nil {
		return nil, err
	}

	// If cropping discarded no faces relative to the parent, recursing
	// further can't improve anything: force this subtree to full
	// resolution so the recursion is guaranteed to terminate even when
	// a face's texture is larger than the target tile size.
	forceFullRes := !root && len(parent.F) == len(geom.F)

	scaleFactor, err := g.downsampleTexture(t, forceFullRes)
	if err != nil {
		return nil, err
	}

	bytesWritten, err := g.writeContainer(ctx, t)
	if err != nil {
		return nil, err
	}

	// The tiles directory mirrors the build directory's relative
	// structure (installFile preserves it), so the relative path from
	// tileset.json to a tile's container is the same whether computed
	// in the build tree or the installed tiles tree.
	rel, err := filepath.Rel(filepath.Dir(g.tilesetPath()), g.outputPath(t)+".b3dm")
	if err != nil {
		rel = g.cfg.System.Path(t) + ".b3dm"
	}

	meta := &manifest.Tile3D{
		BoundingVolume: manifest.BoundingVolume(geom.GetBoundingVolume()),
		Content:        &manifest.Content{URI: rel},
		GeometricError: parentMaxError,
	}

	maxError := g.inputTexel / scaleFactor

	atomic.AddInt64(&g.stats.TileCount, 1)
	atomic.AddInt64(&g.stats.TotalBytes, bytesWritten)

	if scaleFactor > 0.999 {
		atomic.AddInt64(&g.stats.LeafCount, 1)
		g.publish(bus.Event{Kind: bus.TileWritten, Tile: t, Bytes: bytesWritten})
		g.recordTile(t, meta, bytesWritten)
		return meta, nil
	}

	for _, child := range g.cfg.System.Children(t) {
		childMeta, err := g.generateTile(ctx, geom, child, false, maxError)
		if err != nil {
			return nil, err
		}
		if childMeta != nil {
			meta.Children = append(meta.Children, childMeta)
		}
	}

	g.publish(bus.Event{Kind: bus.TileWritten, Tile: t, Bytes: bytesWritten})
	g.recordTile(t, meta, bytesWritten)
	return meta, nil
}

func (g *Generator) publish(e bus.Event) {
	if g.cfg.Bus != nil {
		g.cfg.Bus.Publish(e)
	}
}

func (g *Generator) recordTile(t tile.Tile, meta *manifest.Tile3D, bytes int64) {
	if g.cfg.OnTile != nil {
		g.cfg.OnTile(t, meta, bytes)
	}
}

func (g *Generator) writeCroppedTile(geom *mesh.Geometry, t tile.Tile) error {
	rotated := geom.GetRotated(mesh.ZUpToYUp)
	return rotated.Write(g.cropPath(t)+".obj", g.upTextureMap)
}

func (g *Generator) repackTexture(ctx context.Context, t tile.Tile) error {
	dir := g.buildDir()
	cropBase := relTo(dir, g.cropPath(t))
	repackBase := relTo(dir, g.repackPath(t))
	return g.cfg.Repacker.Repack(ctx, dir, cropBase, dir, repackBase)
}

func relTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.Base(path)
	}
	return rel
}

// downsampleTexture resizes the repacked texture to the generator's
// target resolution (or to full source resolution, if forceFullRes),
// rewrites the repacked OBJ to reference the downsampled image, and
// returns the scale factor applied relative to the original source
// texture (i.e. including the earlier upsample step).
func (g *Generator) downsampleTexture(t tile.Tile, forceFullRes bool) (float64, error) {
	repackImg := g.repackPath(t) + ".png"
	downsampleImg := g.downsamplePath(t) + ".jpg"

	var scale float64
	var err error
	if forceFullRes {
		scale = 1.0 / g.cfg.Upsample
		err = texture.ResizeScale(repackImg, downsampleImg, scale)
	} else {
		scale, err = texture.ResizeTo(repackImg, downsampleImg,
			g.cfg.TargetTexelsPerTile, g.cfg.TargetTexelsPerTile, 1.0/g.cfg.Upsample)
	}
	if err != nil {
		return 0, tilererr.New(tilererr.BadTexture, err).WithPath(repackImg).WithTile(t.Zoom, t.XI, t.YI, t.ZI)
	}

	repackGeom, err := mesh.Read(g.repackPath(t) + ".obj")
	if err != nil {
		return 0, err
	}
	if len(repackGeom.Lib.Bindings) != 1 {
		return 0, tilererr.New(tilererr.MalformedMaterial,
			fmt.Errorf("repacked tile has %d materials, want exactly 1", len(repackGeom.Lib.Bindings))).
			WithTile(t.Zoom, t.XI, t.YI, t.ZI)
	}
	var repackImgRel string
	for _, b := range repackGeom.Lib.Bindings {
		repackImgRel = b.ImagePath
	}

	replacements := map[string]string{repackImgRel: filepath.Base(downsampleImg)}
	if err := repackGeom.Write(g.downsamplePath(t)+".obj", replacements); err != nil {
		return 0, err
	}

	return scale * g.cfg.Upsample, nil
}

func (g *Generator) writeContainer(ctx context.Context, t tile.Tile) (int64, error) {
	outPath := g.outputPath(t) + ".b3dm"
	if err := g.cfg.Container.Write(ctx, g.downsamplePath(t), outPath); err != nil {
		return 0, tilererr.New(tilererr.ExternalToolFailed, err).WithTile(t.Zoom, t.XI, t.YI, t.ZI)
	}
	if err := installFile(g.buildDir(), g.tilesDir(), outPath); err != nil {
		return 0, err
	}
	info, err := os.Stat(outPath)
	if err != nil {
		return 0, tilererr.New(tilererr.IOError, err).WithPath(outPath)
	}
	return info.Size(), nil
}

// installFile copies a file from under buildDir to the corresponding
// path under tilesDir, matching the original's build/tiles split: the
// build directory holds working files, only finished tiles and the
// tileset get installed into the output tiles directory.
func installFile(buildDir, tilesDir, path string) error {
	rel, err := filepath.Rel(buildDir, path)
	if err != nil {
		return tilererr.New(tilererr.IOError, err).WithPath(path)
	}
	dst := filepath.Join(tilesDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return tilererr.New(tilererr.IOError, err).WithPath(dst)
	}

	src, err := os.Open(path)
	if err != nil {
		return tilererr.New(tilererr.IOError, err).WithPath(path)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return tilererr.New(tilererr.IOError, err).WithPath(dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return tilererr.New(tilererr.IOError, err).WithPath(dst)
	}
	return os.Chmod(dst, 0o644)
}
