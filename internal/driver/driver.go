// Package driver wires config.Options into a full tiling run: read the
// source mesh, auto-configure the tile system, run the generator, and
// write the resulting tile set, matching the original tiler() function.
package driver

import (
	"context"
	"fmt"
	"os"

	"github.com/joeblew999/mesh3dtiler/internal/bus"
	"github.com/joeblew999/mesh3dtiler/internal/config"
	"github.com/joeblew999/mesh3dtiler/internal/db"
	"github.com/joeblew999/mesh3dtiler/internal/manifest"
	"github.com/joeblew999/mesh3dtiler/internal/mesh"
	"github.com/joeblew999/mesh3dtiler/internal/tile"
	"github.com/joeblew999/mesh3dtiler/internal/tiler"
	"github.com/joeblew999/mesh3dtiler/internal/tilererr"
)

// Run executes one complete tiling pass for opts, refusing to
// overwrite a pre-existing output directory (matching the original's
// "already exists, not overwriting" guard).
func Run(ctx context.Context, opts config.Options) (manifest.Tileset, tiler.Stats, error) {
	if _, err := os.Stat(opts.OutDir); err == nil {
		return manifest.Tileset{}, tiler.Stats{}, tilererr.New(tilererr.OutputExists,
			fmt.Errorf("output directory already exists")).WithPath(opts.OutDir)
	}

	geom, err := mesh.Read(opts.InMesh)
	if err != nil {
		return manifest.Tileset{}, tiler.Stats{}, err
	}

	bbox := geom.GetBoundingBox()
	origin, scale, minZoom := tile.AutoConfig(bbox)
	system := tile.NewSystem(origin, scale, tile.DefaultPathFormat)

	var ledger *db.Ledger
	if opts.LedgerPath != "" {
		ledger, err = db.Open(opts.LedgerPath)
		if err != nil {
			return manifest.Tileset{}, tiler.Stats{}, err
		}
		defer ledger.Close()
	}

	gen := tiler.NewGenerator(tiler.Config{
		OutDir:              opts.OutDir,
		System:              system,
		MinZoom:             minZoom,
		TargetTexelsPerTile: opts.ImageSize,
		Upsample:            opts.Upsample,
		Concurrency:         opts.Concurrency,
		Repacker:            tiler.NewShellRepacker(""),
		Container:           tiler.NewShellContainerWriter("", "--b3dm"),
		Bus:                 bus.Default,
		OnTile: func(t tile.Tile, meta *manifest.Tile3D, bytes int64) {
			if ledger == nil {
				return
			}
			if err := ledger.RecordTile(t, meta, bytes); err != nil {
				fmt.Fprintln(os.Stderr, "ledger: failed to record tile:", err)
			}
		},
	})

	return gen.Generate(ctx, geom)
}
