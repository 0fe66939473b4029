// Package config defines the CLI-facing Options struct, tagged the way
// the teacher's humacli Options were (doc/default struct tags), but
// resolved through cobra/pflag instead since network-serving huma
// itself is out of scope for a batch CLI tool.
package config

// Options holds every user-tunable parameter of one tiling run.
type Options struct {
	InMesh       string  `doc:"Path to the input OBJ mesh" required:"true"`
	OutDir       string  `doc:"Output directory for the tile set" required:"true"`
	ImageSize    int     `doc:"Target texels per tile side" default:"512"`
	Upsample     float64 `doc:"Pre-repack upsampling factor" default:"1.0"`
	DebugGLB     bool    `doc:"Emit debug GLB viewer output"`
	DebugTileset bool    `doc:"Emit debug tileset viewer output"`
	LedgerPath   string  `doc:"DuckDB run-ledger path (empty disables)"`
	Concurrency  int     `doc:"Worker pool size for sibling top-level tiles" default:"4"`
}

// Defaults returns an Options populated with every default tag's value.
func Defaults() Options {
	return Options{
		ImageSize:   512,
		Upsample:    1.0,
		Concurrency: 4,
	}
}
