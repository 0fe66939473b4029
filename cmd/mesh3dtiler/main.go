// Command mesh3dtiler converts a textured triangular OBJ mesh into a
// streamable, multi-resolution octree tile set.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/mesh3dtiler/internal/config"
	"github.com/joeblew999/mesh3dtiler/internal/driver"
	"github.com/joeblew999/mesh3dtiler/internal/tilererr"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "mesh3dtiler",
		Short:   "Convert a textured OBJ mesh into a streamable 3D tile set",
		Version: "0.1.0",
	}
	root.AddCommand(newTileCmd(), newSpecCmd())
	return root
}

func flagsToOptions(cmd *cobra.Command, args []string) config.Options {
	opts := config.Defaults()
	opts.InMesh = args[0]
	opts.OutDir = args[1]
	opts.ImageSize, _ = cmd.Flags().GetInt("image-size")
	opts.Upsample, _ = cmd.Flags().GetFloat64("upsample")
	opts.DebugGLB, _ = cmd.Flags().GetBool("debug-glb")
	opts.DebugTileset, _ = cmd.Flags().GetBool("debug-tileset")
	opts.LedgerPath, _ = cmd.Flags().GetString("ledger")
	opts.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	return opts
}

func newTileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tile <in_mesh> <out_dir>",
		Short: "Generate a 3D tile set from an OBJ mesh",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flagsToOptions(cmd, args)

			_, stats, err := driver.Run(context.Background(), opts)
			if err != nil {
				var terr *tilererr.Error
				if errors.As(err, &terr) {
					return fmt.Errorf("%s", terr.Error())
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "generated %d tiles (%d leaves, %d empty crops, %d bytes)\n",
				stats.TileCount, stats.LeafCount, stats.EmptyCount, stats.TotalBytes)
			return nil
		},
	}
	cmd.Flags().Int("image-size", 512, "Target texels per tile side")
	cmd.Flags().Float64("upsample", 1.0, "Pre-repack upsampling factor")
	cmd.Flags().Bool("debug-glb", false, "Emit debug GLB viewer output")
	cmd.Flags().Bool("debug-tileset", false, "Emit debug tileset viewer output")
	cmd.Flags().String("ledger", "", "DuckDB run-ledger path (empty disables)")
	cmd.Flags().Int("concurrency", 4, "Worker pool size for sibling top-level tiles")
	return cmd
}

func newSpecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spec",
		Short: "Print the default Options as YAML (--json for JSON)",
		RunE: func(cmd *cobra.Command, args []string) error {
			useJSON, _ := cmd.Flags().GetBool("json")
			opts := config.Defaults()

			var out []byte
			var err error
			if useJSON {
				out, err = json.MarshalIndent(opts, "", "  ")
			} else {
				out, err = yaml.Marshal(opts)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output as JSON instead of YAML")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
