package tiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/joeblew999/mesh3dtiler/internal/tilererr"
)

// ShellRepacker invokes an external atlas repacker binary, working
// around tools (like the original's example_repack) whose path
// handling only works correctly for arguments relative to the current
// directory: it runs with Dir set to inputDir so both the input and
// output names can be given relative to that directory.
type ShellRepacker struct {
	// Binary is the repacker executable name or path.
	Binary string
}

func NewShellRepacker(binary string) *ShellRepacker {
	if binary == "" {
		binary = "example_repack"
	}
	return &ShellRepacker{Binary: binary}
}

func (r *ShellRepacker) Repack(ctx context.Context, inputDir, inputOBJ, outputDir, outputName string) error {
	if inputDir != outputDir {
		return fmt.Errorf("ShellRepacker requires inputDir == outputDir, got %q != %q", inputDir, outputDir)
	}
	return runTool(ctx, inputDir, r.Binary, []string{inputOBJ + ".obj", outputName})
}

// ShellContainerWriter invokes an external OBJ-to-tile-container
// converter, modelled on the original's obj23dtiles wrapper. The
// output path is passed to the tool with -o; neither this type nor the
// generator renames the tool's output afterwards, so the tool must
// write the file at exactly that path.
type ShellContainerWriter struct {
	Binary string
	Flag   string // e.g. "--b3dm"
}

func NewShellContainerWriter(binary, flag string) *ShellContainerWriter {
	if binary == "" {
		binary = "obj23dtiles"
	}
	if flag == "" {
		flag = "--b3dm"
	}
	return &ShellContainerWriter{Binary: binary, Flag: flag}
}

func (w *ShellContainerWriter) Write(ctx context.Context, inputOBJ, outputPath string) error {
	return runTool(ctx, "", w.Binary, []string{w.Flag, "-i", inputOBJ + ".obj", "-o", outputPath})
}

// runTool shells out to name with args, optionally in dir, mapping a
// missing executable to a friendly message and a non-zero exit to
// tilererr.ExternalToolFailed carrying the captured stderr.
func runTool(ctx context.Context, dir, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return tilererr.New(tilererr.ExternalToolFailed,
			fmt.Errorf("%s is not installed or not on PATH: %w", name, err))
	}

	return (&tilererr.Error{
		Kind:   tilererr.ExternalToolFailed,
		Stderr: stderr.String(),
		Err:    fmt.Errorf("%s %v: %w", name, args, err),
	})
}
