package mesh

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeblew999/mesh3dtiler/internal/texture"
	"github.com/joeblew999/mesh3dtiler/internal/tilererr"
)

// Binding describes one material's diffuse image: its path relative
// to the library file, and the image's pixel dimensions (read during
// parse, since downstream texel-size math depends on them).
type Binding struct {
	Name      string
	ImagePath string // relative to the library file
	W, H      int
}

// Library is the parsed OBJ material companion (.mtl) file. It
// retains the original line sequence so that directives it does not
// interpret (Ka, Ks, illum, ...) are re-emitted unchanged on rewrite,
// in the same spirit as the original MtlLib implementation.
type Library struct {
	// SourcePath is the absolute path the library was read from.
	SourcePath string
	// Lines holds the raw text lines in original order.
	Lines []string
	// Bindings maps material name to its diffuse-image binding.
	Bindings map[string]Binding
	// Order preserves the order materials were declared via newmtl.
	Order []string
}

// ReadLibrary parses the material companion file at path. Each
// map_Kd image is resolved relative to path and opened to read its
// pixel dimensions immediately, matching the original's
// "dimensions must be populated during parse" requirement.
func ReadLibrary(path string) (*Library, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, tilererr.New(tilererr.IOError, err).WithPath(path)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, tilererr.New(tilererr.IOError, err).WithPath(abs)
	}
	defer f.Close()

	lib := &Library{
		SourcePath: abs,
		Bindings:   make(map[string]Binding),
	}

	var current string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		lib.Lines = append(lib.Lines, raw)

		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.SplitN(line, " ", 2)
		cmd := fields[0]
		var arg string
		if len(fields) > 1 {
			arg = strings.TrimSpace(fields[1])
		}

		switch cmd {
		case "newmtl":
			if arg == "" {
				return nil, tilererr.New(tilererr.MalformedMaterial,
					fmt.Errorf("line %d: newmtl missing a name", lineNo)).WithPath(abs)
			}
			current = arg
			lib.Order = append(lib.Order, current)
			lib.Bindings[current] = Binding{Name: current}

		case "map_Kd":
			if current == "" {
				return nil, tilererr.New(tilererr.MalformedMaterial,
					fmt.Errorf("line %d: map_Kd before any newmtl", lineNo)).WithPath(abs)
			}
			imgPath := abs_path_from_file(arg, abs)
			dims, err := texture.Dimensions(imgPath)
			if err != nil {
				return nil, tilererr.New(tilererr.BadTexture, err).WithPath(imgPath)
			}
			lib.Bindings[current] = Binding{Name: current, ImagePath: arg, W: dims.W, H: dims.H}

		default:
			// Unknown directives (Ka, Ks, Ns, illum, Tr, map_Ka, ...) are
			// preserved verbatim by Lines but otherwise ignored.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, tilererr.New(tilererr.IOError, err).WithPath(abs)
	}

	return lib, nil
}

// Write re-emits the stored line sequence, rewriting each map_Kd to
// point at replacements[originalPath] (identity if no mapping is
// given). All other lines pass through byte-for-byte.
func (l *Library) Write(path string, replacements map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tilererr.New(tilererr.IOError, err).WithPath(path)
	}
	f, err := os.Create(path)
	if err != nil {
		return tilererr.New(tilererr.IOError, err).WithPath(path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, raw := range l.Lines {
		line := strings.TrimSpace(raw)
		fields := strings.SplitN(line, " ", 2)
		if len(fields) == 2 && fields[0] == "map_Kd" {
			orig := strings.TrimSpace(fields[1])
			out := orig
			if replacements != nil {
				if mapped, ok := replacements[orig]; ok {
					out = mapped
				}
			}
			fmt.Fprintf(w, "map_Kd %s\n", out)
			continue
		}
		fmt.Fprintln(w, raw)
	}
	return w.Flush()
}

// abs_path_from_file resolves rel relative to the directory containing file.
func abs_path_from_file(rel, file string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(filepath.Dir(file), rel)
}
