// Package mesh implements the triangular-mesh data model: parsing and
// serializing Wavefront OBJ/MTL, centroid-based cropping with
// reference garbage collection, and the bounding-volume/texel-size
// measurements the tile generator needs.
package mesh

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joeblew999/mesh3dtiler/internal/tile"
	"github.com/joeblew999/mesh3dtiler/internal/tilererr"
)

// Vec2 is a 2D texture coordinate.
type Vec2 struct {
	X, Y float64
}

// FaceVertex is one corner of a triangle: indices into V, VT, VN.
// A value of -1 means the corresponding coordinate is absent, matching
// the OBJ format's optional vt/vn slash fields.
type FaceVertex struct {
	V, T, N int32
}

// Triangle is one face of the mesh, referencing three FaceVertex
// corners and the index of its bound material in Geometry.Materials.
type Triangle struct {
	A, B, C  FaceVertex
	Material int
}

func (t Triangle) verts() [3]FaceVertex { return [3]FaceVertex{t.A, t.B, t.C} }

// Geometry is the full in-memory representation of one OBJ mesh and
// its companion MTL file.
type Geometry struct {
	SourcePath string

	V  []tile.Vec3
	VT []Vec2
	VN []tile.Vec3
	F  []Triangle

	// Materials is the ordered list of names referenced by usemtl,
	// indexed by Triangle.Material.
	Materials []string
	Lib       *Library
}

// Read parses the OBJ file at path, along with its mtllib companion
// and that file's texture images.
func Read(path string) (*Geometry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, tilererr.New(tilererr.IOError, err).WithPath(path)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, tilererr.New(tilererr.IOError, err).WithPath(abs)
	}
	defer f.Close()

	g := &Geometry{SourcePath: abs}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "v":
			if len(args) != 3 {
				return nil, malformed(abs, lineNo, "v requires 3 arguments")
			}
			v, err := parseVec3(args)
			if err != nil {
				return nil, malformed(abs, lineNo, err.Error())
			}
			g.V = append(g.V, v)

		case "vt":
			if len(args) != 2 {
				return nil, malformed(abs, lineNo, "vt requires 2 arguments")
			}
			x, err1 := strconv.ParseFloat(args[0], 64)
			y, err2 := strconv.ParseFloat(args[1], 64)
			if err1 != nil || err2 != nil {
				return nil, malformed(abs, lineNo, "vt: non-numeric argument")
			}
			g.VT = append(g.VT, Vec2{X: x, Y: y})

		case "vn":
			if len(args) != 3 {
				return nil, malformed(abs, lineNo, "vn requires 3 arguments")
			}
			v, err := parseVec3(args)
			if err != nil {
				return nil, malformed(abs, lineNo, err.Error())
			}
			g.VN = append(g.VN, v)

		case "f":
			if len(args) != 3 {
				return nil, malformed(abs, lineNo, "f requires exactly 3 vertices (non-triangulated faces unsupported)")
			}
			var corners [3]FaceVertex
			for i, a := range args {
				fv, err := parseFaceVertex(a)
				if err != nil {
					return nil, malformed(abs, lineNo, err.Error())
				}
				corners[i] = fv
			}
			if (corners[0].T == -1) != (corners[1].T == -1) || (corners[0].T == -1) != (corners[2].T == -1) {
				return nil, malformed(abs, lineNo, "f: texture coordinate index must be present on all 3 vertices or none")
			}
			if (corners[0].N == -1) != (corners[1].N == -1) || (corners[0].N == -1) != (corners[2].N == -1) {
				return nil, malformed(abs, lineNo, "f: normal index must be present on all 3 vertices or none")
			}
			g.F = append(g.F, Triangle{A: corners[0], B: corners[1], C: corners[2], Material: len(g.Materials) - 1})

		case "mtllib":
			if len(args) != 1 {
				return nil, malformed(abs, lineNo, "mtllib requires 1 argument")
			}
			mtlPath := abs_path_from_file(args[0], abs)
			lib, err := ReadLibrary(mtlPath)
			if err != nil {
				return nil, err
			}
			g.Lib = lib

		case "usemtl":
			if len(args) != 1 {
				return nil, malformed(abs, lineNo, "usemtl requires 1 argument")
			}
			g.Materials = append(g.Materials, args[0])

		default:
			// Unrecognized directives are ignored, matching the original
			// Geometry.read's permissive warning-and-continue behavior.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, tilererr.New(tilererr.IOError, err).WithPath(abs)
	}

	return g, nil
}

func malformed(path string, lineNo int, msg string) error {
	return tilererr.New(tilererr.MalformedMesh, fmt.Errorf("line %d: %s", lineNo, msg)).WithPath(path)
}

func parseVec3(args []string) (tile.Vec3, error) {
	x, err1 := strconv.ParseFloat(args[0], 64)
	y, err2 := strconv.ParseFloat(args[1], 64)
	z, err3 := strconv.ParseFloat(args[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return tile.Vec3{}, fmt.Errorf("non-numeric coordinate")
	}
	return tile.Vec3{X: x, Y: y, Z: z}, nil
}

// parseFaceVertex parses one "f" argument ("i", "i/j", "i/j/k", or
// "i//k") into 0-based indices, with -1 marking an absent field.
func parseFaceVertex(s string) (FaceVertex, error) {
	parts := strings.Split(s, "/")
	if len(parts) == 0 || len(parts) > 3 {
		return FaceVertex{}, fmt.Errorf("malformed face vertex %q", s)
	}
	idx := [3]int32{-1, -1, -1}
	for i, p := range parts {
		if p == "" {
			idx[i] = -1
			continue
		}
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return FaceVertex{}, fmt.Errorf("malformed face vertex %q", s)
		}
		// OBJ indices are 1-based; convert to 0-based.
		idx[i] = int32(n) - 1
	}
	return FaceVertex{V: idx[0], T: idx[1], N: idx[2]}, nil
}

func dumpFaceVertex(fv FaceVertex) string {
	v := fv.V + 1
	if fv.T == -1 {
		if fv.N == -1 {
			return strconv.Itoa(int(v))
		}
		return fmt.Sprintf("%d//%d", v, fv.N+1)
	}
	if fv.N == -1 {
		return fmt.Sprintf("%d/%d", v, fv.T+1)
	}
	return fmt.Sprintf("%d/%d/%d", v, fv.T+1, fv.N+1)
}

// Write serializes the geometry back to OBJ, along with its MTL
// companion, substituting texture paths per replacements (passed
// through to Library.Write unchanged).
func (g *Geometry) Write(outputPath string, replacements map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return tilererr.New(tilererr.IOError, err).WithPath(outputPath)
	}

	var mtlRel string
	if g.Lib != nil {
		mtlPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".mtl"
		if err := g.Lib.Write(mtlPath, replacements); err != nil {
			return err
		}
		rel, err := filepath.Rel(filepath.Dir(outputPath), mtlPath)
		if err != nil {
			rel = filepath.Base(mtlPath)
		}
		mtlRel = rel
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return tilererr.New(tilererr.IOError, err).WithPath(outputPath)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if mtlRel != "" {
		fmt.Fprintf(w, "mtllib %s\n", mtlRel)
	}
	for _, v := range g.V {
		fmt.Fprintf(w, "v %s %s %s\n", ftoa(v.X), ftoa(v.Y), ftoa(v.Z))
	}
	for _, vt := range g.VT {
		fmt.Fprintf(w, "vt %s %s\n", ftoa(vt.X), ftoa(vt.Y))
	}
	for _, vn := range g.VN {
		fmt.Fprintf(w, "vn %s %s %s\n", ftoa(vn.X), ftoa(vn.Y), ftoa(vn.Z))
	}

	lastMat := math.MinInt32
	for _, tri := range g.F {
		if tri.Material != lastMat {
			fmt.Fprintln(w)
			name := ""
			if tri.Material >= 0 && tri.Material < len(g.Materials) {
				name = g.Materials[tri.Material]
			}
			fmt.Fprintf(w, "usemtl %s\n", name)
			lastMat = tri.Material
		}
		v := tri.verts()
		fmt.Fprintf(w, "f %s %s %s\n", dumpFaceVertex(v[0]), dumpFaceVertex(v[1]), dumpFaceVertex(v[2]))
	}

	return w.Flush()
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// GetRotated returns a copy of the geometry with R applied to every
// vertex position and normal. UV coordinates are untouched.
func (g *Geometry) GetRotated(r [3][3]float64) *Geometry {
	out := *g
	out.V = make([]tile.Vec3, len(g.V))
	out.VN = make([]tile.Vec3, len(g.VN))
	for i, v := range g.V {
		out.V[i] = applyRotation(r, v)
	}
	for i, vn := range g.VN {
		out.VN[i] = applyRotation(r, vn)
	}
	return &out
}

func applyRotation(r [3][3]float64, v tile.Vec3) tile.Vec3 {
	return tile.Vec3{
		X: r[0][0]*v.X + r[0][1]*v.Y + r[0][2]*v.Z,
		Y: r[1][0]*v.X + r[1][1]*v.Y + r[1][2]*v.Z,
		Z: r[2][0]*v.X + r[2][1]*v.Y + r[2][2]*v.Z,
	}
}

// ZUpToYUp is the rotation matrix applied before writing a tile, since
// the output container format expects Y-up but the source mesh is Z-up.
var ZUpToYUp = [3][3]float64{
	{1, 0, 0},
	{0, 0, 1},
	{0, -1, 0},
}

// GetCropped returns a copy of the geometry containing only the
// triangles whose centroid lies inside box, with V/VT/VN compacted to
// just the entries those triangles reference (see garbageCollectVec3
// and garbageCollectVec2).
func (g *Geometry) GetCropped(box tile.BoundingBox) *Geometry {
	var kept []Triangle
	for _, tri := range g.F {
		c := centroid(g.V[tri.A.V], g.V[tri.B.V], g.V[tri.C.V])
		if box.Contains(c) {
			kept = append(kept, tri)
		}
	}

	vRefs, vtRefs, vnRefs := make([]int32, 0, len(kept)*3), make([]int32, 0, len(kept)*3), make([]int32, 0, len(kept)*3)
	for _, tri := range kept {
		for _, fv := range tri.verts() {
			vRefs = append(vRefs, fv.V)
			if fv.T != -1 {
				vtRefs = append(vtRefs, fv.T)
			}
			if fv.N != -1 {
				vnRefs = append(vnRefs, fv.N)
			}
		}
	}

	vRemap, newV := garbageCollectVec3(vRefs, g.V)
	vtRemap, newVT := garbageCollectVec2(vtRefs, g.VT)
	vnRemap, newVN := garbageCollectVec3(vnRefs, g.VN)

	newF := make([]Triangle, len(kept))
	for i, tri := range kept {
		verts := tri.verts()
		var remapped [3]FaceVertex
		for j, fv := range verts {
			remapped[j] = FaceVertex{
				V: vRemap[fv.V],
				T: remapIndex(fv.T, vtRemap),
				N: remapIndex(fv.N, vnRemap),
			}
		}
		newF[i] = Triangle{A: remapped[0], B: remapped[1], C: remapped[2], Material: tri.Material}
	}

	out := *g
	out.V, out.VT, out.VN, out.F = newV, newVT, newVN, newF
	return &out
}

func remapIndex(idx int32, remap map[int32]int32) int32 {
	if idx == -1 {
		return -1
	}
	return remap[idx]
}

func centroid(a, b, c tile.Vec3) tile.Vec3 {
	return a.Add(b).Add(c).Scale(1.0 / 3.0)
}

// garbageCollectVec3 returns a remap from old index to new compacted
// index (entries not present in refs are absent from the map), and the
// compacted slice itself. It is the Go analogue of the original
// garbage_collect: rows of objects unreferenced by refs are dropped.
func garbageCollectVec3(refs []int32, objects []tile.Vec3) (map[int32]int32, []tile.Vec3) {
	keep := sortedUniqueInt32(refs)
	remap := make(map[int32]int32, len(keep))
	out := make([]tile.Vec3, len(keep))
	for newIdx, old := range keep {
		remap[old] = int32(newIdx)
		out[newIdx] = objects[old]
	}
	return remap, out
}

func garbageCollectVec2(refs []int32, objects []Vec2) (map[int32]int32, []Vec2) {
	keep := sortedUniqueInt32(refs)
	remap := make(map[int32]int32, len(keep))
	out := make([]Vec2, len(keep))
	for newIdx, old := range keep {
		remap[old] = int32(newIdx)
		out[newIdx] = objects[old]
	}
	return remap, out
}

func sortedUniqueInt32(in []int32) []int32 {
	seen := make(map[int32]struct{}, len(in))
	out := make([]int32, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GetBoundingBox returns the axis-aligned box containing every vertex
// in V, whether or not a face references it. (After GetCropped, V holds
// only referenced vertices.)
func (g *Geometry) GetBoundingBox() tile.BoundingBox {
	if len(g.V) == 0 {
		return tile.BoundingBox{}
	}
	min, max := g.V[0], g.V[0]
	for _, v := range g.V[1:] {
		min = min.Min(v)
		max = max.Max(v)
	}
	return tile.BoundingBox{Min: min, Max: max}
}

// BoundingVolume is the 3D-Tiles box encoding: center followed by the
// three half-length axis vectors.
type BoundingVolume struct {
	Box [12]float64
}

// GetBoundingVolume computes the 3D-Tiles boundingVolume box for the
// geometry's actual bounding box (not the tile's nominal box, since
// centroid-based cropping can leave triangles extending past it).
func (g *Geometry) GetBoundingVolume() BoundingVolume {
	bbox := g.GetBoundingBox()
	c := bbox.Centroid()
	hl := bbox.HalfExtents()
	return BoundingVolume{Box: [12]float64{
		c.X, c.Y, c.Z,
		hl.X, 0, 0,
		0, hl.Y, 0,
		0, 0, hl.Z,
	}}
}

// IsEmpty reports whether the geometry has no faces.
func (g *Geometry) IsEmpty() bool {
	return len(g.F) == 0
}

// GetMedianTexelSize returns the median meters-per-texel ratio across
// all triangle edges, skipping edges with zero UV length. See
// obj_geometry.py's get_median_texel_size for the reference formula;
// this is a direct per-edge translation rather than the vectorized
// numpy version.
func (g *Geometry) GetMedianTexelSize() (float64, error) {
	if g.Lib == nil {
		return 0, tilererr.New(tilererr.MalformedMesh, fmt.Errorf("geometry has no material library"))
	}

	var ratios []float64
	for _, tri := range g.F {
		name := ""
		if tri.Material >= 0 && tri.Material < len(g.Materials) {
			name = g.Materials[tri.Material]
		}
		binding, ok := g.Lib.Bindings[name]
		if !ok {
			return 0, tilererr.New(tilererr.MalformedMaterial, fmt.Errorf("face references undeclared material %q", name))
		}

		verts := tri.verts()
		for i := 0; i < 3; i++ {
			a, b := verts[i], verts[(i+1)%3]
			xyzLen := g.V[a.V].Sub(g.V[b.V])
			xyzDist := math.Sqrt(xyzLen.X*xyzLen.X + xyzLen.Y*xyzLen.Y + xyzLen.Z*xyzLen.Z)

			if a.T == -1 || b.T == -1 {
				continue
			}
			uvA, uvB := g.VT[a.T], g.VT[b.T]
			texelDX := (uvA.X - uvB.X) * float64(binding.W)
			texelDY := (uvA.Y - uvB.Y) * float64(binding.H)
			texelDist := math.Sqrt(texelDX*texelDX + texelDY*texelDY)

			if texelDist == 0 {
				continue
			}
			ratios = append(ratios, xyzDist/texelDist)
		}
	}

	if len(ratios) == 0 {
		return 0, tilererr.New(tilererr.MalformedMesh, fmt.Errorf("no edges with non-zero UV length to measure texel size"))
	}
	sort.Float64s(ratios)
	mid := len(ratios) / 2
	if len(ratios)%2 == 1 {
		return ratios[mid], nil
	}
	return (ratios[mid-1] + ratios[mid]) / 2, nil
}
