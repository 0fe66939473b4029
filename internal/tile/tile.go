package tile

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tile identifies a single cube in the octree by zoom level and
// integer index. Indices are int64 (rather than the 32-bit indices
// used by the original implementation) because deep zoom on a large
// scene can otherwise overflow a 32-bit index; see DESIGN.md.
type Tile struct {
	Zoom   int
	XI, YI, ZI int64
}

func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d/%d", t.Zoom, t.XI, t.YI, t.ZI)
}

// DefaultPathFormat is the tile naming convention used when a
// TileSystem is constructed without an explicit template.
const DefaultPathFormat = "{zoom}/{xi}/{yi}/{zi}"

// System maps integer tile indices to nominal bounding boxes and to
// on-disk tile paths. It is a cubic octree: the tile at zoom z has
// side Scale/2^z, and its min corner is Origin + side*(xi,yi,zi).
type System struct {
	Origin     Vec3
	Scale      float64 // root (zoom 0) side length
	PathFormat string
}

// NewSystem constructs a System, defaulting PathFormat to DefaultPathFormat.
func NewSystem(origin Vec3, scale float64, pathFormat string) System {
	if pathFormat == "" {
		pathFormat = DefaultPathFormat
	}
	return System{Origin: origin, Scale: scale, PathFormat: pathFormat}
}

// SideAt returns the side length of a cubic tile at the given zoom level.
func (s System) SideAt(zoom int) float64 {
	return s.Scale / math.Pow(2, float64(zoom))
}

// BoundingBox returns the nominal box for t, as defined by the tile
// system. A tile's actual geometry may extend beyond this nominal box
// because cropping is centroid-based (see package mesh); callers that
// need the real extent of a tile's content should compute it from the
// cropped geometry instead.
func (s System) BoundingBox(t Tile) BoundingBox {
	side := s.SideAt(t.Zoom)
	min := s.Origin.Add(Vec3{
		X: side * float64(t.XI),
		Y: side * float64(t.YI),
		Z: side * float64(t.ZI),
	})
	max := min.Add(Vec3{X: side, Y: side, Z: side})
	return BoundingBox{Min: min, Max: max}
}

// IndexOf returns the integer index of the tile at the given zoom
// level that contains p, flooring toward negative infinity on each
// axis so that the half-open BoundingBox semantics and IndexOf agree
// at tile boundaries.
func (s System) IndexOf(p Vec3, zoom int) (xi, yi, zi int64) {
	side := s.SideAt(zoom)
	rel := p.Sub(s.Origin)
	return int64(math.Floor(rel.X / side)),
		int64(math.Floor(rel.Y / side)),
		int64(math.Floor(rel.Z / side))
}

// Children returns the eight tiles at t.Zoom+1 whose indices are
// 2*parent + {0,1}^3, in a fixed deterministic order (x varies
// slowest, z fastest) so recursive traversal is reproducible.
func (s System) Children(t Tile) [8]Tile {
	var out [8]Tile
	i := 0
	for _, xo := range [2]int64{0, 1} {
		for _, yo := range [2]int64{0, 1} {
			for _, zo := range [2]int64{0, 1} {
				out[i] = Tile{
					Zoom: t.Zoom + 1,
					XI:   2*t.XI + xo,
					YI:   2*t.YI + yo,
					ZI:   2*t.ZI + zo,
				}
				i++
			}
		}
	}
	return out
}

// Path formats the tile's path fragment using the system's
// PathFormat template, substituting {zoom}, {xi}, {yi}, {zi}.
func (s System) Path(t Tile) string {
	r := strings.NewReplacer(
		"{zoom}", strconv.Itoa(t.Zoom),
		"{xi}", strconv.FormatInt(t.XI, 10),
		"{yi}", strconv.FormatInt(t.YI, 10),
		"{zi}", strconv.FormatInt(t.ZI, 10),
	)
	return r.Replace(s.PathFormat)
}

// AutoConfig derives origin/scale/min_zoom parameters so that the
// (0,0,0) tile at zoom 0 contains the whole of bbox. The root side is
// the largest bbox span inflated by 10% (a 5% margin on each side along
// that axis, more on shorter axes), to avoid boundary degeneracies where
// geometry sits exactly on a tile edge.
func AutoConfig(bbox BoundingBox) (origin Vec3, scale float64, minZoom int) {
	centroid := bbox.Centroid()
	dims := bbox.Max.Sub(bbox.Min)
	maxDim := dims.MaxComponent()
	origin = centroid.Sub(Vec3{X: 0.55 * maxDim, Y: 0.55 * maxDim, Z: 0.55 * maxDim})
	scale = 1.10 * maxDim
	return origin, scale, 0
}

// TopTiles enumerates the integer-index box at minZoom that covers
// bbox, i.e. the set of tiles that the recursive generator should
// start from. All of them are conceptually children of a single
// synthetic root tile with no content.
func (s System) TopTiles(bbox BoundingBox, minZoom int) []Tile {
	minXI, minYI, minZI := s.IndexOf(bbox.Min, minZoom)
	maxXI, maxYI, maxZI := s.IndexOf(bbox.Max, minZoom)

	var out []Tile
	for xi := minXI; xi <= maxXI; xi++ {
		for yi := minYI; yi <= maxYI; yi++ {
			for zi := minZI; zi <= maxZI; zi++ {
				out = append(out, Tile{Zoom: minZoom, XI: xi, YI: yi, ZI: zi})
			}
		}
	}
	return out
}
