package tile

// BoundingBox is an axis-aligned box with half-open containment
// semantics: a point p is inside iff Min <= p < Max componentwise.
// Combined with centroid-based face assignment (see package mesh),
// half-open containment guarantees each point belongs to exactly one
// tile at every zoom level, so tile coverage partitions space without
// duplication or gaps.
type BoundingBox struct {
	Min, Max Vec3
}

// Contains reports whether p lies inside the box under half-open
// semantics on every axis.
func (b BoundingBox) Contains(p Vec3) bool {
	return b.Min.X <= p.X && p.X < b.Max.X &&
		b.Min.Y <= p.Y && p.Y < b.Max.Y &&
		b.Min.Z <= p.Z && p.Z < b.Max.Z
}

// ContainsAll returns, for each point in pts, whether it is inside the box.
func (b BoundingBox) ContainsAll(pts []Vec3) []bool {
	out := make([]bool, len(pts))
	for i, p := range pts {
		out[i] = b.Contains(p)
	}
	return out
}

// Centroid returns the midpoint of the box.
func (b BoundingBox) Centroid() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// HalfExtents returns half the box's dimensions along each axis.
func (b BoundingBox) HalfExtents() Vec3 {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// IsEmpty reports whether the box has zero or negative extent on any axis.
func (b BoundingBox) IsEmpty() bool {
	return b.Max.X <= b.Min.X || b.Max.Y <= b.Min.Y || b.Max.Z <= b.Min.Z
}
