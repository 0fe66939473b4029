package tile

import "testing"

func TestBoundingBoxHalfOpen(t *testing.T) {
	b := BoundingBox{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}}
	if !b.Contains(Vec3{0, 0, 0}) {
		t.Fatal("min corner should be inside")
	}
	if b.Contains(Vec3{1, 0, 0}) {
		t.Fatal("max corner on x should be outside")
	}
	if !b.Contains(Vec3{0.999, 0.999, 0.999}) {
		t.Fatal("point just inside max should be inside")
	}
}

func TestSystemRoundTrip(t *testing.T) {
	sys := NewSystem(Vec3{-1, -1, -1}, 2, "")
	tl := Tile{Zoom: 1, XI: 1, YI: 0, ZI: 1}
	box := sys.BoundingBox(tl)

	interior := box.Centroid()
	xi, yi, zi := sys.IndexOf(interior, 1)
	if xi != tl.XI || yi != tl.YI || zi != tl.ZI {
		t.Fatalf("IndexOf(centroid)=%d,%d,%d want %d,%d,%d", xi, yi, zi, tl.XI, tl.YI, tl.ZI)
	}

	// Corner on the min face belongs to the tile.
	xi, yi, zi = sys.IndexOf(box.Min, 1)
	if xi != tl.XI || yi != tl.YI || zi != tl.ZI {
		t.Fatalf("IndexOf(min corner) should map back to the tile")
	}

	// Corner on the max face belongs to the adjacent tile.
	xi, yi, zi = sys.IndexOf(box.Max, 1)
	if xi == tl.XI && yi == tl.YI && zi == tl.ZI {
		t.Fatal("IndexOf(max corner) should map to the adjacent tile, not this one")
	}
}

func TestChildrenTileParentUnion(t *testing.T) {
	sys := NewSystem(Vec3{0, 0, 0}, 4, "")
	parent := Tile{Zoom: 0, XI: 0, YI: 0, ZI: 0}
	parentBox := sys.BoundingBox(parent)

	children := sys.Children(parent)
	if len(children) != 8 {
		t.Fatalf("expected 8 children, got %d", len(children))
	}

	seen := map[[3]int64]bool{}
	for _, c := range children {
		if c.Zoom != parent.Zoom+1 {
			t.Fatalf("child zoom = %d, want %d", c.Zoom, parent.Zoom+1)
		}
		key := [3]int64{c.XI, c.YI, c.ZI}
		if seen[key] {
			t.Fatalf("duplicate child index %v", key)
		}
		seen[key] = true

		cb := sys.BoundingBox(c)
		if cb.Min.X < parentBox.Min.X || cb.Max.X > parentBox.Max.X ||
			cb.Min.Y < parentBox.Min.Y || cb.Max.Y > parentBox.Max.Y ||
			cb.Min.Z < parentBox.Min.Z || cb.Max.Z > parentBox.Max.Z {
			t.Fatalf("child box %v escapes parent box %v", cb, parentBox)
		}
	}
}

func TestPathFormat(t *testing.T) {
	sys := NewSystem(Vec3{}, 1, "")
	p := sys.Path(Tile{Zoom: 2, XI: 3, YI: -4, ZI: 5})
	if p != "2/3/-4/5" {
		t.Fatalf("Path = %q, want 2/3/-4/5", p)
	}
}

func TestAutoConfigCoversBBox(t *testing.T) {
	bbox := BoundingBox{Min: Vec3{-1, -2, -1}, Max: Vec3{3, 2, 1}}
	origin, scale, minZoom := AutoConfig(bbox)
	if minZoom != 0 {
		t.Fatalf("minZoom = %d, want 0", minZoom)
	}
	sys := NewSystem(origin, scale, "")
	root := sys.BoundingBox(Tile{Zoom: 0, XI: 0, YI: 0, ZI: 0})
	if root.Min.X > bbox.Min.X || root.Min.Y > bbox.Min.Y || root.Min.Z > bbox.Min.Z {
		t.Fatalf("root box %v does not cover bbox min %v", root, bbox.Min)
	}
	if root.Max.X < bbox.Max.X || root.Max.Y < bbox.Max.Y || root.Max.Z < bbox.Max.Z {
		t.Fatalf("root box %v does not cover bbox max %v", root, bbox.Max)
	}
}
