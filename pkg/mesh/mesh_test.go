package mesh

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"dicom2mesh/pkg/stl"
)

// icosphereLike builds a closed triangulated sphere approximation from the
// extractor, offset so component tests can place several apart.
func testSphere(t *testing.T, size int, offset r3.Vec) Mesh {
	t.Helper()
	data := make([]float64, size*size*size)
	radius := float64(size) / 4.0
	center := float64(size) / 2.0
	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				dx := float64(x) - center
				dy := float64(y) - center
				dz := float64(z) - center
				if math.Sqrt(dx*dx+dy*dy+dz*dz) < radius {
					data[z*size*size+y*size+x] = 1.0
				}
			}
		}
	}
	e := stl.NewExtractor(data, size, size, size, 0.5)
	m := FromTriangles(e.GenerateTriangles())
	if m.TriangleCount() == 0 {
		t.Fatal("test sphere has no triangles")
	}
	for i := range m.Vertices {
		m.Vertices[i] = r3.Add(m.Vertices[i], offset)
	}
	return m
}

// merge combines meshes into one soup-level mesh with disjoint components.
func merge(meshes ...Mesh) Mesh {
	var out Mesh
	for _, m := range meshes {
		base := len(out.Vertices)
		out.Vertices = append(out.Vertices, m.Vertices...)
		for _, f := range m.Faces {
			out.Faces = append(out.Faces, [3]int{f[0] + base, f[1] + base, f[2] + base})
		}
	}
	return out
}

// TestFromTrianglesWelds verifies soup-to-indexed conversion shares vertices
// between adjacent triangles.
func TestFromTrianglesWelds(t *testing.T) {
	soup := []stl.Triangle{
		{Vertex1: [3]float32{0, 0, 0}, Vertex2: [3]float32{1, 0, 0}, Vertex3: [3]float32{0, 1, 0}},
		{Vertex1: [3]float32{1, 0, 0}, Vertex2: [3]float32{1, 1, 0}, Vertex3: [3]float32{0, 1, 0}},
	}
	m := FromTriangles(soup)
	if len(m.Vertices) != 4 {
		t.Errorf("expected 4 welded vertices, got %d", len(m.Vertices))
	}
	if m.TriangleCount() != 2 {
		t.Errorf("expected 2 faces, got %d", m.TriangleCount())
	}
}

// TestCleanMergesAndDropsDegenerate verifies near-duplicate vertices merge
// and zero-area faces disappear.
func TestCleanMergesAndDropsDegenerate(t *testing.T) {
	m := Mesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0},
			{X: 1e-9, Y: 0, Z: 0}, // coincident with vertex 0 at default tolerance
		},
		Faces: [][3]int{
			{0, 1, 2},
			{3, 1, 2}, // duplicate of face 0 after merging
			{0, 1, 3}, // degenerate after merging
		},
	}
	out := m.Clean(0)
	if len(out.Vertices) != 3 {
		t.Errorf("expected 3 vertices after clean, got %d", len(out.Vertices))
	}
	for _, f := range out.Faces {
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			t.Errorf("degenerate face survived clean: %v", f)
		}
	}
}

// TestSmoothPreservesTopologyAndShrinksSphere verifies smoothing keeps the
// face count and pulls a sphere slightly inward.
func TestSmoothPreservesTopologyAndShrinksSphere(t *testing.T) {
	m := testSphere(t, 16, r3.Vec{})
	out := m.Smooth(25, DefaultSmoothRelaxation)

	if out.TriangleCount() != m.TriangleCount() {
		t.Errorf("smoothing changed face count: %d -> %d", m.TriangleCount(), out.TriangleCount())
	}
	if out.SurfaceArea() >= m.SurfaceArea() {
		t.Errorf("Laplacian smoothing should shrink a closed sphere: area %f -> %f",
			m.SurfaceArea(), out.SurfaceArea())
	}
}

// TestDecimateInvariant verifies the reduction contract across fractions.
func TestDecimateInvariant(t *testing.T) {
	m := testSphere(t, 20, r3.Vec{})
	in := m.TriangleCount()

	for _, r := range []float64{0, 0.5, 0.9} {
		out, err := m.Decimate(r)
		if err != nil {
			t.Fatalf("Decimate(%f) failed: %v", r, err)
		}
		limit := int(float64(in) * (1 - r))
		if out.TriangleCount() > limit {
			t.Errorf("Decimate(%f): %d faces exceeds limit %d (input %d)",
				r, out.TriangleCount(), limit, in)
		}
		if r == 0 && out.TriangleCount() != in {
			t.Errorf("Decimate(0) changed face count: %d -> %d", in, out.TriangleCount())
		}
		if r > 0 && out.TriangleCount() == 0 {
			t.Errorf("Decimate(%f) destroyed the mesh", r)
		}
	}

	if _, err := m.Decimate(1.0); err == nil {
		t.Error("expected error for reduction = 1")
	}
	if _, err := m.Decimate(-0.1); err == nil {
		t.Error("expected error for negative reduction")
	}
}

// TestRotateHalfTurnAboutY verifies the default viewing-orientation
// correction: 180 degrees about Y negates X and Z.
func TestRotateHalfTurnAboutY(t *testing.T) {
	m := Mesh{
		Vertices: []r3.Vec{{X: 1, Y: 2, Z: 3}},
		Faces:    nil,
	}
	out, err := m.Rotate(AxisY, 180)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	got := out.Vertices[0]
	want := r3.Vec{X: -1, Y: 2, Z: -3}
	if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 || math.Abs(got.Z-want.Z) > 1e-9 {
		t.Errorf("rotated vertex %+v, want %+v", got, want)
	}

	if _, err := m.Rotate(7, 90); err == nil {
		t.Error("expected error for invalid axis")
	}
}

// TestComponents verifies partitioning of a three-body mesh and the
// descending size order.
func TestComponents(t *testing.T) {
	big := testSphere(t, 20, r3.Vec{})
	small1 := testSphere(t, 8, r3.Vec{X: 100})
	small2 := testSphere(t, 6, r3.Vec{X: 200})
	m := merge(big, small1, small2)

	components := m.Components()
	if len(components) != 3 {
		t.Fatalf("expected 3 components, got %d", len(components))
	}
	if components[0].FaceCount != big.TriangleCount() {
		t.Errorf("largest component has %d faces, want %d",
			components[0].FaceCount, big.TriangleCount())
	}
	for i := 1; i < len(components); i++ {
		if components[i].FaceCount > components[i-1].FaceCount {
			t.Error("components not in descending face count order")
		}
	}

	total := 0
	for _, c := range components {
		total += c.FaceCount
		if c.Area <= 0 {
			t.Error("component with non-positive area")
		}
	}
	if total != m.TriangleCount() {
		t.Errorf("components cover %d faces, mesh has %d", total, m.TriangleCount())
	}

	// The largest component sits at the origin-side sphere's bounds.
	if components[0].Bounds.Min.X > 50 {
		t.Error("largest component bounds do not match the big sphere")
	}
}

// TestComponentsEmpty verifies an empty mesh yields no components.
func TestComponentsEmpty(t *testing.T) {
	if got := (Mesh{}).Components(); got != nil {
		t.Errorf("expected nil components for empty mesh, got %d", len(got))
	}
}

// TestToTrianglesNormals verifies round-tripping to soup recomputes unit
// normals from winding.
func TestToTrianglesNormals(t *testing.T) {
	m := Mesh{
		Vertices: []r3.Vec{{}, {X: 1}, {Y: 1}},
		Faces:    [][3]int{{0, 1, 2}},
	}
	soup := m.ToTriangles()
	if len(soup) != 1 {
		t.Fatalf("expected 1 triangle, got %d", len(soup))
	}
	n := soup[0].Normal
	if n[0] != 0 || n[1] != 0 || math.Abs(float64(n[2])-1) > 1e-6 {
		t.Errorf("normal %v, want +Z", n)
	}
}
