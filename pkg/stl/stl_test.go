package stl

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// sphereField builds a cubic scalar field holding a binary sphere.
func sphereField(size int) []float64 {
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
	return data
}

// TestExtractSphere verifies the extractor produces a closed-looking surface
// for a simple sphere with outward-facing normals.
func TestExtractSphere(t *testing.T) {
	size := 20
	center := float64(size) / 2.0
	e := NewExtractor(sphereField(size), size, size, size, 0.5)
	triangles := e.GenerateTriangles()

	if len(triangles) < 100 {
		t.Fatalf("expected at least 100 triangles for sphere, got %d", len(triangles))
	}

	for i, triangle := range triangles {
		cx := (triangle.Vertex1[0] + triangle.Vertex2[0] + triangle.Vertex3[0]) / 3
		cy := (triangle.Vertex1[1] + triangle.Vertex2[1] + triangle.Vertex3[1]) / 3
		cz := (triangle.Vertex1[2] + triangle.Vertex2[2] + triangle.Vertex3[2]) / 3

		vx := cx - float32(center)
		vy := cy - float32(center)
		vz := cz - float32(center)
		mag := float32(math.Sqrt(float64(vx*vx + vy*vy + vz*vz)))
		if mag == 0 {
			continue
		}
		vx, vy, vz = vx/mag, vy/mag, vz/mag

		dot := vx*triangle.Normal[0] + vy*triangle.Normal[1] + vz*triangle.Normal[2]
		if dot < -0.5 {
			t.Errorf("triangle %d normal points inward, dot product %f", i, dot)
		}
	}
}

// TestExtractInterpolatesVertices verifies surface vertices land between
// grid points, not on them.
func TestExtractInterpolatesVertices(t *testing.T) {
	data := []float64{
		1, 0,
		0, 0,

		0, 0,
		0, 0,
	}
	e := NewExtractor(data, 2, 2, 2, 0.5)
	triangles := e.GenerateTriangles()
	if len(triangles) == 0 {
		t.Fatal("no triangles generated")
	}

	isInteger := func(coord float32) bool {
		return math.Abs(float64(coord)-math.Round(float64(coord))) < 0.001
	}

	interpolated := false
	for _, tri := range triangles {
		for _, v := range [][3]float32{tri.Vertex1, tri.Vertex2, tri.Vertex3} {
			if !isInteger(v[0]) || !isInteger(v[1]) || !isInteger(v[2]) {
				interpolated = true
			}
		}
		if tri.Normal == ([3]float32{}) {
			t.Error("triangle has zero normal")
		}
	}
	if !interpolated {
		t.Error("no interpolated vertices found")
	}
}

// TestSetScaleAndOrigin verifies the physical transform applied to vertices.
func TestSetScaleAndOrigin(t *testing.T) {
	size := 8
	data := sphereField(size)

	plain := NewExtractor(data, size, size, size, 0.5)
	base := plain.GenerateTriangles()
	if len(base) == 0 {
		t.Fatal("no triangles generated")
	}

	scaled := NewExtractor(data, size, size, size, 0.5)
	scaled.SetScale(2, 3, 4)
	scaled.SetOrigin(10, 20, 30)
	out := scaled.GenerateTriangles()

	if len(out) != len(base) {
		t.Fatalf("scaling changed triangle count: %d vs %d", len(out), len(base))
	}
	for i := range base {
		got := out[i].Vertex1
		want := [3]float32{
			10 + base[i].Vertex1[0]*2,
			20 + base[i].Vertex1[1]*3,
			30 + base[i].Vertex1[2]*4,
		}
		if got != want {
			t.Fatalf("triangle %d vertex not transformed: got %v, want %v", i, got, want)
		}
	}
}

// TestSaveAndReadSTL verifies the binary STL round trip.
func TestSaveAndReadSTL(t *testing.T) {
	triangles := []Triangle{
		{
			Normal:  [3]float32{0, 0, 1},
			Vertex1: [3]float32{0, 0, 0},
			Vertex2: [3]float32{1, 0, 0},
			Vertex3: [3]float32{0, 1, 0},
		},
		{
			Normal:  [3]float32{0, 1, 0},
			Vertex1: [3]float32{0, 0, 0},
			Vertex2: [3]float32{0, 0, 1},
			Vertex3: [3]float32{1, 0, 0},
		},
	}

	path := filepath.Join(t.TempDir(), "out.stl")
	if err := SaveToSTL(path, triangles); err != nil {
		t.Fatalf("SaveToSTL failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat output: %v", err)
	}
	if want := int64(80 + 4 + 50*len(triangles)); info.Size() != want {
		t.Errorf("STL file size %d, want %d", info.Size(), want)
	}

	got, err := ReadSTL(path)
	if err != nil {
		t.Fatalf("ReadSTL failed: %v", err)
	}
	if len(got) != len(triangles) {
		t.Fatalf("read %d triangles, want %d", len(got), len(triangles))
	}
	for i := range triangles {
		if got[i] != triangles[i] {
			t.Errorf("triangle %d changed in round trip: %+v vs %+v", i, got[i], triangles[i])
		}
	}
}

// TestReadSTLRejectsTruncated verifies a size/count mismatch is reported.
func TestReadSTLRejectsTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trunc.stl")
	if err := SaveToSTL(path, []Triangle{{}, {}}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-10], 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSTL(path); err == nil {
		t.Error("expected error for truncated STL")
	}
}

// BenchmarkExtract benchmarks iso-surface extraction on a small sphere.
func BenchmarkExtract(b *testing.B) {
	size := 16
	data := sphereField(size)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e := NewExtractor(data, size, size, size, 0.5)
		e.GenerateTriangles()
	}
}
