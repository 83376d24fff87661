// Package mesh implements the triangulated-surface operations the pipeline
// chains after extraction: clean, smooth, decimate, rotate, and connected
// component analysis. A Mesh is value-like: every operation returns a new
// mesh and never aliases the input.
package mesh

import (
	"gonum.org/v1/gonum/spatial/r3"

	"dicom2mesh/pkg/stl"
)

// Mesh is an indexed triangle mesh.
type Mesh struct {
	Vertices []r3.Vec
	Faces    [][3]int
}

// TriangleCount returns the number of faces.
func (m Mesh) TriangleCount() int { return len(m.Faces) }

// FromTriangles welds a triangle soup into an indexed mesh. Vertices with
// bit-identical coordinates are merged; extraction emits shared edge vertices
// with identical values, so this reconstructs connectivity without tolerance.
func FromTriangles(triangles []stl.Triangle) Mesh {
	type key [3]float32
	index := make(map[key]int, len(triangles))
	m := Mesh{Faces: make([][3]int, 0, len(triangles))}

	add := func(v [3]float32) int {
		k := key(v)
		if idx, ok := index[k]; ok {
			return idx
		}
		idx := len(m.Vertices)
		index[k] = idx
		m.Vertices = append(m.Vertices, r3.Vec{
			X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2]),
		})
		return idx
	}

	for _, t := range triangles {
		a := add(t.Vertex1)
		b := add(t.Vertex2)
		c := add(t.Vertex3)
		if a == b || b == c || a == c {
			continue
		}
		m.Faces = append(m.Faces, [3]int{a, b, c})
	}
	return m
}

// ToTriangles converts the mesh back to a triangle soup, computing each
// normal from the face winding.
func (m Mesh) ToTriangles() []stl.Triangle {
	out := make([]stl.Triangle, 0, len(m.Faces))
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		if norm := r3.Norm(n); norm > 0 {
			n = r3.Scale(1/norm, n)
		}
		out = append(out, stl.Triangle{
			Normal:  vec32(n),
			Vertex1: vec32(a),
			Vertex2: vec32(b),
			Vertex3: vec32(c),
		})
	}
	return out
}

func vec32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

// SurfaceArea returns the total face area of the mesh.
func (m Mesh) SurfaceArea() float64 {
	area := 0.0
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		area += 0.5 * r3.Norm(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
	}
	return area
}

// Bounds returns the axis-aligned bounding box of the mesh vertices.
func (m Mesh) Bounds() r3.Box {
	if len(m.Vertices) == 0 {
		return r3.Box{}
	}
	box := r3.Box{Min: m.Vertices[0], Max: m.Vertices[0]}
	for _, v := range m.Vertices[1:] {
		if v.X < box.Min.X {
			box.Min.X = v.X
		}
		if v.Y < box.Min.Y {
			box.Min.Y = v.Y
		}
		if v.Z < box.Min.Z {
			box.Min.Z = v.Z
		}
		if v.X > box.Max.X {
			box.Max.X = v.X
		}
		if v.Y > box.Max.Y {
			box.Max.Y = v.Y
		}
		if v.Z > box.Max.Z {
			box.Max.Z = v.Z
		}
	}
	return box
}

// EdgeLengths returns the length of every face edge, for mesh statistics.
func (m Mesh) EdgeLengths() []float64 {
	lengths := make([]float64, 0, 3*len(m.Faces))
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		lengths = append(lengths,
			r3.Norm(r3.Sub(b, a)),
			r3.Norm(r3.Sub(c, b)),
			r3.Norm(r3.Sub(a, c)))
	}
	return lengths
}

// clone returns a deep copy of the mesh.
func (m Mesh) clone() Mesh {
	out := Mesh{
		Vertices: make([]r3.Vec, len(m.Vertices)),
		Faces:    make([][3]int, len(m.Faces)),
	}
	copy(out.Vertices, m.Vertices)
	copy(out.Faces, m.Faces)
	return out
}
