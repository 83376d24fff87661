package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultCleanTolerance is the coordinate quantum used to merge vertices
// that are distinct in the soup but geometrically coincident.
const DefaultCleanTolerance = 1e-6

// Clean merges vertices closer than the tolerance and drops degenerate
// faces (repeated vertices or zero area). Smoothing and decimation assume
// manifold-ish connectivity, so Clean must run before them.
func (m Mesh) Clean(tolerance float64) Mesh {
	if tolerance <= 0 {
		tolerance = DefaultCleanTolerance
	}

	type cell [3]int64
	quantize := func(v r3.Vec) cell {
		return cell{
			int64(math.Round(v.X / tolerance)),
			int64(math.Round(v.Y / tolerance)),
			int64(math.Round(v.Z / tolerance)),
		}
	}

	remap := make([]int, len(m.Vertices))
	index := make(map[cell]int, len(m.Vertices))
	out := Mesh{}
	for i, v := range m.Vertices {
		k := quantize(v)
		if idx, ok := index[k]; ok {
			remap[i] = idx
			continue
		}
		idx := len(out.Vertices)
		index[k] = idx
		remap[i] = idx
		out.Vertices = append(out.Vertices, v)
	}

	out.Faces = make([][3]int, 0, len(m.Faces))
	for _, f := range m.Faces {
		a, b, c := remap[f[0]], remap[f[1]], remap[f[2]]
		if a == b || b == c || a == c {
			continue
		}
		va, vb, vc := out.Vertices[a], out.Vertices[b], out.Vertices[c]
		if r3.Norm(r3.Cross(r3.Sub(vb, va), r3.Sub(vc, va))) == 0 {
			continue
		}
		out.Faces = append(out.Faces, [3]int{a, b, c})
	}
	return out
}
