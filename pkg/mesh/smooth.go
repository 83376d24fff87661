package mesh

import "gonum.org/v1/gonum/spatial/r3"

// DefaultSmoothRelaxation is the per-iteration step toward the neighborhood
// average during Laplacian smoothing.
const DefaultSmoothRelaxation = 0.1

// Smooth applies Laplacian relaxation: each vertex moves a fraction of the
// way toward the average of its edge-connected neighbors, per iteration.
// The mesh topology is unchanged; only vertex positions move.
func (m Mesh) Smooth(iterations int, relaxation float64) Mesh {
	if iterations <= 0 || relaxation <= 0 || len(m.Vertices) == 0 {
		return m.clone()
	}

	neighbors := make([][]int, len(m.Vertices))
	addNeighbor := func(a, b int) {
		for _, n := range neighbors[a] {
			if n == b {
				return
			}
		}
		neighbors[a] = append(neighbors[a], b)
	}
	for _, f := range m.Faces {
		addNeighbor(f[0], f[1])
		addNeighbor(f[1], f[0])
		addNeighbor(f[1], f[2])
		addNeighbor(f[2], f[1])
		addNeighbor(f[2], f[0])
		addNeighbor(f[0], f[2])
	}

	cur := make([]r3.Vec, len(m.Vertices))
	next := make([]r3.Vec, len(m.Vertices))
	copy(cur, m.Vertices)

	for it := 0; it < iterations; it++ {
		for i, v := range cur {
			if len(neighbors[i]) == 0 {
				next[i] = v
				continue
			}
			var sum r3.Vec
			for _, n := range neighbors[i] {
				sum = r3.Add(sum, cur[n])
			}
			avg := r3.Scale(1/float64(len(neighbors[i])), sum)
			next[i] = r3.Add(v, r3.Scale(relaxation, r3.Sub(avg, v)))
		}
		cur, next = next, cur
	}

	out := m.clone()
	copy(out.Vertices, cur)
	return out
}
