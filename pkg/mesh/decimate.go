package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Decimate reduces the face count by the given fraction (0.9 keeps 10%)
// using iterative shortest-edge collapse: short edges contribute least to
// the shape, so collapsing them first approximates the original surface.
// The output face count never exceeds count*(1-reduction); reduction 0 is
// a no-op.
func (m Mesh) Decimate(reduction float64) (Mesh, error) {
	if reduction < 0 || reduction >= 1 {
		return Mesh{}, fmt.Errorf("decimation reduction must be in [0,1), got %f", reduction)
	}
	target := int(math.Floor(float64(len(m.Faces)) * (1 - reduction)))
	if reduction == 0 || len(m.Faces) <= target {
		return m.clone(), nil
	}

	d := &decimator{
		positions: append([]r3.Vec(nil), m.Vertices...),
		faces:     append([][3]int(nil), m.Faces...),
	}
	d.parent = make([]int, len(d.positions))
	for i := range d.parent {
		d.parent[i] = i
	}

	// Bulk passes: collapse edges under a growing length threshold until the
	// face count drops to the target.
	threshold := d.meanEdgeLength() * 0.5
	for len(d.faces) > target {
		collapsed := d.collapsePass(threshold, len(d.faces)-target)
		d.rebuild()
		if collapsed == 0 {
			threshold *= 2
		}
		if threshold > math.MaxFloat32 {
			// No collapsible edge remains; a cleaned mesh should never get
			// here, but stalling beats spinning.
			break
		}
	}

	out := d.compact()
	return out, nil
}

type decimator struct {
	positions []r3.Vec
	faces     [][3]int
	parent    []int
}

func (d *decimator) find(v int) int {
	for d.parent[v] != v {
		d.parent[v] = d.parent[d.parent[v]]
		v = d.parent[v]
	}
	return v
}

func (d *decimator) meanEdgeLength() float64 {
	if len(d.faces) == 0 {
		return 0
	}
	sum := 0.0
	n := 0
	for _, f := range d.faces {
		a, b, c := d.positions[f[0]], d.positions[f[1]], d.positions[f[2]]
		sum += r3.Norm(r3.Sub(b, a)) + r3.Norm(r3.Sub(c, b)) + r3.Norm(r3.Sub(a, c))
		n += 3
	}
	return sum / float64(n)
}

// collapsePass merges endpoints of edges shorter than the threshold, at most
// budget collapses, skipping vertices already touched in this pass so each
// collapse is locally independent.
func (d *decimator) collapsePass(threshold float64, budget int) int {
	touched := make(map[int]bool)
	collapsed := 0
	for _, f := range d.faces {
		if collapsed >= budget {
			break
		}
		edges := [3][2]int{{f[0], f[1]}, {f[1], f[2]}, {f[2], f[0]}}
		for _, e := range edges {
			u, v := d.find(e[0]), d.find(e[1])
			if u == v || touched[u] || touched[v] {
				continue
			}
			if r3.Norm(r3.Sub(d.positions[u], d.positions[v])) >= threshold {
				continue
			}
			mid := r3.Scale(0.5, r3.Add(d.positions[u], d.positions[v]))
			d.positions[v] = mid
			d.parent[u] = v
			touched[u] = true
			touched[v] = true
			collapsed++
			break
		}
	}
	return collapsed
}

// rebuild resolves vertex indirection and drops faces that lost a vertex.
func (d *decimator) rebuild() {
	alive := d.faces[:0]
	for _, f := range d.faces {
		a, b, c := d.find(f[0]), d.find(f[1]), d.find(f[2])
		if a == b || b == c || a == c {
			continue
		}
		alive = append(alive, [3]int{a, b, c})
	}
	d.faces = alive
}

// compact renumbers surviving vertices into a fresh mesh.
func (d *decimator) compact() Mesh {
	remap := make(map[int]int)
	out := Mesh{Faces: make([][3]int, 0, len(d.faces))}
	lookup := func(v int) int {
		if idx, ok := remap[v]; ok {
			return idx
		}
		idx := len(out.Vertices)
		remap[v] = idx
		out.Vertices = append(out.Vertices, d.positions[v])
		return idx
	}
	for _, f := range d.faces {
		out.Faces = append(out.Faces, [3]int{lookup(f[0]), lookup(f[1]), lookup(f[2])})
	}
	return out
}
