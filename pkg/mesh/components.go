package mesh

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Component is a maximal set of faces connected through shared vertices,
// with attributes derived for scoring and filtering.
type Component struct {
	Mesh      Mesh
	FaceCount int
	Area      float64
	Bounds    r3.Box
}

// Components partitions the mesh into connected components. Connectivity is
// through shared vertex indices, so Clean should run first to weld
// coincident vertices. Components are returned in descending face count
// order.
func (m Mesh) Components() []Component {
	if len(m.Faces) == 0 {
		return nil
	}

	parent := make([]int, len(m.Vertices))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(v int) int {
		for parent[v] != v {
			parent[v] = parent[parent[v]]
			v = parent[v]
		}
		return v
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for _, f := range m.Faces {
		union(f[0], f[1])
		union(f[1], f[2])
	}

	groups := make(map[int][][3]int)
	for _, f := range m.Faces {
		root := find(f[0])
		groups[root] = append(groups[root], f)
	}

	components := make([]Component, 0, len(groups))
	for _, faces := range groups {
		sub := Mesh{Faces: make([][3]int, 0, len(faces))}
		remap := make(map[int]int)
		lookup := func(v int) int {
			if idx, ok := remap[v]; ok {
				return idx
			}
			idx := len(sub.Vertices)
			remap[v] = idx
			sub.Vertices = append(sub.Vertices, m.Vertices[v])
			return idx
		}
		for _, f := range faces {
			sub.Faces = append(sub.Faces, [3]int{lookup(f[0]), lookup(f[1]), lookup(f[2])})
		}
		components = append(components, Component{
			Mesh:      sub,
			FaceCount: len(sub.Faces),
			Area:      sub.SurfaceArea(),
			Bounds:    sub.Bounds(),
		})
	}

	// Largest first; area breaks ties so the order is deterministic even
	// though map iteration is not.
	sort.Slice(components, func(i, j int) bool {
		if components[i].FaceCount != components[j].FaceCount {
			return components[i].FaceCount > components[j].FaceCount
		}
		return components[i].Area > components[j].Area
	})
	return components
}
