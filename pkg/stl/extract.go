package stl

import "math"

// Extractor generates an iso-surface triangle mesh from a 3D scalar field
// using marching tetrahedra: each grid cell is split into six tetrahedra
// around its main diagonal and the iso-surface is interpolated along the
// crossing tetrahedron edges.
type Extractor struct {
	data     []float64
	width    int
	height   int
	depth    int
	isoLevel float64

	scaleX, scaleY, scaleZ    float32
	originX, originY, originZ float32
}

// NewExtractor creates an iso-surface extractor for a scalar field laid out
// in row-major order (index = z*width*height + y*width + x).
func NewExtractor(data []float64, width, height, depth int, isoLevel float64) *Extractor {
	return &Extractor{
		data:     data,
		width:    width,
		height:   height,
		depth:    depth,
		isoLevel: isoLevel,
		scaleX:   1,
		scaleY:   1,
		scaleZ:   1,
	}
}

// SetScale sets the physical voxel size applied to generated vertices.
func (e *Extractor) SetScale(x, y, z float32) {
	e.scaleX, e.scaleY, e.scaleZ = x, y, z
}

// SetOrigin sets the physical position of voxel (0,0,0).
func (e *Extractor) SetOrigin(x, y, z float32) {
	e.originX, e.originY, e.originZ = x, y, z
}

// Six tetrahedra sharing the cell diagonal from corner 0 to corner 6.
// Cube corners: 0=(0,0,0) 1=(1,0,0) 2=(1,1,0) 3=(0,1,0)
//               4=(0,0,1) 5=(1,0,1) 6=(1,1,1) 7=(0,1,1)
var cellTetrahedra = [6][4]int{
	{0, 5, 1, 6},
	{0, 1, 2, 6},
	{0, 2, 3, 6},
	{0, 3, 7, 6},
	{0, 7, 4, 6},
	{0, 4, 5, 6},
}

var cornerOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

type point struct {
	x, y, z float64
}

// GenerateTriangles walks every cell of the field and emits the iso-surface
// triangles, with normals oriented outward (from values above the iso level
// toward values below it).
func (e *Extractor) GenerateTriangles() []Triangle {
	var triangles []Triangle

	corners := make([]point, 8)
	values := make([]float64, 8)

	for z := 0; z < e.depth-1; z++ {
		for y := 0; y < e.height-1; y++ {
			for x := 0; x < e.width-1; x++ {
				for c, off := range cornerOffsets {
					cx, cy, cz := x+off[0], y+off[1], z+off[2]
					corners[c] = point{float64(cx), float64(cy), float64(cz)}
					values[c] = e.data[cz*e.width*e.height+cy*e.width+cx]
				}
				for _, tet := range cellTetrahedra {
					triangles = e.marchTetrahedron(triangles, corners, values, tet)
				}
			}
		}
	}
	return triangles
}

func (e *Extractor) marchTetrahedron(out []Triangle, corners []point, values []float64, tet [4]int) []Triangle {
	var inside, outside [4]int
	ni, no := 0, 0
	for _, c := range tet {
		if values[c] > e.isoLevel {
			inside[ni] = c
			ni++
		} else {
			outside[no] = c
			no++
		}
	}

	interp := func(a, b int) point {
		va, vb := values[a], values[b]
		t := 0.5
		if vb != va {
			t = (e.isoLevel - va) / (vb - va)
		}
		pa, pb := corners[a], corners[b]
		return point{
			x: pa.x + t*(pb.x-pa.x),
			y: pa.y + t*(pb.y-pa.y),
			z: pa.z + t*(pb.z-pa.z),
		}
	}

	switch ni {
	case 1:
		p0 := interp(inside[0], outside[0])
		p1 := interp(inside[0], outside[1])
		p2 := interp(inside[0], outside[2])
		out = append(out, e.makeTriangle(p0, p1, p2, corners[inside[0]]))
	case 2:
		// The crossing section is a quad, split into two triangles.
		q0 := interp(inside[0], outside[0])
		q1 := interp(inside[0], outside[1])
		q2 := interp(inside[1], outside[1])
		q3 := interp(inside[1], outside[0])
		insideMid := point{
			x: (corners[inside[0]].x + corners[inside[1]].x) / 2,
			y: (corners[inside[0]].y + corners[inside[1]].y) / 2,
			z: (corners[inside[0]].z + corners[inside[1]].z) / 2,
		}
		out = append(out, e.makeTriangle(q0, q1, q2, insideMid))
		out = append(out, e.makeTriangle(q0, q2, q3, insideMid))
	case 3:
		p0 := interp(inside[0], outside[0])
		p1 := interp(inside[1], outside[0])
		p2 := interp(inside[2], outside[0])
		insideMid := point{
			x: (corners[inside[0]].x + corners[inside[1]].x + corners[inside[2]].x) / 3,
			y: (corners[inside[0]].y + corners[inside[1]].y + corners[inside[2]].y) / 3,
			z: (corners[inside[0]].z + corners[inside[1]].z + corners[inside[2]].z) / 3,
		}
		out = append(out, e.makeTriangle(p0, p1, p2, insideMid))
	}
	return out
}

// makeTriangle builds a triangle in physical coordinates with its normal
// flipped, if needed, to point away from the given interior reference point.
func (e *Extractor) makeTriangle(p0, p1, p2, interior point) Triangle {
	// Normal from the winding in voxel space.
	ux, uy, uz := p1.x-p0.x, p1.y-p0.y, p1.z-p0.z
	vx, vy, vz := p2.x-p0.x, p2.y-p0.y, p2.z-p0.z
	nx := uy*vz - uz*vy
	ny := uz*vx - ux*vz
	nz := ux*vy - uy*vx

	// Direction from the interior point to the triangle centroid points
	// outward; flip the winding when the normal disagrees.
	cx := (p0.x + p1.x + p2.x) / 3
	cy := (p0.y + p1.y + p2.y) / 3
	cz := (p0.z + p1.z + p2.z) / 3
	ox, oy, oz := cx-interior.x, cy-interior.y, cz-interior.z
	if nx*ox+ny*oy+nz*oz < 0 {
		p1, p2 = p2, p1
		nx, ny, nz = -nx, -ny, -nz
	}

	mag := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if mag > 0 {
		nx /= mag
		ny /= mag
		nz /= mag
	}

	return Triangle{
		Normal:  [3]float32{float32(nx), float32(ny), float32(nz)},
		Vertex1: e.toPhysical(p0),
		Vertex2: e.toPhysical(p1),
		Vertex3: e.toPhysical(p2),
	}
}

func (e *Extractor) toPhysical(p point) [3]float32 {
	return [3]float32{
		e.originX + float32(p.x)*e.scaleX,
		e.originY + float32(p.y)*e.scaleY,
		e.originZ + float32(p.z)*e.scaleZ,
	}
}
