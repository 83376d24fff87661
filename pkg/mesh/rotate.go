package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Rotation axes, matching the CLI surface (default rotation is 180 degrees
// about Y, a viewing-orientation correction).
const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2
)

// Rotate applies a rigid rotation of angleDeg degrees about the given
// coordinate axis through the origin.
func (m Mesh) Rotate(axis int, angleDeg float64) (Mesh, error) {
	var axisVec r3.Vec
	switch axis {
	case AxisX:
		axisVec = r3.Vec{X: 1}
	case AxisY:
		axisVec = r3.Vec{Y: 1}
	case AxisZ:
		axisVec = r3.Vec{Z: 1}
	default:
		return Mesh{}, fmt.Errorf("rotation axis must be 0 (X), 1 (Y) or 2 (Z), got %d", axis)
	}

	rot := r3.NewRotation(angleDeg*math.Pi/180, axisVec)
	out := m.clone()
	for i, v := range out.Vertices {
		out.Vertices[i] = rot.Rotate(v)
	}
	return out, nil
}
