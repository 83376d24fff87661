package models

import "fmt"

// Vec3 is a physical-space triple used for voxel spacing and volume origin.
type Vec3 struct {
	X, Y, Z float64
}

// Volume represents a 3D sampled scalar field with Hounsfield-unit intensity
// semantics. Data is stored in row-major order: index = z*W*H + y*W + x.
type Volume struct {
	// Data is the scalar intensity per voxel.
	Data []float64

	// Width, Height and Depth are the voxel dimensions of the volume.
	Width  int
	Height int
	Depth  int

	// Spacing is the physical size of each voxel in mm.
	Spacing Vec3

	// Origin is the physical position of voxel (0,0,0) in mm.
	Origin Vec3
}

// NewVolume allocates a zero-filled volume with unit spacing.
func NewVolume(width, height, depth int) *Volume {
	return &Volume{
		Data:    make([]float64, width*height*depth),
		Width:   width,
		Height:  height,
		Depth:   depth,
		Spacing: Vec3{X: 1, Y: 1, Z: 1},
	}
}

// Index returns the linear index of voxel (x,y,z).
func (v *Volume) Index(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// At returns the intensity of voxel (x,y,z).
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Index(x, y, z)]
}

// Set assigns the intensity of voxel (x,y,z).
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[v.Index(x, y, z)] = value
}

// Clone returns a deep copy of the volume.
func (v *Volume) Clone() *Volume {
	out := *v
	out.Data = make([]float64, len(v.Data))
	copy(out.Data, v.Data)
	return &out
}

// Validate reports an error for degenerate dimensions, spacing, or a data
// buffer that does not match the declared extent.
func (v *Volume) Validate() error {
	if v == nil {
		return fmt.Errorf("volume is nil")
	}
	if v.Width <= 0 || v.Height <= 0 || v.Depth <= 0 {
		return fmt.Errorf("degenerate volume dimensions %dx%dx%d", v.Width, v.Height, v.Depth)
	}
	if len(v.Data) != v.Width*v.Height*v.Depth {
		return fmt.Errorf("volume data length %d does not match extent %dx%dx%d",
			len(v.Data), v.Width, v.Height, v.Depth)
	}
	if v.Spacing.X <= 0 || v.Spacing.Y <= 0 || v.Spacing.Z <= 0 {
		return fmt.Errorf("degenerate voxel spacing %+v", v.Spacing)
	}
	return nil
}
