// Package volume implements the volumetric filters the conversion pipeline
// chains together: shrink, anisotropic smoothing, double threshold, median,
// and constant padding. Each filter is a pure function from volume to volume;
// spacing and origin survive every filter except where geometry is documented
// to change (shrink scales spacing, pad moves the origin).
package volume

import (
	"fmt"

	"dicom2mesh/internal/models"
)

// ShrinkFactors returns the per-axis integer subsampling factors needed to
// bring every dimension of the volume to at most maxDim voxels.
func ShrinkFactors(v *models.Volume, maxDim int) (fx, fy, fz int) {
	ceilDiv := func(dim int) int {
		f := (dim + maxDim - 1) / maxDim
		if f < 1 {
			f = 1
		}
		return f
	}
	return ceilDiv(v.Width), ceilDiv(v.Height), ceilDiv(v.Depth)
}

// Shrink subsamples the volume so that its largest dimension does not exceed
// maxDim. Voxel spacing scales by the per-axis factor so the volume keeps its
// physical size. When no axis needs shrinking the input is returned untouched.
func Shrink(v *models.Volume, maxDim int) (*models.Volume, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if maxDim <= 0 {
		return nil, fmt.Errorf("shrink max dimension must be positive, got %d", maxDim)
	}

	fx, fy, fz := ShrinkFactors(v, maxDim)
	if fx == 1 && fy == 1 && fz == 1 {
		return v, nil
	}

	out := &models.Volume{
		Width:  (v.Width + fx - 1) / fx,
		Height: (v.Height + fy - 1) / fy,
		Depth:  (v.Depth + fz - 1) / fz,
		Origin: v.Origin,
		Spacing: models.Vec3{
			X: v.Spacing.X * float64(fx),
			Y: v.Spacing.Y * float64(fy),
			Z: v.Spacing.Z * float64(fz),
		},
	}
	out.Data = make([]float64, out.Width*out.Height*out.Depth)

	for z := 0; z < out.Depth; z++ {
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				out.Set(x, y, z, v.At(x*fx, y*fy, z*fz))
			}
		}
	}
	return out, nil
}
