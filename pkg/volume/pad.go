package volume

import (
	"fmt"

	"dicom2mesh/internal/models"
)

// DefaultPadVoxels is the constant boundary margin the pipeline pads with.
// Surface extraction on a volume whose foreground touches the boundary
// produces open, clipped surfaces; the margin guarantees a closed boundary.
const DefaultPadVoxels = 5

// Pad grows the volume by margin voxels of the given value on every side.
// The origin shifts by -margin*spacing per axis so existing voxels keep their
// physical position.
func Pad(v *models.Volume, margin int, value float64) (*models.Volume, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if margin < 0 {
		return nil, fmt.Errorf("pad margin must not be negative, got %d", margin)
	}
	if margin == 0 {
		return v, nil
	}

	out := &models.Volume{
		Width:   v.Width + 2*margin,
		Height:  v.Height + 2*margin,
		Depth:   v.Depth + 2*margin,
		Spacing: v.Spacing,
		Origin: models.Vec3{
			X: v.Origin.X - float64(margin)*v.Spacing.X,
			Y: v.Origin.Y - float64(margin)*v.Spacing.Y,
			Z: v.Origin.Z - float64(margin)*v.Spacing.Z,
		},
	}
	out.Data = make([]float64, out.Width*out.Height*out.Depth)
	if value != 0 {
		for i := range out.Data {
			out.Data[i] = value
		}
	}

	for z := 0; z < v.Depth; z++ {
		for y := 0; y < v.Height; y++ {
			srcRow := v.Index(0, y, z)
			dstRow := out.Index(margin, y+margin, z+margin)
			copy(out.Data[dstRow:dstRow+v.Width], v.Data[srcRow:srcRow+v.Width])
		}
	}
	return out, nil
}
