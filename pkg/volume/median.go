package volume

import (
	"fmt"
	"sort"

	"dicom2mesh/internal/models"
)

// Median applies a median filter with per-axis kernel radii. The conversion
// pipeline runs it with radii (1,1,0), a 3x3x1 window: a flat radius in Z
// keeps the filter cheap on anisotropic CT volumes.
func Median(v *models.Volume, rx, ry, rz int) (*models.Volume, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if rx < 0 || ry < 0 || rz < 0 {
		return nil, fmt.Errorf("median kernel radii must not be negative, got (%d,%d,%d)", rx, ry, rz)
	}
	if rx == 0 && ry == 0 && rz == 0 {
		return v, nil
	}

	out := &models.Volume{
		Data:    make([]float64, len(v.Data)),
		Width:   v.Width,
		Height:  v.Height,
		Depth:   v.Depth,
		Spacing: v.Spacing,
		Origin:  v.Origin,
	}

	window := make([]float64, 0, (2*rx+1)*(2*ry+1)*(2*rz+1))
	for z := 0; z < v.Depth; z++ {
		for y := 0; y < v.Height; y++ {
			for x := 0; x < v.Width; x++ {
				window = window[:0]
				for dz := -rz; dz <= rz; dz++ {
					for dy := -ry; dy <= ry; dy++ {
						for dx := -rx; dx <= rx; dx++ {
							nx, ny, nz := x+dx, y+dy, z+dz
							if nx < 0 || ny < 0 || nz < 0 ||
								nx >= v.Width || ny >= v.Height || nz >= v.Depth {
								continue
							}
							window = append(window, v.At(nx, ny, nz))
						}
					}
				}
				out.Set(x, y, z, median(window))
			}
		}
	}
	return out, nil
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	n := len(values)
	if n%2 == 0 {
		return (values[n/2-1] + values[n/2]) / 2
	}
	return values[n/2]
}
