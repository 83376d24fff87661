package volume

import (
	"fmt"

	"dicom2mesh/internal/models"
)

// Foreground and background label values written by DoubleThreshold.
const (
	ThresholdInside  = 255.0
	ThresholdOutside = 0.0
)

// DoubleThreshold performs hysteresis segmentation with a four-value band
// t1 <= t2 <= t3 <= t4. Voxels inside the core band [t2,t3] seed the
// segmentation; the foreground then grows through 6-connected voxels inside
// the outer band [t1,t4]. Foreground voxels are written as inside, all others
// as outside, producing a binary label volume.
func DoubleThreshold(v *models.Volume, t1, t2, t3, t4, inside, outside float64) (*models.Volume, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if t1 > t2 || t2 > t3 || t3 > t4 {
		return nil, fmt.Errorf("thresholds must be ordered, got %f %f %f %f", t1, t2, t3, t4)
	}

	out := &models.Volume{
		Data:    make([]float64, len(v.Data)),
		Width:   v.Width,
		Height:  v.Height,
		Depth:   v.Depth,
		Spacing: v.Spacing,
		Origin:  v.Origin,
	}
	for i := range out.Data {
		out.Data[i] = outside
	}

	inOuter := func(val float64) bool { return val >= t1 && val <= t4 }

	// Seed from the core band, then flood through the outer band.
	queue := make([]int, 0, len(v.Data)/16)
	visited := make([]bool, len(v.Data))
	for i, val := range v.Data {
		if val >= t2 && val <= t3 {
			visited[i] = true
			out.Data[i] = inside
			queue = append(queue, i)
		}
	}

	wh := v.Width * v.Height
	for len(queue) > 0 {
		idx := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		z := idx / wh
		rem := idx % wh
		y := rem / v.Width
		x := rem % v.Width

		grow := func(nx, ny, nz int) {
			if nx < 0 || ny < 0 || nz < 0 ||
				nx >= v.Width || ny >= v.Height || nz >= v.Depth {
				return
			}
			nIdx := v.Index(nx, ny, nz)
			if visited[nIdx] || !inOuter(v.Data[nIdx]) {
				return
			}
			visited[nIdx] = true
			out.Data[nIdx] = inside
			queue = append(queue, nIdx)
		}
		grow(x-1, y, z)
		grow(x+1, y, z)
		grow(x, y-1, z)
		grow(x, y+1, z)
		grow(x, y, z-1)
		grow(x, y, z+1)
	}

	return out, nil
}
