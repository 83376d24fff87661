// Package preview renders volume cross-sections as grayscale JPEGs so an
// operator can eyeball what the filters did to a study before committing to
// a long mesh run.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"dicom2mesh/internal/models"
)

// Viewer renders cross-sections of one volume. Intensities are mapped to
// gray levels over the volume's own min/max range, so both raw Hounsfield
// volumes and binary thresholded volumes come out visible.
type Viewer struct {
	vol      *models.Volume
	min, max float64
}

func NewViewer(v *models.Volume) *Viewer {
	lo, hi := v.Data[0], v.Data[0]
	for _, val := range v.Data {
		if val < lo {
			lo = val
		}
		if val > hi {
			hi = val
		}
	}
	return &Viewer{vol: v, min: lo, max: hi}
}

func (p *Viewer) gray(value float64) color.Gray16 {
	if p.max <= p.min {
		return color.Gray16{}
	}
	n := (value - p.min) / (p.max - p.min)
	return color.Gray16{Y: uint16(n * 65535)}
}

// ExtractSlice renders the cross-section perpendicular to the axis ("x",
// "y", or "z") at the given voxel position.
func (p *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	v := p.vol
	switch axis {
	case "x", "X":
		if position < 0 || position >= v.Width {
			return nil, fmt.Errorf("x position %d out of range [0,%d)", position, v.Width)
		}
		img := image.NewGray16(image.Rect(0, 0, v.Depth, v.Height))
		for y := 0; y < v.Height; y++ {
			for z := 0; z < v.Depth; z++ {
				img.SetGray16(z, y, p.gray(v.At(position, y, z)))
			}
		}
		return img, nil
	case "y", "Y":
		if position < 0 || position >= v.Height {
			return nil, fmt.Errorf("y position %d out of range [0,%d)", position, v.Height)
		}
		img := image.NewGray16(image.Rect(0, 0, v.Width, v.Depth))
		for z := 0; z < v.Depth; z++ {
			for x := 0; x < v.Width; x++ {
				img.SetGray16(x, z, p.gray(v.At(x, position, z)))
			}
		}
		return img, nil
	case "z", "Z":
		if position < 0 || position >= v.Depth {
			return nil, fmt.Errorf("z position %d out of range [0,%d)", position, v.Depth)
		}
		img := image.NewGray16(image.Rect(0, 0, v.Width, v.Height))
		for y := 0; y < v.Height; y++ {
			for x := 0; x < v.Width; x++ {
				img.SetGray16(x, y, p.gray(v.At(x, y, position)))
			}
		}
		return img, nil
	}
	return nil, fmt.Errorf("invalid axis %q (must be x, y, or z)", axis)
}

// SaveSlice writes one rendered slice as a JPEG.
func (p *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence renders every slice along the axis into outputDir as
// slice_<axis>_<nnn>.jpg.
func (p *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = p.vol.Width
	case "y", "Y":
		maxPos = p.vol.Height
	case "z", "Z":
		maxPos = p.vol.Depth
	default:
		return fmt.Errorf("invalid axis %q (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := p.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := p.SaveSlice(img, filename); err != nil {
			return err
		}
	}
	return nil
}
