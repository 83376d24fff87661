package pipeline

import (
	"dicom2mesh/internal/models"
	"dicom2mesh/pkg/stl"
)

// ToMeshInput wraps a preprocessed volume in a surface extractor configured
// with the requested isovalue and the volume's physical spacing and origin,
// so generated vertices land in patient coordinates.
func ToMeshInput(v *models.Volume, isovalue float64) (*stl.Extractor, error) {
	if v == nil || len(v.Data) == 0 {
		return nil, &ConversionError{Reason: "empty volume"}
	}
	if v.Width < 2 || v.Height < 2 || v.Depth < 2 {
		return nil, &ConversionError{
			Reason: "volume too thin for surface extraction (need at least 2 voxels per axis)",
		}
	}
	if v.Spacing.X <= 0 || v.Spacing.Y <= 0 || v.Spacing.Z <= 0 {
		return nil, &ConversionError{Reason: "degenerate voxel spacing"}
	}

	ex := stl.NewExtractor(v.Data, v.Width, v.Height, v.Depth, isovalue)
	ex.SetScale(float32(v.Spacing.X), float32(v.Spacing.Y), float32(v.Spacing.Z))
	ex.SetOrigin(float32(v.Origin.X), float32(v.Origin.Y), float32(v.Origin.Z))
	return ex, nil
}
