package pipeline

import (
	"fmt"

	"dicom2mesh/pkg/mesh"
	"dicom2mesh/pkg/tissue"
	"dicom2mesh/pkg/volume"
)

// Default run parameters for the general-purpose preset.
const (
	DefaultIsovalue         = 128.0
	DefaultSmoothIterations = 25
	DefaultReduction        = 0.9
	DefaultShrinkMaxDim     = 256
	DefaultRotationAxis     = mesh.AxisY
	DefaultRotationAngle    = 180.0
)

// Tuned parameters baked in for skull extraction runs.
const (
	skullTunedSmoothIterations = 5000
	skullTunedReduction        = 0.75
)

var skullTunedBoneBand = [4]float64{150, 800, 1500, 2000}

// Options is the raw, partially-specified parameter set collected from flags
// or a configuration file. Nil pointer fields mean "not set"; Resolve fills
// them from the preset and the defaults.
type Options struct {
	Tissue           string
	Isovalue         *float64
	SmoothIterations *int
	Reduction        *float64
	Shrink           *bool
	ShrinkMaxDim     *int
	Anisotropic      *bool
	MedianFilter     *bool
	PadVoxels        *int
	Rotate           *bool
	RotationAxis     *int
	RotationAngle    *float64
	CTOnly           bool
	PreviewDir       string
}

// Config is the fully resolved, validated parameter set for one run. Once
// built it is treated as immutable.
type Config struct {
	Tissue       string        // empty disables thresholding
	TissueConfig tissue.Config // valid when Tissue is non-empty
	Isovalue     float64

	ShrinkEnabled bool
	ShrinkMaxDim  int

	Anisotropic          bool
	DiffusionIterations  int
	DiffusionTimeStep    float64
	DiffusionConductance float64

	MedianFilter bool
	PadVoxels    int

	SmoothIterations int
	Reduction        float64

	RotateEnabled bool
	RotationAxis  int
	RotationAngle float64

	CTOnly     bool
	PreviewDir string // when set, JPEG previews of the preprocessed volume land here
}

// Resolve builds a validated Config by layering the named preset over the
// defaults, then the explicitly set Options fields over the preset. All
// parameter errors surface here, before any voxel is touched.
func Resolve(opts Options, preset string) (Config, error) {
	cfg := Config{
		Isovalue:             DefaultIsovalue,
		ShrinkEnabled:        true,
		ShrinkMaxDim:         DefaultShrinkMaxDim,
		DiffusionIterations:  volume.DefaultDiffusionIterations,
		DiffusionTimeStep:    volume.DefaultDiffusionTimeStep,
		DiffusionConductance: volume.DefaultDiffusionConductance,
		PadVoxels:            volume.DefaultPadVoxels,
		SmoothIterations:     DefaultSmoothIterations,
		Reduction:            DefaultReduction,
		RotationAxis:         DefaultRotationAxis,
		RotationAngle:        DefaultRotationAngle,
		CTOnly:               opts.CTOnly,
		PreviewDir:           opts.PreviewDir,
	}

	switch preset {
	case "", "default":
	case "skull-tuned":
		cfg.Tissue = "bone"
		tc, err := tissue.Lookup("bone")
		if err != nil {
			return Config{}, err
		}
		tc.Thresholds = skullTunedBoneBand
		cfg.TissueConfig = tc
		// The threshold stage leaves a 0/255 binary volume, so the
		// extraction level is the binary isovalue, not a Hounsfield one.
		cfg.Isovalue = tc.Isovalue
		cfg.SmoothIterations = skullTunedSmoothIterations
		cfg.Reduction = skullTunedReduction
		cfg.Anisotropic = true
		cfg.CTOnly = true
	default:
		return Config{}, fmt.Errorf("unknown preset %q (supported: default, skull-tuned)", preset)
	}

	if opts.Tissue != "" {
		tc, err := tissue.Lookup(opts.Tissue)
		if err != nil {
			return Config{}, err
		}
		cfg.Tissue = tc.Name
		cfg.TissueConfig = tc
		cfg.Isovalue = tc.Isovalue
	}
	if opts.Isovalue != nil {
		if opts.Tissue != "" {
			return Config{}, fmt.Errorf("tissue %q and explicit isovalue are mutually exclusive", opts.Tissue)
		}
		cfg.Isovalue = *opts.Isovalue
	}
	if opts.SmoothIterations != nil {
		cfg.SmoothIterations = *opts.SmoothIterations
	}
	if opts.Reduction != nil {
		cfg.Reduction = *opts.Reduction
	}
	if opts.Shrink != nil {
		cfg.ShrinkEnabled = *opts.Shrink
	}
	if opts.ShrinkMaxDim != nil {
		cfg.ShrinkMaxDim = *opts.ShrinkMaxDim
	}
	if opts.Anisotropic != nil {
		cfg.Anisotropic = *opts.Anisotropic
	}
	if opts.MedianFilter != nil {
		cfg.MedianFilter = *opts.MedianFilter
	}
	if opts.PadVoxels != nil {
		cfg.PadVoxels = *opts.PadVoxels
	}
	if opts.Rotate != nil {
		cfg.RotateEnabled = *opts.Rotate
	}
	if opts.RotationAxis != nil {
		cfg.RotationAxis = *opts.RotationAxis
	}
	if opts.RotationAngle != nil {
		cfg.RotationAngle = *opts.RotationAngle
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Reduction < 0 || c.Reduction >= 1 {
		return fmt.Errorf("reduction %v out of range [0,1)", c.Reduction)
	}
	if c.SmoothIterations < 0 {
		return fmt.Errorf("smoothing iterations must not be negative, got %d", c.SmoothIterations)
	}
	if c.ShrinkEnabled && c.ShrinkMaxDim <= 0 {
		return fmt.Errorf("shrink max dimension must be positive, got %d", c.ShrinkMaxDim)
	}
	if c.PadVoxels < 0 {
		return fmt.Errorf("pad margin must not be negative, got %d", c.PadVoxels)
	}
	if c.RotationAxis < mesh.AxisX || c.RotationAxis > mesh.AxisZ {
		return fmt.Errorf("rotation axis %d out of range", c.RotationAxis)
	}
	return nil
}

// useMedian reports whether the median stage runs: either forced by flag or
// requested by the tissue table entry.
func (c Config) useMedian() bool {
	return c.MedianFilter || (c.Tissue != "" && c.TissueConfig.UseMedian)
}
