package pipeline

import (
	"github.com/rs/zerolog"

	"dicom2mesh/internal/models"
	"dicom2mesh/pkg/volume"
)

// Stage names used in PreprocessError and log fields.
const (
	StageShrink    = "shrink"
	StageSmooth    = "anisotropic-smooth"
	StageThreshold = "double-threshold"
	StageMedian    = "median"
	StagePad       = "pad"
)

// Preprocessor runs the volumetric filter chain in its fixed order:
// shrink, anisotropic smoothing, double threshold, median, pad. Disabled
// stages are skipped; the order of the enabled ones never changes, because
// the threshold band is defined on smoothed intensities and the median pass
// is defined on the binary volume.
type Preprocessor struct {
	cfg Config
	log zerolog.Logger

	shrinkFn    func(*models.Volume, int) (*models.Volume, error)
	smoothFn    func(*models.Volume, int, float64, float64) (*models.Volume, error)
	thresholdFn func(*models.Volume, float64, float64, float64, float64, float64, float64) (*models.Volume, error)
	medianFn    func(*models.Volume, int, int, int) (*models.Volume, error)
	padFn       func(*models.Volume, int, float64) (*models.Volume, error)
}

func NewPreprocessor(cfg Config, log zerolog.Logger) *Preprocessor {
	return &Preprocessor{
		cfg:         cfg,
		log:         log,
		shrinkFn:    volume.Shrink,
		smoothFn:    volume.AnisotropicDiffusion,
		thresholdFn: volume.DoubleThreshold,
		medianFn:    volume.Median,
		padFn:       volume.Pad,
	}
}

// Run applies the enabled stages to the volume and returns the result. The
// input volume is not modified. Any stage failure is reported as a
// *PreprocessError naming the stage.
func (p *Preprocessor) Run(v *models.Volume) (*models.Volume, error) {
	var err error

	if p.cfg.ShrinkEnabled {
		before := [3]int{v.Width, v.Height, v.Depth}
		v, err = p.shrinkFn(v, p.cfg.ShrinkMaxDim)
		if err != nil {
			return nil, &PreprocessError{Stage: StageShrink, Err: err}
		}
		if [3]int{v.Width, v.Height, v.Depth} != before {
			p.log.Debug().
				Ints("from", before[:]).
				Ints("to", []int{v.Width, v.Height, v.Depth}).
				Msg("volume shrunk")
		}
	}

	if p.cfg.Anisotropic {
		v, err = p.smoothFn(v, p.cfg.DiffusionIterations, p.cfg.DiffusionTimeStep, p.cfg.DiffusionConductance)
		if err != nil {
			return nil, &PreprocessError{Stage: StageSmooth, Err: err}
		}
	}

	if p.cfg.Tissue != "" {
		t := p.cfg.TissueConfig.Thresholds
		v, err = p.thresholdFn(v, t[0], t[1], t[2], t[3], volume.ThresholdInside, volume.ThresholdOutside)
		if err != nil {
			return nil, &PreprocessError{Stage: StageThreshold, Err: err}
		}
		p.log.Debug().Str("tissue", p.cfg.Tissue).Floats64("band", t[:]).Msg("volume thresholded")
	}

	if p.cfg.useMedian() {
		v, err = p.medianFn(v, 1, 1, 0)
		if err != nil {
			return nil, &PreprocessError{Stage: StageMedian, Err: err}
		}
	}

	if p.cfg.PadVoxels > 0 {
		v, err = p.padFn(v, p.cfg.PadVoxels, volume.ThresholdOutside)
		if err != nil {
			return nil, &PreprocessError{Stage: StagePad, Err: err}
		}
	}

	return v, nil
}
