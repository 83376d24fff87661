package pipeline

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"dicom2mesh/internal/models"
	"dicom2mesh/pkg/mesh"
	"dicom2mesh/pkg/stl"
)

// Mesh stage names used in MeshStageError and log fields.
const (
	StageExtract  = "extract"
	StageClean    = "clean"
	StageMeshSmth = "smooth"
	StageDecimate = "decimate"
	StageRotate   = "rotate"
	StageWrite    = "write"
)

// Result summarizes one completed run.
type Result struct {
	OutputPath     string
	RawTriangles   int // straight out of iso-surface extraction
	FinalTriangles int // after clean, smooth, decimate
}

// Finisher turns a preprocessed volume into a finished STL file: extract,
// clean, smooth, decimate, optionally rotate, write. Every stage failure is a
// *MeshStageError; the output file appears only on full success.
type Finisher struct {
	cfg Config
	log zerolog.Logger
}

func NewFinisher(cfg Config, log zerolog.Logger) *Finisher {
	return &Finisher{cfg: cfg, log: log}
}

func (f *Finisher) Finish(v *models.Volume, outputPath string) (Result, error) {
	ex, err := ToMeshInput(v, f.cfg.Isovalue)
	if err != nil {
		return Result{}, err
	}
	tris := ex.GenerateTriangles()
	if len(tris) == 0 {
		return Result{}, &MeshStageError{
			Stage: StageExtract,
			Err:   fmt.Errorf("no surface crosses isovalue %v", f.cfg.Isovalue),
		}
	}
	res := Result{OutputPath: outputPath, RawTriangles: len(tris)}
	f.log.Debug().Int("triangles", len(tris)).Float64("isovalue", f.cfg.Isovalue).Msg("surface extracted")

	m := mesh.FromTriangles(tris)

	m = m.Clean(mesh.DefaultCleanTolerance)
	if m.TriangleCount() == 0 {
		return Result{}, &MeshStageError{Stage: StageClean, Err: fmt.Errorf("all faces degenerate")}
	}

	if f.cfg.SmoothIterations > 0 {
		m = m.Smooth(f.cfg.SmoothIterations, mesh.DefaultSmoothRelaxation)
		f.log.Debug().Str("stage", StageMeshSmth).Int("iterations", f.cfg.SmoothIterations).Msg("mesh smoothed")
	}

	if f.cfg.Reduction > 0 {
		m, err = m.Decimate(f.cfg.Reduction)
		if err != nil {
			return Result{}, &MeshStageError{Stage: StageDecimate, Err: err}
		}
	}

	if f.cfg.RotateEnabled {
		m, err = m.Rotate(f.cfg.RotationAxis, f.cfg.RotationAngle)
		if err != nil {
			return Result{}, &MeshStageError{Stage: StageRotate, Err: err}
		}
	}

	res.FinalTriangles = m.TriangleCount()
	f.logMeshStats(m)

	if err := stl.SaveToSTL(outputPath, m.ToTriangles()); err != nil {
		return Result{}, &MeshStageError{Stage: StageWrite, Err: err}
	}
	return res, nil
}

// logMeshStats reports triangle count, surface area, and edge-length
// distribution of the finished mesh.
func (f *Finisher) logMeshStats(m mesh.Mesh) {
	edges := m.EdgeLengths()
	if len(edges) == 0 {
		return
	}
	mean, std := stat.MeanStdDev(edges, nil)
	f.log.Info().
		Int("triangles", m.TriangleCount()).
		Float64("surface_area", m.SurfaceArea()).
		Float64("edge_mean", mean).
		Float64("edge_stddev", std).
		Msg("mesh finished")
}
