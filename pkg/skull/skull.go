// Package skull isolates the target anatomical object from a finished
// surface mesh. Thresholded CT meshes routinely carry disconnected fragments
// beside the skull itself: the scanner table, headrest padding, dense
// artifacts. The isolator splits the mesh into connected components, scores
// them, and keeps the winner.
package skull

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"

	"dicom2mesh/pkg/mesh"
	"dicom2mesh/pkg/stl"
)

// DefaultMinFaces is the noise floor: components with fewer faces are never
// scored.
const DefaultMinFaces = 10

// NoTargetObjectFound reports a mesh with no component eligible for
// isolation.
type NoTargetObjectFound struct {
	Path       string
	Components int
}

func (e *NoTargetObjectFound) Error() string {
	return fmt.Sprintf("no target object in %s (%d components, none eligible)", e.Path, e.Components)
}

// Scorer ranks a connected component; the highest score wins.
type Scorer func(mesh.Component) float64

// MostFaces scores a component by its face count. The skull is virtually
// always the most detailed body in a bone-thresholded head scan.
func MostFaces(c mesh.Component) float64 {
	return float64(c.FaceCount)
}

// BoundedExtent scores like MostFaces but disqualifies components whose
// bounding box exceeds maxExtent along any axis. Useful when the scanner
// table survives thresholding and out-counts the skull.
func BoundedExtent(maxExtent float64) Scorer {
	return func(c mesh.Component) float64 {
		size := r3.Sub(c.Bounds.Max, c.Bounds.Min)
		if size.X > maxExtent || size.Y > maxExtent || size.Z > maxExtent {
			return -1
		}
		return float64(c.FaceCount)
	}
}

// Isolator extracts the best-scoring connected component of a mesh file.
type Isolator struct {
	Scorer   Scorer
	MinFaces int
	log      zerolog.Logger
}

func NewIsolator(log zerolog.Logger) *Isolator {
	return &Isolator{
		Scorer:   MostFaces,
		MinFaces: DefaultMinFaces,
		log:      log,
	}
}

// Isolate reads the STL at meshPath, keeps the best-scoring component, and
// writes it to outPath. The output file appears only on success.
func (i *Isolator) Isolate(meshPath, outPath string) error {
	tris, err := stl.ReadSTL(meshPath)
	if err != nil {
		return fmt.Errorf("isolate %s: %w", meshPath, err)
	}

	m := mesh.FromTriangles(tris).Clean(mesh.DefaultCleanTolerance)
	components := m.Components()

	best := -1
	bestScore := 0.0
	for idx, c := range components {
		if c.FaceCount < i.MinFaces {
			continue
		}
		score := i.Scorer(c)
		if score < 0 {
			continue
		}
		if best < 0 || score > bestScore {
			best = idx
			bestScore = score
		}
	}
	if best < 0 {
		return &NoTargetObjectFound{Path: meshPath, Components: len(components)}
	}

	winner := components[best]
	i.log.Info().
		Str("mesh", meshPath).
		Int("components", len(components)).
		Int("kept_faces", winner.FaceCount).
		Float64("kept_area", winner.Area).
		Msg("target object isolated")

	if err := stl.SaveToSTL(outPath, winner.Mesh.ToTriangles()); err != nil {
		return fmt.Errorf("isolate %s: %w", meshPath, err)
	}
	return nil
}
