package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"dicom2mesh/pkg/skull"
)

// TwoStage chains a batch run with per-study object isolation: the batch
// writes full meshes into an intermediate directory, then the isolator
// extracts the target object from each successful mesh into the final
// output directory. Intermediates are deleted unless KeepIntermediate is
// set.
type TwoStage struct {
	Controller       *Controller
	Isolator         *skull.Isolator
	FinalDir         string
	KeepIntermediate bool

	log zerolog.Logger
}

func NewTwoStage(ctrl *Controller, iso *skull.Isolator, finalDir string, log zerolog.Logger) *TwoStage {
	return &TwoStage{
		Controller: ctrl,
		Isolator:   iso,
		FinalDir:   finalDir,
		log:        log,
	}
}

// Run executes both stages and returns the merged report: a study that
// converts but fails isolation is marked failed, and its record points at
// the final (isolated) output when it succeeds.
func (t *TwoStage) Run() (*Report, error) {
	if err := os.MkdirAll(t.FinalDir, 0755); err != nil {
		return nil, fmt.Errorf("two-stage output dir %s: %w", t.FinalDir, err)
	}
	tmpDir, err := os.MkdirTemp(t.FinalDir, "intermediate-")
	if err != nil {
		return nil, fmt.Errorf("two-stage intermediate dir: %w", err)
	}
	if !t.KeepIntermediate {
		defer os.RemoveAll(tmpDir)
	} else {
		t.log.Info().Str("dir", tmpDir).Msg("keeping intermediate meshes")
	}

	t.Controller.OutDir = tmpDir
	report, err := t.Controller.Run()
	if err != nil {
		return nil, err
	}

	for i := range report.Records {
		rec := &report.Records[i]
		if rec.Outcome != Succeeded {
			continue
		}
		final := filepath.Join(t.FinalDir, filepath.Base(rec.Output))
		if err := t.Isolator.Isolate(rec.Output, final); err != nil {
			rec.Outcome = Failed
			rec.Err = err
			rec.Output = ""
			continue
		}
		rec.Output = final
	}
	return report, nil
}
