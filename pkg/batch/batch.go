// Package batch runs the conversion pipeline over a directory of study
// subdirectories. Studies are screened (slice-count quality gate, optional
// per-patient deduplication) before the pipeline touches them, and one
// failing study never aborts the batch.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"dicom2mesh/pkg/dcm"
	"dicom2mesh/pkg/pipeline"
)

// DefaultMinSlices is the quality gate: studies with fewer slices lack the
// axial coverage for a usable surface.
const DefaultMinSlices = 160

// Outcome classifies what the batch controller did with one study.
type Outcome int

const (
	Succeeded Outcome = iota
	Failed
	SkippedLowQuality
	SkippedDuplicate
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case SkippedLowQuality:
		return "skipped-low-quality"
	case SkippedDuplicate:
		return "skipped-duplicate"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// StudyRecord is the per-study entry of a batch report.
type StudyRecord struct {
	Path       string
	Name       string // study directory base name
	PatientID  string
	SliceCount int
	Outcome    Outcome
	Output     string // set when Outcome == Succeeded
	Err        error  // set when Outcome == Failed
}

// Report accumulates study records, append-only, single owner.
type Report struct {
	Records []StudyRecord
}

func (r *Report) add(rec StudyRecord) {
	r.Records = append(r.Records, rec)
}

func (r *Report) count(o Outcome) int {
	n := 0
	for _, rec := range r.Records {
		if rec.Outcome == o {
			n++
		}
	}
	return n
}

// AnyFailed reports whether at least one accepted study failed.
func (r *Report) AnyFailed() bool { return r.count(Failed) > 0 }

// AllFailed reports whether every study that reached the pipeline failed.
func (r *Report) AllFailed() bool {
	return r.count(Failed) > 0 && r.count(Succeeded) == 0
}

// Log writes the batch summary.
func (r *Report) Log(log zerolog.Logger) {
	log.Info().
		Int("studies", len(r.Records)).
		Int("succeeded", r.count(Succeeded)).
		Int("failed", r.count(Failed)).
		Int("skipped_low_quality", r.count(SkippedLowQuality)).
		Int("skipped_duplicate", r.count(SkippedDuplicate)).
		Msg("batch complete")
	for _, rec := range r.Records {
		if rec.Outcome == Failed {
			log.Warn().Str("study", rec.Name).Err(rec.Err).Msg("study failed")
		}
	}
}

// Controller walks the immediate subdirectories of a root, screens each
// study, and runs the pipeline on the ones that pass.
type Controller struct {
	Root      string
	OutDir    string
	OutPrefix string
	MinSlices int
	Dedup     bool

	log   zerolog.Logger
	probe func(dir string) (dcm.StudyInfo, error)
	run   func(inputRef, outputPath string) error
}

func NewController(root, outDir string, cfg pipeline.Config, log zerolog.Logger) *Controller {
	return &Controller{
		Root:      root,
		OutDir:    outDir,
		MinSlices: DefaultMinSlices,
		log:       log,
		probe:     dcm.Probe,
		run: func(inputRef, outputPath string) error {
			_, err := pipeline.Run(inputRef, outputPath, cfg, log)
			return err
		},
	}
}

// Run processes every study subdirectory in sorted order. It returns an
// error only when the root cannot be enumerated or the output directory
// cannot be created; per-study failures land in the report.
func (c *Controller) Run() (*Report, error) {
	entries, err := os.ReadDir(c.Root)
	if err != nil {
		return nil, fmt.Errorf("batch root %s: %w", c.Root, err)
	}
	if err := os.MkdirAll(c.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("batch output dir %s: %w", c.OutDir, err)
	}

	var studies []string
	for _, e := range entries {
		if e.IsDir() {
			studies = append(studies, e.Name())
		}
	}
	sort.Strings(studies)

	report := &Report{}
	seen := make(map[string]bool)
	for _, name := range studies {
		rec := c.processStudy(name, seen)
		report.add(rec)
		c.log.Info().
			Str("study", rec.Name).
			Str("patient", rec.PatientID).
			Int("slices", rec.SliceCount).
			Stringer("outcome", rec.Outcome).
			Msg("study processed")
	}
	return report, nil
}

func (c *Controller) processStudy(name string, seen map[string]bool) StudyRecord {
	rec := StudyRecord{
		Path: filepath.Join(c.Root, name),
		Name: name,
	}

	info, err := c.probe(rec.Path)
	if err != nil {
		// Headers were unreadable; a raw file count still feeds the quality
		// gate so junk directories are skipped rather than counted as
		// failures.
		rec.SliceCount = dcm.CountSliceFiles(rec.Path)
		if rec.SliceCount < c.MinSlices {
			rec.Outcome = SkippedLowQuality
			return rec
		}
		rec.Outcome = Failed
		rec.Err = err
		return rec
	}
	rec.PatientID = info.PatientID
	rec.SliceCount = info.SliceCount

	if rec.SliceCount < c.MinSlices {
		rec.Outcome = SkippedLowQuality
		return rec
	}

	if c.Dedup {
		key := c.patientKey(rec)
		if seen[key] {
			rec.Outcome = SkippedDuplicate
			return rec
		}
		seen[key] = true
	}

	output := filepath.Join(c.OutDir, c.OutPrefix+name+".stl")
	if err := c.run(rec.Path, output); err != nil {
		rec.Outcome = Failed
		rec.Err = err
		return rec
	}
	rec.Outcome = Succeeded
	rec.Output = output
	return rec
}

// patientKey is the deduplication key. Some anonymized exports blank the
// PatientID tag; the study directory name stands in so those studies never
// collapse into one.
func (c *Controller) patientKey(rec StudyRecord) string {
	if rec.PatientID != "" {
		return rec.PatientID
	}
	return rec.Name
}
