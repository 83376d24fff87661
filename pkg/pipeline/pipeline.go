// Package pipeline composes the volumetric preprocessing chain and the mesh
// finishing chain into a single DICOM-study-to-STL run. The stage order is a
// fixed contract; configuration only enables, disables, and parameterizes
// stages.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"dicom2mesh/internal/models"
	"dicom2mesh/pkg/dcm"
	"dicom2mesh/pkg/preview"
	"dicom2mesh/pkg/volume"
)

// Run executes the full pipeline for one input. The input is either a DICOM
// study directory, a single .dcm file, or a MetaImage (.mha/.mhd) volume
// file. No output file exists unless the returned error is nil.
func Run(inputRef, outputPath string, cfg Config, log zerolog.Logger) (Result, error) {
	v, info, err := loadInput(inputRef)
	if err != nil {
		return Result{}, err
	}
	if cfg.CTOnly && info.Modality != "" && info.Modality != "CT" {
		return Result{}, fmt.Errorf("input %s has modality %s, expected CT", inputRef, info.Modality)
	}
	log.Info().
		Str("input", inputRef).
		Str("patient", info.PatientID).
		Int("slices", info.SliceCount).
		Ints("dims", []int{v.Width, v.Height, v.Depth}).
		Msg("volume loaded")

	v, err = NewPreprocessor(cfg, log).Run(v)
	if err != nil {
		return Result{}, err
	}

	if cfg.PreviewDir != "" {
		viewer := preview.NewViewer(v)
		for _, axis := range []string{"x", "y", "z"} {
			dir := filepath.Join(cfg.PreviewDir, axis)
			if err := viewer.SaveSliceSequence(axis, dir); err != nil {
				log.Warn().Str("axis", axis).Err(err).Msg("preview export failed")
			}
		}
		dump := filepath.Join(cfg.PreviewDir, "volume.mha")
		if err := volume.WriteMetaImage(dump, v); err != nil {
			log.Warn().Str("path", dump).Err(err).Msg("volume dump failed")
		}
	}

	res, err := NewFinisher(cfg, log).Finish(v, outputPath)
	if err != nil {
		return Result{}, err
	}
	log.Info().
		Str("output", res.OutputPath).
		Int("triangles", res.FinalTriangles).
		Msg("run complete")
	return res, nil
}

// loadInput resolves what kind of input the reference names and loads it.
func loadInput(inputRef string) (*models.Volume, dcm.StudyInfo, error) {
	fi, err := os.Stat(inputRef)
	if err != nil {
		return nil, dcm.StudyInfo{}, fmt.Errorf("input %s: %w", inputRef, err)
	}
	if fi.IsDir() {
		return dcm.LoadLargestSeries(inputRef)
	}
	switch strings.ToLower(filepath.Ext(inputRef)) {
	case ".mha", ".mhd":
		v, err := volume.ReadMetaImage(inputRef)
		if err != nil {
			return nil, dcm.StudyInfo{}, err
		}
		return v, dcm.StudyInfo{SliceCount: v.Depth}, nil
	case ".dcm":
		return dcm.ReadVolumeFile(inputRef)
	default:
		return nil, dcm.StudyInfo{}, fmt.Errorf("input %s: unsupported file type", inputRef)
	}
}
