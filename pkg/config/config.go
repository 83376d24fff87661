// Package config loads run configuration for dicom2mesh from YAML files.
// Flags still win over the file; the file wins over the preset.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"dicom2mesh/pkg/batch"
	"dicom2mesh/pkg/pipeline"
)

// Config is the application configuration as loaded from YAML. Pointer
// fields distinguish "not set" from an explicit zero so the file only
// overrides what it mentions.
type Config struct {
	Pipeline struct {
		// Preset names a tuned parameter bundle: "default" or "skull-tuned".
		Preset string `yaml:"preset"`

		// Tissue selects a threshold band from the tissue table (bone, skin,
		// muscle, soft, fat). Mutually exclusive with isovalue.
		Tissue string `yaml:"tissue"`

		// Isovalue is the raw surface-extraction level, for runs without
		// tissue thresholding.
		Isovalue *float64 `yaml:"isovalue"`

		SmoothIterations *int     `yaml:"smoothIterations"`
		Reduction        *float64 `yaml:"reduction"`

		Shrink       *bool `yaml:"shrink"`
		ShrinkMaxDim *int  `yaml:"shrinkMaxDim"`
		Anisotropic  *bool `yaml:"anisotropic"`
		Median       *bool `yaml:"median"`
		PadVoxels    *int  `yaml:"padVoxels"`

		Rotate        *bool    `yaml:"rotate"`
		RotationAxis  *int     `yaml:"rotationAxis"`
		RotationAngle *float64 `yaml:"rotationAngle"`

		// CTOnly rejects inputs whose modality is not CT.
		CTOnly bool `yaml:"ctOnly"`
	} `yaml:"pipeline"`

	Batch struct {
		// MinSlices is the quality gate: studies with fewer slices are
		// skipped.
		MinSlices int `yaml:"minSlices"`

		// Dedup skips repeat studies of the same patient.
		Dedup bool `yaml:"dedup"`

		// OutPrefix is prepended to every batch output file name.
		OutPrefix string `yaml:"outPrefix"`
	} `yaml:"batch"`

	Output struct {
		// PreviewDir, when set, receives JPEG slice previews of the
		// preprocessed volume.
		PreviewDir string `yaml:"previewDir"`

		// KeepIntermediate preserves the full meshes of a two-stage run.
		KeepIntermediate bool `yaml:"keepIntermediate"`

		// Verbose enables debug-level logging.
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Pipeline.Preset = "default"
	cfg.Batch.MinSlices = batch.DefaultMinSlices
	return cfg
}

// LoadConfig loads configuration from a YAML file. A missing file is not an
// error; it yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the configuration to a YAML file, creating parent
// directories as needed.
func SaveConfig(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// CreateDefaultConfigFile writes the default configuration to a file, as a
// starting point for editing.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// PipelineOptions maps the file's pipeline section onto the option set the
// resolver consumes.
func (c *Config) PipelineOptions() pipeline.Options {
	p := c.Pipeline
	return pipeline.Options{
		Tissue:           p.Tissue,
		Isovalue:         p.Isovalue,
		SmoothIterations: p.SmoothIterations,
		Reduction:        p.Reduction,
		Shrink:           p.Shrink,
		ShrinkMaxDim:     p.ShrinkMaxDim,
		Anisotropic:      p.Anisotropic,
		MedianFilter:     p.Median,
		PadVoxels:        p.PadVoxels,
		Rotate:           p.Rotate,
		RotationAxis:     p.RotationAxis,
		RotationAngle:    p.RotationAngle,
		CTOnly:           p.CTOnly,
		PreviewDir:       c.Output.PreviewDir,
	}
}
