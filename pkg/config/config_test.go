package config

import (
	"os"
	"path/filepath"
	"testing"

	"dicom2mesh/pkg/batch"
	"dicom2mesh/pkg/pipeline"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Pipeline.Preset != "default" {
		t.Errorf("preset %q, want default", cfg.Pipeline.Preset)
	}
	if cfg.Batch.MinSlices != batch.DefaultMinSlices {
		t.Errorf("min slices %d, want %d", cfg.Batch.MinSlices, batch.DefaultMinSlices)
	}
	if cfg.Pipeline.Isovalue != nil {
		t.Error("isovalue should be unset by default")
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Pipeline.Preset != "default" {
		t.Errorf("preset %q, want default", cfg.Pipeline.Preset)
	}
}

func TestLoadOverridesOnlyMentionedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := `
pipeline:
  preset: skull-tuned
  reduction: 0.5
batch:
  dedup: true
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Pipeline.Preset != "skull-tuned" {
		t.Errorf("preset %q, want skull-tuned", cfg.Pipeline.Preset)
	}
	if cfg.Pipeline.Reduction == nil || *cfg.Pipeline.Reduction != 0.5 {
		t.Errorf("reduction %v, want 0.5", cfg.Pipeline.Reduction)
	}
	if cfg.Pipeline.SmoothIterations != nil {
		t.Error("unmentioned smoothIterations should stay unset")
	}
	if !cfg.Batch.Dedup {
		t.Error("dedup should be enabled")
	}
	if cfg.Batch.MinSlices != batch.DefaultMinSlices {
		t.Errorf("unmentioned minSlices %d, want default %d", cfg.Batch.MinSlices, batch.DefaultMinSlices)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("pipeline: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run.yaml")
	cfg := DefaultConfig()
	cfg.Pipeline.Tissue = "bone"
	cfg.Output.Verbose = true
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Pipeline.Tissue != "bone" || !loaded.Output.Verbose {
		t.Errorf("round trip lost fields: tissue=%q verbose=%v", loaded.Pipeline.Tissue, loaded.Output.Verbose)
	}
}

func TestPipelineOptionsResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := `
pipeline:
  tissue: bone
  smoothIterations: 10
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	resolved, err := pipeline.Resolve(cfg.PipelineOptions(), cfg.Pipeline.Preset)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Tissue != "bone" {
		t.Errorf("tissue %q, want bone", resolved.Tissue)
	}
	if resolved.SmoothIterations != 10 {
		t.Errorf("smooth iterations %d, want 10", resolved.SmoothIterations)
	}
}
