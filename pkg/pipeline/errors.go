package pipeline

import "fmt"

// PreprocessError reports a failure in one of the volumetric filter stages.
type PreprocessError struct {
	Stage string
	Err   error
}

func (e *PreprocessError) Error() string {
	return fmt.Sprintf("preprocess stage %s: %v", e.Stage, e.Err)
}

func (e *PreprocessError) Unwrap() error { return e.Err }

// ConversionError reports a volume that cannot be handed to the surface
// extractor, typically missing or degenerate spacing.
type ConversionError struct {
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("volume to mesh input: %s", e.Reason)
}

// MeshStageError reports a failure in one of the mesh finishing stages.
type MeshStageError struct {
	Stage string
	Err   error
}

func (e *MeshStageError) Error() string {
	return fmt.Sprintf("mesh stage %s: %v", e.Stage, e.Err)
}

func (e *MeshStageError) Unwrap() error { return e.Err }
