package dcm

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func mustNewElement(t *testing.T, tg tag.Tag, data interface{}) *dicom.Element {
	t.Helper()
	el, err := dicom.NewElement(tg, data)
	if err != nil {
		t.Fatalf("failed to create element %v: %v", tg, err)
	}
	return el
}

type sliceSpec struct {
	seriesUID string
	patientID string
	instance  int
	rows      int
	cols      int
	positionZ float64
	value     uint16 // raw pixel value for every voxel of the slice
}

// writeTestSlice generates one synthetic CT slice file.
func writeTestSlice(t *testing.T, path string, spec sliceSpec) {
	t.Helper()

	nf := frame.NewNativeFrame[uint16](16, spec.rows, spec.cols, spec.rows*spec.cols, 1)
	for i := range nf.RawData {
		nf.RawData[i] = spec.value
	}
	pixelData := dicom.PixelDataInfo{
		Frames: []*frame.Frame{
			{
				Encapsulated: false,
				NativeData:   nf,
			},
		},
	}

	elements := []*dicom.Element{
		mustNewElement(t, tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(t, tag.SOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.2"}),
		mustNewElement(t, tag.SOPInstanceUID, []string{fmt.Sprintf("1.2.3.%s.%d", spec.seriesUID, spec.instance)}),
		mustNewElement(t, tag.PatientID, []string{spec.patientID}),
		mustNewElement(t, tag.SeriesInstanceUID, []string{spec.seriesUID}),
		mustNewElement(t, tag.Modality, []string{"CT"}),
		mustNewElement(t, tag.BodyPartExamined, []string{"HEAD"}),
		mustNewElement(t, tag.InstanceNumber, []string{fmt.Sprintf("%d", spec.instance)}),
		mustNewElement(t, tag.PixelSpacing, []string{"0.500000", "0.500000"}),
		mustNewElement(t, tag.SliceThickness, []string{"1.250000"}),
		mustNewElement(t, tag.ImagePositionPatient, []string{
			"-10.000000", "-20.000000", fmt.Sprintf("%.6f", spec.positionZ),
		}),
		mustNewElement(t, tag.RescaleIntercept, []string{"-1024.000000"}),
		mustNewElement(t, tag.RescaleSlope, []string{"1.000000"}),
		mustNewElement(t, tag.Rows, []int{spec.rows}),
		mustNewElement(t, tag.Columns, []int{spec.cols}),
		mustNewElement(t, tag.BitsAllocated, []int{16}),
		mustNewElement(t, tag.BitsStored, []int{16}),
		mustNewElement(t, tag.HighBit, []int{15}),
		mustNewElement(t, tag.PixelRepresentation, []int{0}),
		mustNewElement(t, tag.SamplesPerPixel, []int{1}),
		mustNewElement(t, tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
		mustNewElement(t, tag.PixelData, pixelData),
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := dicom.Write(f, dicom.Dataset{Elements: elements}); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// writeTestSeries writes count slices of one series into dir, with file
// names deliberately unordered relative to slice position.
func writeTestSeries(t *testing.T, dir, seriesUID, patientID string, count int, value uint16) {
	t.Helper()
	for i := 0; i < count; i++ {
		// Reverse file naming so alphabetic order disagrees with physical.
		name := fmt.Sprintf("slice_%03d.dcm", count-i)
		writeTestSlice(t, filepath.Join(dir, name), sliceSpec{
			seriesUID: seriesUID,
			patientID: patientID,
			instance:  i + 1,
			rows:      8,
			cols:      8,
			positionZ: float64(i) * 1.25,
			value:     value,
		})
	}
}

// TestProbeLargestSeries verifies header-only probing reports the biggest
// series and its patient identity.
func TestProbeLargestSeries(t *testing.T) {
	dir := t.TempDir()
	writeTestSeries(t, dir, "1.2.840.1111", "PAT-001", 5, 1024)
	sub := filepath.Join(dir, "scout")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeTestSeries(t, sub, "1.2.840.2222", "PAT-001", 2, 1024)

	info, err := Probe(dir)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if info.SeriesUID != "1.2.840.1111" {
		t.Errorf("probe picked series %q, want the 5-slice series", info.SeriesUID)
	}
	if info.SliceCount != 5 {
		t.Errorf("probe counted %d slices, want 5", info.SliceCount)
	}
	if info.PatientID != "PAT-001" {
		t.Errorf("probe patient %q, want PAT-001", info.PatientID)
	}
	if info.Modality != "CT" || info.BodyPart != "HEAD" {
		t.Errorf("probe metadata %q/%q, want CT/HEAD", info.Modality, info.BodyPart)
	}
}

// TestLoadLargestSeries verifies volume assembly: physical slice order,
// spacing, origin, and Hounsfield rescale.
func TestLoadLargestSeries(t *testing.T) {
	dir := t.TempDir()
	writeTestSeries(t, dir, "1.2.840.1111", "PAT-002", 4, 1224) // 1224 raw -> 200 HU

	vol, info, err := LoadLargestSeries(dir)
	if err != nil {
		t.Fatalf("LoadLargestSeries failed: %v", err)
	}
	if info.SliceCount != 4 {
		t.Errorf("loaded %d slices, want 4", info.SliceCount)
	}
	if vol.Width != 8 || vol.Height != 8 || vol.Depth != 4 {
		t.Fatalf("volume dims %dx%dx%d, want 8x8x4", vol.Width, vol.Height, vol.Depth)
	}

	// Raw 1224 with intercept -1024 and slope 1 is 200 HU.
	if got := vol.At(3, 3, 0); math.Abs(got-200) > 1e-6 {
		t.Errorf("voxel value %f HU, want 200", got)
	}

	if math.Abs(vol.Spacing.X-0.5) > 1e-9 || math.Abs(vol.Spacing.Y-0.5) > 1e-9 {
		t.Errorf("in-plane spacing %+v, want 0.5", vol.Spacing)
	}
	if math.Abs(vol.Spacing.Z-1.25) > 1e-9 {
		t.Errorf("slice spacing %f, want 1.25 from position delta", vol.Spacing.Z)
	}
	if math.Abs(vol.Origin.X+10) > 1e-9 || math.Abs(vol.Origin.Y+20) > 1e-9 || math.Abs(vol.Origin.Z) > 1e-9 {
		t.Errorf("origin %+v, want (-10,-20,0): slices must be physically ordered", vol.Origin)
	}
}

// TestLoadPicksLargestOfTwoSeries verifies series selection by slice count.
func TestLoadPicksLargestOfTwoSeries(t *testing.T) {
	dir := t.TempDir()
	writeTestSeries(t, dir, "1.2.840.1111", "PAT-003", 3, 500)
	for i := 0; i < 6; i++ {
		writeTestSlice(t, filepath.Join(dir, fmt.Sprintf("b_%d.dcm", i)), sliceSpec{
			seriesUID: "1.2.840.3333",
			patientID: "PAT-003",
			instance:  i + 1,
			rows:      8,
			cols:      8,
			positionZ: float64(i),
			value:     2048,
		})
	}

	vol, info, err := LoadLargestSeries(dir)
	if err != nil {
		t.Fatalf("LoadLargestSeries failed: %v", err)
	}
	if info.SeriesUID != "1.2.840.3333" {
		t.Errorf("loaded series %q, want the 6-slice series", info.SeriesUID)
	}
	if vol.Depth != 6 {
		t.Errorf("volume depth %d, want 6", vol.Depth)
	}
}

// TestProbeEmptyDir verifies the error taxonomy for studies with no slices.
func TestProbeEmptyDir(t *testing.T) {
	_, err := Probe(t.TempDir())
	if err == nil {
		t.Fatal("expected error for empty study directory")
	}
	var ioErr *StudyIOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected StudyIOError, got %T: %v", err, err)
	}
}

// TestCountSliceFiles verifies the cheap discovery counter.
func TestCountSliceFiles(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("s%d.dcm", i)), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := CountSliceFiles(dir); got != 3 {
		t.Errorf("counted %d slice files, want 3", got)
	}
}
