// Package dcm reads DICOM series into volumes. It scans a study directory
// recursively, groups slice files by SeriesInstanceUID, and assembles the
// largest series into a single ordered 3D volume with physical spacing,
// applying the modality rescale so voxel values carry Hounsfield units.
package dcm

import (
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"dicom2mesh/internal/models"
)

// StudyIOError reports an unreadable or malformed study directory.
type StudyIOError struct {
	Path string
	Err  error
}

func (e *StudyIOError) Error() string {
	return fmt.Sprintf("study %s: %v", e.Path, e.Err)
}

func (e *StudyIOError) Unwrap() error { return e.Err }

// StudyInfo summarizes the largest series found in a study directory.
type StudyInfo struct {
	SeriesUID  string
	PatientID  string
	Modality   string
	BodyPart   string
	SliceCount int
}

// ScanDir returns every .dcm file under the directory, recursively.
func ScanDir(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".dcm") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &StudyIOError{Path: dir, Err: err}
	}
	sort.Strings(files)
	return files, nil
}

// Probe inspects slice headers only (pixel data skipped) and reports the
// largest series in the directory. Used by the batch quality gate and the
// deduplication key derivation, where decoding every voxel would be waste.
func Probe(dir string) (StudyInfo, error) {
	files, err := ScanDir(dir)
	if err != nil {
		return StudyInfo{}, err
	}
	if len(files) == 0 {
		return StudyInfo{}, &StudyIOError{Path: dir, Err: fmt.Errorf("no .dcm files found")}
	}

	counts := make(map[string]int)
	infos := make(map[string]StudyInfo)
	for _, path := range files {
		ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
		if err != nil {
			// A single unreadable slice does not disqualify the study.
			continue
		}
		uid := stringTag(&ds, tag.SeriesInstanceUID)
		counts[uid]++
		if _, seen := infos[uid]; !seen {
			infos[uid] = StudyInfo{
				SeriesUID: uid,
				PatientID: stringTag(&ds, tag.PatientID),
				Modality:  stringTag(&ds, tag.Modality),
				BodyPart:  stringTag(&ds, tag.BodyPartExamined),
			}
		}
	}
	if len(counts) == 0 {
		return StudyInfo{}, &StudyIOError{Path: dir, Err: fmt.Errorf("no readable DICOM slices")}
	}

	best := ""
	for uid, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && uid < best) {
			best = uid
		}
	}
	info := infos[best]
	info.SliceCount = counts[best]
	return info, nil
}

// dcmSlice is one parsed slice pending volume assembly.
type dcmSlice struct {
	rows, cols int
	position   float64 // z component of ImagePositionPatient
	hasPos     bool
	instance   int
	origin     [3]float64
	rowSpacing float64
	colSpacing float64
	thickness  float64
	intercept  float64
	slope      float64
	pixels     []float64
}

// LoadLargestSeries loads the series with the most slices from a recursive
// scan of the directory and assembles it into a volume in physical order.
func LoadLargestSeries(dir string) (*models.Volume, StudyInfo, error) {
	files, err := ScanDir(dir)
	if err != nil {
		return nil, StudyInfo{}, err
	}
	if len(files) == 0 {
		return nil, StudyInfo{}, &StudyIOError{Path: dir, Err: fmt.Errorf("no .dcm files found")}
	}

	series := make(map[string][]*dcmSlice)
	infos := make(map[string]StudyInfo)
	for _, path := range files {
		ds, err := dicom.ParseFile(path, nil)
		if err != nil {
			continue
		}
		sl, err := parseSlice(&ds)
		if err != nil {
			continue
		}
		uid := stringTag(&ds, tag.SeriesInstanceUID)
		series[uid] = append(series[uid], sl)
		if _, seen := infos[uid]; !seen {
			infos[uid] = StudyInfo{
				SeriesUID: uid,
				PatientID: stringTag(&ds, tag.PatientID),
				Modality:  stringTag(&ds, tag.Modality),
				BodyPart:  stringTag(&ds, tag.BodyPartExamined),
			}
		}
	}

	best := ""
	for uid, slices := range series {
		if best == "" || len(slices) > len(series[best]) || (len(slices) == len(series[best]) && uid < best) {
			best = uid
		}
	}
	if best == "" {
		return nil, StudyInfo{}, &StudyIOError{Path: dir, Err: fmt.Errorf("no readable DICOM slices")}
	}

	vol, err := assembleVolume(series[best])
	if err != nil {
		return nil, StudyInfo{}, &StudyIOError{Path: dir, Err: err}
	}
	info := infos[best]
	info.SliceCount = len(series[best])
	return vol, info, nil
}

// ReadVolumeFile loads a one-slice DICOM file as a (degenerate) volume; the
// single-file path of the pipeline uses this for standalone .dcm inputs.
func ReadVolumeFile(path string) (*models.Volume, StudyInfo, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, StudyInfo{}, &StudyIOError{Path: path, Err: err}
	}
	sl, err := parseSlice(&ds)
	if err != nil {
		return nil, StudyInfo{}, &StudyIOError{Path: path, Err: err}
	}
	vol, err := assembleVolume([]*dcmSlice{sl})
	if err != nil {
		return nil, StudyInfo{}, &StudyIOError{Path: path, Err: err}
	}
	info := StudyInfo{
		SeriesUID:  stringTag(&ds, tag.SeriesInstanceUID),
		PatientID:  stringTag(&ds, tag.PatientID),
		Modality:   stringTag(&ds, tag.Modality),
		BodyPart:   stringTag(&ds, tag.BodyPartExamined),
		SliceCount: 1,
	}
	return vol, info, nil
}

func parseSlice(ds *dicom.Dataset) (*dcmSlice, error) {
	sl := &dcmSlice{slope: 1, rowSpacing: 1, colSpacing: 1}

	sl.rows = intTag(ds, tag.Rows, 0)
	sl.cols = intTag(ds, tag.Columns, 0)
	if sl.rows <= 0 || sl.cols <= 0 {
		return nil, fmt.Errorf("slice missing Rows/Columns")
	}

	if spacing, ok := floatsTag(ds, tag.PixelSpacing, 2); ok {
		// PixelSpacing is row spacing then column spacing.
		sl.rowSpacing, sl.colSpacing = spacing[0], spacing[1]
	}
	if pos, ok := floatsTag(ds, tag.ImagePositionPatient, 3); ok {
		sl.origin = [3]float64{pos[0], pos[1], pos[2]}
		sl.position = pos[2]
		sl.hasPos = true
	}
	sl.instance = intTag(ds, tag.InstanceNumber, 0)
	sl.thickness = floatTag(ds, tag.SliceThickness, 0)
	sl.intercept = floatTag(ds, tag.RescaleIntercept, 0)
	sl.slope = floatTag(ds, tag.RescaleSlope, 1)

	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("slice missing PixelData")
	}
	info := dicom.MustGetPixelDataInfo(el.Value)
	if info.IsEncapsulated || len(info.Frames) == 0 {
		return nil, fmt.Errorf("unsupported encapsulated or empty pixel data")
	}

	raw := info.Frames[0].NativeData.RawDataSlice()
	n := sl.rows * sl.cols
	sl.pixels = make([]float64, n)
	switch data := raw.(type) {
	case []uint8:
		for i := 0; i < n && i < len(data); i++ {
			sl.pixels[i] = sl.slope*float64(data[i]) + sl.intercept
		}
	case []int8:
		for i := 0; i < n && i < len(data); i++ {
			sl.pixels[i] = sl.slope*float64(data[i]) + sl.intercept
		}
	case []uint16:
		for i := 0; i < n && i < len(data); i++ {
			sl.pixels[i] = sl.slope*float64(data[i]) + sl.intercept
		}
	case []int16:
		for i := 0; i < n && i < len(data); i++ {
			sl.pixels[i] = sl.slope*float64(data[i]) + sl.intercept
		}
	case []uint32:
		for i := 0; i < n && i < len(data); i++ {
			sl.pixels[i] = sl.slope*float64(data[i]) + sl.intercept
		}
	case []int32:
		for i := 0; i < n && i < len(data); i++ {
			sl.pixels[i] = sl.slope*float64(data[i]) + sl.intercept
		}
	default:
		return nil, fmt.Errorf("unsupported pixel data type %T", raw)
	}
	return sl, nil
}

func assembleVolume(slices []*dcmSlice) (*models.Volume, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("empty series")
	}

	// DICOM slice files are not necessarily ordered the same alphabetically
	// as they are physically; order by patient position, falling back to
	// instance number.
	sort.SliceStable(slices, func(i, j int) bool {
		if slices[i].hasPos && slices[j].hasPos {
			return slices[i].position < slices[j].position
		}
		return slices[i].instance < slices[j].instance
	})

	first := slices[0]
	for _, sl := range slices {
		if sl.rows != first.rows || sl.cols != first.cols {
			return nil, fmt.Errorf("inconsistent slice dimensions %dx%d vs %dx%d",
				sl.cols, sl.rows, first.cols, first.rows)
		}
	}

	zSpacing := first.thickness
	if len(slices) > 1 && slices[0].hasPos && slices[1].hasPos {
		if dz := math.Abs(slices[1].position - slices[0].position); dz > 0 {
			zSpacing = dz
		}
	}
	if zSpacing <= 0 {
		zSpacing = 1
	}

	vol := &models.Volume{
		Width:  first.cols,
		Height: first.rows,
		Depth:  len(slices),
		Spacing: models.Vec3{
			X: first.colSpacing,
			Y: first.rowSpacing,
			Z: zSpacing,
		},
		Origin: models.Vec3{X: first.origin[0], Y: first.origin[1], Z: first.origin[2]},
	}
	vol.Data = make([]float64, vol.Width*vol.Height*vol.Depth)
	for z, sl := range slices {
		copy(vol.Data[z*vol.Width*vol.Height:(z+1)*vol.Width*vol.Height], sl.pixels)
	}

	if err := vol.Validate(); err != nil {
		return nil, err
	}
	return vol, nil
}

// Tag value helpers. DICOM decimal (DS) and integer (IS) values arrive as
// strings; binary US values arrive as []int.

func stringTag(ds *dicom.Dataset, t tag.Tag) string {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return ""
	}
	vals := el.Value.GetValue()
	if strs, ok := vals.([]string); ok && len(strs) > 0 {
		return strings.TrimSpace(strs[0])
	}
	return ""
}

func intTag(ds *dicom.Dataset, t tag.Tag, fallback int) int {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return fallback
	}
	switch vals := el.Value.GetValue().(type) {
	case []int:
		if len(vals) > 0 {
			return vals[0]
		}
	case []string:
		if len(vals) > 0 {
			if n, err := strconv.Atoi(strings.TrimSpace(vals[0])); err == nil {
				return n
			}
		}
	}
	return fallback
}

func floatTag(ds *dicom.Dataset, t tag.Tag, fallback float64) float64 {
	if vals, ok := floatsTag(ds, t, 1); ok {
		return vals[0]
	}
	return fallback
}

func floatsTag(ds *dicom.Dataset, t tag.Tag, n int) ([]float64, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return nil, false
	}
	strs, ok := el.Value.GetValue().([]string)
	if !ok || len(strs) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		val, err := strconv.ParseFloat(strings.TrimSpace(strs[i]), 64)
		if err != nil {
			return nil, false
		}
		out[i] = val
	}
	return out, true
}

// CountSliceFiles counts .dcm files directly, without parsing; batch
// discovery uses it when a directory fails to probe.
func CountSliceFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".dcm") {
			count++
		}
	}
	return count
}
