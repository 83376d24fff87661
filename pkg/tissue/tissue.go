// Package tissue holds the CT tissue parameter table: empirically derived
// Hounsfield-unit threshold bands per tissue type. The values are fixed domain
// knowledge; changing them is a content edit, not a code change.
package tissue

import (
	"fmt"
	"sort"
)

// Config describes the thresholding parameters for one tissue type.
// Thresholds is a four-value hysteresis band (t1 <= t2 <= t3 <= t4): voxels
// inside [t2,t3] seed the segmentation, which grows through voxels inside
// [t1,t4]. UseMedian marks tissue types whose thresholded volumes are noisy
// enough to need a median pass. Isovalue is the surface-extraction level for
// the binary volume the threshold produces.
type Config struct {
	Name       string
	Thresholds [4]float64
	UseMedian  bool
	Isovalue   float64
}

// Low returns the lower bound of the admitted intensity band.
func (c Config) Low() float64 { return c.Thresholds[0] }

// High returns the upper bound of the admitted intensity band.
func (c Config) High() float64 { return c.Thresholds[3] }

// BinaryIsovalue is the extraction level for double-thresholded volumes,
// where foreground voxels are written as 255.
const BinaryIsovalue = 64.0

var table = map[string]Config{
	"bone": {
		Name:       "bone",
		Thresholds: [4]float64{200, 800, 1300, 1500},
		Isovalue:   BinaryIsovalue,
	},
	"skin": {
		Name:       "skin",
		Thresholds: [4]float64{-200, 0, 500, 1500},
		Isovalue:   BinaryIsovalue,
	},
	"muscle": {
		Name:       "muscle",
		Thresholds: [4]float64{-5, 35, 55, 100},
		UseMedian:  true,
		Isovalue:   BinaryIsovalue,
	},
	"soft": {
		Name:       "soft",
		Thresholds: [4]float64{-15, 30, 58, 100},
		UseMedian:  true,
		Isovalue:   BinaryIsovalue,
	},
	"fat": {
		Name:       "fat",
		Thresholds: [4]float64{-122, -112, -96, -70},
		UseMedian:  true,
		Isovalue:   BinaryIsovalue,
	},
}

// UnknownTissueError reports a tissue name with no table entry.
type UnknownTissueError struct {
	Name string
}

func (e *UnknownTissueError) Error() string {
	return fmt.Sprintf("unknown tissue type %q (supported: %v)", e.Name, Names())
}

// Lookup returns the parameter table entry for the named tissue type.
// "soft_tissue" is accepted as an alias for "soft".
func Lookup(name string) (Config, error) {
	key := name
	if key == "soft_tissue" {
		key = "soft"
	}
	cfg, ok := table[key]
	if !ok {
		return Config{}, &UnknownTissueError{Name: name}
	}
	return cfg, nil
}

// Names returns the supported tissue type names in sorted order.
func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
