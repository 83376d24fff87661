package volume

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"dicom2mesh/internal/models"
)

// ReadMetaImage loads a single-file MetaImage (.mha) volume with local,
// uncompressed raw data. Supported element types cover what CT exports
// produce: MET_UCHAR, MET_SHORT, MET_USHORT, MET_INT, MET_FLOAT, MET_DOUBLE.
func ReadMetaImage(path string) (*models.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	v := &models.Volume{Spacing: models.Vec3{X: 1, Y: 1, Z: 1}}
	elementType := ""

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("reading metaimage header: %w", err)
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed metaimage header line %q", strings.TrimSpace(line))
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "ObjectType":
			if value != "Image" {
				return nil, fmt.Errorf("unsupported metaimage object type %q", value)
			}
		case "NDims":
			if value != "3" {
				return nil, fmt.Errorf("unsupported metaimage dimensionality %q", value)
			}
		case "CompressedData":
			if strings.EqualFold(value, "true") {
				return nil, fmt.Errorf("compressed metaimage data is not supported")
			}
		case "DimSize":
			dims, err := parseInts(value, 3)
			if err != nil {
				return nil, fmt.Errorf("parsing DimSize: %w", err)
			}
			v.Width, v.Height, v.Depth = dims[0], dims[1], dims[2]
		case "ElementSpacing":
			sp, err := parseFloats(value, 3)
			if err != nil {
				return nil, fmt.Errorf("parsing ElementSpacing: %w", err)
			}
			v.Spacing = models.Vec3{X: sp[0], Y: sp[1], Z: sp[2]}
		case "Offset", "Origin":
			of, err := parseFloats(value, 3)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", key, err)
			}
			v.Origin = models.Vec3{X: of[0], Y: of[1], Z: of[2]}
		case "ElementType":
			elementType = value
		case "ElementDataFile":
			if value != "LOCAL" {
				return nil, fmt.Errorf("only local metaimage data is supported, got %q", value)
			}
			return readMetaImageData(r, v, elementType)
		}
	}
}

func readMetaImageData(r *bufio.Reader, v *models.Volume, elementType string) (*models.Volume, error) {
	n := v.Width * v.Height * v.Depth
	if n <= 0 {
		return nil, fmt.Errorf("metaimage header missing DimSize")
	}
	v.Data = make([]float64, n)

	switch elementType {
	case "MET_UCHAR":
		buf := make([]uint8, n)
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return nil, fmt.Errorf("reading metaimage data: %w", err)
		}
		for i, val := range buf {
			v.Data[i] = float64(val)
		}
	case "MET_SHORT":
		buf := make([]int16, n)
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return nil, fmt.Errorf("reading metaimage data: %w", err)
		}
		for i, val := range buf {
			v.Data[i] = float64(val)
		}
	case "MET_USHORT":
		buf := make([]uint16, n)
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return nil, fmt.Errorf("reading metaimage data: %w", err)
		}
		for i, val := range buf {
			v.Data[i] = float64(val)
		}
	case "MET_INT":
		buf := make([]int32, n)
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return nil, fmt.Errorf("reading metaimage data: %w", err)
		}
		for i, val := range buf {
			v.Data[i] = float64(val)
		}
	case "MET_FLOAT":
		buf := make([]float32, n)
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return nil, fmt.Errorf("reading metaimage data: %w", err)
		}
		for i, val := range buf {
			v.Data[i] = float64(val)
		}
	case "MET_DOUBLE":
		if err := binary.Read(r, binary.LittleEndian, v.Data); err != nil {
			return nil, fmt.Errorf("reading metaimage data: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported metaimage element type %q", elementType)
	}

	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// WriteMetaImage saves the volume as a single-file MetaImage with MET_FLOAT
// local data, the format the preview surface uses to dump the preprocessed
// volume.
func WriteMetaImage(path string, v *models.Volume) error {
	if err := v.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "ObjectType = Image\n")
	fmt.Fprintf(w, "NDims = 3\n")
	fmt.Fprintf(w, "BinaryData = True\n")
	fmt.Fprintf(w, "BinaryDataByteOrderMSB = False\n")
	fmt.Fprintf(w, "CompressedData = False\n")
	fmt.Fprintf(w, "DimSize = %d %d %d\n", v.Width, v.Height, v.Depth)
	fmt.Fprintf(w, "ElementSpacing = %g %g %g\n", v.Spacing.X, v.Spacing.Y, v.Spacing.Z)
	fmt.Fprintf(w, "Offset = %g %g %g\n", v.Origin.X, v.Origin.Y, v.Origin.Z)
	fmt.Fprintf(w, "ElementType = MET_FLOAT\n")
	fmt.Fprintf(w, "ElementDataFile = LOCAL\n")

	buf := make([]float32, len(v.Data))
	for i, val := range v.Data {
		buf[i] = float32(val)
	}
	if err := binary.Write(w, binary.LittleEndian, buf); err != nil {
		return fmt.Errorf("writing metaimage data: %w", err)
	}
	return w.Flush()
}

func parseInts(s string, n int) ([]int, error) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d values, got %q", n, s)
	}
	out := make([]int, n)
	for i, field := range fields {
		val, err := strconv.Atoi(field)
		if err != nil {
			return nil, err
		}
		if val <= 0 {
			return nil, fmt.Errorf("value must be positive, got %d", val)
		}
		out[i] = val
	}
	return out, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d values, got %q", n, s)
	}
	out := make([]float64, n)
	for i, field := range fields {
		val, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("value must be finite, got %f", val)
		}
		out[i] = val
	}
	return out, nil
}
