// Package stl provides binary STL reading/writing of triangle soups and
// iso-surface extraction from volumetric scalar fields.
package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Triangle is a single surface triangle with an outward-facing normal.
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

const headerComment = "dicom2mesh binary STL"

// SaveToSTL writes the triangles to a binary STL file. The file is written
// to a temporary sibling and renamed into place, so a failed write never
// leaves a partial output file behind.
func SaveToSTL(path string, triangles []Triangle) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".stl-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary STL file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	header := make([]byte, 80)
	copy(header, headerComment)
	if _, err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write STL header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(triangles))); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write STL triangle count: %w", err)
	}
	for i := range triangles {
		if err := writeTriangle(w, &triangles[i]); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write STL triangle %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush STL file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close STL file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move STL file into place: %w", err)
	}
	return nil
}

func writeTriangle(w io.Writer, t *Triangle) error {
	for _, vec := range [][3]float32{t.Normal, t.Vertex1, t.Vertex2, t.Vertex3} {
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			return err
		}
	}
	// Attribute byte count, unused.
	return binary.Write(w, binary.LittleEndian, uint16(0))
}

// ReadSTL loads a binary STL file.
func ReadSTL(path string) ([]Triangle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header := make([]byte, 80)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("failed to read STL header: %w", err)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read STL triangle count: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	// Each binary triangle record is 50 bytes. A mismatch usually means an
	// ASCII STL, which this reader does not handle.
	if want := int64(84) + int64(count)*50; info.Size() != want {
		return nil, fmt.Errorf("STL size %d does not match %d triangles (ASCII STL is not supported)",
			info.Size(), count)
	}

	triangles := make([]Triangle, count)
	var attr uint16
	for i := range triangles {
		t := &triangles[i]
		for _, vec := range []*[3]float32{&t.Normal, &t.Vertex1, &t.Vertex2, &t.Vertex3} {
			if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
				return nil, fmt.Errorf("failed to read STL triangle %d: %w", i, err)
			}
		}
		if err := binary.Read(r, binary.LittleEndian, &attr); err != nil {
			return nil, fmt.Errorf("failed to read STL triangle %d: %w", i, err)
		}
	}
	return triangles, nil
}
