// Package annotation defines the bounding-box model and the per-image
// annotation file format consumed by the training pipeline.
//
// The wire format is one line per labeled box:
//
//	<class_index> <cx/W> <cy/H> <w/W> <h/H>
//
// with the class index zero-based and the coordinates normalized to
// the dimensions of the image the boxes were drawn on. This format is
// a fixed external contract; changing it breaks the downstream
// pipeline.
package annotation

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Unlabeled marks a box that has been drawn but not yet assigned a
// class by the operator.
const Unlabeled = -1

// Box is a rectangle in pixel coordinates of the displayed image plus
// an assigned class index.
type Box struct {
	X0, Y0, X1, Y1 int
	Label          int
}

// Normalize orders the corners so X0 <= X1 and Y0 <= Y1.
func (b Box) Normalize() Box {
	if b.X0 > b.X1 {
		b.X0, b.X1 = b.X1, b.X0
	}
	if b.Y0 > b.Y1 {
		b.Y0, b.Y1 = b.Y1, b.Y0
	}
	return b
}

// Clip restricts the box to a width x height image. Coordinates in an
// annotation file must stay inside the displayed image, so every box
// is clipped before it is committed.
func (b Box) Clip(width, height int) Box {
	b = b.Normalize()
	b.X0 = clampInt(b.X0, 0, width)
	b.X1 = clampInt(b.X1, 0, width)
	b.Y0 = clampInt(b.Y0, 0, height)
	b.Y1 = clampInt(b.Y1, 0, height)
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Area returns the box area in pixels.
func (b Box) Area() int {
	b = b.Normalize()
	return (b.X1 - b.X0) * (b.Y1 - b.Y0)
}

// Contains reports whether the point lies inside the box, borders
// included.
func (b Box) Contains(x, y int) bool {
	b = b.Normalize()
	return b.X0 <= x && x <= b.X1 && b.Y0 <= y && y <= b.Y1
}

// Tagged reports whether the box has a class assigned.
func (b Box) Tagged() bool {
	return b.Label != Unlabeled
}

// Line is one decoded annotation file record in normalized
// center-size form.
type Line struct {
	Class        int
	Cx, Cy, W, H float64
}

// Encode serializes boxes drawn on a width x height image into the
// annotation line format, one box per line in creation order.
func Encode(boxes []Box, width, height int) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("invalid image size %dx%d", width, height)
	}
	var sb strings.Builder
	fw, fh := float64(width), float64(height)
	for _, b := range boxes {
		if !b.Tagged() {
			return "", fmt.Errorf("box (%d,%d)-(%d,%d) has no label", b.X0, b.Y0, b.X1, b.Y1)
		}
		b = b.Normalize()
		cx := float64(b.X0+b.X1) / 2 / fw
		cy := float64(b.Y0+b.Y1) / 2 / fh
		w := float64(b.X1-b.X0) / fw
		h := float64(b.Y1-b.Y0) / fh
		sb.WriteString(fmt.Sprintf("%d %s %s %s %s\n",
			b.Label, ftoa(cx), ftoa(cy), ftoa(w), ftoa(h)))
	}
	return sb.String(), nil
}

// Decode parses annotation file contents. Blank lines are ignored.
func Decode(data string) ([]Line, error) {
	var lines []Line
	for i, raw := range strings.Split(data, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		fields := strings.Fields(raw)
		if len(fields) != 5 {
			return nil, fmt.Errorf("line %d: expected 5 fields, got %d", i+1, len(fields))
		}
		class, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad class index %q", i+1, fields[0])
		}
		var vals [4]float64
		for j, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad coordinate %q", i+1, f)
			}
			vals[j] = v
		}
		lines = append(lines, Line{Class: class, Cx: vals[0], Cy: vals[1], W: vals[2], H: vals[3]})
	}
	return lines, nil
}

// ToBox converts a decoded line back to pixel coordinates for a
// width x height image.
func (l Line) ToBox(width, height int) Box {
	fw, fh := float64(width), float64(height)
	w := l.W * fw
	h := l.H * fh
	x0 := l.Cx*fw - w/2
	y0 := l.Cy*fh - h/2
	return Box{
		X0:    int(x0 + 0.5),
		Y0:    int(y0 + 0.5),
		X1:    int(x0 + w + 0.5),
		Y1:    int(y0 + h + 0.5),
		Label: l.Class,
	}
}

// PathFor returns the annotation file path for an image: same
// directory, same base name, .txt extension.
func PathFor(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + ".txt"
}

// WriteFile atomically writes the annotation file for boxes drawn on a
// width x height image. The file appears either complete or not at
// all, even if the process dies mid-write. An empty box list produces
// an empty file, which still marks the image as visited.
func WriteFile(path string, boxes []Box, width, height int) error {
	data, err := Encode(boxes, width, height)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ann-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write annotations: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to rename annotation file: %w", err)
	}
	return nil
}

// ReadFile reads and decodes an annotation file.
func ReadFile(path string) ([]Line, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotation file: %w", err)
	}
	return Decode(string(data))
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
