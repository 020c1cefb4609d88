// Package editor implements the annotation session: a single-threaded
// state machine that turns input events into labeled bounding boxes
// and persists them one annotation file per image.
package editor

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/im2train/im2train/internal/config"
	"github.com/im2train/im2train/internal/imageio"
	"github.com/im2train/im2train/internal/utils"
	"github.com/im2train/im2train/pkg/annotation"
)

// ErrUnlabeledBox blocks Advance while any drawn box has no class
// assigned. Untagged boxes are never silently dropped; the operator
// resolves the situation by tagging or deleting the box.
var ErrUnlabeledBox = errors.New("a drawn box has no label; tag it or delete it before advancing")

// ErrDone is returned for editing events after the last image has
// been saved.
var ErrDone = errors.New("no images left to annotate")

// ExistingPolicy decides what happens to images that already have an
// annotation file. It is fixed once at session start.
type ExistingPolicy int

const (
	// SkipExisting treats an existing annotation file as "already
	// labeled" and leaves the image out of the session.
	SkipExisting ExistingPolicy = iota
	// Overwrite revisits every image; saving replaces the old file.
	Overwrite
)

// Options configures a session.
type Options struct {
	Existing ExistingPolicy
	// CropDir, when non-empty, enables crop mode: every saved box is
	// also written out as a cropped image under this directory.
	CropDir string
}

// Session holds the state for annotating one directory of images. It
// is not safe for concurrent use; all events arrive on one goroutine.
type Session struct {
	cfg  *config.Config
	opts Options

	images []string
	total  int
	index  int

	img    image.Image
	width  int
	height int

	boxes     []annotation.Box
	drawing   bool
	anchor    image.Point
	cursor    image.Point
	lastLabel int
	auto      bool
	done      bool
}

// NewSession lists the images in dir, applies the existing-annotation
// policy and loads the first image. A directory with nothing left to
// annotate yields a session that is already done.
func NewSession(cfg *config.Config, dir string, opts Options) (*Session, error) {
	all, err := utils.ListImages(dir)
	if err != nil {
		return nil, err
	}

	images := all
	if opts.Existing == SkipExisting {
		images = images[:0:0]
		for _, p := range all {
			if annotated(p) {
				continue
			}
			images = append(images, p)
		}
	}

	s := &Session{
		cfg:       cfg,
		opts:      opts,
		images:    images,
		total:     len(images),
		lastLabel: annotation.Unlabeled,
	}
	if len(images) == 0 {
		s.done = true
		return s, nil
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func annotated(imagePath string) bool {
	return utils.FileExists(annotation.PathFor(imagePath))
}

// load reads the current image and caps its displayed height at
// max_height the same way the preprocessor would, so box coordinates
// always refer to what the operator sees.
func (s *Session) load() error {
	img, err := imageio.Load(s.images[s.index])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", s.images[s.index], err)
	}
	if h := img.Bounds().Dy(); h > s.cfg.MaxHeight {
		img = imaging.Resize(img, 0, s.cfg.MaxHeight, imaging.Lanczos)
	}
	s.img = img
	s.width = img.Bounds().Dx()
	s.height = img.Bounds().Dy()
	s.boxes = nil
	s.drawing = false
	return nil
}

// Handle applies one input event to the session.
func (s *Session) Handle(ev Event) error {
	if s.done {
		return ErrDone
	}

	switch e := ev.(type) {
	case MouseDown:
		s.drawing = true
		s.anchor = image.Pt(e.X, e.Y)
		s.cursor = s.anchor

	case MouseMove:
		s.cursor = image.Pt(e.X, e.Y)

	case MouseUp:
		if !s.drawing {
			return nil
		}
		s.drawing = false
		// Drags may start or end outside the image; only the part
		// inside it is a valid box.
		box := annotation.Box{
			X0: s.anchor.X, Y0: s.anchor.Y,
			X1: e.X, Y1: e.Y,
			Label: annotation.Unlabeled,
		}.Clip(s.width, s.height)
		if box.Area() == 0 {
			return nil
		}
		if s.auto && s.lastLabel != annotation.Unlabeled {
			box.Label = s.lastLabel
			// Auto mode also backfills boxes the operator drew
			// before switching it on.
			for i := range s.boxes {
				if !s.boxes[i].Tagged() {
					s.boxes[i].Label = s.lastLabel
				}
			}
		}
		s.boxes = append(s.boxes, box)

	case Digit:
		idx := s.cfg.LabelIndex(e.Key)
		if idx < 0 {
			return nil
		}
		s.lastLabel = idx
		if len(s.boxes) > 0 {
			s.boxes[len(s.boxes)-1].Label = idx
		}

	case RightClick:
		// Most recently created box wins when boxes overlap.
		for i := len(s.boxes) - 1; i >= 0; i-- {
			if s.boxes[i].Contains(e.X, e.Y) {
				s.boxes = append(s.boxes[:i], s.boxes[i+1:]...)
				break
			}
		}

	case Cancel:
		if s.drawing {
			s.drawing = false
			return nil
		}
		if len(s.boxes) > 0 {
			s.boxes = s.boxes[:len(s.boxes)-1]
		}

	case Reset:
		s.boxes = nil
		s.drawing = false

	case Advance:
		return s.advance()

	case ToggleAuto:
		s.auto = !s.auto

	default:
		return fmt.Errorf("unhandled event %T", ev)
	}
	return nil
}

// advance saves the current image's boxes and moves on. Any untagged
// box rejects the save so the operator never loses work to a silent
// drop.
func (s *Session) advance() error {
	for _, b := range s.boxes {
		if !b.Tagged() {
			return ErrUnlabeledBox
		}
	}

	path := annotation.PathFor(s.CurrentImage())
	if err := annotation.WriteFile(path, s.boxes, s.width, s.height); err != nil {
		return err
	}
	if s.opts.CropDir != "" && len(s.boxes) > 0 {
		if err := s.writeCrops(); err != nil {
			return err
		}
	}

	s.index++
	if s.index >= len(s.images) {
		s.done = true
		s.img = nil
		s.boxes = nil
		return nil
	}
	return s.load()
}

// writeCrops saves each labeled box as its own image, named
// <base>-<label>-<n>.jpg, for classifier-style training sets.
func (s *Session) writeCrops() error {
	if err := utils.EnsureDir(s.opts.CropDir); err != nil {
		return fmt.Errorf("failed to create crop directory: %w", err)
	}
	base := filepath.Base(s.CurrentImage())
	base = strings.TrimSuffix(base, filepath.Ext(base))

	for i, b := range s.boxes {
		rect := image.Rect(b.X0, b.Y0, b.X1, b.Y1).Intersect(s.img.Bounds())
		if rect.Empty() {
			continue
		}
		crop := imaging.Crop(s.img, rect)
		name := fmt.Sprintf("%s-%s-%d.jpg", base, s.cfg.Name(b.Label), i)
		if err := imageio.Save(crop, filepath.Join(s.opts.CropDir, name)); err != nil {
			return fmt.Errorf("failed to save crop %s: %w", name, err)
		}
	}
	return nil
}

// Done reports whether every image has been annotated.
func (s *Session) Done() bool {
	return s.done
}

// CurrentImage returns the path of the image being annotated.
func (s *Session) CurrentImage() string {
	if s.done || s.index >= len(s.images) {
		return ""
	}
	return s.images[s.index]
}

// Progress returns how many images have been completed out of the
// session total.
func (s *Session) Progress() (completed, total int) {
	return s.index, s.total
}

// Bounds returns the displayed image dimensions.
func (s *Session) Bounds() (width, height int) {
	return s.width, s.height
}

// Boxes returns a copy of the boxes drawn on the current image.
func (s *Session) Boxes() []annotation.Box {
	out := make([]annotation.Box, len(s.boxes))
	copy(out, s.boxes)
	return out
}

// AutoLabel reports whether auto-label mode is on.
func (s *Session) AutoLabel() bool {
	return s.auto
}
