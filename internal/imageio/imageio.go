// Package imageio loads and saves the image formats the annotation
// tool accepts: jpg, png and webp (bmp/tiff decode via x/image).
package imageio

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Load opens an image file. JPEGs carrying an EXIF orientation tag
// are rotated upright so that drawn box coordinates match what the
// operator sees.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}

	// imaging does not know webp; retry with the registered stdlib
	// decoders (x/image/webp among them).
	f, ferr := os.Open(path)
	if ferr != nil {
		return nil, fmt.Errorf("failed to open image: %w", ferr)
	}
	defer f.Close()
	img, _, err = image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// Save writes an image, choosing the encoder by file extension.
func Save(img image.Image, path string) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Quality: 90})
	case "jpg", "jpeg":
		return imaging.Save(img, path, imaging.JPEGQuality(95))
	default:
		return imaging.Save(img, path)
	}
}

// Size decodes only the image header and returns its dimensions
// without loading pixel data.
func Size(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image header %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}
