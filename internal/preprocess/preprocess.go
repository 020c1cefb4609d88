// Package preprocess shrinks oversized images in place before an
// annotation session, so every image fits the configured display
// height.
package preprocess

import (
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	"github.com/schollz/progressbar/v3"

	"github.com/im2train/im2train/internal/imageio"
	"github.com/im2train/im2train/internal/utils"
)

// FileError records a file that could not be processed.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Report summarizes a batch run. Failed files never abort the batch;
// they are collected here for the caller to surface at the end.
type Report struct {
	Resized []string
	Skipped []string
	Failed  []FileError
}

// Shrink walks the images in dir in lexicographic order and rescales
// every image taller than maxHeight down to exactly maxHeight,
// preserving aspect ratio and overwriting the file in place. Images
// already within bounds are left byte-for-byte untouched, which makes
// the pass idempotent. The overwrite is destructive; callers warn the
// user before invoking this.
func Shrink(dir string, maxHeight int, showProgress bool) (*Report, error) {
	if maxHeight <= 0 {
		return nil, fmt.Errorf("invalid max height %d", maxHeight)
	}

	files, err := utils.ListImages(dir)
	if err != nil {
		return nil, err
	}

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("resizing"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
	}

	report := &Report{}
	for _, path := range files {
		if bar != nil {
			bar.Add(1)
		}

		_, h, err := imageio.Size(path)
		if err != nil {
			report.Failed = append(report.Failed, FileError{Path: path, Err: err})
			continue
		}
		if h <= maxHeight {
			report.Skipped = append(report.Skipped, path)
			continue
		}

		img, err := imageio.Load(path)
		if err != nil {
			report.Failed = append(report.Failed, FileError{Path: path, Err: err})
			continue
		}

		// Width 0 lets imaging preserve the aspect ratio.
		resized := imaging.Resize(img, 0, maxHeight, imaging.Lanczos)
		if err := imageio.Save(resized, path); err != nil {
			report.Failed = append(report.Failed, FileError{Path: path, Err: err})
			continue
		}
		report.Resized = append(report.Resized, path)
	}
	if bar != nil {
		bar.Finish()
	}
	return report, nil
}
