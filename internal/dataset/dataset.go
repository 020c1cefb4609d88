// Package dataset turns a directory of annotated images into the
// manifest files a detection training pipeline consumes: a class
// names file, train/test path lists, an info file, and a directory of
// copied test images.
package dataset

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/im2train/im2train/internal/config"
	"github.com/im2train/im2train/internal/utils"
	"github.com/im2train/im2train/pkg/annotation"
)

// ErrNoAnnotatedImages means the directory holds nothing to build a
// dataset from: no image has a non-empty annotation file.
var ErrNoAnnotatedImages = errors.New("no annotated images found")

// Output file names, fixed contract with the training pipeline.
const (
	ClassFile   = "classes.names"
	TrainFile   = "train.txt"
	TestFile    = "test.txt"
	InfoFile    = "dataset.info"
	TestDataDir = "test_data"
)

// Options configures a generation run.
type Options struct {
	// Ratio is the train fraction in (0,1). Zero means no split:
	// everything goes to the train list.
	Ratio float64
	// Seed fixes the shuffle for reproducible splits. Zero seeds from
	// the clock, so two runs may split differently.
	Seed int64
	// OutDir is where the manifest files are written. Empty means the
	// image directory itself.
	OutDir string
	// ShowProgress draws a progress bar while copying test images.
	ShowProgress bool
}

// Summary reports what a generation run produced.
type Summary struct {
	Total      int
	TrainCount int
	TestCount  int
	ClassPath  string
	TrainPath  string
	TestPath   string
	InfoPath   string
	TestData   string
}

// Generate enumerates every image in dir with a non-empty annotation
// file, optionally splits it into train/test subsets, and writes the
// manifest set. Existing output files are overwritten; source images
// are never moved or deleted.
func Generate(cfg *config.Config, dir string, opts Options) (*Summary, error) {
	if opts.Ratio != 0 && (opts.Ratio <= 0 || opts.Ratio >= 1) {
		return nil, fmt.Errorf("train ratio must be in (0,1), got %g", opts.Ratio)
	}

	images, err := annotatedImages(dir)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoAnnotatedImages, dir)
	}

	outDir := opts.OutDir
	if outDir == "" {
		outDir = dir
	}
	if err := utils.EnsureDir(outDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	train, test := split(images, opts.Ratio, opts.Seed)

	sum := &Summary{
		Total:      len(images),
		TrainCount: len(train),
		TestCount:  len(test),
		ClassPath:  filepath.Join(outDir, ClassFile),
		TrainPath:  filepath.Join(outDir, TrainFile),
		TestPath:   filepath.Join(outDir, TestFile),
		InfoPath:   filepath.Join(outDir, InfoFile),
		TestData:   filepath.Join(outDir, TestDataDir),
	}

	if err := writeLines(sum.ClassPath, cfg.Names()); err != nil {
		return nil, err
	}
	if err := writeLines(sum.TrainPath, train); err != nil {
		return nil, err
	}
	if err := writeLines(sum.TestPath, test); err != nil {
		return nil, err
	}
	if err := copyTestImages(test, sum.TestData, opts.ShowProgress); err != nil {
		return nil, err
	}
	if err := writeInfo(sum, cfg); err != nil {
		return nil, err
	}
	return sum, nil
}

// annotatedImages lists the images qualifying for the dataset, in
// deterministic lexicographic order.
func annotatedImages(dir string) ([]string, error) {
	files, err := utils.ListImages(dir)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, f := range files {
		info, err := os.Stat(annotation.PathFor(f))
		if err != nil || info.Size() == 0 {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = f
		}
		out = append(out, abs)
	}
	return out, nil
}

// split shuffles and partitions the image list. Ratio 0 sends
// everything to train untouched.
func split(images []string, ratio float64, seed int64) (train, test []string) {
	if ratio == 0 {
		return images, nil
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	shuffled := make([]string, len(images))
	copy(shuffled, images)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := int(float64(len(shuffled))*ratio + 0.5)
	if n >= len(shuffled) {
		n = len(shuffled) - 1
	}
	if n < 1 {
		n = 1
	}
	return shuffled[:n], shuffled[n:]
}

func writeLines(path string, lines []string) error {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func copyTestImages(test []string, destDir string, showProgress bool) error {
	if len(test) == 0 {
		return nil
	}
	if err := utils.EnsureDir(destDir); err != nil {
		return fmt.Errorf("failed to create %s: %w", destDir, err)
	}

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions(len(test),
			progressbar.OptionSetDescription("copying test images"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
	}
	for _, src := range test {
		if bar != nil {
			bar.Add(1)
		}
		if err := utils.CopyFile(src, filepath.Join(destDir, filepath.Base(src))); err != nil {
			return err
		}
	}
	if bar != nil {
		bar.Finish()
	}
	return nil
}

// writeInfo emits the manifest: counts plus the paths of the other
// generated files, in a simple "key = value" format.
func writeInfo(sum *Summary, cfg *config.Config) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "classes = %d\n", len(cfg.Names()))
	fmt.Fprintf(&sb, "total = %d\n", sum.Total)
	fmt.Fprintf(&sb, "train_count = %d\n", sum.TrainCount)
	fmt.Fprintf(&sb, "test_count = %d\n", sum.TestCount)
	fmt.Fprintf(&sb, "names = %s\n", sum.ClassPath)
	fmt.Fprintf(&sb, "train = %s\n", sum.TrainPath)
	fmt.Fprintf(&sb, "test = %s\n", sum.TestPath)
	fmt.Fprintf(&sb, "test_data = %s\n", sum.TestData)
	if err := os.WriteFile(sum.InfoPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", sum.InfoPath, err)
	}
	return nil
}
