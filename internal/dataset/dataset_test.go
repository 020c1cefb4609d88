package dataset

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/im2train/im2train/internal/config"
	"github.com/im2train/im2train/internal/imageio"
)

func testConfig() *config.Config {
	return &config.Config{
		MaxHeight: 500,
		Labels:    map[int]string{1: "person", 2: "car", 3: "dog"},
	}
}

// buildDataset writes n annotated images (plus one image without an
// annotation file and one with an empty one, which must not qualify).
func buildDataset(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()

	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{100, uint8(x * 8), uint8(y * 8), 255})
		}
	}

	for i := 0; i < n; i++ {
		name := filepath.Join(dir, string(rune('a'+i))+".png")
		if err := imageio.Save(img, name); err != nil {
			t.Fatal(err)
		}
		ann := strings.TrimSuffix(name, ".png") + ".txt"
		if err := os.WriteFile(ann, []byte("0 0.5 0.5 0.2 0.2\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	// Unlabeled image: no annotation file.
	if err := imageio.Save(img, filepath.Join(dir, "zz_unlabeled.png")); err != nil {
		t.Fatal(err)
	}
	// Visited but empty annotation file: also excluded.
	if err := imageio.Save(img, filepath.Join(dir, "zz_empty.png")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "zz_empty.txt"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func TestGenerateSplit(t *testing.T) {
	dir := buildDataset(t, 10)

	sum, err := Generate(testConfig(), dir, Options{Ratio: 0.8, Seed: 42})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if sum.Total != 10 || sum.TrainCount != 8 || sum.TestCount != 2 {
		t.Fatalf("expected 10 = 8 + 2, got %d = %d + %d", sum.Total, sum.TrainCount, sum.TestCount)
	}

	train := readLines(t, sum.TrainPath)
	test := readLines(t, sum.TestPath)
	if len(train) != 8 || len(test) != 2 {
		t.Fatalf("expected list sizes 8/2, got %d/%d", len(train), len(test))
	}

	// Union of both lists is the full set, no duplicates.
	seen := make(map[string]bool)
	for _, p := range append(append([]string{}, train...), test...) {
		if seen[p] {
			t.Errorf("duplicate entry %s", p)
		}
		seen[p] = true
	}
	if len(seen) != 10 {
		t.Errorf("expected union of 10 distinct paths, got %d", len(seen))
	}

	// test_data holds copies of exactly the test split.
	entries, err := os.ReadDir(sum.TestData)
	if err != nil {
		t.Fatalf("test_data missing: %v", err)
	}
	var copied []string
	for _, e := range entries {
		copied = append(copied, e.Name())
	}
	var wantCopied []string
	for _, p := range test {
		wantCopied = append(wantCopied, filepath.Base(p))
	}
	if !sameSet(copied, wantCopied) {
		t.Errorf("copied %v, want %v", copied, wantCopied)
	}

	// Originals untouched.
	for _, p := range test {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("original test image %s was removed", p)
		}
	}
}

func TestGenerateSeededSplitIsDeterministic(t *testing.T) {
	dir := buildDataset(t, 10)

	first, err := Generate(testConfig(), dir, Options{Ratio: 0.7, Seed: 7})
	if err != nil {
		t.Fatal(err)
	}
	firstTest := readLines(t, first.TestPath)

	second, err := Generate(testConfig(), dir, Options{Ratio: 0.7, Seed: 7})
	if err != nil {
		t.Fatal(err)
	}
	secondTest := readLines(t, second.TestPath)

	if !reflect.DeepEqual(firstTest, secondTest) {
		t.Errorf("same seed produced different splits:\n%v\nvs\n%v", firstTest, secondTest)
	}
}

func TestGenerateWithoutRatio(t *testing.T) {
	dir := buildDataset(t, 4)

	sum, err := Generate(testConfig(), dir, Options{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if sum.TrainCount != 4 || sum.TestCount != 0 {
		t.Errorf("expected everything in train, got %d/%d", sum.TrainCount, sum.TestCount)
	}

	// Train list preserves directory order when nothing is shuffled.
	train := readLines(t, sum.TrainPath)
	for i, p := range train {
		want := string(rune('a'+i)) + ".png"
		if filepath.Base(p) != want {
			t.Errorf("train[%d] = %s, want %s", i, filepath.Base(p), want)
		}
	}
}

func TestGenerateClassNames(t *testing.T) {
	dir := buildDataset(t, 2)

	sum, err := Generate(testConfig(), dir, Options{})
	if err != nil {
		t.Fatal(err)
	}

	names := readLines(t, sum.ClassPath)
	want := []string{"person", "car", "dog"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("class names %v, want %v", names, want)
	}
}

func TestGenerateManifest(t *testing.T) {
	dir := buildDataset(t, 5)

	sum, err := Generate(testConfig(), dir, Options{Ratio: 0.8, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}

	info := string(mustRead(t, sum.InfoPath))
	for _, want := range []string{
		"classes = 3",
		"total = 5",
		"train_count = 4",
		"test_count = 1",
		"train = " + sum.TrainPath,
		"test = " + sum.TestPath,
	} {
		if !strings.Contains(info, want) {
			t.Errorf("manifest missing %q:\n%s", want, info)
		}
	}
}

func TestGenerateFailsWithoutAnnotations(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	if err := imageio.Save(img, filepath.Join(dir, "a.png")); err != nil {
		t.Fatal(err)
	}

	_, err := Generate(testConfig(), dir, Options{})
	if !errors.Is(err, ErrNoAnnotatedImages) {
		t.Errorf("expected ErrNoAnnotatedImages, got %v", err)
	}
}

func TestGenerateRejectsBadRatio(t *testing.T) {
	dir := buildDataset(t, 2)
	for _, r := range []float64{-0.5, 1, 1.5} {
		if _, err := Generate(testConfig(), dir, Options{Ratio: r}); err == nil {
			t.Errorf("expected error for ratio %g", r)
		}
	}
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	m := make(map[string]int)
	for _, s := range a {
		m[s]++
	}
	for _, s := range b {
		m[s]--
	}
	for _, n := range m {
		if n != 0 {
			return false
		}
	}
	return true
}
