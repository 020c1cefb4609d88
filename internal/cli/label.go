package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/im2train/im2train/internal/editor"
	"github.com/im2train/im2train/internal/imageio"
	"github.com/im2train/im2train/internal/utils"
)

var labelOpts struct {
	dir       string
	preview   string
	cropDir   string
	overwrite bool
}

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Run an interactive annotation session over a directory of images",
	Long: `Walks the images in the directory in name order and reads commands
from stdin. After every change the current image is re-rendered with
its boxes to the preview file; keep it open in an image viewer that
reloads on change.

Commands:
  box <x0> <y0> <x1> <y1>   draw a box
  <1-9>                     tag the last box with that label key
  del <x> <y>               delete the box under the point
  undo                      remove the last box
  reset                     clear all boxes on this image
  auto                      toggle auto-label mode
  next                      save this image's boxes and advance
  quit                      exit without saving the current image`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !utils.DirExists(labelOpts.dir) {
			return fmt.Errorf("image directory %s does not exist", labelOpts.dir)
		}
		opts := editor.Options{CropDir: labelOpts.cropDir}
		if labelOpts.overwrite {
			opts.Existing = editor.Overwrite
		}

		session, err := editor.NewSession(cfg, labelOpts.dir, opts)
		if err != nil {
			return err
		}
		if session.Done() {
			fmt.Fprintln(os.Stderr, "nothing to annotate: every image already has an annotation file")
			return nil
		}

		preview := labelOpts.preview
		if preview == "" {
			preview = filepath.Join(labelOpts.dir, ".preview.png")
		}
		return runLabelLoop(session, os.Stdin, os.Stderr, preview)
	},
}

func init() {
	labelCmd.Flags().StringVarP(&labelOpts.dir, "dir", "d", "", "directory of images to annotate")
	labelCmd.Flags().StringVarP(&labelOpts.preview, "preview", "p", "", "preview image path (default: <dir>/.preview.png)")
	labelCmd.Flags().StringVar(&labelOpts.cropDir, "crops", "", "also save each labeled box as a cropped image into this directory")
	labelCmd.Flags().BoolVar(&labelOpts.overwrite, "overwrite", false, "revisit images that already have an annotation file")
	labelCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(labelCmd)
}

// runLabelLoop reads commands, feeds the session dispatcher and keeps
// the preview image current.
func runLabelLoop(session *editor.Session, in io.Reader, out io.Writer, preview string) error {
	writePreview(session, out, preview)
	printStatus(session, out)

	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprint(out, "> ")
			continue
		}
		if line == "quit" {
			return nil
		}

		ev, err := parseCommand(line)
		if err != nil {
			fmt.Fprintf(out, "%v\n> ", err)
			continue
		}

		if err := applyEvents(session, ev); err != nil {
			if errors.Is(err, editor.ErrUnlabeledBox) {
				fmt.Fprintf(out, "warning: %v\n> ", err)
				continue
			}
			return err
		}

		if session.Done() {
			fmt.Fprintln(out, "all images annotated")
			return nil
		}
		writePreview(session, out, preview)
		printStatus(session, out)
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

// parseCommand maps one input line to the dispatcher events it stands
// for. A drawn box expands to the full press-move-release sequence.
func parseCommand(line string) ([]editor.Event, error) {
	fields := strings.Fields(line)
	cmd := fields[0]

	switch cmd {
	case "box":
		pts, err := intArgs(fields[1:], 4)
		if err != nil {
			return nil, fmt.Errorf("usage: box <x0> <y0> <x1> <y1>")
		}
		return []editor.Event{
			editor.MouseDown{X: pts[0], Y: pts[1]},
			editor.MouseMove{X: pts[2], Y: pts[3]},
			editor.MouseUp{X: pts[2], Y: pts[3]},
		}, nil
	case "del":
		pts, err := intArgs(fields[1:], 2)
		if err != nil {
			return nil, fmt.Errorf("usage: del <x> <y>")
		}
		return []editor.Event{editor.RightClick{X: pts[0], Y: pts[1]}}, nil
	case "undo":
		return []editor.Event{editor.Cancel{}}, nil
	case "reset":
		return []editor.Event{editor.Reset{}}, nil
	case "auto":
		return []editor.Event{editor.ToggleAuto{}}, nil
	case "next":
		return []editor.Event{editor.Advance{}}, nil
	}

	if d, err := strconv.Atoi(cmd); err == nil && d >= 1 && d <= 9 && len(fields) == 1 {
		return []editor.Event{editor.Digit{Key: d}}, nil
	}
	return nil, fmt.Errorf("unknown command %q", cmd)
}

func applyEvents(session *editor.Session, events []editor.Event) error {
	for _, ev := range events {
		if err := session.Handle(ev); err != nil {
			return err
		}
	}
	return nil
}

func writePreview(session *editor.Session, out io.Writer, preview string) {
	img := session.Render()
	if img == nil {
		return
	}
	if err := imageio.Save(img, preview); err != nil {
		fmt.Fprintf(out, "preview write failed: %v\n", err)
	}
}

func printStatus(session *editor.Session, out io.Writer) {
	done, total := session.Progress()
	w, h := session.Bounds()
	mode := "manual"
	if session.AutoLabel() {
		mode = "auto"
	}
	fmt.Fprintf(out, "[%d/%d] %s %dx%d (%d boxes, %s label)\n",
		done+1, total, filepath.Base(session.CurrentImage()), w, h,
		len(session.Boxes()), mode)
}

func intArgs(args []string, n int) ([]int, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d arguments", n)
	}
	out := make([]int, n)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", a)
		}
		out[i] = v
	}
	return out, nil
}
