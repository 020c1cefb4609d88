package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/im2train/im2train/internal/preprocess"
	"github.com/im2train/im2train/internal/utils"
)

var resizeDir string

var resizeCmd = &cobra.Command{
	Use:   "resize",
	Short: "Shrink oversized images in place to the configured max height",
	Long: `Rescales every image in the directory whose height exceeds the
configured max_height, preserving aspect ratio and overwriting the
original file. The original pixel data is lost.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !utils.DirExists(resizeDir) {
			return fmt.Errorf("image directory %s does not exist", resizeDir)
		}
		report, err := preprocess.Shrink(resizeDir, cfg.MaxHeight, true)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "resized %d, already in bounds %d\n",
			len(report.Resized), len(report.Skipped))
		if len(report.Failed) > 0 {
			fmt.Fprintf(os.Stderr, "%d files could not be processed:\n", len(report.Failed))
			for _, fe := range report.Failed {
				fmt.Fprintf(os.Stderr, "  %s\n", fe)
			}
		}
		return nil
	},
}

func init() {
	resizeCmd.Flags().StringVarP(&resizeDir, "dir", "d", "", "directory of images to resize")
	resizeCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(resizeCmd)
}
