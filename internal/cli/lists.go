package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/im2train/im2train/internal/dataset"
	"github.com/im2train/im2train/internal/utils"
)

var listsOpts struct {
	dir   string
	out   string
	ratio float64
	seed  int64
}

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Generate class names, train/test lists and the dataset manifest",
	Long: `Enumerates every image in the directory that has a non-empty
annotation file, optionally splits the set into train/test subsets by
the given ratio, writes the manifest files and copies the test images
into the test_data subdirectory. Without --seed the split is random on
every run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !utils.DirExists(listsOpts.dir) {
			return fmt.Errorf("image directory %s does not exist", listsOpts.dir)
		}
		sum, err := dataset.Generate(cfg, listsOpts.dir, dataset.Options{
			Ratio:        listsOpts.ratio,
			Seed:         listsOpts.seed,
			OutDir:       listsOpts.out,
			ShowProgress: true,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "dataset: %d images (%d train, %d test)\n",
			sum.Total, sum.TrainCount, sum.TestCount)
		fmt.Fprintf(os.Stderr, "  %s\n  %s\n  %s\n  %s\n",
			sum.ClassPath, sum.TrainPath, sum.TestPath, sum.InfoPath)
		if sum.TestCount > 0 {
			fmt.Fprintf(os.Stderr, "  test images copied to %s\n", sum.TestData)
		}
		return nil
	},
}

func init() {
	listsCmd.Flags().StringVarP(&listsOpts.dir, "dir", "d", "", "directory of annotated images")
	listsCmd.Flags().StringVarP(&listsOpts.out, "out", "o", "", "output directory for the manifest files (default: --dir)")
	listsCmd.Flags().Float64VarP(&listsOpts.ratio, "ratio", "r", 0, "train fraction in (0,1); 0 disables the split")
	listsCmd.Flags().Int64Var(&listsOpts.seed, "seed", 0, "shuffle seed for a reproducible split (0 = random)")
	listsCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(listsCmd)
}
