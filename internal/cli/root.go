package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/im2train/im2train/internal/config"
)

// Version is the application version.
const Version = "1.0.0"

var (
	cfgPath string
	// cfg is loaded once in the root PersistentPreRunE and shared by
	// every subcommand.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "im2train",
	Short:   "Bounding-box annotation and dataset list generation for detection training",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		return nil
	},
}

// Execute runs the CLI. Fatal errors are printed to stderr, never
// swallowed.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.txt", "path to the label configuration file")
}
