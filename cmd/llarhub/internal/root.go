package internal

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/goplus/llarhub/formula"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "llarhub",
	Short:         "llarhub builds packages from source recipes",
	Long:          `llarhub fetches, patches and builds packages from their source recipes and installs them into a prefix.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := log.InfoLevel
		if verbose {
			level = log.DebugLevel
		}
		cmd.SetContext(formula.WithLogger(cmd.Context(), formula.NewLogger(os.Stderr, level)))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging and build output")
}

// Execute runs the command tree under ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
