package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/goplus/llarhub/formula"
	"github.com/goplus/llarhub/internal/build"
	"github.com/goplus/llarhub/internal/config"
)

var (
	envPrefix string
	envConfig string
)

var envCmd = &cobra.Command{
	Use:   "env [recipe]",
	Short: "Print the run environment of an installed recipe",
	Long:  `Env prints shell statements that set up the environment programs linked against the recipe need at run time.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runEnv,
}

func init() {
	envCmd.Flags().StringVarP(&envPrefix, "prefix", "p", "", "Install prefix")
	envCmd.Flags().StringVarP(&envConfig, "config", "c", "", "Build configuration file")
	rootCmd.AddCommand(envCmd)
}

func runEnv(cmd *cobra.Command, args []string) error {
	name, _ := parseRecipeArg(args[0])
	pkg, err := loadRecipe(name)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(name, envConfig)
	if err != nil {
		return err
	}
	prefix, err := resolvePrefix(envPrefix, cfg)
	if err != nil {
		return err
	}

	logger := formula.LoggerFrom(cmd.Context())
	switch r, err := build.LoadReceipt(prefix); {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("no install receipt found", "prefix", prefix)
	case err != nil:
		return fmt.Errorf("read receipt: %w", err)
	case r.Name != pkg.Name:
		logger.Warn("prefix holds another package", "prefix", prefix, "package", r.Name)
	default:
		logger.Debug("installed", "spec", r.Spec, "time", r.BuildTime)
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), pkg.RunEnv(prefix).Shell())
	return err
}

// resolvePrefix picks the prefix flag over the configured one.
func resolvePrefix(flag string, cfg *config.Config) (formula.Prefix, error) {
	p := flag
	if p == "" {
		p = cfg.Prefix
	}
	if p == "" {
		return "", errors.New("no install prefix: use --prefix or set prefix in the configuration")
	}
	p, err := config.ExpandPath(p, "")
	if err != nil {
		return "", err
	}
	if p, err = filepath.Abs(p); err != nil {
		return "", err
	}
	return formula.Prefix(p), nil
}
