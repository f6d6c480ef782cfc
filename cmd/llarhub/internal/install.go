package internal

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/goplus/llarhub/formula"
	"github.com/goplus/llarhub/internal/build"
	"github.com/goplus/llarhub/internal/config"
	"github.com/goplus/llarhub/internal/env"
)

var (
	installConfig  string
	installPrefix  string
	installArchive string
	installPatches string
	installKeep    bool
	installFC      string
	installCC      string
	installDeps    map[string]string
)

var installCmd = &cobra.Command{
	Use:   "install [recipe[@version]] [+variant|~variant ...]",
	Short: "Build a recipe and install it into a prefix",
	Long: `Install stages the sources of a recipe, applies its patches, runs its
build and copies the results into the prefix. Variant settings given on the
command line override the configuration file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	f := installCmd.Flags()
	f.StringVarP(&installConfig, "config", "c", "", "Build configuration file")
	f.StringVarP(&installPrefix, "prefix", "p", "", "Install prefix")
	f.StringVar(&installArchive, "archive", "", "Local source archive")
	f.StringVar(&installPatches, "patches", "", "Directory holding the recipe patches")
	f.BoolVar(&installKeep, "keep", false, "Keep the stage directory")
	f.StringVar(&installFC, "fc", "", "Fortran compiler command")
	f.StringVar(&installCC, "cc", "", "C compiler command")
	f.StringToStringVar(&installDeps, "dep", nil, "Dependency prefix as name=dir (repeatable)")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := formula.LoggerFrom(ctx)

	name, version := parseRecipeArg(args[0])
	pkg, err := loadRecipe(name)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(name, installConfig)
	if err != nil {
		return err
	}

	spec, err := newSpec(pkg, version, cfg, args[1:])
	if err != nil {
		return err
	}
	prefix, err := resolvePrefix(installPrefix, cfg)
	if err != nil {
		return err
	}
	for _, c := range []string{spec.FC, spec.CC} {
		if c == "" {
			continue
		}
		if path, err := config.CheckCompiler(c); err != nil {
			logger.Warn("compiler check failed", "err", err)
		} else {
			logger.Debug("compiler", "path", path)
		}
	}

	opts := build.Options{
		Archive:  firstNonEmpty(installArchive, cfg.Stage.Archive),
		URL:      cfg.Stage.URL,
		PatchDir: firstNonEmpty(installPatches, cfg.Stage.Patches),
		StageDir: cfg.Stage.Dir,
		Keep:     installKeep || cfg.Stage.Keep,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if verbose {
		opts.Stdout, opts.Stderr = os.Stderr, os.Stderr
	}

	out, err := build.NewBuilder(opts).Install(ctx, pkg, spec, prefix)
	if err != nil {
		return err
	}
	if md := out.Metadata(); md != "" {
		fmt.Fprintln(cmd.OutOrStdout(), md)
	}
	return nil
}

// newSpec builds the spec of pkg from the configuration, then the command
// line: version, variant arguments, compilers and dependency prefixes.
func newSpec(pkg *formula.Package, version string, cfg *config.Config, variants []string) (*formula.Spec, error) {
	spec := formula.NewSpec(pkg, "")
	if err := cfg.Apply(pkg, spec); err != nil {
		return nil, err
	}
	if version != "" {
		spec.Version = version
	}
	if err := spec.ParseVariants(pkg, variants...); err != nil {
		return nil, err
	}
	if installFC != "" {
		spec.FC = installFC
	}
	if installCC != "" {
		spec.CC = installCC
	}
	for _, name := range slices.Sorted(maps.Keys(installDeps)) {
		dir, err := config.ExpandPath(installDeps[name], "")
		if err != nil {
			return nil, err
		}
		spec.Deps[name] = formula.Prefix(dir)
	}
	return spec, nil
}

// loadConfig reads path, or the default configuration of the recipe when
// path is empty. A missing default file yields an empty configuration.
func loadConfig(name, path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	def, err := env.ConfigFile(name)
	if err != nil {
		return &config.Config{}, nil
	}
	cfg, err := config.Load(def)
	if errors.Is(err, fs.ErrNotExist) {
		return &config.Config{}, nil
	}
	return cfg, err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
