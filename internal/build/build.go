package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goplus/llarhub/formula"
	"github.com/goplus/llarhub/internal/env"
	"github.com/goplus/llarhub/internal/stage"
	"github.com/goplus/llarhub/pkgs/mod/module"
)

// Options controls where sources come from and where they are staged.
type Options struct {
	Archive  string // local source archive; fetched from URL when empty
	URL      string // overrides the recipe URL
	PatchDir string // directory holding the recipe's patch files
	StageDir string // parent of the stage tree; env.StageDir() when empty
	Keep     bool   // keep the stage tree after the install

	Stdout io.Writer
	Stderr io.Writer
}

type Builder struct {
	opts Options
}

func NewBuilder(opts Options) *Builder {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return &Builder{opts: opts}
}

// Install builds pkg as described by spec into prefix. The returned result
// is non-nil whenever the install hook ran, even if it reported errors.
func (b *Builder) Install(ctx context.Context, pkg *formula.Package, spec *formula.Spec, prefix formula.Prefix) (*formula.InstallResult, error) {
	logger := formula.LoggerFrom(ctx)

	if err := spec.Validate(pkg); err != nil {
		return nil, fmt.Errorf("%s: %w", spec, err)
	}
	abs, err := filepath.Abs(prefix.String())
	if err != nil {
		return nil, err
	}
	prefix = formula.Prefix(abs)

	parent := b.opts.StageDir
	if parent == "" {
		if parent, err = env.StageDir(); err != nil {
			return nil, err
		}
	} else if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, err
	}
	mv := module.Version{Path: pkg.Name, Version: spec.Version}
	escaped, err := module.EscapePath(mv.Path)
	if err != nil {
		return nil, err
	}
	stageDir, err := os.MkdirTemp(parent, fmt.Sprintf("%s@%s-*", escaped, mv.Version))
	if err != nil {
		return nil, err
	}
	if b.opts.Keep {
		logger.Info("keeping stage", "dir", stageDir)
	} else {
		defer os.RemoveAll(stageDir)
	}

	srcDir, err := b.stage(ctx, pkg, spec, stageDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(prefix.String(), 0o755); err != nil {
		return nil, err
	}
	fctx := formula.NewContext(ctx, srcDir)
	fctx.Stdout = b.opts.Stdout
	fctx.Stderr = b.opts.Stderr

	logger.Info("installing", "spec", spec.String(), "prefix", prefix)
	out := pkg.Install(fctx, spec, prefix)
	if errs := out.Errs(); len(errs) > 0 {
		return out, fmt.Errorf("install %s: %w", spec, errors.Join(errs...))
	}

	if err := writeReceipt(prefix, newReceipt(pkg, spec, out)); err != nil {
		return out, err
	}
	if err := writeEnvScript(prefix, pkg.RunEnv(prefix)); err != nil {
		return out, err
	}
	logger.Info("installed", "spec", spec.String(), "artifacts", len(out.Installed()), "missing", len(out.Missing()))
	return out, nil
}

// stage obtains, verifies, unpacks and patches the sources below stageDir
// and returns the source root.
func (b *Builder) stage(ctx context.Context, pkg *formula.Package, spec *formula.Spec, stageDir string) (string, error) {
	logger := formula.LoggerFrom(ctx)

	archive := b.opts.Archive
	if archive == "" {
		url := b.opts.URL
		if url == "" {
			url = pkg.URL(spec.Version)
		}
		logger.Info("fetching", "url", url)
		var err error
		if archive, err = stage.Fetch(ctx, url, stageDir); err != nil {
			return "", fmt.Errorf("stage %s: %w", spec, err)
		}
	}

	decl, _ := pkg.Lookup(spec.Version)
	if err := stage.Verify(archive, decl.Checksum); err != nil {
		return "", fmt.Errorf("stage %s: %w", spec, err)
	}
	logger.Debug("checksum ok", "archive", archive)

	srcDir, err := stage.Extract(archive, filepath.Join(stageDir, "src"))
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", spec, err)
	}
	logger.Debug("extracted", "dir", srcDir)

	patches := pkg.Patches()
	switch {
	case len(patches) == 0:
	case b.opts.PatchDir == "":
		logger.Warn("no patch directory configured, patches skipped", "patches", len(patches))
	default:
		if err := stage.ApplyPatches(ctx, srcDir, b.opts.PatchDir, patches, b.opts.Stdout, b.opts.Stderr); err != nil {
			return "", fmt.Errorf("stage %s: %w", spec, err)
		}
		logger.Debug("patched", "patches", len(patches))
	}
	return srcDir, nil
}
