// Package config loads the TOML build configuration of an install.
//
// A configuration looks like:
//
//	prefix  = "~/opt/pgplot"
//	version = "5.2.2"
//	variants = ["+png", "~iterm"]
//
//	[compilers]
//	fc = "gfortran -fno-second-underscore"
//	cc = "gcc"
//
//	[deps]
//	libpng = "/usr"
//	zlib   = "/usr"
//	libx11 = "/usr"
//
//	[stage]
//	archive  = "~/Downloads/pgplot522.tar.gz"
//	patches  = "./patches/pgplot"
//	keep     = false
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/mattn/go-shellwords"
	"github.com/mitchellh/go-homedir"

	"github.com/goplus/llarhub/formula"
)

var ErrNoCompiler = errors.New("compiler not found")

// Compilers names the compiler commands. Each may carry flags.
type Compilers struct {
	FC string `toml:"fc"`
	CC string `toml:"cc"`
}

// Stage configures how sources are obtained.
type Stage struct {
	Archive string `toml:"archive"` // local archive; fetched from the recipe URL when empty
	URL     string `toml:"url"`     // overrides the recipe URL
	Patches string `toml:"patches"` // directory holding the declared patch files
	Dir     string `toml:"dir"`     // parent of the stage directory; os.TempDir when empty
	Keep    bool   `toml:"keep"`    // keep the stage directory after install
}

// Config is the build configuration of one install.
type Config struct {
	Prefix    string            `toml:"prefix"`
	Version   string            `toml:"version"`
	Variants  []string          `toml:"variants"`
	Compilers Compilers         `toml:"compilers"`
	Deps      map[string]string `toml:"deps"`
	Stage     Stage             `toml:"stage"`
}

// Load reads the configuration at path. Relative paths inside it are
// resolved against the file's directory and "~" is expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := c.resolve(filepath.Dir(abs)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a configuration. Unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, err
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("unknown key %q", undec[0].String())
	}
	return c, nil
}

// resolve expands "~" and makes relative paths absolute against base.
func (c *Config) resolve(base string) error {
	expand := func(p *string) error {
		if *p == "" {
			return nil
		}
		v, err := ExpandPath(*p, base)
		if err != nil {
			return err
		}
		*p = v
		return nil
	}
	for _, p := range []*string{&c.Prefix, &c.Stage.Archive, &c.Stage.Patches, &c.Stage.Dir} {
		if err := expand(p); err != nil {
			return err
		}
	}
	for name, dir := range c.Deps {
		if err := expand(&dir); err != nil {
			return err
		}
		c.Deps[name] = dir
	}
	return nil
}

// ExpandPath expands a leading "~" and resolves a relative path against base.
func ExpandPath(p, base string) (string, error) {
	p, err := homedir.Expand(p)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(p) && base != "" {
		p = filepath.Join(base, p)
	}
	return filepath.Clean(p), nil
}

// Apply copies version, variants, compilers and dependency prefixes into
// spec. Variants given in the file are applied on top of the defaults.
func (c *Config) Apply(pkg *formula.Package, spec *formula.Spec) error {
	if c.Version != "" {
		spec.Version = c.Version
	}
	if err := spec.ParseVariants(pkg, c.Variants...); err != nil {
		return err
	}
	if c.Compilers.FC != "" {
		spec.FC = c.Compilers.FC
	}
	if c.Compilers.CC != "" {
		spec.CC = c.Compilers.CC
	}
	for _, name := range slices.Sorted(maps.Keys(c.Deps)) {
		spec.Deps[name] = formula.Prefix(c.Deps[name])
	}
	return nil
}

// CheckCompiler splits a compiler command line and reports the absolute
// path of its executable.
func CheckCompiler(command string) (string, error) {
	words, err := shellwords.Parse(command)
	if err != nil {
		return "", fmt.Errorf("compiler %q: %w", command, err)
	}
	if len(words) == 0 {
		return "", fmt.Errorf("%w: empty command", ErrNoCompiler)
	}
	path, err := exec.LookPath(words[0])
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoCompiler, words[0])
	}
	return path, nil
}
