// Package makemake drives builds whose makefile is produced by a generator
// script, PGPLOT's makemake being the model: run the generator, patch the
// generated makefile, run make serially, copy the results.
package makemake

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goplus/llarhub/formula"
	"github.com/goplus/llarhub/pkgs/buildsys"
)

// MakeMake drives generator-script + make builds.
type MakeMake struct {
	ctx        *formula.Context
	sourceDir  string
	buildDir   string
	installDir string
	generator  string
	env        map[string]string
}

var _ buildsys.BuildSystem = (*MakeMake)(nil)

// New returns a MakeMake building in the context's source directory and
// installing into installDir.
func New(ctx *formula.Context, installDir string) *MakeMake {
	return &MakeMake{
		ctx:        ctx,
		sourceDir:  ctx.SourceDir,
		installDir: installDir,
		generator:  "makemake",
		env:        make(map[string]string),
	}
}

// Source overrides the source directory.
func (m *MakeMake) Source(dir string) { m.sourceDir = dir }

// InstallDir overrides the install directory.
func (m *MakeMake) InstallDir(dir string) { m.installDir = dir }

// BuildDir sets a build directory separate from the sources.
func (m *MakeMake) BuildDir(dir string) { m.buildDir = dir }

// Generator overrides the generator script name, relative to the source
// directory.
func (m *MakeMake) Generator(name string) { m.generator = name }

// Env sets key=value for every command spawned later. The current process
// environment is left alone.
func (m *MakeMake) Env(key, value string) {
	m.env[key] = value
}

// Use adds the include/lib/pkgconfig directories of an installed dependency
// to the build environment.
func (m *MakeMake) Use(name string, prefix formula.Prefix) error {
	if _, err := os.Stat(prefix.String()); err != nil {
		return fmt.Errorf("use %s: %w", name, err)
	}
	if dir := filepath.Join(prefix.Lib(), "pkgconfig"); isDir(dir) {
		m.prependPath("PKG_CONFIG_PATH", dir)
	}
	if dir := prefix.Include(); isDir(dir) {
		m.appendFlag("CPPFLAGS", "-I"+dir)
	}
	if dir := prefix.Lib(); isDir(dir) {
		m.appendFlag("LDFLAGS", "-L"+dir)
	}
	return nil
}

// Makefile returns the path of the generated makefile.
func (m *MakeMake) Makefile() string {
	return filepath.Join(m.workDir(), "makefile")
}

// Configure runs "<sourceDir>/<generator> <sourceDir> args..." in the
// build directory, e.g. "makemake /src linux f77_gcc".
func (m *MakeMake) Configure(args ...string) error {
	dir := m.workDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	script := filepath.Join(m.sourceDir, m.generator)
	argv := append([]string{m.sourceDir}, args...)
	name := script
	if !executable(script) {
		// archives unpacked without mode bits still carry a usable script
		name, argv = "sh", append([]string{script}, argv...)
	}
	if err := m.run(name, argv); err != nil {
		return fmt.Errorf("%s: configure: %w", m.generator, err)
	}
	return nil
}

// Build runs make with args. Parallel jobs are never requested and any
// inherited MAKEFLAGS are dropped.
func (m *MakeMake) Build(args ...string) error {
	if err := m.run("make", args); err != nil {
		return fmt.Errorf("make: %w", err)
	}
	return nil
}

// Install copies the named build outputs into the install directory. It
// never fails: missing outputs are skipped. Use InstallFiles to learn which.
func (m *MakeMake) Install(files ...string) error {
	m.InstallFiles(files...)
	return nil
}

// InstallFiles copies each named file from the build directory into the
// install directory, keeping its mode, and reports what was copied and
// what was not.
func (m *MakeMake) InstallFiles(files ...string) (installed, missing []string) {
	log := m.ctx.Log()
	if err := os.MkdirAll(m.installDir, 0o755); err != nil {
		log.Warn("cannot create install dir", "dir", m.installDir, "err", err)
		return nil, files
	}
	for _, f := range files {
		src := filepath.Join(m.workDir(), f)
		if err := copyFile(src, filepath.Join(m.installDir, filepath.Base(f))); err != nil {
			log.Debug("skip artifact", "file", f, "err", err)
			missing = append(missing, f)
			continue
		}
		installed = append(installed, f)
	}
	return installed, missing
}

// OutputDir returns installDir if set, otherwise the build directory.
func (m *MakeMake) OutputDir() string {
	if m.installDir != "" {
		return m.installDir
	}
	return m.workDir()
}

func (m *MakeMake) workDir() string {
	if m.buildDir != "" {
		return m.buildDir
	}
	if m.sourceDir != "" {
		return m.sourceDir
	}
	return "."
}

func (m *MakeMake) run(name string, args []string) error {
	cmd := exec.CommandContext(m.ctx.Context(), name, args...)
	cmd.Dir = m.workDir()
	cmd.Stdout = orDiscard(m.ctx.Stdout)
	cmd.Stderr = orDiscard(m.ctx.Stderr)
	env := map[string]string{"MAKEFLAGS": "", "MFLAGS": ""}
	for k, v := range m.env {
		env[k] = v
	}
	cmd.Env = mergeEnv(os.Environ(), env)
	m.ctx.Log().Debug("run", "cmd", name, "args", strings.Join(args, " "), "dir", cmd.Dir)
	return cmd.Run()
}

// mergeEnv returns base with every key in overrides replaced or appended,
// sorted by key.
func mergeEnv(base []string, overrides map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range overrides {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// prependPath prepends value to a PATH-style variable of the build env,
// falling back to the process environment for the current value.
func (m *MakeMake) prependPath(key, value string) {
	cur, ok := m.env[key]
	if !ok {
		cur = os.Getenv(key)
	}
	if cur != "" {
		value += string(os.PathListSeparator) + cur
	}
	m.env[key] = value
}

// appendFlag appends a space-separated flag to a variable of the build env.
func (m *MakeMake) appendFlag(key, flag string) {
	cur, ok := m.env[key]
	if !ok {
		cur = os.Getenv(key)
	}
	if cur != "" {
		flag = cur + " " + flag
	}
	m.env[key] = flag
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}
	if di, err := os.Stat(dst); err == nil && os.SameFile(fi, di) {
		return nil
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, fi.Mode().Perm())
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
