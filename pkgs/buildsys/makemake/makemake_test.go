package makemake

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/goplus/llarhub/formula"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH")
	}
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
}

func newTestContext(t *testing.T) *formula.Context {
	t.Helper()
	ctx := formula.NewContext(context.Background(), t.TempDir())
	ctx.Stdout = io.Discard
	ctx.Stderr = io.Discard
	return ctx
}

func TestConfigureRunsGenerator(t *testing.T) {
	requireShell(t)
	ctx := newTestContext(t)
	src := ctx.SourceDir
	writeScript(t, filepath.Join(src, "makemake"), `echo "SRCDIR=$1" > makefile
echo "SYSTEM=$2" >> makefile
echo "CONFIG=$3" >> makefile
`)

	m := New(ctx, filepath.Join(t.TempDir(), "prefix"))
	if err := m.Configure("linux", "f77_gcc"); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	data, err := os.ReadFile(m.Makefile())
	if err != nil {
		t.Fatalf("makefile not generated: %v", err)
	}
	want := "SRCDIR=" + src + "\nSYSTEM=linux\nCONFIG=f77_gcc\n"
	if string(data) != want {
		t.Fatalf("makefile = %q, want %q", data, want)
	}
}

func TestConfigureWithoutExecBit(t *testing.T) {
	requireShell(t)
	ctx := newTestContext(t)
	script := filepath.Join(ctx.SourceDir, "makemake")
	if err := os.WriteFile(script, []byte("echo ok > makefile\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := New(ctx, t.TempDir())
	if err := m.Configure("linux", "f77_gcc"); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if _, err := os.Stat(m.Makefile()); err != nil {
		t.Fatalf("makefile not generated: %v", err)
	}
}

func TestConfigureFailure(t *testing.T) {
	requireShell(t)
	ctx := newTestContext(t)
	writeScript(t, filepath.Join(ctx.SourceDir, "makemake"), "exit 3\n")

	m := New(ctx, t.TempDir())
	err := m.Configure("linux", "f77_gcc")
	if err == nil {
		t.Fatalf("Configure() error = nil, want failure")
	}
	if !strings.Contains(err.Error(), "makemake: configure") {
		t.Fatalf("Configure() error = %v, want step name", err)
	}
}

func TestBuildIsSerial(t *testing.T) {
	requireShell(t)
	ctx := newTestContext(t)

	bin := t.TempDir()
	writeScript(t, filepath.Join(bin, "make"), `echo "args=[$*] makeflags=[$MAKEFLAGS] custom=[$CUSTOM]" > make.log
`)
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("MAKEFLAGS", "-j8")

	m := New(ctx, t.TempDir())
	m.Env("CUSTOM", "VAL")
	if err := m.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(ctx.SourceDir, "make.log"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), "args=[] makeflags=[] custom=[VAL]\n"; got != want {
		t.Fatalf("make saw %q, want %q", got, want)
	}
	if os.Getenv("CUSTOM") != "" {
		t.Fatalf("Env() leaked into the process environment")
	}
}

func TestBuildFailure(t *testing.T) {
	requireShell(t)
	ctx := newTestContext(t)
	bin := t.TempDir()
	writeScript(t, filepath.Join(bin, "make"), "exit 2\n")
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	if err := New(ctx, t.TempDir()).Build(); err == nil {
		t.Fatalf("Build() error = nil, want failure")
	}
}

func TestInstallFilesBestEffort(t *testing.T) {
	ctx := newTestContext(t)
	for name, mode := range map[string]os.FileMode{"libpgplot.a": 0o644, "pgxwin_server": 0o755} {
		if err := os.WriteFile(filepath.Join(ctx.SourceDir, name), []byte(name), mode); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(ctx.SourceDir, "rgb.txt"), 0o755); err != nil {
		t.Fatal(err)
	}

	prefix := filepath.Join(t.TempDir(), "nested", "prefix")
	m := New(ctx, prefix)
	installed, missing := m.InstallFiles("libpgplot.a", "libpgplot.so", "pgxwin_server", "rgb.txt")

	if !reflect.DeepEqual(installed, []string{"libpgplot.a", "pgxwin_server"}) {
		t.Fatalf("installed = %v", installed)
	}
	if !reflect.DeepEqual(missing, []string{"libpgplot.so", "rgb.txt"}) {
		t.Fatalf("missing = %v", missing)
	}
	fi, err := os.Stat(filepath.Join(prefix, "pgxwin_server"))
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o755 {
		t.Fatalf("pgxwin_server mode = %v, want 0755", fi.Mode().Perm())
	}

	if err := m.Install("does-not-exist"); err != nil {
		t.Fatalf("Install() error = %v, want nil for missing files", err)
	}
}

func TestInstallFilesIntoBuildDir(t *testing.T) {
	ctx := newTestContext(t)
	lib := filepath.Join(ctx.SourceDir, "libpgplot.a")
	if err := os.WriteFile(lib, []byte("archive"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := New(ctx, ctx.SourceDir)
	installed, missing := m.InstallFiles("libpgplot.a")
	if !reflect.DeepEqual(installed, []string{"libpgplot.a"}) || len(missing) != 0 {
		t.Fatalf("InstallFiles() = %v, %v", installed, missing)
	}
	if data, err := os.ReadFile(lib); err != nil || string(data) != "archive" {
		t.Fatalf("libpgplot.a = %q, %v, want unchanged", data, err)
	}
}

func TestUseSetsBuildEnv(t *testing.T) {
	dep := t.TempDir()
	for _, dir := range []string{"include", "lib/pkgconfig"} {
		if err := os.MkdirAll(filepath.Join(dep, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PKG_CONFIG_PATH", "")
	t.Setenv("CPPFLAGS", "-DX")
	t.Setenv("LDFLAGS", "")

	m := New(newTestContext(t), t.TempDir())
	if err := m.Use("zlib", formula.Prefix(dep)); err != nil {
		t.Fatalf("Use() error = %v", err)
	}
	want := map[string]string{
		"PKG_CONFIG_PATH": filepath.Join(dep, "lib", "pkgconfig"),
		"CPPFLAGS":        "-DX -I" + filepath.Join(dep, "include"),
		"LDFLAGS":         "-L" + filepath.Join(dep, "lib"),
	}
	if !reflect.DeepEqual(m.env, want) {
		t.Fatalf("env = %v, want %v", m.env, want)
	}

	if err := m.Use("missing", formula.Prefix(filepath.Join(dep, "nope"))); err == nil {
		t.Fatalf("Use() of missing prefix error = nil")
	}
}

func TestOutputDir(t *testing.T) {
	ctx := newTestContext(t)
	m := New(ctx, "")
	if got := m.OutputDir(); got != ctx.SourceDir {
		t.Fatalf("OutputDir() = %q, want source dir", got)
	}
	m.BuildDir("build")
	if got := m.OutputDir(); got != "build" {
		t.Fatalf("OutputDir() = %q, want %q", got, "build")
	}
	m.InstallDir("custom-install")
	if got := m.OutputDir(); got != "custom-install" {
		t.Fatalf("OutputDir() = %q, want %q", got, "custom-install")
	}
}

func TestMergeEnv(t *testing.T) {
	got := mergeEnv([]string{"B=1", "A=2", "MAKEFLAGS=-j4"}, map[string]string{"MAKEFLAGS": "", "C": "3"})
	want := []string{"A=2", "B=1", "C=3", "MAKEFLAGS="}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("mergeEnv() = %v, want %v", got, want)
	}
}
