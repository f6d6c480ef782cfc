package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/goplus/llarhub/formula"
	"github.com/goplus/llarhub/internal/config"
	"github.com/goplus/llarhub/pgplot"
)

func TestParseRecipeArg(t *testing.T) {
	tests := []struct {
		arg         string
		wantName    string
		wantVersion string
	}{
		{"pgplot@5.2.2", "pgplot", "5.2.2"},
		{"pgplot", "pgplot", ""},
		{"pgplot@", "pgplot", ""},
		{"multiple@at@signs", "multiple@at", "signs"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			name, version := parseRecipeArg(tt.arg)
			if name != tt.wantName {
				t.Errorf("parseRecipeArg(%q) name = %q, want %q", tt.arg, name, tt.wantName)
			}
			if version != tt.wantVersion {
				t.Errorf("parseRecipeArg(%q) version = %q, want %q", tt.arg, version, tt.wantVersion)
			}
		})
	}
}

func TestLoadRecipe(t *testing.T) {
	pkg, err := loadRecipe("pgplot")
	if err != nil || pkg.Name != pgplot.Name {
		t.Fatalf("loadRecipe(pgplot) = %v, %v", pkg, err)
	}
	if _, err := loadRecipe("nope"); err == nil || !strings.Contains(err.Error(), "pgplot") {
		t.Fatalf("loadRecipe(nope) error = %v", err)
	}
}

func TestPrintInfo(t *testing.T) {
	var buf bytes.Buffer
	if err := printInfo(&buf, pgplot.New()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"pgplot: " + pgplot.Homepage,
		"5.2.2 (preferred)",
		"e8a6e8d0d5ef9d1709dfb567724525ae",
		"ftp://ftp.astro.caltech.edu/pub/pgplot/pgplot522.tar.gz",
		"~iterm",
		"+xwindows",
		"libx11",
		"when +xserve",
		"png_jmpbuf.patch",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("printInfo() output missing %q:\n%s", want, out)
		}
	}
}

func TestNewSpec(t *testing.T) {
	defer func() { installFC, installCC, installDeps = "", "", nil }()
	installFC = "gfortran-12"
	installDeps = map[string]string{"libx11": "/opt/x11"}

	pkg := pgplot.New()
	cfg := &config.Config{
		Variants:  []string{"~png"},
		Compilers: config.Compilers{FC: "gfortran", CC: "clang"},
		Deps:      map[string]string{"libx11": "/usr", "zlib": "/usr"},
	}
	spec, err := newSpec(pkg, "5.2.2", cfg, []string{"+iterm ~ps"})
	if err != nil {
		t.Fatalf("newSpec() error = %v", err)
	}
	if spec.Version != "5.2.2" {
		t.Errorf("Version = %q", spec.Version)
	}
	if spec.Variants["png"] || !spec.Variants["iterm"] || spec.Variants["ps"] || !spec.Variants["latex"] {
		t.Errorf("Variants = %v", spec.Variants)
	}
	if spec.FC != "gfortran-12" || spec.CC != "clang" {
		t.Errorf("compilers = %q, %q", spec.FC, spec.CC)
	}
	want := map[string]formula.Prefix{"libx11": formula.Prefix(filepath.Clean("/opt/x11")), "zlib": "/usr"}
	if !reflect.DeepEqual(spec.Deps, want) {
		t.Errorf("Deps = %v, want %v", spec.Deps, want)
	}

	if _, err := newSpec(pkg, "", cfg, []string{"+nope"}); err == nil {
		t.Fatalf("newSpec() with unknown variant error = nil")
	}
}

func TestLoadConfig_MissingDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := loadConfig("pgplot", "")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Prefix != "" || len(cfg.Variants) != 0 {
		t.Fatalf("loadConfig() = %+v, want empty", cfg)
	}
	if _, err := loadConfig("pgplot", filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("loadConfig() of explicit missing file error = nil")
	}
}

func TestResolvePrefix(t *testing.T) {
	if _, err := resolvePrefix("", &config.Config{}); err == nil {
		t.Fatalf("resolvePrefix() without prefix error = nil")
	}
	got, err := resolvePrefix("", &config.Config{Prefix: "/opt/pgplot"})
	if err != nil || got != formula.Prefix(filepath.Clean("/opt/pgplot")) {
		t.Fatalf("resolvePrefix() = %q, %v", got, err)
	}
	got, err = resolvePrefix("/flag", &config.Config{Prefix: "/opt/pgplot"})
	if err != nil || got != formula.Prefix(filepath.Clean("/flag")) {
		t.Fatalf("resolvePrefix() = %q, %v", got, err)
	}
}

func TestEnvCommand(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	prefix := t.TempDir()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"env", "pgplot", "--prefix", prefix})
	defer func() {
		rootCmd.SetOut(os.Stdout)
		rootCmd.SetErr(os.Stderr)
		rootCmd.SetArgs(nil)
		envPrefix = ""
	}()

	if err := Execute(context.Background()); err != nil {
		t.Fatalf("env error = %v", err)
	}
	want := "export PGPLOT_DIR=" + prefix + "\nexport PGPLOT_FONT=" + prefix + "\n"
	if out.String() != want {
		t.Fatalf("env output = %q, want %q", out.String(), want)
	}
}
