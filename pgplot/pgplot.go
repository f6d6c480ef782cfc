// Package pgplot is the recipe of the PGPLOT graphics subroutine library.
package pgplot

import (
	"fmt"

	"github.com/goplus/llarhub/formula"
	"github.com/goplus/llarhub/pkgs/mod/module"
)

const (
	Name     = "pgplot"
	Homepage = "http://www.astro.caltech.edu/~tjp/pgplot/"

	// System and configuration handed to makemake.
	System = "linux"
	Config = "f77_gcc"

	// Used when no libx11 prefix is supplied.
	DefaultX11Prefix = "/usr/X11R6"
)

// Artifacts are the build outputs copied into the prefix. Which of them
// exist depends on the enabled variants.
var Artifacts = []string{
	"drivers.list",
	"grexec.f",
	"grfont.dat",
	"libpgplot.a",
	"libpgplot.so",
	"pgdisp",
	"pgplot.doc",
	"pgxwin_server",
	"rgb.txt",
}

// URL returns the archive URL of ver.
func URL(ver string) string {
	return fmt.Sprintf("ftp://ftp.astro.caltech.edu/pub/pgplot/pgplot%s.tar.gz", module.Joined(ver))
}

// New returns the PGPLOT recipe.
func New() *formula.Package {
	p := formula.NewPackage(Name)
	p.Homepage = Homepage
	p.Description = "The PGPLOT Graphics Subroutine Library is a Fortran- or C-callable, " +
		"device-independent graphics package for making simple scientific graphs. " +
		"It is intended for making graphical images of publication quality with minimum " +
		"effort on the part of the user."
	p.Parallel = false

	p.Version("5.2.2", "e8a6e8d0d5ef9d1709dfb567724525ae")
	p.URLForVersion(URL)

	p.Variant("png", true, "Add /PNG and /TPNG driver.")
	p.Variant("iterm", false, "Add /ITERM driver.")
	p.Variant("latex", true, "Add /LATEX driver.")
	p.Variant("xwindows", true, "Add /XWINDOWS driver.")
	p.Variant("xserve", true, "Add /xserve driver.")
	p.Variant("ps", true, "Add all ps related drivers.")

	p.DependsOn("libpng", "+png")
	p.DependsOn("zlib", "+png")
	p.DependsOn("libx11", "+xwindows")
	p.DependsOn("libx11", "+xserve")

	p.Patch("remove_f2c.patch")
	p.Patch("select_driver.patch")
	p.Patch("png.patch")
	p.Patch("png_jmpbuf.patch")
	p.Patch("env.patch")

	p.OnInstall(install)
	p.OnRunEnv(runEnv)
	return p
}

func runEnv(env *formula.EnvMods, prefix formula.Prefix) {
	env.Set("PGPLOT_DIR", prefix.String())
	env.Set("PGPLOT_FONT", prefix.String())
}
