package pgplot

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goplus/llarhub/formula"
	"github.com/goplus/llarhub/pkgs/filter"
)

// Assignment is a makefile variable line "Name=Value".
type Assignment struct {
	Name  string
	Value string
}

// Line returns the makefile line of a.
func (a Assignment) Line() string {
	return a.Name + "=" + a.Value
}

// Pattern matches the whole assignment line of a, whatever its value.
func (a Assignment) Pattern() string {
	return `^` + regexp.QuoteMeta(a.Name) + `\s*=.*`
}

// Compilers returns the Fortran and C compiler commands of spec, defaulting
// to gfortran and gcc.
func Compilers(spec *formula.Spec) (fc, cc string) {
	fc, cc = spec.FC, spec.CC
	if fc == "" {
		fc = "gfortran"
	}
	if cc == "" {
		cc = "gcc"
	}
	return fc, cc
}

type linkPaths struct {
	x11Include, x11Lib string
	pngInclude, pngLib string
	zInclude, zLib     string
}

func resolvePaths(spec *formula.Spec) (lp linkPaths, png bool) {
	lp.x11Include = filepath.Join(DefaultX11Prefix, "include")
	lp.x11Lib = filepath.Join(DefaultX11Prefix, "lib")
	if x11, ok := spec.Dep("libx11"); ok {
		lp.x11Include, lp.x11Lib = x11.Include(), x11.Lib()
	}
	if !spec.Has("+png") {
		return lp, false
	}
	if p, ok := spec.Dep("libpng"); ok {
		lp.pngInclude, lp.pngLib = p.Include(), p.Lib()
	}
	if z, ok := spec.Dep("zlib"); ok {
		lp.zInclude, lp.zLib = z.Include(), z.Lib()
	}
	return lp, true
}

func (lp linkPaths) pngLibs() string {
	return join("-L"+lp.pngLib, "-lpng", "-L"+lp.zLib, "-lz")
}

// MakefileVars returns the assignments written into the generated makefile,
// in the order they are applied.
func MakefileVars(spec *formula.Spec) []Assignment {
	fc, cc := Compilers(spec)
	lp, png := resolvePaths(spec)

	xincl := "-I" + lp.x11Include
	libs := join("-L"+lp.x11Lib, "-lX11", "`$(SRC)/cpg/libgcc_path.sh`", "-lm", "-L.", "-lpgplot")
	pgplotLib := "-L`pwd` -lpgplot"

	vars := []Assignment{
		{"FCOMPL", fc},
		{"CCOMPL", cc},
		{"FFLAGC", ""},
		{"FFLAGD", ""},
	}
	if png {
		xincl = join(xincl, "-I"+lp.pngInclude, "-I"+lp.zInclude)
		libs = join(libs, lp.pngLibs())
		pgplotLib = join(pgplotLib, lp.pngLibs())
	}
	vars = append(vars,
		Assignment{"XINCL", xincl},
		Assignment{"LIBS", libs},
	)
	if png {
		vars = append(vars,
			Assignment{"PGPLOT_LIB", pgplotLib},
			Assignment{"SHARED_LIB_LIBS", lp.pngLibs()},
		)
	}
	vars = append(vars, Assignment{"SHARED_LD", join(fc, "-shared", "-o", "libpgplot.so")})
	return vars
}

// BuildEnv returns the variables exported to make alongside the patched
// makefile.
func BuildEnv(spec *formula.Spec) map[string]string {
	lp, png := resolvePaths(spec)
	env := map[string]string{"XINCL": "-I" + lp.x11Include}
	if png {
		env["XINCL"] = join(env["XINCL"], "-I"+lp.pngInclude, "-I"+lp.zInclude)
		env["SHARED_LIB_LIBS"] = lp.pngLibs()
	}
	return env
}

// PatchMakefile overwrites each assignment line of vars in the makefile at
// path, in order. It returns how many lines each variable replaced; a zero
// count means the generator did not emit that variable and its default
// stays in effect.
func PatchMakefile(path string, vars []Assignment) (map[string]int, error) {
	counts := make(map[string]int, len(vars))
	for _, a := range vars {
		n, err := filter.FilterFileLiteral(path, a.Pattern(), a.Line())
		if err != nil {
			return counts, err
		}
		counts[a.Name] += n
	}
	return counts, nil
}

func join(parts ...string) string {
	return strings.Join(parts, " ")
}
