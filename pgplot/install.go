package pgplot

import (
	"maps"
	"slices"

	"github.com/goplus/llarhub/formula"
	"github.com/goplus/llarhub/pkgs/buildsys/makemake"
)

func install(ctx *formula.Context, spec *formula.Spec, prefix formula.Prefix, out *formula.InstallResult) {
	log := ctx.Log()

	driversList := ctx.Path("drivers.list")
	for _, d := range Drivers(spec) {
		n, err := SelectDriver(driversList, d)
		if err != nil {
			out.AddErr(err)
			return
		}
		log.Debug("select driver", "driver", d, "lines", n)
	}

	mk := makemake.New(ctx, prefix.String())
	for _, name := range slices.Sorted(maps.Keys(spec.Deps)) {
		if err := mk.Use(name, spec.Deps[name]); err != nil {
			log.Warn("dependency prefix not usable", "dep", name, "err", err)
		}
	}

	if err := mk.Configure(System, Config); err != nil {
		out.AddErr(err)
		return
	}

	vars := MakefileVars(spec)
	counts, err := PatchMakefile(mk.Makefile(), vars)
	if err != nil {
		out.AddErr(err)
		return
	}
	for _, a := range vars {
		log.Debug("patch makefile", "var", a.Name, "matches", counts[a.Name])
	}
	for k, v := range BuildEnv(spec) {
		mk.Env(k, v)
	}

	if err := mk.Build(); err != nil {
		out.AddErr(err)
		return
	}

	installed, missing := mk.InstallFiles(Artifacts...)
	for _, f := range installed {
		out.AddInstalled(f)
	}
	for _, f := range missing {
		log.Warn("artifact not installed", "file", f)
		out.AddMissing(f)
	}
	out.SetMetadata("-L" + prefix.String() + " -lpgplot")
}
