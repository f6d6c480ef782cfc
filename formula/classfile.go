// Package formula is the declaration API of llarhub recipes.
//
// A recipe builds a [Package] by calling its declaration methods (Version,
// Variant, DependsOn, Patch, ...) and registering the OnInstall and
// OnRunEnv hooks. The runtime then concretizes a [Spec] against those
// declarations and invokes the hooks once.
package formula

import (
	"fmt"
	"slices"

	"github.com/goplus/llarhub/pkgs/gnu"
	"github.com/goplus/llarhub/pkgs/mod/module"
)

// -----------------------------------------------------------------------------

// VersionDecl is a declared version and the checksum of its source archive.
type VersionDecl struct {
	Version  string
	Checksum string
}

// Variant is an optional build-time feature flag.
type Variant struct {
	Name        string
	Default     bool
	Description string
}

// Dependency is a package this one depends on. When is a variant
// condition such as "+png"; an empty When always applies.
type Dependency struct {
	Name string
	When string
}

// Package represents the build recipe of a package.
type Package struct {
	Name        string
	Homepage    string
	Description string

	// Parallel reports whether the package's own build may run in parallel.
	Parallel bool

	versions []VersionDecl
	variants []Variant
	deps     []Dependency
	patches  []string
	errs     []error

	fURL       func(ver string) string
	fOnInstall func(ctx *Context, spec *Spec, prefix Prefix, out *InstallResult)
	fOnRunEnv  func(env *EnvMods, prefix Prefix)
}

// NewPackage returns an empty recipe for name.
func NewPackage(name string) *Package {
	return &Package{Name: name, Parallel: true}
}

// Version declares a version together with the checksum of its archive.
func (p *Package) Version(ver, checksum string) {
	if err := module.CheckVersion(ver); err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", p.Name, err))
		return
	}
	p.versions = append(p.versions, VersionDecl{Version: ver, Checksum: checksum})
}

// Variant declares a build-time feature flag.
func (p *Package) Variant(name string, def bool, description string) {
	if _, ok := p.variant(name); ok {
		p.errs = append(p.errs, fmt.Errorf("%s: duplicate variant %q", p.Name, name))
		return
	}
	p.variants = append(p.variants, Variant{Name: name, Default: def, Description: description})
}

// DependsOn declares a dependency, optionally conditioned on a variant
// ("+png", "~ps").
func (p *Package) DependsOn(name, when string) {
	if when != "" {
		vname, _, err := parseCondition(when)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: depends_on %s: %w", p.Name, name, err))
			return
		}
		if _, ok := p.variant(vname); !ok {
			p.errs = append(p.errs, fmt.Errorf("%s: depends_on %s: %w: %s", p.Name, name, ErrUnknownVariant, vname))
			return
		}
	}
	p.deps = append(p.deps, Dependency{Name: name, When: when})
}

// Patch declares a patch file applied to the source before install.
func (p *Package) Patch(name string) {
	p.patches = append(p.patches, name)
}

// URLForVersion sets the rule building the archive URL of a version.
func (p *Package) URLForVersion(f func(ver string) string) {
	p.fURL = f
}

// OnInstall registers the install hook. It runs inside the staged source
// directory; failures are reported through out.
func (p *Package) OnInstall(f func(ctx *Context, spec *Spec, prefix Prefix, out *InstallResult)) {
	p.fOnInstall = f
}

// OnRunEnv registers the hook describing the environment consumers of the
// installed package need.
func (p *Package) OnRunEnv(f func(env *EnvMods, prefix Prefix)) {
	p.fOnRunEnv = f
}

// -----------------------------------------------------------------------------

// Versions returns the declared versions.
func (p *Package) Versions() []VersionDecl {
	return slices.Clone(p.versions)
}

// Variants returns the declared variants in declaration order.
func (p *Package) Variants() []Variant {
	return slices.Clone(p.variants)
}

// Dependencies returns every declared dependency, conditional or not.
func (p *Package) Dependencies() []Dependency {
	return slices.Clone(p.deps)
}

// Patches returns the declared patch files in application order.
func (p *Package) Patches() []string {
	return slices.Clone(p.patches)
}

// Errs returns the declaration errors collected so far.
func (p *Package) Errs() []error {
	return p.errs
}

// PreferredVersion returns the highest declared version.
func (p *Package) PreferredVersion() string {
	vs := make([]string, len(p.versions))
	for i, v := range p.versions {
		vs[i] = v.Version
	}
	return gnu.Latest(vs)
}

// Lookup returns the declaration of ver.
func (p *Package) Lookup(ver string) (VersionDecl, bool) {
	for _, v := range p.versions {
		if v.Version == ver {
			return v, true
		}
	}
	return VersionDecl{}, false
}

// URL returns the archive URL of ver, or "" when no rule is set.
func (p *Package) URL(ver string) string {
	if p.fURL == nil {
		return ""
	}
	return p.fURL(ver)
}

// Install runs the install hook.
func (p *Package) Install(ctx *Context, spec *Spec, prefix Prefix) *InstallResult {
	out := &InstallResult{}
	if p.fOnInstall == nil {
		out.AddErr(fmt.Errorf("%s: no install hook", p.Name))
		return out
	}
	p.fOnInstall(ctx, spec, prefix, out)
	return out
}

// RunEnv returns the environment modifications for consumers of prefix.
func (p *Package) RunEnv(prefix Prefix) *EnvMods {
	env := &EnvMods{}
	if p.fOnRunEnv != nil {
		p.fOnRunEnv(env, prefix)
	}
	return env
}

func (p *Package) variant(name string) (Variant, bool) {
	for _, v := range p.variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}
