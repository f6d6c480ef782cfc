package formula

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

var (
	ErrUnknownVariant    = errors.New("unknown variant")
	ErrUnknownVersion    = errors.New("unknown version")
	ErrMissingDependency = errors.New("missing dependency")
)

// Prefix is the install directory of a package instance.
type Prefix string

func (p Prefix) String() string { return string(p) }

// Include returns <prefix>/include.
func (p Prefix) Include() string { return filepath.Join(string(p), "include") }

// Lib returns <prefix>/lib.
func (p Prefix) Lib() string { return filepath.Join(string(p), "lib") }

// Bin returns <prefix>/bin.
func (p Prefix) Bin() string { return filepath.Join(string(p), "bin") }

// Join joins elem onto the prefix.
func (p Prefix) Join(elem ...string) string {
	return filepath.Join(append([]string{string(p)}, elem...)...)
}

// Spec is a concrete package instance: chosen version, variant values,
// resolved dependency prefixes and compilers. Hooks treat it as read-only.
type Spec struct {
	Name     string
	Version  string
	Variants map[string]bool
	Deps     map[string]Prefix

	FC string // Fortran compiler command
	CC string // C compiler command
}

// NewSpec returns the spec of pkg at ver with every variant at its default.
// An empty ver selects the preferred version.
func NewSpec(pkg *Package, ver string) *Spec {
	if ver == "" {
		ver = pkg.PreferredVersion()
	}
	s := &Spec{
		Name:     pkg.Name,
		Version:  ver,
		Variants: make(map[string]bool, len(pkg.variants)),
		Deps:     make(map[string]Prefix),
	}
	for _, v := range pkg.variants {
		s.Variants[v.Name] = v.Default
	}
	return s
}

// Has reports whether the variant condition holds: "+png" is true when png
// is enabled, "~png" (or "-png") when it is disabled. A bare name behaves
// like "+name".
func (s *Spec) Has(cond string) bool {
	name, want, err := parseCondition(cond)
	if err != nil {
		return false
	}
	return s.Variants[name] == want
}

// Dep returns the prefix of the named dependency.
func (s *Spec) Dep(name string) (Prefix, bool) {
	p, ok := s.Deps[name]
	return p, ok
}

// Enabled returns the names of all enabled variants, sorted.
func (s *Spec) Enabled() []string {
	var names []string
	for name, on := range s.Variants {
		if on {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// String renders the spec in the usual "name@ver +a ~b" form.
func (s *Spec) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	if s.Version != "" {
		b.WriteString("@" + s.Version)
	}
	for _, name := range slices.Sorted(maps.Keys(s.Variants)) {
		if s.Variants[name] {
			b.WriteString(" +" + name)
		} else {
			b.WriteString(" ~" + name)
		}
	}
	return b.String()
}

// ParseVariants applies variant settings to s. Each argument may hold
// several space separated items of the form "+name", "~name", "-name" or
// "name=true|false".
func (s *Spec) ParseVariants(pkg *Package, args ...string) error {
	for _, arg := range args {
		for _, item := range strings.Fields(arg) {
			name, on, err := parseSetting(item)
			if err != nil {
				return err
			}
			if _, ok := pkg.variant(name); !ok {
				return fmt.Errorf("%w: %s", ErrUnknownVariant, name)
			}
			s.Variants[name] = on
		}
	}
	return nil
}

// ActiveDependencies returns the dependencies of pkg that apply to s.
func (s *Spec) ActiveDependencies(pkg *Package) []string {
	var names []string
	for _, d := range pkg.deps {
		if d.When != "" && !s.Has(d.When) {
			continue
		}
		if !slices.Contains(names, d.Name) {
			names = append(names, d.Name)
		}
	}
	return names
}

// Validate checks s against the declarations of pkg: the version must be
// declared, every variant known, and every active dependency supplied.
func (s *Spec) Validate(pkg *Package) error {
	errs := slices.Clone(pkg.errs)
	if _, ok := pkg.Lookup(s.Version); !ok {
		errs = append(errs, fmt.Errorf("%w: %s@%s", ErrUnknownVersion, s.Name, s.Version))
	}
	for _, name := range slices.Sorted(maps.Keys(s.Variants)) {
		if _, ok := pkg.variant(name); !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownVariant, name))
		}
	}
	for _, name := range s.ActiveDependencies(pkg) {
		if _, ok := s.Deps[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingDependency, name))
		}
	}
	return errors.Join(errs...)
}

// parseCondition parses "+name", "~name", "-name" or "name".
func parseCondition(cond string) (name string, on bool, err error) {
	switch {
	case strings.HasPrefix(cond, "+"):
		name, on = cond[1:], true
	case strings.HasPrefix(cond, "~"), strings.HasPrefix(cond, "-"):
		name, on = cond[1:], false
	default:
		name, on = cond, true
	}
	if name == "" {
		return "", false, fmt.Errorf("invalid variant condition %q", cond)
	}
	return name, on, nil
}

func parseSetting(item string) (name string, on bool, err error) {
	if k, v, ok := strings.Cut(item, "="); ok {
		on, err = strconv.ParseBool(v)
		if err != nil || k == "" {
			return "", false, fmt.Errorf("invalid variant setting %q", item)
		}
		return k, on, nil
	}
	return parseCondition(item)
}
