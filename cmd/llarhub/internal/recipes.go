package internal

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goplus/llarhub/formula"
	"github.com/goplus/llarhub/pgplot"
)

var recipes = map[string]func() *formula.Package{
	pgplot.Name: pgplot.New,
}

// loadRecipe returns the declarations of the named recipe.
func loadRecipe(name string) (*formula.Package, error) {
	newPkg, ok := recipes[name]
	if !ok {
		return nil, fmt.Errorf("unknown recipe %q (known: %s)", name, strings.Join(slices.Sorted(maps.Keys(recipes)), ", "))
	}
	pkg := newPkg()
	if errs := pkg.Errs(); len(errs) > 0 {
		return nil, fmt.Errorf("recipe %s: %v", name, errs[0])
	}
	return pkg, nil
}

// parseRecipeArg parses a recipe argument in the form "name@version" or "name".
func parseRecipeArg(arg string) (name, version string) {
	for i := len(arg) - 1; i >= 0; i-- {
		if arg[i] == '@' {
			return arg[:i], arg[i+1:]
		}
	}
	return arg, ""
}
