package pgplot

import (
	"regexp"
	"strings"

	"github.com/goplus/llarhub/formula"
	"github.com/goplus/llarhub/pkgs/filter"
)

// variantDrivers maps each variant to the drivers.list names it enables.
var variantDrivers = []struct {
	variant string
	drivers []string
}{
	{"png", []string{"png", "tpng"}},
	{"iterm", []string{"iterm"}},
	{"latex", []string{"latex"}},
	{"xwindows", []string{"xwindow"}},
	{"xserve", []string{"xserve"}},
	{"ps", []string{"ps", "vps", "cps", "vcps"}},
}

// Drivers returns the drivers implied by the enabled variants of spec, in
// a fixed order.
func Drivers(spec *formula.Spec) []string {
	var out []string
	for _, vd := range variantDrivers {
		if spec.Has("+" + vd.variant) {
			out = append(out, vd.drivers...)
		}
	}
	return out
}

// SelectDriver enables driver in the drivers.list file at path: a line
// "!<text>/<DRIVER><rest>" becomes " <text>/<DRIVER><rest>". Other lines
// are left untouched and an unknown driver is not an error. It returns
// the number of lines enabled.
func SelectDriver(path, driver string) (int, error) {
	re := driverPattern(driver)
	return filter.EditLines(path, func(line string) (string, bool) {
		m := re.FindStringSubmatch(line)
		if m == nil {
			return line, false
		}
		return " " + m[1], true
	})
}

func driverPattern(driver string) *regexp.Regexp {
	return regexp.MustCompile(`^!(.+/` + regexp.QuoteMeta(strings.ToUpper(driver)) + `\b.*)$`)
}
