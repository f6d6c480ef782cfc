package formula

import (
	"os"
	"strings"
)

type envOp int

const (
	opSet envOp = iota
	opUnset
	opPrepend
	opAppend
)

type envMod struct {
	op    envOp
	key   string
	value string
}

// EnvMods is an ordered list of environment modifications.
type EnvMods struct {
	mods []envMod
}

// Set sets key to value.
func (e *EnvMods) Set(key, value string) {
	e.mods = append(e.mods, envMod{opSet, key, value})
}

// Unset removes key.
func (e *EnvMods) Unset(key string) {
	e.mods = append(e.mods, envMod{op: opUnset, key: key})
}

// PrependPath prepends value to a PATH-style variable.
func (e *EnvMods) PrependPath(key, value string) {
	e.mods = append(e.mods, envMod{opPrepend, key, value})
}

// AppendPath appends value to a PATH-style variable.
func (e *EnvMods) AppendPath(key, value string) {
	e.mods = append(e.mods, envMod{opAppend, key, value})
}

// Len returns the number of modifications.
func (e *EnvMods) Len() int { return len(e.mods) }

// Vars returns the variables the modifications touch, in first-touch order.
func (e *EnvMods) Vars() []string {
	var keys []string
	seen := make(map[string]bool)
	for _, m := range e.mods {
		if !seen[m.key] {
			seen[m.key] = true
			keys = append(keys, m.key)
		}
	}
	return keys
}

// Apply returns environ with the modifications applied. environ is not
// modified.
func (e *EnvMods) Apply(environ []string) []string {
	vals := make(map[string]string, len(environ))
	listed := make(map[string]bool, len(environ))
	var order []string
	track := func(k string) {
		if !listed[k] {
			listed[k] = true
			order = append(order, k)
		}
	}
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			track(k)
			vals[k] = v
		}
	}
	for _, m := range e.mods {
		cur, had := vals[m.key]
		switch m.op {
		case opSet:
			vals[m.key] = m.value
		case opUnset:
			delete(vals, m.key)
		case opPrepend:
			if had && cur != "" {
				vals[m.key] = m.value + string(os.PathListSeparator) + cur
			} else {
				vals[m.key] = m.value
			}
		case opAppend:
			if had && cur != "" {
				vals[m.key] = cur + string(os.PathListSeparator) + m.value
			} else {
				vals[m.key] = m.value
			}
		}
		track(m.key)
	}
	out := make([]string, 0, len(order))
	for _, k := range order {
		if v, ok := vals[k]; ok {
			out = append(out, k+"="+v)
		}
	}
	return out
}

// Shell renders the modifications as POSIX shell statements.
func (e *EnvMods) Shell() string {
	var b strings.Builder
	sep := string(os.PathListSeparator)
	for _, m := range e.mods {
		switch m.op {
		case opSet:
			b.WriteString("export " + m.key + "=" + shellQuote(m.value) + "\n")
		case opUnset:
			b.WriteString("unset " + m.key + "\n")
		case opPrepend:
			b.WriteString("export " + m.key + "=" + shellQuote(m.value) + "${" + m.key + ":+" + sep + "$" + m.key + "}\n")
		case opAppend:
			b.WriteString("export " + m.key + "=${" + m.key + ":+$" + m.key + sep + "}" + shellQuote(m.value) + "\n")
		}
	}
	return b.String()
}

func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("/._-+:,@%", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
