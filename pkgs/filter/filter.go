// Package filter edits text files in place, line by line.
//
// Lines are handed to editors without their terminator and written back
// with the original terminator, so untouched lines survive byte for byte.
// A pattern that matches nothing leaves the file unchanged and is not an
// error; callers that care inspect the returned match count.
package filter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// EditLines calls edit for every line of the file at path and replaces the
// line when edit reports a change. It returns the number of changed lines.
// The file is only rewritten when at least one line changed.
func EditLines(path string, edit func(line string) (string, bool)) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var out bytes.Buffer
	out.Grow(len(data))
	n := 0
	for len(data) > 0 {
		line, eol := data, []byte(nil)
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, eol, data = data[:i], data[i:i+1], data[i+1:]
		} else {
			data = nil
		}
		// keep CR of CRLF files on the terminator side
		if l := len(line); l > 0 && line[l-1] == '\r' {
			line, eol = line[:l-1], append([]byte{'\r'}, eol...)
		}
		if repl, changed := edit(string(line)); changed {
			n++
			out.WriteString(repl)
		} else {
			out.Write(line)
		}
		out.Write(eol)
	}
	if n == 0 {
		return 0, nil
	}
	if err := writeFile(path, out.Bytes()); err != nil {
		return 0, err
	}
	return n, nil
}

// FilterFile replaces every match of pattern on each line of path with
// repl. repl may reference submatches as $1 or ${name}.
func FilterFile(path, pattern, repl string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("filter %s: %w", path, err)
	}
	return Filter(path, re, func(line string) string {
		return re.ReplaceAllString(line, repl)
	})
}

// FilterFileLiteral is like FilterFile but inserts repl verbatim, so "$"
// in repl needs no escaping.
func FilterFileLiteral(path, pattern, repl string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("filter %s: %w", path, err)
	}
	return Filter(path, re, func(line string) string {
		return re.ReplaceAllLiteralString(line, repl)
	})
}

// Filter applies subst to every line re matches.
func Filter(path string, re *regexp.Regexp, subst func(line string) string) (int, error) {
	return EditLines(path, func(line string) (string, bool) {
		if !re.MatchString(line) {
			return line, false
		}
		return subst(line), true
	})
}

// writeFile replaces path through a temporary sibling, keeping its mode.
func writeFile(path string, data []byte) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), fi.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
