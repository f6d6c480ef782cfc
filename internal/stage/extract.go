// Copyright 2024 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stage

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
)

var ErrUnsafePath = errors.New("archive entry escapes destination")

// Extract unpacks a tar or gzip-compressed tar archive into dir. When the
// archive holds a single top-level directory, its path is returned;
// otherwise dir itself.
func Extract(archive, dir string) (string, error) {
	f, err := os.Open(archive)
	if err != nil {
		return "", err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, err := br.Peek(262)
	if err != nil && err != io.EOF {
		return "", err
	}

	var r io.Reader = br
	switch kind, _ := filetype.Match(head); kind {
	case matchers.TypeGz:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", archive, err)
		}
		defer zr.Close()
		r = zr
	case matchers.TypeTar:
	default:
		return "", fmt.Errorf("extract %s: unsupported archive type %q", archive, kind.MIME.Value)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tops, err := untar(r, dir)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", archive, err)
	}
	if len(tops) == 1 {
		for top := range tops {
			root := filepath.Join(dir, top)
			if fi, err := os.Stat(root); err == nil && fi.IsDir() {
				return root, nil
			}
		}
	}
	return dir, nil
}

// untar writes the entries of r below dir and returns the set of top-level
// names it created.
func untar(r io.Reader, dir string) (map[string]bool, error) {
	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, err
	}
	tops := make(map[string]bool)
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return tops, nil
		}
		if err != nil {
			return nil, err
		}
		if !filepath.IsLocal(hdr.Name) {
			return nil, fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}
		rel := filepath.Clean(filepath.FromSlash(hdr.Name))
		if rel == "." {
			continue
		}
		target := filepath.Join(dir, rel)
		real, err := resolve(target)
		if err != nil || !inside(root, real) {
			return nil, fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}
		tops[firstElem(rel)] = true

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return nil, err
			}
			if err := writeEntry(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return nil, err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) || !inside(root, filepath.Join(filepath.Dir(real), hdr.Linkname)) {
				return nil, fmt.Errorf("%w: %s -> %s", ErrUnsafePath, hdr.Name, hdr.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return nil, err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return nil, err
			}
		default:
			// devices, fifos and hard links are not needed by source trees
		}
	}
}

func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// resolve returns where target really lands: its deepest existing ancestor
// with symlinks evaluated, joined with the components still to be created.
// A dangling symlink on the way is an error.
func resolve(target string) (string, error) {
	p, rest := target, ""
	for {
		if _, err := os.Lstat(p); err == nil {
			real, err := filepath.EvalSymlinks(p)
			if err != nil {
				return "", err
			}
			return filepath.Join(real, rest), nil
		}
		parent := filepath.Dir(p)
		if parent == p {
			return target, nil
		}
		rest = filepath.Join(filepath.Base(p), rest)
		p = parent
	}
}

func inside(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && filepath.IsLocal(rel)
}

func firstElem(rel string) string {
	for {
		d := filepath.Dir(rel)
		if d == "." || d == rel {
			return rel
		}
		rel = d
	}
}
