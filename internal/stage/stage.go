// Copyright 2024 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stage prepares a source tree for a recipe: it obtains the
// archive, verifies its checksum, unpacks it and applies the declared
// patches.
package stage

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrChecksum          = errors.New("checksum mismatch")
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)

var httpClient = &http.Client{
	Timeout: 10 * time.Minute,
}

// Fetch downloads rawURL into dir and returns the path of the file. Only
// http and https are supported; other schemes (ftp) need a local archive.
func Fetch(ctx context.Context, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, rawURL)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return "", fmt.Errorf("fetch %s: no file name in URL", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status: %d", rawURL, resp.StatusCode)
	}

	dest := filepath.Join(dir, name)
	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	return dest, f.Close()
}

// Verify checks the file at name against sum: 32 hex digits are an MD5
// digest, 64 a SHA-256 one. An empty sum is accepted without reading.
func Verify(name, sum string) error {
	if sum == "" {
		return nil
	}
	var h hash.Hash
	switch len(sum) {
	case md5.Size * 2:
		h = md5.New()
	case sha256.Size * 2:
		h = sha256.New()
	default:
		return fmt.Errorf("verify %s: unknown checksum format %q", name, sum)
	}
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	if got := hex.EncodeToString(h.Sum(nil)); !strings.EqualFold(got, sum) {
		return fmt.Errorf("%w: %s: got %s, want %s", ErrChecksum, filepath.Base(name), got, sum)
	}
	return nil
}

// ApplyPatches runs "patch -p1 -i <file>" in srcDir for each name, looked
// up in patchDir, in order. The first failure stops.
func ApplyPatches(ctx context.Context, srcDir, patchDir string, names []string, stdout, stderr io.Writer) error {
	for _, name := range names {
		file := filepath.Join(patchDir, name)
		if _, err := os.Stat(file); err != nil {
			return fmt.Errorf("patch %s: %w", name, err)
		}
		cmd := exec.CommandContext(ctx, "patch", "-p1", "-N", "-i", file)
		cmd.Dir = srcDir
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("patch %s: %w", name, err)
		}
	}
	return nil
}
