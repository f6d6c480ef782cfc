//go:build !unix

package makemake

import "os"

// executable reports whether path exists; mode bits mean nothing here.
func executable(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
