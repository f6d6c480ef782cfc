package env

import (
	"os"
	"path/filepath"
)

// WorkDir returns the per-user working directory of llarhub.
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".llarhub"), nil
}

// StageDir returns the directory stage trees are created in, creating it
// if needed. LLARHUB_STAGE overrides the default.
func StageDir() (string, error) {
	dir := os.Getenv("LLARHUB_STAGE")
	if dir == "" {
		work, err := WorkDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(work, "stage")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// ConfigFile returns the default configuration file of a recipe,
// <config dir>/llarhub/<name>.toml. It need not exist.
func ConfigFile(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "llarhub", name+".toml"), nil
}
