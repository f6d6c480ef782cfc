package build

import (
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/llarhub/formula"
)

// Prefix layout written after a successful install:
//
//	prefix/
//	  .llar/
//	    receipt.json   # what was built and how
//	    env.sh         # run environment, for sourcing from a shell
//	  libpgplot.a
//	  ...
const (
	metaDir     = ".llar"
	receiptFile = "receipt.json"
	envFile     = "env.sh"
)

// Receipt records a finished install.
type Receipt struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Spec      string            `json:"spec"`
	Variants  map[string]bool   `json:"variants"`
	Deps      map[string]string `json:"deps,omitempty"`
	Installed []string          `json:"installed"`
	Missing   []string          `json:"missing,omitempty"`
	Metadata  string            `json:"metadata,omitempty"`
	BuildTime time.Time         `json:"build_time"`
}

func newReceipt(pkg *formula.Package, spec *formula.Spec, out *formula.InstallResult) *Receipt {
	r := &Receipt{
		Name:      pkg.Name,
		Version:   spec.Version,
		Spec:      spec.String(),
		Variants:  maps.Clone(spec.Variants),
		Installed: out.Installed(),
		Missing:   out.Missing(),
		Metadata:  out.Metadata(),
		BuildTime: time.Now(),
	}
	for _, name := range spec.ActiveDependencies(pkg) {
		if dir, ok := spec.Dep(name); ok {
			if r.Deps == nil {
				r.Deps = make(map[string]string)
			}
			r.Deps[name] = dir.String()
		}
	}
	return r
}

// LoadReceipt reads the receipt of the install at prefix.
func LoadReceipt(prefix formula.Prefix) (*Receipt, error) {
	data, err := os.ReadFile(prefix.Join(metaDir, receiptFile))
	if err != nil {
		return nil, err
	}
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func writeReceipt(prefix formula.Prefix, r *Receipt) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return writeMeta(prefix, receiptFile, append(data, '\n'))
}

func writeEnvScript(prefix formula.Prefix, mods *formula.EnvMods) error {
	if mods.Len() == 0 {
		return nil
	}
	return writeMeta(prefix, envFile, []byte(mods.Shell()))
}

func writeMeta(prefix formula.Prefix, name string, data []byte) error {
	dir := prefix.Join(metaDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

