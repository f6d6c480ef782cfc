package formula

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// -----------------------------------------------------------------------------

// Context is handed to the install hook. It carries the staged source
// directory, a logger and the writers spawned processes inherit.
type Context struct {
	SourceDir string
	Stdout    io.Writer
	Stderr    io.Writer

	ctx context.Context
}

// NewContext returns a Context rooted at sourceDir. Process output goes to
// the standard streams until overridden.
func NewContext(ctx context.Context, sourceDir string) *Context {
	return &Context{
		SourceDir: sourceDir,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		ctx:       ctx,
	}
}

// Context returns the context.Context the install runs under.
func (c *Context) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Log returns the logger attached to the install.
func (c *Context) Log() *log.Logger {
	return LoggerFrom(c.Context())
}

// Path joins elem onto the source directory.
func (c *Context) Path(elem ...string) string {
	return filepath.Join(append([]string{c.SourceDir}, elem...)...)
}

// ReadFile reads a file of the source tree.
func (c *Context) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(c.Path(name))
}

// -----------------------------------------------------------------------------

// InstallResult represents the result of installing a package.
type InstallResult struct {
	errs      []error
	installed []string
	missing   []string
	metadata  string
}

// AddErr records an install error.
func (r *InstallResult) AddErr(err error) {
	r.errs = append(r.errs, err)
}

// Errs returns all errors collected during install.
func (r *InstallResult) Errs() []error {
	return r.errs
}

// AddInstalled records an artifact copied into the prefix.
func (r *InstallResult) AddInstalled(name string) {
	r.installed = append(r.installed, name)
}

// AddMissing records an expected artifact that could not be installed.
func (r *InstallResult) AddMissing(name string) {
	r.missing = append(r.missing, name)
}

// Installed returns the artifacts copied into the prefix.
func (r *InstallResult) Installed() []string {
	return r.installed
}

// Missing returns the expected artifacts that were not installed.
func (r *InstallResult) Missing() []string {
	return r.missing
}

// Metadata returns the install metadata, e.g. link flags for consumers.
func (r *InstallResult) Metadata() string {
	return r.metadata
}

// SetMetadata sets the install metadata.
func (r *InstallResult) SetMetadata(metadata string) {
	r.metadata = metadata
}
