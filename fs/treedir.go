package fs

import (
	"os"
	"path/filepath"

	"github.com/fwojciec/refdex"
)

// TreeDir writes one Markdown file per node with atomic update semantics.
// Files are written to baseDir/name.tmp and moved to baseDir/name on Commit.
type TreeDir struct {
	baseDir string
	name    string
}

// NewTreeDir creates a new TreeDir.
func NewTreeDir(baseDir, name string) *TreeDir {
	return &TreeDir{
		baseDir: baseDir,
		name:    name,
	}
}

func (d *TreeDir) tempDir() string {
	return filepath.Join(d.baseDir, d.name+".tmp")
}

// Dir returns the final directory.
func (d *TreeDir) Dir() string {
	return filepath.Join(d.baseDir, d.name)
}

// Save writes node under the temporary directory.
func (d *TreeDir) Save(node *refdex.Node) error {
	relPath, err := URLToPath(node.URL)
	if err != nil {
		return err
	}

	fullPath := filepath.Join(d.tempDir(), relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, []byte(FormatNode(node)), 0644)
}

// Commit replaces the final directory with the saved files.
func (d *TreeDir) Commit() error {
	if err := os.MkdirAll(d.tempDir(), 0755); err != nil {
		return err
	}
	if err := os.RemoveAll(d.Dir()); err != nil {
		return err
	}
	return os.Rename(d.tempDir(), d.Dir())
}

// Abort discards the saved files.
func (d *TreeDir) Abort() error {
	return os.RemoveAll(d.tempDir())
}
