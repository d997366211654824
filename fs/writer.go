// Package fs provides file-based export of the reference tree.
package fs

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fwojciec/refdex"
)

// URLToPath converts a reference page URL to a relative file path.
// Example: https://example.com/api_reference/core/memory.html → api_reference/core/memory.md
func URLToPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", refdex.Errorf(refdex.EINVALID, "invalid url %q: %v", rawURL, err)
	}

	path := u.Path

	// Handle root or trailing slash → index.md
	if path == "" || path == "/" {
		return "index.md", nil
	}

	path = strings.TrimPrefix(path, "/")

	if strings.HasSuffix(path, "/") {
		return path + "index.md", nil
	}

	for _, ext := range []string{".html", ".htm"} {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext) + ".md", nil
		}
	}
	return path + ".md", nil
}

// FormatNode formats a node as Markdown with YAML frontmatter.
func FormatNode(node *refdex.Node) string {
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("source: ")
	b.WriteString(node.URL)
	b.WriteString("\ntype: ")
	b.WriteString(string(node.Type))
	b.WriteString("\ndepth: ")
	b.WriteString(strconv.Itoa(node.Depth))
	if len(node.Keywords) > 0 {
		b.WriteString("\nkeywords:")
		for _, k := range node.Keywords {
			b.WriteString("\n  - ")
			b.WriteString(strconv.Quote(k))
		}
	}
	if !node.UpdatedAt.IsZero() {
		b.WriteString("\nupdated: ")
		b.WriteString(node.UpdatedAt.Format("2006-01-02"))
	}
	b.WriteString("\n---\n\n")
	b.WriteString(node.Description)
	b.WriteString("\n")
	return b.String()
}

// WriteFileAtomic writes the output of write to path through a temporary
// file in the same directory, replacing path only if write succeeds.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if err := write(f); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(f.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
