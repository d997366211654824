// Package etree exports the reference tree as an XML document.
package etree

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/fwojciec/refdex"
	"github.com/fwojciec/refdex/fs"
)

// DefaultIndent is the number of spaces per nesting level.
const DefaultIndent = 2

// Exporter renders stored nodes as nested <node> elements.
type Exporter struct {
	Nodes refdex.NodeService

	// Indent is the number of spaces per level. Zero selects DefaultIndent,
	// a negative value disables indentation.
	Indent int

	// Now returns the export timestamp. Defaults to time.Now.
	Now func() time.Time
}

// NewExporter creates a new Exporter.
func NewExporter(nodes refdex.NodeService) *Exporter {
	return &Exporter{Nodes: nodes}
}

// Build loads every node and returns the tree as an XML document. Children
// follow the stored ChildIDs order. Nodes whose ChildIDs were not written
// yet fall back to the nodes that name them as parent.
func (e *Exporter) Build(ctx context.Context) (*etree.Document, error) {
	nodes, err := e.Nodes.FindNodes(ctx, refdex.NodeFilter{})
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*refdex.Node, len(nodes))
	byParent := make(map[int64][]int64)
	var roots []int64
	for _, n := range nodes {
		byID[n.ID] = n
		if n.Depth == 1 {
			roots = append(roots, n.ID)
			continue
		}
		byParent[n.ParentID] = append(byParent[n.ParentID], n.ID)
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("reference")
	root.CreateAttr("nodes", strconv.Itoa(len(nodes)))
	root.CreateAttr("exported", now().UTC().Format(time.RFC3339))

	t := &tree{byID: byID, byParent: byParent, seen: make(map[int64]bool, len(nodes))}
	for _, id := range roots {
		t.add(root, id)
	}

	switch {
	case e.Indent == 0:
		doc.Indent(DefaultIndent)
	case e.Indent > 0:
		doc.Indent(e.Indent)
	}
	return doc, nil
}

// Export writes the XML document to w.
func (e *Exporter) Export(ctx context.Context, w io.Writer) error {
	doc, err := e.Build(ctx)
	if err != nil {
		return err
	}
	_, err = doc.WriteTo(w)
	return err
}

// ExportFile writes the XML document to path, replacing it atomically.
func (e *Exporter) ExportFile(ctx context.Context, path string) error {
	doc, err := e.Build(ctx)
	if err != nil {
		return err
	}
	return fs.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := doc.WriteTo(w)
		return err
	})
}

type tree struct {
	byID     map[int64]*refdex.Node
	byParent map[int64][]int64
	seen     map[int64]bool
}

func (t *tree) add(parent *etree.Element, id int64) {
	n, ok := t.byID[id]
	if !ok || t.seen[id] {
		return
	}
	t.seen[id] = true

	el := parent.CreateElement("node")
	el.CreateAttr("id", strconv.FormatInt(n.ID, 10))
	el.CreateAttr("type", string(n.Type))
	el.CreateAttr("depth", strconv.Itoa(n.Depth))
	el.CreateAttr("url", n.URL)
	if n.Checksum != "" {
		el.CreateAttr("checksum", n.Checksum)
	}

	if n.Description != "" {
		el.CreateElement("description").SetText(n.Description)
	}
	if len(n.Keywords) > 0 {
		kw := el.CreateElement("keywords")
		for _, k := range n.Keywords {
			kw.CreateElement("keyword").SetText(k)
		}
	}

	children := n.ChildIDs
	if len(children) == 0 {
		children = t.byParent[n.ID]
	}
	for _, child := range children {
		t.add(el, child)
	}
}
