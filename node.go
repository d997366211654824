package refdex

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// NodeType classifies a reference page.
type NodeType string

// Node types. Category pages own children; class and function pages are leaves.
const (
	NodeCategory NodeType = "category"
	NodeClass    NodeType = "class"
	NodeFunction NodeType = "function"
)

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeCategory, NodeClass, NodeFunction:
		return true
	}
	return false
}

// RootParentID is the parent ID of top-level category nodes.
const RootParentID int64 = 0

// Node is one page of the reference tree, keyed by URL.
type Node struct {
	ID       int64    `json:"id"`
	URL      string   `json:"url"`
	Type     NodeType `json:"type"`
	Depth    int      `json:"depth"`
	ParentID int64    `json:"parentId"`

	// ChildIDs is written once all children were processed in a crawl pass.
	// Empty means not yet known or a confirmed leaf.
	ChildIDs []int64 `json:"childIds,omitempty"`

	// Checksum is the fingerprint of the content the derived fields were
	// computed from.
	Checksum    string    `json:"checksum"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate returns an error if the node contains invalid fields.
func (n *Node) Validate() error {
	if n.URL == "" {
		return Errorf(EINVALID, "node URL required")
	}
	if !n.Type.Valid() {
		return Errorf(EINVALID, "invalid node type %q", n.Type)
	}
	if n.Depth < 1 {
		return Errorf(EINVALID, "node depth must be at least 1")
	}
	if n.Depth == 1 && n.ParentID != RootParentID {
		return Errorf(EINVALID, "root node cannot have a parent")
	}
	if n.Depth > 1 && n.ParentID == RootParentID {
		return Errorf(EINVALID, "node at depth %d requires a parent", n.Depth)
	}
	return nil
}

// Derived reports whether both description and keywords are populated.
func (n *Node) Derived() bool {
	return n.Description != "" && len(n.Keywords) > 0
}

// KeywordBlob returns the stored representation of the node's keywords.
func (n *Node) KeywordBlob() string {
	return JoinKeywords(n.Keywords)
}

// KeywordSeparator joins keywords in a keyword blob.
const KeywordSeparator = ","

// JoinKeywords joins keywords into a keyword blob.
func JoinKeywords(keywords []string) string {
	return strings.Join(keywords, KeywordSeparator)
}

// SplitKeywords splits a keyword blob. Empty entries are dropped.
func SplitKeywords(blob string) []string {
	if blob == "" {
		return nil
	}
	var keywords []string
	for _, k := range strings.Split(blob, KeywordSeparator) {
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

// FormatChildIDs encodes child IDs as a comma-separated list.
func FormatChildIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// ParseChildIDs decodes a comma-separated list of child IDs.
func ParseChildIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, Errorf(EINVALID, "invalid child id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// EqualIDs reports whether a and b hold the same IDs in the same order.
func EqualIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NodeService represents a service for managing reference tree nodes.
type NodeService interface {
	// FindOrCreateNode inserts the node unless a node with the same URL
	// exists, and returns the stored node either way. Concurrent callers
	// for the same URL observe the same ID.
	FindOrCreateNode(ctx context.Context, node *Node) (*Node, error)

	// FindNodeByID retrieves a node by ID.
	// Returns ENOTFOUND if node does not exist.
	FindNodeByID(ctx context.Context, id int64) (*Node, error)

	// FindNodeByURL retrieves a node by URL.
	// Returns ENOTFOUND if node does not exist.
	FindNodeByURL(ctx context.Context, url string) (*Node, error)

	// FindNodes retrieves nodes matching the filter, ordered by ID.
	FindNodes(ctx context.Context, filter NodeFilter) ([]*Node, error)

	// UpdateNode applies all set fields of upd in a single write.
	// Returns ENOTFOUND if node does not exist, ECONFLICT if the store
	// stayed busy.
	UpdateNode(ctx context.Context, id int64, upd NodeUpdate) (*Node, error)

	// CountIncomplete returns the number of nodes without a description.
	CountIncomplete(ctx context.Context) (int, error)
}

// NodeFilter represents a filter for FindNodes.
type NodeFilter struct {
	IDs      []int64 `json:"ids"`
	Depth    *int    `json:"depth"`
	ParentID *int64  `json:"parentId"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// NodeUpdate represents fields that can be updated on a node.
// Nil fields are left unchanged.
type NodeUpdate struct {
	Description *string  `json:"description"`
	Checksum    *string  `json:"checksum"`
	Keywords    []string `json:"keywords"`
	ChildIDs    []int64  `json:"childIds"`
}

// Empty reports whether the update changes nothing.
func (u NodeUpdate) Empty() bool {
	return u.Description == nil && u.Checksum == nil && u.Keywords == nil && u.ChildIDs == nil
}
