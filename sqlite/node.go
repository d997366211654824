package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/refdex"
)

// Compile-time interface verification.
var _ refdex.NodeService = (*NodeService)(nil)

// NodeService implements refdex.NodeService using SQLite.
type NodeService struct {
	db *DB
}

// NewNodeService creates a new NodeService.
func NewNodeService(db *DB) *NodeService {
	return &NodeService{db: db}
}

const nodeColumns = "id, url, description, checksum, keywords, type, depth, parent_id, children_ids, updated_at"

// FindOrCreateNode inserts the node unless its URL is already stored and
// returns the stored row. The first writer wins.
func (s *NodeService) FindOrCreateNode(ctx context.Context, node *refdex.Node) (*refdex.Node, error) {
	if err := node.Validate(); err != nil {
		return nil, err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO nodes (url, description, checksum, keywords, type, depth, parent_id, children_ids, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING
	`, node.URL, nullString(node.Description), node.Checksum, nullString(refdex.JoinKeywords(node.Keywords)),
		string(node.Type), node.Depth, node.ParentID, nullString(refdex.FormatChildIDs(node.ChildIDs)),
		formatTimestamp(time.Now()))
	if err != nil {
		return nil, storeError(err)
	}

	return s.FindNodeByURL(ctx, node.URL)
}

// FindNodeByID retrieves a node by ID.
func (s *NodeService) FindNodeByID(ctx context.Context, id int64) (*refdex.Node, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE id = ?", id)
	node, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, refdex.Errorf(refdex.ENOTFOUND, "node %d not found", id)
	}
	return node, err
}

// FindNodeByURL retrieves a node by URL.
func (s *NodeService) FindNodeByURL(ctx context.Context, url string) (*refdex.Node, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE url = ?", url)
	node, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, refdex.Errorf(refdex.ENOTFOUND, "node %q not found", url)
	}
	return node, err
}

// FindNodes retrieves nodes matching the filter.
func (s *NodeService) FindNodes(ctx context.Context, filter refdex.NodeFilter) ([]*refdex.Node, error) {
	// An explicit empty ID set matches nothing.
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return nil, nil
	}

	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + nodeColumns + " FROM nodes WHERE 1=1")

	if len(filter.IDs) > 0 {
		query.WriteString(" AND id IN (")
		for i, id := range filter.IDs {
			if i > 0 {
				query.WriteString(", ")
			}
			query.WriteString("?")
			args = append(args, id)
		}
		query.WriteString(")")
	}
	if filter.Depth != nil {
		query.WriteString(" AND depth = ?")
		args = append(args, *filter.Depth)
	}
	if filter.ParentID != nil {
		query.WriteString(" AND parent_id = ?")
		args = append(args, *filter.ParentID)
	}

	query.WriteString(" ORDER BY id ASC")

	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []*refdex.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	return nodes, rows.Err()
}

// UpdateNode applies all set fields of upd and the update timestamp in one
// statement. An empty update performs no write.
func (s *NodeService) UpdateNode(ctx context.Context, id int64, upd refdex.NodeUpdate) (*refdex.Node, error) {
	if upd.Empty() {
		return s.FindNodeByID(ctx, id)
	}

	sets := []string{"updated_at = ?"}
	args := []any{formatTimestamp(time.Now())}

	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.Checksum != nil {
		sets = append(sets, "checksum = ?")
		args = append(args, *upd.Checksum)
	}
	if upd.Keywords != nil {
		sets = append(sets, "keywords = ?")
		args = append(args, refdex.JoinKeywords(upd.Keywords))
	}
	if upd.ChildIDs != nil {
		sets = append(sets, "children_ids = ?")
		args = append(args, refdex.FormatChildIDs(upd.ChildIDs))
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, "UPDATE nodes SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, storeError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, refdex.Errorf(refdex.ENOTFOUND, "node %d not found", id)
	}

	return s.FindNodeByID(ctx, id)
}

// CountIncomplete returns the number of nodes without a description.
func (s *NodeService) CountIncomplete(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes WHERE description IS NULL OR description = ''").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (*refdex.Node, error) {
	var node refdex.Node
	var description, keywords, nodeType, children, updatedAt sql.NullString
	var depth, parentID sql.NullInt64

	if err := row.Scan(&node.ID, &node.URL, &description, &node.Checksum, &keywords, &nodeType,
		&depth, &parentID, &children, &updatedAt); err != nil {
		return nil, err
	}

	node.Description = description.String
	node.Keywords = refdex.SplitKeywords(keywords.String)
	node.Type = refdex.NodeType(nodeType.String)
	node.Depth = int(depth.Int64)
	node.ParentID = parentID.Int64

	ids, err := refdex.ParseChildIDs(children.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse children_ids of node %d: %w", node.ID, err)
	}
	node.ChildIDs = ids

	if updatedAt.String != "" {
		node.UpdatedAt, err = parseTimestamp(updatedAt.String, "updated_at")
		if err != nil {
			return nil, err
		}
	}

	return &node, nil
}
