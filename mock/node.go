package mock

import (
	"context"

	"github.com/fwojciec/refdex"
)

// Compile-time interface verification.
var (
	_ refdex.NodeService = (*NodeService)(nil)
	_ refdex.RunService  = (*RunService)(nil)
)

// NodeService is a mock implementation of refdex.NodeService.
type NodeService struct {
	FindOrCreateNodeFn func(ctx context.Context, node *refdex.Node) (*refdex.Node, error)
	FindNodeByIDFn     func(ctx context.Context, id int64) (*refdex.Node, error)
	FindNodeByURLFn    func(ctx context.Context, url string) (*refdex.Node, error)
	FindNodesFn        func(ctx context.Context, filter refdex.NodeFilter) ([]*refdex.Node, error)
	UpdateNodeFn       func(ctx context.Context, id int64, upd refdex.NodeUpdate) (*refdex.Node, error)
	CountIncompleteFn  func(ctx context.Context) (int, error)
}

func (s *NodeService) FindOrCreateNode(ctx context.Context, node *refdex.Node) (*refdex.Node, error) {
	return s.FindOrCreateNodeFn(ctx, node)
}

func (s *NodeService) FindNodeByID(ctx context.Context, id int64) (*refdex.Node, error) {
	return s.FindNodeByIDFn(ctx, id)
}

func (s *NodeService) FindNodeByURL(ctx context.Context, url string) (*refdex.Node, error) {
	return s.FindNodeByURLFn(ctx, url)
}

func (s *NodeService) FindNodes(ctx context.Context, filter refdex.NodeFilter) ([]*refdex.Node, error) {
	return s.FindNodesFn(ctx, filter)
}

func (s *NodeService) UpdateNode(ctx context.Context, id int64, upd refdex.NodeUpdate) (*refdex.Node, error) {
	return s.UpdateNodeFn(ctx, id, upd)
}

func (s *NodeService) CountIncomplete(ctx context.Context) (int, error) {
	return s.CountIncompleteFn(ctx)
}

// RunService is a mock implementation of refdex.RunService.
type RunService struct {
	CreateRunFn func(ctx context.Context, run *refdex.Run) error
	FinishRunFn func(ctx context.Context, id string, stats refdex.RunStats) error
	FindRunsFn  func(ctx context.Context, limit int) ([]*refdex.Run, error)
}

func (s *RunService) CreateRun(ctx context.Context, run *refdex.Run) error {
	return s.CreateRunFn(ctx, run)
}

func (s *RunService) FinishRun(ctx context.Context, id string, stats refdex.RunStats) error {
	return s.FinishRunFn(ctx, id, stats)
}

func (s *RunService) FindRuns(ctx context.Context, limit int) ([]*refdex.Run, error) {
	return s.FindRunsFn(ctx, limit)
}
