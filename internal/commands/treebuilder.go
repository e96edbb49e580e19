// Package commands assembles filtered traversal output into trees.
package commands

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/tree/internal/filter"
	"github.com/temirov/tree/internal/traversal"
	"github.com/temirov/tree/internal/types"
	"github.com/temirov/tree/internal/utils"
)

const debugAssembledTree = "assembled tree"

// TreeOptions controls traversal depth and child ordering.
type TreeOptions struct {
	MaxDepth       int
	HasMaxDepth    bool
	FollowSymlinks bool
	// RootName overrides the label of the root node.
	RootName  string
	Sort      string
	Reverse   bool
	DirsFirst bool
}

// TreeBuilder builds directory tree nodes using configured options.
type TreeBuilder struct {
	FileSystem afero.Fs
	Filter     *filter.Engine
	Options    TreeOptions
	Logger     *zap.Logger
}

// NewTreeBuilder creates a builder that admits entries through engine.
func NewTreeBuilder(fileSystem afero.Fs, engine *filter.Engine, options TreeOptions, logger *zap.Logger) *TreeBuilder {
	return &TreeBuilder{FileSystem: fileSystem, Filter: engine, Options: options, Logger: utils.LoggerOrNop(logger)}
}

// Build walks root and returns the admitted tree, its totals, and the non-fatal diagnostics met on the way.
// Only directories still waiting for their children are held besides the tree itself.
func (builder *TreeBuilder) Build(root string) (*types.TreeNode, types.Summary, []types.Diagnostic, error) {
	logger := utils.LoggerOrNop(builder.Logger)
	iterator := traversal.New(builder.FileSystem, root, traversal.Options{
		MaxDepth:       builder.Options.MaxDepth,
		HasMaxDepth:    builder.Options.HasMaxDepth,
		FollowSymlinks: builder.Options.FollowSymlinks,
		RootName:       builder.Options.RootName,
		Logger:         logger,
	})

	var (
		rootNode    *types.TreeNode
		openParent  *types.TreeNode
		summary     types.Summary
		diagnostics []types.Diagnostic
	)
	// pending holds admitted directories whose children have not been read yet, in the order
	// the iterator will read them.
	pending := map[uint64]*types.TreeNode{}
	var pendingOrder []uint64
	closeParent := func() {
		if openParent == nil {
			return
		}
		builder.finalizeChildren(openParent)
		openParent = nil
	}
	advanceTo := func(id uint64) {
		for len(pendingOrder) > 0 && pendingOrder[0] != id {
			delete(pending, pendingOrder[0])
			pendingOrder = pendingOrder[1:]
		}
	}
	await := func(node *types.TreeNode) {
		pending[node.Entry.ID] = node
		pendingOrder = append(pendingOrder, node.Entry.ID)
	}

	for {
		entry, ok := iterator.Next()
		if !ok {
			break
		}
		if rootNode == nil {
			rootNode = &types.TreeNode{Entry: entry}
			if entry.Expandable {
				await(rootNode)
			}
			continue
		}

		if directoryNode, awaiting := pending[entry.ID]; awaiting && entry.Diagnostic != nil {
			closeParent()
			advanceTo(entry.ID)
			directoryNode.Diagnostics = append(directoryNode.Diagnostics, *entry.Diagnostic)
			diagnostics = append(diagnostics, *entry.Diagnostic)
			continue
		}

		decision := builder.Filter.Admit(entry)
		if !decision.Visible {
			if entry.Expandable {
				iterator.SkipSubtree(entry.ID)
			}
			continue
		}
		parent, found := pending[entry.ParentID]
		if !found {
			continue
		}
		if openParent != parent {
			closeParent()
			advanceTo(entry.ParentID)
			openParent = parent
		}

		node := &types.TreeNode{Entry: entry}
		if entry.Diagnostic != nil {
			node.Diagnostics = append(node.Diagnostics, *entry.Diagnostic)
			diagnostics = append(diagnostics, *entry.Diagnostic)
		}
		parent.Children = append(parent.Children, node)
		if entry.IsDirectory() {
			summary.Directories++
		} else {
			summary.Files++
		}
		if entry.Expandable {
			await(node)
		}
	}
	if iteratorError := iterator.Err(); iteratorError != nil {
		return nil, types.Summary{}, nil, iteratorError
	}
	closeParent()

	logger.Debug(debugAssembledTree,
		zap.String("root", root),
		zap.Int("directories", summary.Directories),
		zap.Int("files", summary.Files),
		zap.Int("diagnostics", len(diagnostics)),
		zap.Int("cachedDirectories", builder.Filter.Cache().Len()),
	)
	return rootNode, summary, diagnostics, nil
}

func (builder *TreeBuilder) finalizeChildren(parent *types.TreeNode) {
	SortChildren(parent.Children, builder.Options.Sort, builder.Options.Reverse, builder.Options.DirsFirst)
	for index, child := range parent.Children {
		child.IsLastSibling = index == len(parent.Children)-1
	}
}
