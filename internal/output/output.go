// Package output renders assembled trees as text lines or JSON.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/temirov/tree/internal/types"
	"github.com/temirov/tree/internal/utils"
)

const (
	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "

	summaryLineFormat    = "%d directories, %d files"
	symlinkTargetFormat  = "%s -> %s"
	columnFormat         = "[%s]  "
	sizeColumnFormat     = "%5s"
	unreadableSuffix     = " [error opening dir]"
	columnSeparator      = " "
	errorWriteLineFormat = "write line: %w"
)

// Options selects the optional columns and colouring of rendered lines.
type Options struct {
	Color    bool
	ShowSize bool
	ShowDate bool
}

// Tree is one assembled root with its totals.
type Tree struct {
	Root    *types.TreeNode
	Summary types.Summary
}

// Renderer turns trees into lines. It holds no per-tree state, so rendering the same tree twice
// produces the same lines.
type Renderer struct {
	options Options
	palette palette
}

type renderFrame struct {
	node     *types.TreeNode
	ancestry string
}

// NewRenderer creates a renderer for the given options.
func NewRenderer(options Options) *Renderer {
	return &Renderer{options: options, palette: newPalette(options.Color)}
}

// FormatSummary returns the closing totals line.
func FormatSummary(summary types.Summary) string {
	return fmt.Sprintf(summaryLineFormat, summary.Directories, summary.Files)
}

// WriteLines emits the root line followed by one line per descendant in pre-order.
func (renderer *Renderer) WriteLines(root *types.TreeNode, emit func(types.RenderLine) error) error {
	if root == nil {
		return nil
	}
	if emitError := emit(types.RenderLine{Label: renderer.label(root, true)}); emitError != nil {
		return emitError
	}
	stack := pushChildren(nil, root, "")
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		connector := treeBranchConnector
		padding := treeBranchPadding
		if current.node.IsLastSibling {
			connector = treeLastConnector
			padding = treeLastPadding
		}
		line := types.RenderLine{Prefix: current.ancestry + connector, Label: renderer.label(current.node, false)}
		if emitError := emit(line); emitError != nil {
			return emitError
		}
		stack = pushChildren(stack, current.node, current.ancestry+padding)
	}
	return nil
}

// Stream emits every tree, a blank line between trees, then a blank line and the combined summary.
func (renderer *Renderer) Stream(trees []Tree, emit func(string) error) error {
	var total types.Summary
	for index, tree := range trees {
		if index > 0 {
			if emitError := emit(""); emitError != nil {
				return emitError
			}
		}
		writeError := renderer.WriteLines(tree.Root, func(line types.RenderLine) error {
			return emit(line.String())
		})
		if writeError != nil {
			return writeError
		}
		total = total.Add(tree.Summary)
	}
	if emitError := emit(""); emitError != nil {
		return emitError
	}
	return emit(FormatSummary(total))
}

// Lines renders a single tree with its summary.
func (renderer *Renderer) Lines(root *types.TreeNode, summary types.Summary) []string {
	var lines []string
	// Stream only fails when emit does, and this emit always succeeds.
	_ = renderer.Stream([]Tree{{Root: root, Summary: summary}}, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	return lines
}

// Render writes the trees to writer, one line per row.
func (renderer *Renderer) Render(writer io.Writer, trees []Tree) error {
	return renderer.Stream(trees, func(line string) error {
		if _, writeError := io.WriteString(writer, line+"\n"); writeError != nil {
			return fmt.Errorf(errorWriteLineFormat, writeError)
		}
		return nil
	})
}

func pushChildren(stack []renderFrame, node *types.TreeNode, ancestry string) []renderFrame {
	for index := len(node.Children) - 1; index >= 0; index-- {
		stack = append(stack, renderFrame{node: node.Children[index], ancestry: ancestry})
	}
	return stack
}

func (renderer *Renderer) label(node *types.TreeNode, isRoot bool) string {
	entry := node.Entry
	var builder strings.Builder
	if !isRoot {
		builder.WriteString(renderer.columns(entry))
	}
	builder.WriteString(renderer.palette.name(entry))
	if entry.LinkTarget != "" {
		return fmt.Sprintf(symlinkTargetFormat, builder.String(), entry.LinkTarget) + unreadableMarker(node)
	}
	builder.WriteString(unreadableMarker(node))
	return builder.String()
}

func (renderer *Renderer) columns(entry types.Entry) string {
	var parts []string
	if renderer.options.ShowSize {
		parts = append(parts, fmt.Sprintf(sizeColumnFormat, utils.FormatFileSize(entry.SizeBytes)))
	}
	if renderer.options.ShowDate {
		parts = append(parts, utils.FormatTimestamp(entry.ModTime))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf(columnFormat, strings.Join(parts, columnSeparator))
}

func unreadableMarker(node *types.TreeNode) string {
	if !node.Entry.IsDirectory() {
		return ""
	}
	for _, diagnostic := range node.Diagnostics {
		if diagnostic.Path == node.Entry.Path {
			return unreadableSuffix
		}
	}
	return ""
}
