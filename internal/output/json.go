package output

import (
	"encoding/json"
	"strings"

	"github.com/temirov/tree/internal/types"
	"github.com/temirov/tree/internal/utils"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	jsonTypeDirectory = "directory"
	jsonTypeFile      = "file"
	jsonTypeLink      = "link"
	jsonTypeReport    = "report"
	jsonErrorOpening  = "opening dir"
)

type jsonNode struct {
	Type     string      `json:"type"`
	Name     string      `json:"name"`
	Target   string      `json:"target,omitempty"`
	Size     *int64      `json:"size,omitempty"`
	Time     string      `json:"time,omitempty"`
	Error    string      `json:"error,omitempty"`
	Contents []*jsonNode `json:"contents,omitempty"`
}

type jsonReport struct {
	Type        string `json:"type"`
	Directories int    `json:"directories"`
	Files       int    `json:"files"`
}

// RenderJSON marshals the trees as an array of root objects followed by a report object.
func (renderer *Renderer) RenderJSON(trees []Tree) (string, error) {
	var total types.Summary
	document := make([]any, 0, len(trees)+1)
	for _, tree := range trees {
		total = total.Add(tree.Summary)
		if tree.Root == nil {
			continue
		}
		document = append(document, renderer.jsonTree(tree.Root))
	}
	document = append(document, jsonReport{Type: jsonTypeReport, Directories: total.Directories, Files: total.Files})
	encoded, jsonEncodeError := json.MarshalIndent(document, indentPrefix, indentSpacer)
	return string(encoded), jsonEncodeError
}

// StreamJSON emits the JSON document line by line.
func (renderer *Renderer) StreamJSON(trees []Tree, emit func(string) error) error {
	encoded, renderError := renderer.RenderJSON(trees)
	if renderError != nil {
		return renderError
	}
	for _, line := range strings.Split(encoded, "\n") {
		if emitError := emit(line); emitError != nil {
			return emitError
		}
	}
	return nil
}

func (renderer *Renderer) jsonTree(root *types.TreeNode) *jsonNode {
	type pendingNode struct {
		source *types.TreeNode
		target *jsonNode
	}
	rootNode := renderer.jsonEntry(root)
	queue := []pendingNode{{source: root, target: rootNode}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range current.source.Children {
			childNode := renderer.jsonEntry(child)
			current.target.Contents = append(current.target.Contents, childNode)
			queue = append(queue, pendingNode{source: child, target: childNode})
		}
	}
	return rootNode
}

func (renderer *Renderer) jsonEntry(node *types.TreeNode) *jsonNode {
	entry := node.Entry
	converted := &jsonNode{Type: jsonTypeFile, Name: entry.Name, Target: entry.LinkTarget}
	switch {
	case entry.Kind == types.KindSymlink:
		converted.Type = jsonTypeLink
	case entry.IsDirectory():
		converted.Type = jsonTypeDirectory
		if unreadableMarker(node) != "" {
			converted.Error = jsonErrorOpening
		}
	}
	if renderer.options.ShowSize && !entry.IsRoot() {
		size := entry.SizeBytes
		converted.Size = &size
	}
	if renderer.options.ShowDate && !entry.IsRoot() {
		converted.Time = utils.FormatTimestamp(entry.ModTime)
	}
	return converted
}
