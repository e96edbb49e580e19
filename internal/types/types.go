// Package types defines every cross-package data structure used by the tree CLI.
package types

import (
	"fmt"
	"time"
)

const (
	FormatRaw  = "raw"
	FormatJSON = "json"

	SortNone = ""
	SortName = "name"
	SortKind = "kind"
	SortSize = "size"

	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"

	// RootRelativePath is the relative path reported for a traversal root.
	RootRelativePath = "."
)

// Kind classifies a filesystem object.
type Kind string

const (
	KindFile       Kind = "file"
	KindDirectory  Kind = "directory"
	KindSymlink    Kind = "symlink"
	KindExecutable Kind = "executable"
)

// ExecutableState is the outcome of the platform executable-bit check.
type ExecutableState int

const (
	// ExecutableUnknown means the platform has no permission bits or the metadata was unavailable.
	ExecutableUnknown ExecutableState = iota
	ExecutableYes
	ExecutableNo
)

// DiagnosticCategory groups filesystem failures by their OS error class.
type DiagnosticCategory string

const (
	CategoryPermissionDenied    DiagnosticCategory = "permission-denied"
	CategoryNotFound            DiagnosticCategory = "not-found"
	CategoryMetadataUnavailable DiagnosticCategory = "metadata-unavailable"
	CategoryIO                  DiagnosticCategory = "io"
)

// Diagnostic is a non-fatal traversal failure attached to the affected path.
type Diagnostic struct {
	Path     string
	Category DiagnosticCategory
	Err      error
}

func (diagnostic Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %v", diagnostic.Path, diagnostic.Category, diagnostic.Err)
}

func (diagnostic Diagnostic) Unwrap() error {
	return diagnostic.Err
}

// Entry is one filesystem object produced by the traversal iterator.
type Entry struct {
	ID           uint64
	ParentID     uint64
	Path         string
	RelativePath string
	Name         string
	Kind         Kind
	Depth        int
	Hidden       bool
	Executable   ExecutableState
	SizeBytes    int64
	ModTime      time.Time
	LinkTarget   string
	// Expandable marks a directory the iterator will read children for.
	Expandable bool
	Diagnostic *Diagnostic
}

// IsDirectory reports whether the entry is rendered and counted as a directory.
func (entry Entry) IsDirectory() bool {
	return entry.Kind == KindDirectory
}

// IsRoot reports whether the entry is a traversal root.
func (entry Entry) IsRoot() bool {
	return entry.ParentID == 0
}

// Reason explains why a filter decision hid an entry.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonHidden            Reason = "hidden"
	ReasonExcludedByPattern Reason = "excluded-by-pattern"
	ReasonNotIncluded       Reason = "not-included"
	ReasonEmptyAfterFilter  Reason = "empty-after-filter"
)

// Decision is the filter engine's verdict for one entry.
type Decision struct {
	Visible bool
	Reason  Reason
}

// Admitted is the decision for a visible entry.
var Admitted = Decision{Visible: true}

// Rejected builds a hiding decision with the given reason.
func Rejected(reason Reason) Decision {
	return Decision{Visible: false, Reason: reason}
}

// TreeNode is an assembled entry with its visible children in final order.
type TreeNode struct {
	Entry         Entry
	Children      []*TreeNode
	IsLastSibling bool
	Diagnostics   []Diagnostic
}

// Summary holds the directory and file totals of an assembled tree.
type Summary struct {
	Directories int
	Files       int
}

// Add returns the element-wise sum of two summaries.
func (summary Summary) Add(other Summary) Summary {
	return Summary{
		Directories: summary.Directories + other.Directories,
		Files:       summary.Files + other.Files,
	}
}

// RenderLine is one printable line of a rendered tree.
type RenderLine struct {
	Prefix string
	Label  string
}

func (line RenderLine) String() string {
	return line.Prefix + line.Label
}

// Options is the fully resolved configuration of one tree invocation, after flags and
// configuration files have been merged.
type Options struct {
	Paths           []string
	ShowHidden      bool
	MaxDepth        int
	HasMaxDepth     bool
	IncludePatterns []string
	ExcludePatterns []string
	Sort            string
	Reverse         bool
	DirsFirst       bool
	ColorMode       string
	ShowSize        bool
	ShowDate        bool
	FollowSymlinks  bool
	PruneEmpty      bool
	UseGitignore    bool
	UseIgnoreFile   bool
	IncludeGit      bool
	Format          string
	CopyToClipboard bool
}

// ValidatedPath is an absolute input path that already passed existence checks.
type ValidatedPath struct {
	DisplayPath  string
	AbsolutePath string
}
