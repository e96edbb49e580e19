package traversal

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/tree/internal/types"
	"github.com/temirov/tree/internal/utils"
)

// ErrRootNotFound reports a traversal root that is missing or is not a directory.
var ErrRootNotFound = errors.New("root not found")

const (
	errorRootStatFormat      = "%w: %s: %w"
	errorRootNotDirFormat    = "%w: %s is not a directory"
	debugExpandedDirectory   = "expanded directory"
	debugUnreadableDirectory = "directory unreadable"
	debugRevisitedDirectory  = "skipping already visited directory"
)

// Options configures an Iterator.
type Options struct {
	// MaxDepth stops expansion below this depth when HasMaxDepth is set. Zero lists the root alone.
	MaxDepth    int
	HasMaxDepth bool
	// FollowSymlinks descends into symbolic links that point to directories.
	FollowSymlinks bool
	// RootName is the label reported for the root entry; defaults to the root path.
	RootName string
	Logger   *zap.Logger
}

// Iterator yields the entries below a root in breadth-first order.
//
// Only the frontier (directories discovered but not yet read) and the members of the directory
// being yielded are held in memory. Children of one directory are yielded contiguously, each
// carrying its parent's ID. A directory that cannot be read produces a record with the directory's
// own ID and a Diagnostic instead of children; traversal then continues with the next directory.
type Iterator struct {
	fileSystem afero.Fs
	root       string
	options    Options
	logger     *zap.Logger

	frontier []types.Entry
	ready    []types.Entry
	skipped  map[uint64]struct{}
	visited  map[string]struct{}
	lastID   uint64
	started  bool
	err      error
}

// ValidateRoot checks that root exists and is a directory.
func ValidateRoot(fileSystem afero.Fs, root string) error {
	info, statError := fileSystem.Stat(root)
	if statError != nil {
		return fmt.Errorf(errorRootStatFormat, ErrRootNotFound, root, statError)
	}
	if !info.IsDir() {
		return fmt.Errorf(errorRootNotDirFormat, ErrRootNotFound, root)
	}
	return nil
}

// New creates an iterator rooted at root. Nothing is read until the first call to Next.
func New(fileSystem afero.Fs, root string, options Options) *Iterator {
	return &Iterator{
		fileSystem: fileSystem,
		root:       root,
		options:    options,
		logger:     utils.LoggerOrNop(options.Logger),
		skipped:    map[uint64]struct{}{},
		visited:    map[string]struct{}{},
	}
}

// Next returns the next entry, or false once the traversal is exhausted or the root failed.
func (iterator *Iterator) Next() (types.Entry, bool) {
	if !iterator.started {
		iterator.started = true
		rootEntry, rootError := iterator.rootEntry()
		if rootError != nil {
			iterator.err = rootError
			return types.Entry{}, false
		}
		if rootEntry.Expandable {
			iterator.frontier = append(iterator.frontier, rootEntry)
		}
		return rootEntry, true
	}

	for {
		if len(iterator.ready) > 0 {
			entry := iterator.ready[0]
			iterator.ready[0] = types.Entry{}
			iterator.ready = iterator.ready[1:]
			return entry, true
		}
		if len(iterator.frontier) == 0 {
			return types.Entry{}, false
		}
		directory := iterator.frontier[0]
		iterator.frontier[0] = types.Entry{}
		iterator.frontier = iterator.frontier[1:]

		if _, skip := iterator.skipped[directory.ID]; skip {
			delete(iterator.skipped, directory.ID)
			continue
		}
		if diagnostic, expanded := iterator.expand(directory); !expanded {
			record := directory
			record.Diagnostic = &diagnostic
			return record, true
		}
	}
}

// Err returns the error that stopped the traversal before the root was yielded.
// Per-directory failures are reported as Diagnostic records instead.
func (iterator *Iterator) Err() error {
	return iterator.err
}

// SkipSubtree prevents a directory that was already yielded from being read.
func (iterator *Iterator) SkipSubtree(id uint64) {
	iterator.skipped[id] = struct{}{}
}

func (iterator *Iterator) rootEntry() (types.Entry, error) {
	if validationError := ValidateRoot(iterator.fileSystem, iterator.root); validationError != nil {
		return types.Entry{}, validationError
	}
	info, statError := iterator.fileSystem.Stat(iterator.root)
	if statError != nil {
		return types.Entry{}, fmt.Errorf(errorRootStatFormat, ErrRootNotFound, iterator.root, statError)
	}
	entry := NewEntry(iterator.fileSystem, iterator.root, types.RootRelativePath, info, 0, iterator.options.FollowSymlinks)
	entry.Kind = types.KindDirectory
	entry.Hidden = false
	if iterator.options.RootName != "" {
		entry.Name = iterator.options.RootName
	} else {
		entry.Name = iterator.root
	}
	iterator.lastID++
	entry.ID = iterator.lastID
	entry.Expandable = iterator.shouldExpand(entry)
	return entry, nil
}

func (iterator *Iterator) expand(directory types.Entry) (types.Diagnostic, bool) {
	children, readError := ListChildren(iterator.fileSystem, directory, iterator.options.FollowSymlinks)
	if readError != nil {
		iterator.logger.Debug(debugUnreadableDirectory, zap.String("path", directory.Path), zap.Error(readError))
		return DiagnosticFor(directory.Path, readError), false
	}
	for _, child := range children {
		iterator.lastID++
		child.ID = iterator.lastID
		child.ParentID = directory.ID
		child.Expandable = iterator.shouldExpand(child)
		if child.Expandable {
			iterator.frontier = append(iterator.frontier, child)
		}
		iterator.ready = append(iterator.ready, child)
	}
	iterator.logger.Debug(debugExpandedDirectory,
		zap.String("path", directory.Path),
		zap.Int("depth", directory.Depth),
		zap.Int("children", len(children)),
		zap.Int("frontier", len(iterator.frontier)),
	)
	return types.Diagnostic{}, true
}

func (iterator *Iterator) shouldExpand(entry types.Entry) bool {
	if !entry.IsDirectory() {
		return false
	}
	if iterator.options.HasMaxDepth && entry.Depth >= iterator.options.MaxDepth {
		return false
	}
	if !iterator.options.FollowSymlinks {
		return true
	}
	realPath := RealPath(iterator.fileSystem, entry.Path)
	if _, seen := iterator.visited[realPath]; seen {
		iterator.logger.Debug(debugRevisitedDirectory, zap.String("path", entry.Path), zap.String("target", realPath))
		return false
	}
	iterator.visited[realPath] = struct{}{}
	return true
}
