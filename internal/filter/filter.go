// Package filter decides which traversed entries are shown.
package filter

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/tree/internal/traversal"
	"github.com/temirov/tree/internal/types"
	"github.com/temirov/tree/internal/utils"
)

const (
	debugRejectedEntry       = "entry rejected"
	debugResolvedEmptiness   = "resolved directory emptiness"
	debugUnreadableLookahead = "lookahead could not read directory"
)

// Options configures an Engine.
type Options struct {
	ShowHidden      bool
	IncludePatterns []string
	ExcludePatterns []string
	// IgnorePatterns come from ignore files. They hide entries like ExcludePatterns but are taken
	// verbatim, without "a|b" alternatives.
	IgnorePatterns []string
	// PruneEmpty hides directories that hold no admitted file anywhere below them.
	PruneEmpty     bool
	FollowSymlinks bool
	Logger         *zap.Logger
}

// Engine applies the hidden, exclude, include, and empty-directory rules, in that order.
// The root entry is always admitted.
type Engine struct {
	fileSystem afero.Fs
	options    Options
	include    []pattern
	exclude    []pattern
	cache      *EmptyDirCache
	logger     *zap.Logger
}

type lookaheadFrame struct {
	directory types.Entry
	children  []types.Entry
	next      int
}

// New compiles the configured patterns. An unparsable pattern yields ErrInvalidPattern.
func New(fileSystem afero.Fs, options Options) (*Engine, error) {
	include, includeError := compilePatterns(utils.SplitPatternAlternatives(options.IncludePatterns))
	if includeError != nil {
		return nil, includeError
	}
	exclude, excludeError := compilePatterns(utils.SplitPatternAlternatives(options.ExcludePatterns))
	if excludeError != nil {
		return nil, excludeError
	}
	ignored, ignoreError := compilePatterns(options.IgnorePatterns)
	if ignoreError != nil {
		return nil, ignoreError
	}
	return &Engine{
		fileSystem: fileSystem,
		options:    options,
		include:    include,
		exclude:    append(exclude, ignored...),
		cache:      NewEmptyDirCache(),
		logger:     utils.LoggerOrNop(options.Logger),
	}, nil
}

// Cache exposes the memoized directory emptiness results.
func (engine *Engine) Cache() *EmptyDirCache {
	return engine.cache
}

// Admit returns the verdict for one entry. The first failing rule names the reason.
func (engine *Engine) Admit(entry types.Entry) types.Decision {
	if entry.IsRoot() {
		return types.Admitted
	}
	if reason, passed := engine.passesPatterns(entry); !passed {
		engine.logger.Debug(debugRejectedEntry, zap.String("path", entry.RelativePath), zap.String("reason", string(reason)))
		return types.Rejected(reason)
	}
	if entry.IsDirectory() && engine.options.PruneEmpty && engine.IsEmpty(entry) {
		engine.logger.Debug(debugRejectedEntry, zap.String("path", entry.RelativePath), zap.String("reason", string(types.ReasonEmptyAfterFilter)))
		return types.Rejected(types.ReasonEmptyAfterFilter)
	}
	return types.Admitted
}

// passesPatterns applies every rule except the empty-directory check.
// Include patterns restrict files only; directories stay reachable so matching files below them can show.
func (engine *Engine) passesPatterns(entry types.Entry) (types.Reason, bool) {
	if entry.Hidden && !engine.options.ShowHidden {
		return types.ReasonHidden, false
	}
	if matchesAny(engine.exclude, entry) {
		return types.ReasonExcludedByPattern, false
	}
	if !entry.IsDirectory() && len(engine.include) > 0 && !matchesAny(engine.include, entry) {
		return types.ReasonNotIncluded, false
	}
	return types.ReasonNone, true
}

// IsEmpty reports whether directory contains no admitted file at any depth.
// Results for the directory and for every descendant resolved on the way are cached.
// Unreadable directories count as empty.
func (engine *Engine) IsEmpty(directory types.Entry) bool {
	if state := engine.cache.Lookup(directory.Path); state != EmptinessUnknown {
		return state == EmptinessEmpty
	}

	visited := map[string]struct{}{}
	if engine.options.FollowSymlinks {
		visited[traversal.RealPath(engine.fileSystem, directory.Path)] = struct{}{}
	}
	stack := []*lookaheadFrame{engine.openFrame(directory)}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.children) {
			engine.resolve(top.directory, EmptinessEmpty)
			stack = stack[:len(stack)-1]
			continue
		}
		child := top.children[top.next]
		top.next++

		if _, passed := engine.passesPatterns(child); !passed {
			continue
		}
		if !child.IsDirectory() {
			for _, frame := range stack {
				engine.resolve(frame.directory, EmptinessNonEmpty)
			}
			return false
		}
		switch engine.cache.Lookup(child.Path) {
		case EmptinessNonEmpty:
			for _, frame := range stack {
				engine.resolve(frame.directory, EmptinessNonEmpty)
			}
			return false
		case EmptinessEmpty:
			continue
		}
		if engine.options.FollowSymlinks {
			realPath := traversal.RealPath(engine.fileSystem, child.Path)
			if _, seen := visited[realPath]; seen {
				continue
			}
			visited[realPath] = struct{}{}
		}
		stack = append(stack, engine.openFrame(child))
	}
	return engine.cache.peek(directory.Path) != EmptinessNonEmpty
}

func (engine *Engine) openFrame(directory types.Entry) *lookaheadFrame {
	children, readError := traversal.ListChildren(engine.fileSystem, directory, engine.options.FollowSymlinks)
	if readError != nil {
		engine.logger.Debug(debugUnreadableLookahead, zap.String("path", directory.Path), zap.Error(readError))
	}
	return &lookaheadFrame{directory: directory, children: children}
}

func (engine *Engine) resolve(directory types.Entry, state Emptiness) {
	if engine.cache.peek(directory.Path) != EmptinessUnknown {
		return
	}
	engine.cache.Store(directory.Path, state)
	engine.logger.Debug(debugResolvedEmptiness, zap.String("path", directory.RelativePath), zap.Stringer("state", state))
}
