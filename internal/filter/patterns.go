package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/temirov/tree/internal/types"
	"github.com/temirov/tree/internal/utils"
)

// ErrInvalidPattern reports a glob pattern that cannot be compiled.
var ErrInvalidPattern = errors.New("invalid pattern")

const (
	errorInvalidPatternFormat = "%w: %q"
	directoryPatternSuffix    = "/"
	anchoredPatternPrefix     = "/"
	negatedPatternPrefix      = "!"
)

// pattern is a compiled glob. A pattern containing a slash is matched against the slash separated
// path relative to the root, any other pattern against the base name. A trailing slash restricts
// the pattern to directories and a leading slash anchors it at the root.
type pattern struct {
	source        string
	expression    string
	matchPath     bool
	directoryOnly bool
}

func compilePatterns(sources []string) ([]pattern, error) {
	compiled := make([]pattern, 0, len(sources))
	for _, source := range sources {
		normalized := utils.NormalizeSlashes(strings.TrimSpace(source))
		if normalized == "" {
			continue
		}
		if strings.HasPrefix(normalized, negatedPatternPrefix) {
			return nil, fmt.Errorf(errorInvalidPatternFormat, ErrInvalidPattern, source)
		}
		current := pattern{source: source}
		if strings.HasSuffix(normalized, directoryPatternSuffix) {
			current.directoryOnly = true
			normalized = strings.TrimSuffix(normalized, directoryPatternSuffix)
		}
		if strings.HasPrefix(normalized, anchoredPatternPrefix) {
			current.matchPath = true
			normalized = strings.TrimPrefix(normalized, anchoredPatternPrefix)
		}
		if strings.Contains(normalized, "/") {
			current.matchPath = true
		}
		if normalized == "" || !doublestar.ValidatePattern(normalized) {
			return nil, fmt.Errorf(errorInvalidPatternFormat, ErrInvalidPattern, source)
		}
		current.expression = normalized
		compiled = append(compiled, current)
	}
	return compiled, nil
}

func (compiled pattern) matches(entry types.Entry) bool {
	if compiled.directoryOnly && !entry.IsDirectory() {
		return false
	}
	subject := entry.Name
	if compiled.matchPath {
		subject = entry.RelativePath
	}
	matched, matchError := doublestar.Match(compiled.expression, subject)
	return matchError == nil && matched
}

func matchesAny(patterns []pattern, entry types.Entry) bool {
	for _, compiled := range patterns {
		if compiled.matches(entry) {
			return true
		}
	}
	return false
}
