package filter

// Emptiness is the memoized filtering outcome for one directory.
type Emptiness int

const (
	EmptinessUnknown Emptiness = iota
	EmptinessEmpty
	EmptinessNonEmpty
)

func (emptiness Emptiness) String() string {
	switch emptiness {
	case EmptinessEmpty:
		return "empty"
	case EmptinessNonEmpty:
		return "non-empty"
	default:
		return "unknown"
	}
}

// EmptyDirCache maps a directory path to whether it holds any admitted leaf once filtered.
// A resolved value is never replaced during a run.
type EmptyDirCache struct {
	states map[string]Emptiness
	hits   int
}

// NewEmptyDirCache creates an empty cache.
func NewEmptyDirCache() *EmptyDirCache {
	return &EmptyDirCache{states: map[string]Emptiness{}}
}

// Lookup returns the stored state for path, or EmptinessUnknown.
func (cache *EmptyDirCache) Lookup(path string) Emptiness {
	state, found := cache.states[path]
	if !found {
		return EmptinessUnknown
	}
	cache.hits++
	return state
}

func (cache *EmptyDirCache) peek(path string) Emptiness {
	return cache.states[path]
}

// Store records a resolved state. Unknown values and paths already resolved are ignored.
func (cache *EmptyDirCache) Store(path string, state Emptiness) {
	if state == EmptinessUnknown {
		return
	}
	if _, resolved := cache.states[path]; resolved {
		return
	}
	cache.states[path] = state
}

// Len reports how many directories have been resolved.
func (cache *EmptyDirCache) Len() int {
	return len(cache.states)
}

// Hits reports how many lookups were answered from the cache.
func (cache *EmptyDirCache) Hits() int {
	return cache.hits
}
