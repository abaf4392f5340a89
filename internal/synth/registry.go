package synth

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoAdapter is returned when no registered adapter accepts a resource.
var ErrNoAdapter = errors.New("no adapter for resource")

// ///////////////////////////////////////////////
// Predicates
// ///////////////////////////////////////////////

// Predicate decides whether an adapter applies to a resource.
type Predicate func(r Resource) bool

// MatchKind accepts resources of the given kind.
func MatchKind(kind string) Predicate {
	return func(r Resource) bool { return KindOf(r) == kind }
}

// MatchGlob accepts resources whose path matches a doublestar pattern. The
// path is slash-separated and relative to the filesystem root.
func MatchGlob(pattern string) (Predicate, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, doublestar.ErrBadPattern)
	}
	return func(r Resource) bool {
		ok, err := doublestar.Match(pattern, strings.TrimPrefix(filepath.ToSlash(r.Path()), "/"))
		if err != nil {
			slog.Debug("glob match failed", "pattern", pattern, "path", r.Path(), "error", err)
			return false
		}
		return ok
	}, nil
}

// MustMatchGlob is [MatchGlob] for compile-time patterns.
func MustMatchGlob(pattern string) Predicate {
	p, err := MatchGlob(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// MatchAny accepts a resource when any of preds does.
func MatchAny(preds ...Predicate) Predicate {
	return func(r Resource) bool {
		for _, p := range preds {
			if p(r) {
				return true
			}
		}
		return false
	}
}

// MatchAll accepts a resource when every pred does.
func MatchAll(preds ...Predicate) Predicate {
	return func(r Resource) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// ///////////////////////////////////////////////
// Registry
// ///////////////////////////////////////////////

// Rank orders candidate adapters. A smaller Distance is more specific; among
// equal distances the higher Priority wins.
type Rank struct {
	Distance int
	Priority int
}

type entry struct {
	pred    Predicate
	rank    Rank
	seq     int
	adapter Adapter
}

// Registry holds ranked adapters. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

// Register adds adapter under pred with a fixed rank. Entries are kept sorted,
// so lookups only scan.
func (reg *Registry) Register(pred Predicate, rank Rank, adapter Adapter) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.entries = append(reg.entries, entry{pred: pred, rank: rank, seq: len(reg.entries), adapter: adapter})
	sort.SliceStable(reg.entries, func(i, j int) bool {
		a, b := reg.entries[i], reg.entries[j]
		if a.rank.Distance != b.rank.Distance {
			return a.rank.Distance < b.rank.Distance
		}
		if a.rank.Priority != b.rank.Priority {
			return a.rank.Priority > b.rank.Priority
		}
		return a.seq < b.seq
	})
}

// Lookup returns the best-ranked adapter whose predicate accepts r.
func (reg *Registry) Lookup(r Resource) (Adapter, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for _, e := range reg.entries {
		if e.pred(r) {
			return e.adapter, true
		}
	}
	return nil, false
}

// Len returns the number of registered adapters.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.entries)
}
