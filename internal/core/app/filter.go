package app

import (
	"pathwatch/internal/core/watcher"
)

// KindFilter reports whether an event of the given kind should be forwarded.
type KindFilter func(watcher.ChangeKind) bool

// NewKindFilter builds a filter from kind names. No names means every kind
// passes.
func NewKindFilter(names []string) (KindFilter, error) {
	if len(names) == 0 {
		return func(watcher.ChangeKind) bool { return true }, nil
	}
	allowed := make(map[watcher.ChangeKind]bool, len(names))
	for _, name := range names {
		kind, err := watcher.ParseChangeKind(name)
		if err != nil {
			return nil, err
		}
		allowed[kind] = true
	}
	return func(kind watcher.ChangeKind) bool {
		return allowed[kind]
	}, nil
}
