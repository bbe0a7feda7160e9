package repository

import "slices"

// Merger combines repository lists across a traversal path. The collector
// merges the repositories of each descriptor it reads into the set inherited
// from the path above, so descendant descriptor reads see the union.
type Merger interface {
	// Merge combines base with additions, preserving first-seen order and
	// deduplicating by repository id. On an id conflict the base entry wins,
	// keeping its authentication and proxy settings.
	Merge(base, additions []Remote) []Remote
}

// NewMerger returns the default order-preserving Merger.
func NewMerger() Merger { return defaultMerger{} }

type defaultMerger struct{}

func (defaultMerger) Merge(base, additions []Remote) []Remote {
	if len(additions) == 0 {
		return base
	}

	merged := slices.Clone(base)
	seen := make(map[string]bool, len(base))
	for _, r := range base {
		seen[r.ID] = true
	}
	for _, r := range additions {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		merged = append(merged, r)
	}
	return merged
}
