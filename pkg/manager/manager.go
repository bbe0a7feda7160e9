// Package manager implements dependency management: the path-contextual
// policy that rewrites a descendant dependency's version, scope, optionality,
// properties, and exclusions according to ancestor declarations.
//
// There is one capability — [Manager] with Manage and DeriveFor — and the
// variants (classic, transitive, noop) are constructors over it rather than
// a type hierarchy. State is a stack of immutable layers keyed by the
// versionless coordinate; DeriveFor pushes a layer, lookups walk from the
// outermost (shallowest) layer inward so the shallowest declaration wins.
//
// Managers are pure: Manage never mutates anything and DeriveFor returns a
// new value, so a manager can be shared across traversal branches.
package manager

import (
	"maps"

	"github.com/okvist/quarry/pkg/artifact"
)

// Management describes the overrides a [Manager] applies to one dependency.
// A nil field means "leave this aspect alone". Exclusions, when set, is the
// full replacement set: the dependency's own exclusions unioned with the
// managed ones.
type Management struct {
	Version    *string
	Scope      *string
	Optional   *bool
	Properties map[string]string
	Exclusions []artifact.Exclusion
}

// Context supplies the inputs for deriving a child manager: the dependency
// being descended into (nil when deriving for the collect request itself)
// and the managed dependencies its descriptor declares.
type Context struct {
	Dependency          *artifact.Dependency
	ManagedDependencies []artifact.Dependency
}

// Manager decides which aspects of a dependency to override in the current
// path context.
type Manager interface {
	// Manage returns the overrides for dep, or nil when nothing applies.
	Manage(dep artifact.Dependency) *Management

	// DeriveFor folds a descriptor's managed dependencies into a new manager
	// for the node's children. The receiver is unchanged.
	DeriveFor(ctx Context) Manager
}

// NewClassic returns the classic per-depth manager: management declared at
// depth 0 or 1 applies to all descendants, management discovered deeper
// applies only to the declaring node's direct descendants, and no dependency
// above depth 2 is ever overridden.
func NewClassic() Manager {
	return &manager{applyFrom: 2}
}

// NewTransitive returns a manager that keeps management from every depth in
// effect for the whole subtree below it.
func NewTransitive() Manager {
	return &manager{applyFrom: 2, persistAll: true}
}

// NewNoop returns a manager that never overrides anything.
func NewNoop() Manager {
	return &manager{disabled: true}
}

type manager struct {
	depth      int
	applyFrom  int  // Manage is active once depth >= applyFrom
	persistAll bool // keep every layer on derivation, not just shallow ones
	disabled   bool

	layers []layer // outermost (shallowest) first
}

type layer struct {
	persistent bool
	entries    map[artifact.Key]entry
}

type entry struct {
	version    *string
	scope      *string
	optional   *bool
	properties map[string]string
	exclusions []artifact.Exclusion
}

func (m *manager) Manage(dep artifact.Dependency) *Management {
	if m.disabled || m.depth < m.applyFrom {
		return nil
	}

	key := dep.Coordinate.Key()
	var mgmt Management
	var managedExclusions []artifact.Exclusion
	found := false

	for _, l := range m.layers {
		e, ok := l.entries[key]
		if !ok {
			continue
		}
		if e.version != nil && mgmt.Version == nil {
			mgmt.Version = e.version
			found = true
		}
		if e.scope != nil && mgmt.Scope == nil {
			mgmt.Scope = e.scope
			found = true
		}
		if e.optional != nil && mgmt.Optional == nil {
			mgmt.Optional = e.optional
			found = true
		}
		for k, v := range e.properties {
			if _, set := mgmt.Properties[k]; set {
				continue // shallower value per key wins
			}
			if mgmt.Properties == nil {
				mgmt.Properties = make(map[string]string)
			}
			mgmt.Properties[k] = v
			found = true
		}
		if len(e.exclusions) > 0 {
			managedExclusions = artifact.MergeExclusions(managedExclusions, e.exclusions)
		}
	}

	if len(managedExclusions) > 0 {
		mgmt.Exclusions = artifact.MergeExclusions(dep.Exclusions, managedExclusions)
		found = true
	}
	if !found {
		return nil
	}
	return &mgmt
}

func (m *manager) DeriveFor(ctx Context) Manager {
	if m.disabled {
		return m
	}

	next := &manager{
		depth:      m.depth + 1,
		applyFrom:  m.applyFrom,
		persistAll: m.persistAll,
	}
	for _, l := range m.layers {
		if l.persistent {
			next.layers = append(next.layers, l)
		}
	}

	if len(ctx.ManagedDependencies) > 0 {
		next.layers = append(next.layers, layer{
			persistent: m.persistAll || m.depth <= 1,
			entries:    buildEntries(ctx.ManagedDependencies),
		})
	}
	return next
}

func buildEntries(managed []artifact.Dependency) map[artifact.Key]entry {
	entries := make(map[artifact.Key]entry, len(managed))
	for _, d := range managed {
		key := d.Coordinate.Key()
		if _, exists := entries[key]; exists {
			continue // first declaration wins within one descriptor
		}
		var e entry
		if v := d.Coordinate.Version; v != "" {
			e.version = &v
		}
		if s := d.Scope; s != "" {
			e.scope = &s
		}
		if d.Optional != nil {
			opt := *d.Optional
			e.optional = &opt
		}
		if len(d.Coordinate.Properties) > 0 {
			e.properties = maps.Clone(d.Coordinate.Properties)
		}
		if len(d.Exclusions) > 0 {
			e.exclusions = artifact.MergeExclusions(nil, d.Exclusions)
		}
		entries[key] = e
	}
	return entries
}
