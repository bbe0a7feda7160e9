package artifact

import (
	"slices"
	"strings"
)

// Dependency couples a [Coordinate] with a scope, an optional flag, and a
// set of exclusion patterns. It is the unit of collection input and the
// payload of every graph node.
//
// The optional flag is tri-state: nil means "unset", which the collector
// treats like false below the root but which dependency management can still
// override (and record as premanaged). The empty scope is legal and distinct
// from any managed scope.
type Dependency struct {
	Coordinate Coordinate
	Scope      string
	Optional   *bool
	Exclusions []Exclusion
}

// NewDependency creates a Dependency with the given scope and no exclusions.
func NewDependency(coord Coordinate, scope string) Dependency {
	return Dependency{Coordinate: coord, Scope: scope}
}

// IsOptional reports whether the optional flag is set and true.
func (d Dependency) IsOptional() bool {
	return d.Optional != nil && *d.Optional
}

// Equal reports whether two dependencies have equal coordinates, scope,
// effective optionality, and exclusion sets. Exclusion order is ignored.
func (d Dependency) Equal(o Dependency) bool {
	if !d.Coordinate.Equal(o.Coordinate) || d.Scope != o.Scope {
		return false
	}
	if d.IsOptional() != o.IsOptional() {
		return false
	}
	if len(d.Exclusions) != len(o.Exclusions) {
		return false
	}
	for _, e := range d.Exclusions {
		if !slices.Contains(o.Exclusions, e) {
			return false
		}
	}
	return true
}

// String returns "coordinate (scope)" or just the coordinate when the scope
// is empty. Optional dependencies carry a "?" suffix.
func (d Dependency) String() string {
	s := d.Coordinate.String()
	if d.Scope != "" {
		s += " (" + d.Scope + ")"
	}
	if d.IsOptional() {
		s += "?"
	}
	return s
}

// WithCoordinate returns a copy with the coordinate replaced. Scope,
// optionality, and exclusions are preserved; relocation handling relies on
// this.
func (d Dependency) WithCoordinate(coord Coordinate) Dependency {
	d.Coordinate = coord
	return d
}

// WithVersion returns a copy with the coordinate's version replaced.
func (d Dependency) WithVersion(version string) Dependency {
	d.Coordinate = d.Coordinate.WithVersion(version)
	return d
}

// WithScope returns a copy with the scope replaced.
func (d Dependency) WithScope(scope string) Dependency {
	d.Scope = scope
	return d
}

// WithOptional returns a copy with the optional flag set.
func (d Dependency) WithOptional(optional bool) Dependency {
	d.Optional = &optional
	return d
}

// WithExclusions returns a copy with the exclusion set replaced.
func (d Dependency) WithExclusions(exclusions []Exclusion) Dependency {
	d.Exclusions = slices.Clone(exclusions)
	return d
}

// Exclusion is a pattern over the versionless coordinate fields. Each field
// may be "*" or empty to match anything; a dependency matches iff every
// other field equals the dependency's field.
type Exclusion struct {
	GroupID    string
	ArtifactID string
	Extension  string
	Classifier string
}

// Wildcard matches any value in an exclusion field.
const Wildcard = "*"

// NewExclusion creates an exclusion matching the given group and artifact
// with wildcard extension and classifier.
func NewExclusion(groupID, artifactID string) Exclusion {
	return Exclusion{GroupID: groupID, ArtifactID: artifactID, Extension: Wildcard, Classifier: Wildcard}
}

// Matches reports whether the exclusion pattern matches the coordinate.
func (e Exclusion) Matches(c Coordinate) bool {
	return matchField(e.GroupID, c.GroupID) &&
		matchField(e.ArtifactID, c.ArtifactID) &&
		matchField(e.Extension, c.extensionOrDefault()) &&
		matchField(e.Classifier, c.Classifier)
}

// String returns the exclusion in "g:a:ext:cls" form with wildcards intact.
func (e Exclusion) String() string {
	return strings.Join([]string{e.GroupID, e.ArtifactID, e.Extension, e.Classifier}, ":")
}

func matchField(pattern, value string) bool {
	return pattern == Wildcard || pattern == "" || pattern == value
}

// MatchesAny reports whether any exclusion in the set matches the coordinate.
func MatchesAny(exclusions []Exclusion, c Coordinate) bool {
	for _, e := range exclusions {
		if e.Matches(c) {
			return true
		}
	}
	return false
}

// MergeExclusions unions two exclusion sets, preserving first-seen order and
// dropping duplicates.
func MergeExclusions(base, additions []Exclusion) []Exclusion {
	if len(additions) == 0 {
		return base
	}
	merged := slices.Clone(base)
	for _, e := range additions {
		if !slices.Contains(merged, e) {
			merged = append(merged, e)
		}
	}
	return merged
}
