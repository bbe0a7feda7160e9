// Package artifact defines the identity model of the resolver: coordinates,
// dependencies, and exclusions.
//
// A [Coordinate] is the five-field identity tuple of an artifact. A
// [Dependency] wraps a Coordinate with a scope, an optional flag, and a set
// of exclusion patterns. Both are value types: mutation helpers return
// copies and never touch the receiver, so instances can be shared freely
// across graph nodes and goroutines.
//
// The versionless [Key] is the identity used for cycle detection and
// dependency management matching.
package artifact

import (
	"maps"
	"strings"

	"github.com/okvist/quarry/pkg/errors"
)

// DefaultExtension is assumed when a coordinate string omits the extension.
const DefaultExtension = "jar"

// PropertyLocalPath carries a local filesystem path assigned by dependency
// management. The collector keeps it on the managed coordinate; descriptor
// reads and version resolution do not consult it, so such an artifact is
// still resolved from the remote repositories.
const PropertyLocalPath = "localPath"

// Coordinate is the immutable identity of an artifact:
// groupId, artifactId, extension, classifier, and version.
// The version may be a range specification (e.g. "[1.0,2.0)").
//
// Properties carry auxiliary string metadata (e.g. a managed local path);
// they never participate in identity comparisons.
type Coordinate struct {
	GroupID    string
	ArtifactID string
	Extension  string
	Classifier string
	Version    string

	Properties map[string]string
}

// Parse builds a Coordinate from its string form:
//
//	groupId:artifactId[:extension[:classifier]]:version
//
// The extension defaults to "jar" and the classifier to the empty string.
func Parse(coords string) (Coordinate, error) {
	parts := strings.Split(coords, ":")
	c := Coordinate{Extension: DefaultExtension}
	switch len(parts) {
	case 3:
		c.GroupID, c.ArtifactID, c.Version = parts[0], parts[1], parts[2]
	case 4:
		c.GroupID, c.ArtifactID, c.Extension, c.Version = parts[0], parts[1], parts[2], parts[3]
	case 5:
		c.GroupID, c.ArtifactID, c.Extension, c.Classifier, c.Version = parts[0], parts[1], parts[2], parts[3], parts[4]
	default:
		return Coordinate{}, errors.New(errors.ErrCodeInvalidCoordinate,
			"bad coordinate %q (expected groupId:artifactId[:extension[:classifier]]:version)", coords)
	}
	if c.GroupID == "" || c.ArtifactID == "" || c.Version == "" {
		return Coordinate{}, errors.New(errors.ErrCodeInvalidCoordinate,
			"bad coordinate %q (groupId, artifactId and version are required)", coords)
	}
	return c, nil
}

// MustParse is Parse for trusted literals; it panics on malformed input.
func MustParse(coords string) Coordinate {
	c, err := Parse(coords)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the coordinate in its canonical string form. The classifier
// segment is omitted when empty.
func (c Coordinate) String() string {
	var sb strings.Builder
	sb.WriteString(c.GroupID)
	sb.WriteByte(':')
	sb.WriteString(c.ArtifactID)
	sb.WriteByte(':')
	sb.WriteString(c.extensionOrDefault())
	if c.Classifier != "" {
		sb.WriteByte(':')
		sb.WriteString(c.Classifier)
	}
	sb.WriteByte(':')
	sb.WriteString(c.Version)
	return sb.String()
}

// Equal reports whether two coordinates share all five identity fields.
// Properties are ignored.
func (c Coordinate) Equal(o Coordinate) bool {
	return c.GroupID == o.GroupID &&
		c.ArtifactID == o.ArtifactID &&
		c.extensionOrDefault() == o.extensionOrDefault() &&
		c.Classifier == o.Classifier &&
		c.Version == o.Version
}

// Key returns the versionless identity of the coordinate, used for cycle
// detection and dependency management matching.
func (c Coordinate) Key() Key {
	return Key{
		GroupID:    c.GroupID,
		ArtifactID: c.ArtifactID,
		Extension:  c.extensionOrDefault(),
		Classifier: c.Classifier,
	}
}

// Property returns the named property, or def if unset.
func (c Coordinate) Property(name, def string) string {
	if v, ok := c.Properties[name]; ok {
		return v
	}
	return def
}

// WithVersion returns a copy of the coordinate with the given version.
func (c Coordinate) WithVersion(version string) Coordinate {
	c.Version = version
	return c
}

// WithProperties returns a copy of the coordinate with the given properties
// merged over the existing ones. The receiver's map is never mutated.
func (c Coordinate) WithProperties(props map[string]string) Coordinate {
	if len(props) == 0 {
		return c
	}
	merged := maps.Clone(c.Properties)
	if merged == nil {
		merged = make(map[string]string, len(props))
	}
	maps.Copy(merged, props)
	c.Properties = merged
	return c
}

func (c Coordinate) extensionOrDefault() string {
	if c.Extension == "" {
		return DefaultExtension
	}
	return c.Extension
}

// Key is the versionless coordinate tuple. It is comparable and suitable as
// a map key.
type Key struct {
	GroupID    string
	ArtifactID string
	Extension  string
	Classifier string
}

// String returns the key as "groupId:artifactId:extension[:classifier]".
func (k Key) String() string {
	s := k.GroupID + ":" + k.ArtifactID + ":" + k.Extension
	if k.Classifier != "" {
		s += ":" + k.Classifier
	}
	return s
}
