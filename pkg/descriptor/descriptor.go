// Package descriptor defines the artifact descriptor model and the reader
// contract the collection engine consumes.
//
// A descriptor is the metadata document of one artifact version: its direct
// dependencies, its managed dependencies, the repositories it declares, and
// an optional relocation directive. Readers fetch and parse descriptors; the
// engine never touches wire formats itself.
package descriptor

import (
	"context"

	"github.com/okvist/quarry/pkg/artifact"
	"github.com/okvist/quarry/pkg/repository"
)

// Descriptor is the parsed metadata of one artifact version.
type Descriptor struct {
	// Coordinate is the fully expanded coordinate the descriptor was read
	// for. Readers normalize partial input (e.g. default extension) here.
	Coordinate artifact.Coordinate

	// Dependencies lists the direct dependencies in declaration order.
	Dependencies []artifact.Dependency

	// ManagedDependencies lists the dependency management entries in
	// declaration order.
	ManagedDependencies []artifact.Dependency

	// Repositories lists the remote repositories the descriptor declares.
	// The collector makes them visible to descendant descriptor reads.
	Repositories []repository.Remote

	// Relocation, when non-nil, redirects this coordinate to another one.
	// The collector follows relocation chains; a reader only reports the
	// immediate hop.
	Relocation *artifact.Coordinate

	// Properties carries the descriptor's property map after interpolation.
	Properties map[string]string
}

// Request asks a [Reader] for the descriptor of one coordinate. The
// repository list is the merged path set; readers must consult all of them,
// in order.
type Request struct {
	Coordinate   artifact.Coordinate
	Repositories []repository.Remote
	Context      string // request context label, propagated from the collect request
}

// Result is a successful descriptor read.
type Result struct {
	Descriptor *Descriptor

	// Repositories optionally names alternate repositories discovered during
	// the read (e.g. mirrors); may be nil.
	Repositories []repository.Remote
}

// Reader resolves a coordinate to its descriptor.
//
// Reads must be idempotent for equal coordinates within one collection call.
// Failures carry one of the structured codes ARTIFACT_DESCRIPTOR_IO
// (retryable), ARTIFACT_DESCRIPTOR_INVALID (not retryable), or
// ARTIFACT_DESCRIPTOR_MISSING (treated as an empty descriptor when the
// session policy says so).
//
// Implementations must be safe for concurrent use.
type Reader interface {
	Read(ctx context.Context, req *Request) (*Result, error)
}
