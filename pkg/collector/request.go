package collector

import (
	"github.com/okvist/quarry/pkg/artifact"
	"github.com/okvist/quarry/pkg/graph"
	"github.com/okvist/quarry/pkg/repository"
)

// Request describes one collection call: either a single root dependency or
// a list of co-required roots, an optional externally supplied managed
// dependency list, and the repositories to resolve against.
type Request struct {
	// Root is the single root dependency. Mutually exclusive with Roots.
	Root *artifact.Dependency

	// Roots are multiple root dependencies collected under an artificial
	// nil-dependency root node.
	Roots []artifact.Dependency

	// ManagedDependencies is an externally supplied management list applied
	// as if declared by the root's descriptor.
	ManagedDependencies []artifact.Dependency

	// Repositories are the remote repositories of the request.
	Repositories []repository.Remote

	// Context is an opaque label propagated to reader and resolver requests.
	Context string
}

// roots normalizes the two request shapes into a single list.
func (r *Request) roots() []artifact.Dependency {
	if r.Root != nil {
		return []artifact.Dependency{*r.Root}
	}
	return r.Roots
}

// multiRoot reports whether the result's root node is artificial.
func (r *Request) multiRoot() bool {
	return r.Root == nil
}

// Cycle is the path of coordinates from a root to a cycle truncation,
// ending with the coordinate that closed the cycle.
type Cycle []artifact.Coordinate

// Result is the outcome of a collection call.
type Result struct {
	// Root of the collected graph. Nil only when the request had no roots.
	Root *graph.Node

	// Exceptions accumulated during traversal. The graph is partial
	// wherever a subtree was pruned by one of these.
	Exceptions []error

	// Cycles truncated during traversal, in discovery order.
	Cycles []Cycle

	// Request is the originating request.
	Request *Request
}

// Error is the terminal failure of a collection call. It wraps the partial
// result so callers can inspect whatever was collected before the failure.
type Error struct {
	Result *Result
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Err.Error() }

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }
