package version

import (
	"context"

	"github.com/okvist/quarry/pkg/artifact"
	"github.com/okvist/quarry/pkg/repository"
)

// Request asks a [Resolver] to expand the version specification of a
// coordinate against a repository list.
type Request struct {
	Coordinate   artifact.Coordinate
	Repositories []repository.Remote
	Context      string // request context label, propagated from the collect request
}

// Result carries the expansion of a version specification.
//
// Versions is ordered ascending by the resolver's ordering and never empty
// on success; the collector selects the last (highest) entry. Repositories
// maps each version to the remote that hosts it, when known — subsequent
// descriptor reads must NOT be restricted to that single repository.
type Result struct {
	Versions     []string
	Constraint   *Constraint
	Repositories map[string]repository.Remote
}

// Selected returns the highest resolved version, or "" when the result is
// empty.
func (r *Result) Selected() string {
	if len(r.Versions) == 0 {
		return ""
	}
	return r.Versions[len(r.Versions)-1]
}

// Resolver expands a version specification to concrete versions. A soft
// (non-range) specification resolves to itself; ranges are expanded against
// all supplied repositories, not just the first that answers.
//
// Implementations must be safe for concurrent use.
type Resolver interface {
	Resolve(ctx context.Context, req *Request) (*Result, error)
}
