package maven

import (
	"context"
	"encoding/xml"

	"github.com/okvist/quarry/pkg/errors"
	"github.com/okvist/quarry/pkg/registry"
	"github.com/okvist/quarry/pkg/repository"
	"github.com/okvist/quarry/pkg/version"
)

// mavenMetadata is the subset of maven-metadata.xml the resolver consumes.
type mavenMetadata struct {
	XMLName    xml.Name `xml:"metadata"`
	Versioning struct {
		Latest   string   `xml:"latest"`
		Release  string   `xml:"release"`
		Versions []string `xml:"versions>version"`
	} `xml:"versioning"`
}

// VersionResolver expands version specifications against Maven-layout
// repositories. Soft versions resolve to themselves without touching the
// network; ranges are expanded from the version metadata of every supplied
// repository, not just the first that answers.
//
// VersionResolver is safe for concurrent use.
type VersionResolver struct {
	client *registry.Client
}

// NewVersionResolver creates a VersionResolver over the given client.
func NewVersionResolver(client *registry.Client) *VersionResolver {
	return &VersionResolver{client: client}
}

// Resolve expands the request's version specification.
func (r *VersionResolver) Resolve(ctx context.Context, req *version.Request) (*version.Result, error) {
	constraint, err := version.ParseConstraint(req.Coordinate.Version)
	if err != nil {
		return nil, err
	}

	if !constraint.IsRange() {
		return &version.Result{
			Versions:   []string{req.Coordinate.Version},
			Constraint: constraint,
		}, nil
	}

	result := &version.Result{
		Constraint:   constraint,
		Repositories: make(map[string]repository.Remote),
	}
	seen := make(map[string]bool)
	location := metadataPath(req.Coordinate)

	var lastErr error
	answered := false
	for _, repo := range req.Repositories {
		data, err := r.client.Fetch(ctx, repo, location)
		if err != nil {
			if !errors.Is(err, errors.ErrCodeNotFound) {
				lastErr = err
			}
			continue
		}

		var meta mavenMetadata
		if err := xml.Unmarshal(data, &meta); err != nil {
			lastErr = errors.Wrap(errors.ErrCodeInvalidRange, err,
				"malformed version metadata in %s", repo.ID)
			continue
		}
		answered = true

		for _, v := range meta.Versioning.Versions {
			if seen[v] || !constraint.Matches(v) {
				continue
			}
			seen[v] = true
			result.Versions = append(result.Versions, v)
			result.Repositories[v] = repo
		}
	}

	if !answered && lastErr != nil {
		return nil, lastErr
	}

	version.Sort(result.Versions)
	return result, nil
}

// Ensure VersionResolver implements the resolver contract.
var _ version.Resolver = (*VersionResolver)(nil)
