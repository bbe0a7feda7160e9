// Package maven reads artifact descriptors (POMs) and version metadata from
// Maven-layout repositories, implementing the reader and resolver contracts
// the collection engine consumes.
package maven

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okvist/quarry/pkg/artifact"
	"github.com/okvist/quarry/pkg/descriptor"
	"github.com/okvist/quarry/pkg/errors"
	"github.com/okvist/quarry/pkg/registry"
)

// cacheNamespace scopes this reader's entries in the shared response cache.
const cacheNamespace = "maven:pom:"

// descriptorLRUSize bounds the in-process parsed-descriptor cache.
const descriptorLRUSize = 2048

// Reader resolves coordinates to descriptors by fetching and parsing POMs.
//
// Parsed descriptors are held in a bounded LRU in front of the client's
// byte-level response cache, so repeated reads across collection calls skip
// both the network and the XML parser.
//
// Reader is safe for concurrent use.
type Reader struct {
	client *registry.Client
	parsed *lru.Cache[string, *descriptor.Descriptor]
}

// NewReader creates a Reader over the given registry client.
func NewReader(client *registry.Client) (*Reader, error) {
	parsed, err := lru.New[string, *descriptor.Descriptor](descriptorLRUSize)
	if err != nil {
		return nil, err
	}
	return &Reader{client: client, parsed: parsed}, nil
}

// Read fetches and parses the descriptor for the requested coordinate,
// trying the request's repositories in order.
func (r *Reader) Read(ctx context.Context, req *descriptor.Request) (*descriptor.Result, error) {
	coord := req.Coordinate
	id := coord.String()

	if desc, ok := r.parsed.Get(id); ok {
		return &descriptor.Result{Descriptor: desc}, nil
	}

	location := pomPath(coord)
	data, _, err := r.client.FetchFirstCached(ctx, cacheNamespace, req.Repositories, location)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, errors.Wrap(errors.ErrCodeDescriptorMissing, err, "no descriptor for %s", coord)
		}
		return nil, errors.Wrap(errors.ErrCodeDescriptorIO, err, "failed to fetch descriptor for %s", coord)
	}

	var pom pomProject
	if err := xml.Unmarshal(data, &pom); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDescriptorInvalid, err, "malformed descriptor for %s", coord)
	}

	desc := pom.toDescriptor(coord)
	r.parsed.Add(id, desc)
	return &descriptor.Result{Descriptor: desc}, nil
}

// pomPath maps a coordinate onto the default repository layout.
func pomPath(c artifact.Coordinate) string {
	groupPath := strings.ReplaceAll(c.GroupID, ".", "/")
	return fmt.Sprintf("%s/%s/%s/%s-%s.pom",
		groupPath, c.ArtifactID, c.Version, c.ArtifactID, c.Version)
}

// metadataPath maps a versionless coordinate onto its metadata document.
func metadataPath(c artifact.Coordinate) string {
	groupPath := strings.ReplaceAll(c.GroupID, ".", "/")
	return fmt.Sprintf("%s/%s/maven-metadata.xml", groupPath, c.ArtifactID)
}

// Ensure Reader implements the reader contract.
var _ descriptor.Reader = (*Reader)(nil)
