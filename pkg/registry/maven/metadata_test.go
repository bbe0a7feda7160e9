package maven

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/okvist/quarry/pkg/artifact"
	"github.com/okvist/quarry/pkg/cache"
	"github.com/okvist/quarry/pkg/registry"
	"github.com/okvist/quarry/pkg/repository"
	"github.com/okvist/quarry/pkg/version"
)

func repoWithMetadata(t *testing.T, id string, coords string, versions ...string) repository.Remote {
	t.Helper()
	dir := t.TempDir()
	c := artifact.MustParse(coords)
	path := filepath.Join(dir, filepath.FromSlash(metadataPath(c)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	doc := "<metadata><versioning><versions>"
	for _, v := range versions {
		doc += "<version>" + v + "</version>"
	}
	doc += "</versions></versioning></metadata>"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return repository.NewRemote(id, "file://"+dir)
}

func newTestResolver(t *testing.T) *VersionResolver {
	t.Helper()
	client := registry.NewClient(cache.NewNullCache(), time.Hour)
	t.Cleanup(func() { client.Close() })
	return NewVersionResolver(client)
}

func TestResolveSoftVersionNeedsNoMetadata(t *testing.T) {
	res, err := newTestResolver(t).Resolve(context.Background(), &version.Request{
		Coordinate: artifact.MustParse("gid:aid:jar:1.2.3"),
		// no repositories on purpose: soft versions must not touch them
	})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !slices.Equal(res.Versions, []string{"1.2.3"}) {
		t.Errorf("Versions = %v, want [1.2.3]", res.Versions)
	}
	if res.Selected() != "1.2.3" {
		t.Errorf("Selected = %q", res.Selected())
	}
}

func TestResolveRangeFiltersAndOrders(t *testing.T) {
	repo := repoWithMetadata(t, "local", "gid:aid:jar:x", "0.9", "1.0", "1.5", "2.0", "2.5")

	res, err := newTestResolver(t).Resolve(context.Background(), &version.Request{
		Coordinate:   artifact.MustParse("gid:aid:jar:[1.0,2.0]"),
		Repositories: []repository.Remote{repo},
	})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !slices.Equal(res.Versions, []string{"1.0", "1.5", "2.0"}) {
		t.Errorf("Versions = %v, want [1.0 1.5 2.0]", res.Versions)
	}
	if res.Selected() != "2.0" {
		t.Errorf("Selected = %q, want the highest", res.Selected())
	}
}

func TestResolveRangeSpansAllRepositories(t *testing.T) {
	a := repoWithMetadata(t, "a", "gid:aid:jar:x", "1.0")
	b := repoWithMetadata(t, "b", "gid:aid:jar:x", "1.5")

	res, err := newTestResolver(t).Resolve(context.Background(), &version.Request{
		Coordinate:   artifact.MustParse("gid:aid:jar:[1.0,)"),
		Repositories: []repository.Remote{a, b},
	})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !slices.Equal(res.Versions, []string{"1.0", "1.5"}) {
		t.Errorf("Versions = %v, want the union of both repositories", res.Versions)
	}
	if res.Repositories["1.5"].ID != "b" {
		t.Errorf("hosting repository of 1.5 = %q, want b", res.Repositories["1.5"].ID)
	}
}

func TestResolveRangeNoMetadataYieldsEmpty(t *testing.T) {
	repo := repository.NewRemote("empty", "file://"+t.TempDir())

	res, err := newTestResolver(t).Resolve(context.Background(), &version.Request{
		Coordinate:   artifact.MustParse("gid:aid:jar:[1.0,)"),
		Repositories: []repository.Remote{repo},
	})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(res.Versions) != 0 {
		t.Errorf("Versions = %v, want empty (collector turns this into an error)", res.Versions)
	}
}
