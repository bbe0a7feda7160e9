package maven

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okvist/quarry/pkg/artifact"
	"github.com/okvist/quarry/pkg/cache"
	"github.com/okvist/quarry/pkg/descriptor"
	"github.com/okvist/quarry/pkg/errors"
	"github.com/okvist/quarry/pkg/registry"
	"github.com/okvist/quarry/pkg/repository"
)

// repoWithPOMs lays POM files out under a temp dir in the default layout.
func repoWithPOMs(t *testing.T, poms map[string]string) repository.Remote {
	t.Helper()
	dir := t.TempDir()
	for coords, pom := range poms {
		c := artifact.MustParse(coords)
		path := filepath.Join(dir, filepath.FromSlash(pomPath(c)))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(pom), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return repository.NewRemote("local", "file://"+dir)
}

func newTestReader(t *testing.T) *Reader {
	t.Helper()
	client := registry.NewClient(cache.NewNullCache(), time.Hour)
	t.Cleanup(func() { client.Close() })
	reader, err := NewReader(client)
	if err != nil {
		t.Fatal(err)
	}
	return reader
}

func read(t *testing.T, r *Reader, repo repository.Remote, coords string) *descriptor.Descriptor {
	t.Helper()
	res, err := r.Read(context.Background(), &descriptor.Request{
		Coordinate:   artifact.MustParse(coords),
		Repositories: []repository.Remote{repo},
	})
	if err != nil {
		t.Fatalf("Read(%s) error: %v", coords, err)
	}
	return res.Descriptor
}

func TestReadDependencies(t *testing.T) {
	repo := repoWithPOMs(t, map[string]string{
		"gid:aid:jar:1": `<project>
  <groupId>gid</groupId>
  <artifactId>aid</artifactId>
  <version>1</version>
  <dependencies>
    <dependency>
      <groupId>org.example</groupId>
      <artifactId>core</artifactId>
      <version>2.0</version>
      <scope>compile</scope>
    </dependency>
    <dependency>
      <groupId>org.example</groupId>
      <artifactId>extras</artifactId>
      <version>2.0</version>
      <optional>true</optional>
      <exclusions>
        <exclusion>
          <groupId>org.heavy</groupId>
          <artifactId>dep</artifactId>
        </exclusion>
      </exclusions>
    </dependency>
  </dependencies>
</project>`,
	})

	desc := read(t, newTestReader(t), repo, "gid:aid:jar:1")

	if len(desc.Dependencies) != 2 {
		t.Fatalf("dependencies = %d, want 2", len(desc.Dependencies))
	}
	first := desc.Dependencies[0]
	if !first.Coordinate.Equal(artifact.MustParse("org.example:core:jar:2.0")) || first.Scope != "compile" {
		t.Errorf("first dependency = %v", first)
	}
	second := desc.Dependencies[1]
	if !second.IsOptional() {
		t.Error("optional flag lost")
	}
	if len(second.Exclusions) != 1 || second.Exclusions[0].GroupID != "org.heavy" {
		t.Errorf("exclusions = %v", second.Exclusions)
	}
	// declaration order survives parsing
	if desc.Dependencies[0].Coordinate.ArtifactID != "core" {
		t.Error("declaration order lost")
	}
}

func TestReadManagedDependenciesAndRepositories(t *testing.T) {
	repo := repoWithPOMs(t, map[string]string{
		"gid:aid:jar:1": `<project>
  <dependencyManagement>
    <dependencies>
      <dependency>
        <groupId>org.example</groupId>
        <artifactId>core</artifactId>
        <version>3.1</version>
        <scope>runtime</scope>
      </dependency>
    </dependencies>
  </dependencyManagement>
  <repositories>
    <repository>
      <id>declared</id>
      <url>https://declared.example/repo</url>
    </repository>
  </repositories>
</project>`,
	})

	desc := read(t, newTestReader(t), repo, "gid:aid:jar:1")

	if len(desc.ManagedDependencies) != 1 {
		t.Fatalf("managed = %d, want 1", len(desc.ManagedDependencies))
	}
	m := desc.ManagedDependencies[0]
	if m.Coordinate.Version != "3.1" || m.Scope != "runtime" {
		t.Errorf("managed entry = %v", m)
	}

	if len(desc.Repositories) != 1 || desc.Repositories[0].ID != "declared" {
		t.Errorf("repositories = %v", desc.Repositories)
	}
}

func TestReadPropertyInterpolation(t *testing.T) {
	repo := repoWithPOMs(t, map[string]string{
		"gid:aid:jar:1": `<project>
  <groupId>gid</groupId>
  <artifactId>aid</artifactId>
  <version>1</version>
  <properties>
    <core.version>4.2</core.version>
  </properties>
  <dependencies>
    <dependency>
      <groupId>gid</groupId>
      <artifactId>core</artifactId>
      <version>${core.version}</version>
    </dependency>
    <dependency>
      <groupId>gid</groupId>
      <artifactId>sibling</artifactId>
      <version>${project.version}</version>
    </dependency>
    <dependency>
      <groupId>${unresolvable}</groupId>
      <artifactId>skipped</artifactId>
      <version>1</version>
    </dependency>
  </dependencies>
</project>`,
	})

	desc := read(t, newTestReader(t), repo, "gid:aid:jar:1")

	if len(desc.Dependencies) != 2 {
		t.Fatalf("dependencies = %d, want 2 (unresolvable group skipped)", len(desc.Dependencies))
	}
	if got := desc.Dependencies[0].Coordinate.Version; got != "4.2" {
		t.Errorf("interpolated version = %q, want 4.2", got)
	}
	if got := desc.Dependencies[1].Coordinate.Version; got != "1" {
		t.Errorf("project.version = %q, want 1", got)
	}
}

func TestReadRelocation(t *testing.T) {
	repo := repoWithPOMs(t, map[string]string{
		"old:name:jar:1": `<project>
  <distributionManagement>
    <relocation>
      <groupId>new</groupId>
      <artifactId>name</artifactId>
    </relocation>
  </distributionManagement>
</project>`,
	})

	desc := read(t, newTestReader(t), repo, "old:name:jar:1")

	if desc.Relocation == nil {
		t.Fatal("relocation not surfaced")
	}
	if desc.Relocation.GroupID != "new" || desc.Relocation.ArtifactID != "name" {
		t.Errorf("relocation = %v", desc.Relocation)
	}
	// omitted fields inherit from the requested coordinate
	if desc.Relocation.Version != "1" && desc.Relocation.Version != "" {
		t.Errorf("relocation version = %q", desc.Relocation.Version)
	}
}

func TestReadMissing(t *testing.T) {
	repo := repoWithPOMs(t, nil)
	_, err := newTestReader(t).Read(context.Background(), &descriptor.Request{
		Coordinate:   artifact.MustParse("gid:absent:jar:1"),
		Repositories: []repository.Remote{repo},
	})
	if !errors.Is(err, errors.ErrCodeDescriptorMissing) {
		t.Errorf("Read(absent) = %v, want %s", err, errors.ErrCodeDescriptorMissing)
	}
}

func TestReadInvalid(t *testing.T) {
	repo := repoWithPOMs(t, map[string]string{
		"gid:broken:jar:1": "<project><dependencies></project>",
	})
	_, err := newTestReader(t).Read(context.Background(), &descriptor.Request{
		Coordinate:   artifact.MustParse("gid:broken:jar:1"),
		Repositories: []repository.Remote{repo},
	})
	if !errors.Is(err, errors.ErrCodeDescriptorInvalid) {
		t.Errorf("Read(broken) = %v, want %s", err, errors.ErrCodeDescriptorInvalid)
	}
}

func TestReadUsesParsedCache(t *testing.T) {
	repo := repoWithPOMs(t, map[string]string{
		"gid:aid:jar:1": "<project/>",
	})
	reader := newTestReader(t)

	first := read(t, reader, repo, "gid:aid:jar:1")
	second := read(t, reader, repo, "gid:aid:jar:1")
	if first != second {
		t.Error("parsed descriptor not served from the LRU on repeat reads")
	}
}

func TestPomPathLayout(t *testing.T) {
	c := artifact.MustParse("org.apache.commons:commons-lang3:jar:3.14.0")
	want := "org/apache/commons/commons-lang3/3.14.0/commons-lang3-3.14.0.pom"
	if got := pomPath(c); got != want {
		t.Errorf("pomPath = %q, want %q", got, want)
	}
	if got := metadataPath(c); got != "org/apache/commons/commons-lang3/maven-metadata.xml" {
		t.Errorf("metadataPath = %q", got)
	}
}
