package collector

import (
	"testing"

	"github.com/okvist/quarry/pkg/artifact"
	"github.com/okvist/quarry/pkg/graph"
	"github.com/okvist/quarry/pkg/manager"
)

func TestManagedVersionAndScope(t *testing.T) {
	reader := newStubReader()
	rootDesc := reader.add("managed:aid:jar:ver", dep("gid:aid:jar:ver", "compile"))
	rootDesc.ManagedDependencies = []artifact.Dependency{
		dep("gid:aid2:jar:managedVersion", "managedScope"),
	}
	reader.add("gid:aid:jar:ver", dep("gid:aid2:jar:ver", "compile"))
	reader.add("gid:aid2:jar:managedVersion")

	root := dep("managed:aid:jar:ver", "")
	result := collect(t, newCollector(reader), NewSession(), &Request{
		Root:         &root,
		Repositories: testRepos(),
	})

	if len(result.Exceptions) != 0 {
		t.Fatalf("exceptions = %v, want none", result.Exceptions)
	}

	// the classic manager leaves the root's direct dependency alone
	assertDep(t, child(t, result.Root, 0), dep("gid:aid:jar:ver", "compile"))

	// ... and rewrites the grandchild per the root's managed list
	got := child(t, result.Root, 0, 0)
	assertDep(t, got, dep("gid:aid2:jar:managedVersion", "managedScope"))
	if got.ManagedBits&graph.ManagedVersion == 0 || got.ManagedBits&graph.ManagedScope == 0 {
		t.Errorf("managed bits = %b, want VERSION|SCOPE set", got.ManagedBits)
	}
}

func TestRequestManagedDependencies(t *testing.T) {
	// an externally supplied managed list behaves as if the root's
	// descriptor had declared it
	reader := newStubReader()
	reader.add("gid:root:jar:1", dep("gid:mid:jar:1", "compile"))
	reader.add("gid:mid:jar:1", dep("gid:leaf:jar:1", "compile"))
	reader.add("gid:leaf:jar:2")

	root := dep("gid:root:jar:1", "")
	result := collect(t, newCollector(reader), NewSession(), &Request{
		Root:                &root,
		ManagedDependencies: []artifact.Dependency{dep("gid:leaf:jar:2", "")},
		Repositories:        testRepos(),
	})

	if len(result.Exceptions) != 0 {
		t.Fatalf("exceptions = %v, want none", result.Exceptions)
	}
	leaf := child(t, result.Root, 0, 0)
	if got := leaf.Dependency.Coordinate.Version; got != "2" {
		t.Errorf("managed version = %q, want 2", got)
	}
}

func TestManagedLocalPathProperty(t *testing.T) {
	reader := newStubReader()
	rootDesc := reader.add("gid:root:jar:1", dep("gid:mid:jar:1", "compile"))
	managed := artifact.Dependency{Coordinate: artifact.Coordinate{
		GroupID:    "gid",
		ArtifactID: "leaf",
		Extension:  "jar",
		Properties: map[string]string{artifact.PropertyLocalPath: "managed"},
	}}
	rootDesc.ManagedDependencies = []artifact.Dependency{managed}
	reader.add("gid:mid:jar:1", dep("gid:leaf:jar:1", "compile"))
	reader.add("gid:leaf:jar:1")

	root := dep("gid:root:jar:1", "")
	result := collect(t, newCollector(reader), NewSession(), &Request{
		Root:         &root,
		Repositories: testRepos(),
	})

	leaf := child(t, result.Root, 0, 0)
	if got := leaf.Dependency.Coordinate.Property(artifact.PropertyLocalPath, ""); got != "managed" {
		t.Errorf("localPath property = %q, want managed", got)
	}
	// a property-only override keeps the declared version
	if got := leaf.Dependency.Coordinate.Version; got != "1" {
		t.Errorf("version = %q, want 1", got)
	}
	if leaf.ManagedBits&graph.ManagedProperties == 0 {
		t.Errorf("managed bits = %b, want PROPERTIES set", leaf.ManagedBits)
	}
}

// allDepthManager manages at every depth, keyed by versionless coordinate.
// It mirrors the hand-rolled managers sessions may install in place of the
// classic variant.
type allDepthManager struct {
	versions   map[string]string
	scopes     map[string]string
	optionals  map[string]bool
	paths      map[string]string
	exclusions map[string][]artifact.Exclusion
}

func newAllDepthManager() *allDepthManager {
	return &allDepthManager{
		versions:   make(map[string]string),
		scopes:     make(map[string]string),
		optionals:  make(map[string]bool),
		paths:      make(map[string]string),
		exclusions: make(map[string][]artifact.Exclusion),
	}
}

func (m *allDepthManager) Manage(d artifact.Dependency) *manager.Management {
	key := d.Coordinate.Key().String()
	var mgmt manager.Management
	found := false
	if v, ok := m.versions[key]; ok {
		mgmt.Version = &v
		found = true
	}
	if s, ok := m.scopes[key]; ok {
		mgmt.Scope = &s
		found = true
	}
	if o, ok := m.optionals[key]; ok {
		mgmt.Optional = &o
		found = true
	}
	if p, ok := m.paths[key]; ok {
		mgmt.Properties = map[string]string{artifact.PropertyLocalPath: p}
		found = true
	}
	if ex, ok := m.exclusions[key]; ok {
		mgmt.Exclusions = artifact.MergeExclusions(d.Exclusions, ex)
		found = true
	}
	if !found {
		return nil
	}
	return &mgmt
}

func (m *allDepthManager) DeriveFor(manager.Context) manager.Manager { return m }

func TestManagementVerboseMode(t *testing.T) {
	reader := newStubReader()
	reader.add("gid:aid:jar:ver", dep("gid:aid2:jar:ver", "compile"))
	reader.add("gid:aid2:jar:managedVersion")

	mgr := newAllDepthManager()
	const key = "gid:aid2:jar"
	mgr.versions[key] = "managedVersion"
	mgr.scopes[key] = "managedScope"
	mgr.optionals[key] = false // true would prune the node below the root
	mgr.paths[key] = "managedPath"
	mgr.exclusions[key] = []artifact.Exclusion{artifact.NewExclusion("gid", "aid")}

	session := NewSession()
	session.Manager = mgr
	session.VerboseManagement = true

	root := dep("gid:aid:jar:ver", "")
	result := collect(t, newCollector(reader), session, &Request{
		Root:         &root,
		Repositories: testRepos(),
	})

	node := child(t, result.Root, 0)
	wantBits := graph.ManagedVersion | graph.ManagedScope | graph.ManagedOptional |
		graph.ManagedProperties | graph.ManagedExclusions
	if node.ManagedBits != wantBits {
		t.Errorf("managed bits = %b, want %b", node.ManagedBits, wantBits)
	}

	if v, ok := node.PremanagedVersion(); !ok || v != "ver" {
		t.Errorf("premanaged version = %q (%v), want ver", v, ok)
	}
	if s, ok := node.PremanagedScope(); !ok || s != "compile" {
		t.Errorf("premanaged scope = %q (%v), want compile", s, ok)
	}
	if o, ok := node.PremanagedOptional(); !ok || o != nil {
		t.Errorf("premanaged optional = %v (%v), want recorded unset", o, ok)
	}
}

func TestManagementQuietByDefault(t *testing.T) {
	// without the verbose flag, overrides happen but nothing is recorded
	reader := newStubReader()
	reader.add("gid:aid:jar:ver", dep("gid:aid2:jar:ver", "compile"))
	reader.add("gid:aid2:jar:managedVersion")

	mgr := newAllDepthManager()
	mgr.versions["gid:aid2:jar"] = "managedVersion"

	session := NewSession()
	session.Manager = mgr

	root := dep("gid:aid:jar:ver", "")
	result := collect(t, newCollector(reader), session, &Request{
		Root:         &root,
		Repositories: testRepos(),
	})

	node := child(t, result.Root, 0)
	if node.ManagedBits&graph.ManagedVersion == 0 {
		t.Error("managed bits missing VERSION")
	}
	if node.Premanaged != nil {
		t.Errorf("premanaged sidecar = %v, want nil", node.Premanaged)
	}
}

func TestManagedBitsMatchPremanagedState(t *testing.T) {
	// invariant: a managed bit is set exactly when the premanaged value
	// differs from the effective one
	reader := newStubReader()
	reader.add("gid:aid:jar:ver", dep("gid:aid2:jar:ver", "compile"))
	reader.add("gid:aid2:jar:other")

	mgr := newAllDepthManager()
	mgr.versions["gid:aid2:jar"] = "other"
	// scope managed to its existing value: no override, no bit
	mgr.scopes["gid:aid2:jar"] = "compile"

	session := NewSession()
	session.Manager = mgr
	session.VerboseManagement = true

	root := dep("gid:aid:jar:ver", "")
	result := collect(t, newCollector(reader), session, &Request{
		Root:         &root,
		Repositories: testRepos(),
	})

	node := child(t, result.Root, 0)
	if node.ManagedBits&graph.ManagedVersion == 0 {
		t.Error("VERSION bit missing for a real override")
	}
	if node.ManagedBits&graph.ManagedScope != 0 {
		t.Error("SCOPE bit set although the managed scope equals the declared one")
	}
	if v, ok := node.PremanagedVersion(); !ok || v == node.Dependency.Coordinate.Version {
		t.Errorf("premanaged version = %q, must differ from effective %q", v, node.Dependency.Coordinate.Version)
	}
	if _, ok := node.PremanagedScope(); ok {
		t.Error("premanaged scope recorded without an override")
	}
}
