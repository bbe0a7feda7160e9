package artifact

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		coords string
		want   Coordinate
	}{
		{
			name:   "three fields",
			coords: "gid:aid:1",
			want:   Coordinate{GroupID: "gid", ArtifactID: "aid", Extension: "jar", Version: "1"},
		},
		{
			name:   "four fields",
			coords: "gid:aid:pom:1",
			want:   Coordinate{GroupID: "gid", ArtifactID: "aid", Extension: "pom", Version: "1"},
		},
		{
			name:   "five fields",
			coords: "gid:aid:jar:sources:1",
			want:   Coordinate{GroupID: "gid", ArtifactID: "aid", Extension: "jar", Classifier: "sources", Version: "1"},
		},
		{
			name:   "range version",
			coords: "gid:aid:jar:[1.0,2.0)",
			want:   Coordinate{GroupID: "gid", ArtifactID: "aid", Extension: "jar", Version: "[1.0,2.0)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.coords)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.coords, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.coords, got, tt.want)
			}
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, coords := range []string{"", "gid", "gid:aid", "g:a:e:c:v:extra", ":aid:1", "gid::1"} {
		if _, err := Parse(coords); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", coords)
		}
	}
}

func TestCoordinateEqualIgnoresProperties(t *testing.T) {
	a := MustParse("gid:aid:jar:1")
	b := MustParse("gid:aid:jar:1").WithProperties(map[string]string{"localPath": "/tmp/x"})
	if !a.Equal(b) {
		t.Error("properties must not affect identity")
	}
}

func TestCoordinateEqualDefaultExtension(t *testing.T) {
	a := Coordinate{GroupID: "g", ArtifactID: "a", Version: "1"}
	b := Coordinate{GroupID: "g", ArtifactID: "a", Extension: "jar", Version: "1"}
	if !a.Equal(b) {
		t.Error("empty extension must compare equal to the default")
	}
	if a.Key() != b.Key() {
		t.Error("empty extension must key equal to the default")
	}
}

func TestKeyIgnoresVersion(t *testing.T) {
	a := MustParse("gid:aid:jar:1")
	b := MustParse("gid:aid:jar:2")
	if a.Key() != b.Key() {
		t.Error("versions must not affect the versionless key")
	}

	c := MustParse("gid:aid:jar:cls:1")
	if a.Key() == c.Key() {
		t.Error("classifier must affect the versionless key")
	}
}

func TestWithPropertiesDoesNotMutate(t *testing.T) {
	base := MustParse("gid:aid:jar:1").WithProperties(map[string]string{"k": "old"})
	derived := base.WithProperties(map[string]string{"k": "new"})

	if base.Property("k", "") != "old" {
		t.Error("WithProperties mutated the receiver")
	}
	if derived.Property("k", "") != "new" {
		t.Error("WithProperties lost the override")
	}
}

func TestDependencyOptionalTriState(t *testing.T) {
	d := NewDependency(MustParse("gid:aid:jar:1"), "compile")
	if d.IsOptional() {
		t.Error("unset optional must read as non-optional")
	}

	explicit := d.WithOptional(false)
	if explicit.Optional == nil || *explicit.Optional {
		t.Error("WithOptional(false) must record the explicit flag")
	}
	if !d.Equal(explicit) {
		t.Error("unset and explicit false must compare equal")
	}
	if d.Equal(d.WithOptional(true)) {
		t.Error("optional true must not equal unset")
	}
}

func TestDependencyWithCoordinatePreservesRest(t *testing.T) {
	d := NewDependency(MustParse("old:name:jar:1"), "runtime").
		WithOptional(true).
		WithExclusions([]Exclusion{NewExclusion("g", "a")})

	moved := d.WithCoordinate(MustParse("new:name:jar:2"))
	if moved.Scope != "runtime" || !moved.IsOptional() || len(moved.Exclusions) != 1 {
		t.Errorf("WithCoordinate dropped payload: %+v", moved)
	}
}

func TestExclusionMatching(t *testing.T) {
	coord := MustParse("gid:aid:jar:1")
	tests := []struct {
		name string
		ex   Exclusion
		want bool
	}{
		{"exact", Exclusion{"gid", "aid", "jar", ""}, true},
		{"wildcard all", Exclusion{Wildcard, Wildcard, Wildcard, Wildcard}, true},
		{"group wildcard", Exclusion{Wildcard, "aid", Wildcard, Wildcard}, true},
		{"wrong group", Exclusion{"other", "aid", Wildcard, Wildcard}, false},
		{"wrong artifact", Exclusion{"gid", "other", Wildcard, Wildcard}, false},
		{"wrong extension", Exclusion{"gid", "aid", "pom", Wildcard}, false},
		{"empty fields match any", Exclusion{GroupID: "gid", ArtifactID: "aid"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ex.Matches(coord); got != tt.want {
				t.Errorf("%v.Matches(%v) = %v, want %v", tt.ex, coord, got, tt.want)
			}
		})
	}
}

func TestMergeExclusions(t *testing.T) {
	base := []Exclusion{NewExclusion("g1", "a1")}
	merged := MergeExclusions(base, []Exclusion{NewExclusion("g1", "a1"), NewExclusion("g2", "a2")})

	if len(merged) != 2 {
		t.Fatalf("merged = %v, want deduplicated union of 2", merged)
	}
	if merged[0] != base[0] {
		t.Error("merge must preserve first-seen order")
	}
	if len(base) != 1 {
		t.Error("merge mutated its input")
	}
}
