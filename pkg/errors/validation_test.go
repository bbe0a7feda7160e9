package errors

import (
	"strings"
	"testing"
)

func TestValidateCoordinatePart(t *testing.T) {
	valid := []string{"commons-lang3", "org.apache.commons", "guava", "jar", "sources"}
	for _, part := range valid {
		if err := ValidateCoordinatePart(part); err != nil {
			t.Errorf("ValidateCoordinatePart(%q) = %v, want nil", part, err)
		}
	}

	invalid := []string{
		"",
		"..",
		"a..b",
		"a/b",
		"a\\b",
		"a\x00b",
		"a\nb",
		strings.Repeat("x", 257),
	}
	for _, part := range invalid {
		if err := ValidateCoordinatePart(part); err == nil {
			t.Errorf("ValidateCoordinatePart(%q) = nil, want error", part)
		}
	}
}

func TestValidateGroupID(t *testing.T) {
	for _, id := range []string{"org.apache.commons", "io.quarkus", "gid"} {
		if err := ValidateGroupID(id); err != nil {
			t.Errorf("ValidateGroupID(%q) = %v, want nil", id, err)
		}
	}
	for _, id := range []string{"org..apache", ".leading", "trailing.", "spa ce"} {
		if err := ValidateGroupID(id); err == nil {
			t.Errorf("ValidateGroupID(%q) = nil, want error", id)
		}
	}
}

func TestValidateArtifactID(t *testing.T) {
	for _, id := range []string{"commons-lang3", "guava", "spring_core", "a1.b2"} {
		if err := ValidateArtifactID(id); err != nil {
			t.Errorf("ValidateArtifactID(%q) = %v, want nil", id, err)
		}
	}
	for _, id := range []string{"-leading", "has space", ""} {
		if err := ValidateArtifactID(id); err == nil {
			t.Errorf("ValidateArtifactID(%q) = nil, want error", id)
		}
	}
}

func TestValidateRepositoryID(t *testing.T) {
	for _, id := range []string{"central", "my-mirror", "snapshots2"} {
		if err := ValidateRepositoryID(id); err != nil {
			t.Errorf("ValidateRepositoryID(%q) = %v, want nil", id, err)
		}
	}
	for _, id := range []string{"", "has space", "a/b", "a:b"} {
		if err := ValidateRepositoryID(id); err == nil {
			t.Errorf("ValidateRepositoryID(%q) = nil, want error", id)
		}
	}
}

func TestValidateURL(t *testing.T) {
	for _, u := range []string{"https://repo1.maven.org/maven2", "http://localhost:8081", "file:///var/repo"} {
		if err := ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", u, err)
		}
	}
	for _, u := range []string{"", "ftp://old.example", "repo1.maven.org"} {
		if err := ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", u)
		}
	}
}
