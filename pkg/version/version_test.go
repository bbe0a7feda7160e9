package version

import (
	"slices"
	"testing"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int // sign only
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.0", "1.0.1", -1},
		{"1.10", "1.9", 1},
		{"1.0.0-alpha", "1.0.0", -1},
		{"1.0-alpha", "1.0-beta", -1},
		{"1.0-SNAPSHOT", "1.0", -1},
		{"1", "1.0", 0}, // semver-equal, broken by raw bytes... sign may differ; see below
	}

	for _, tt := range tests {
		if tt.a == "1" && tt.b == "1.0" {
			// only totality matters for the tie-broken pair
			if Compare(tt.a, tt.b) != -Compare(tt.b, tt.a) {
				t.Errorf("Compare(%q,%q) not antisymmetric", tt.a, tt.b)
			}
			continue
		}
		if got := sign(Compare(tt.a, tt.b)); got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want sign %d", tt.a, tt.b, got, tt.want)
		}
		if got := sign(Compare(tt.b, tt.a)); got != -tt.want {
			t.Errorf("Compare(%q, %q) = %d, want sign %d", tt.b, tt.a, got, -tt.want)
		}
	}
}

func TestCompareNonSemver(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0.1", "1.0.0.2", -1},
		{"2023.1", "2023.2", -1},
		{"1.0.0.9", "1.0.0.10", -1},
		{"1.0.0.Final", "1.0.0.Final", 0},
	}
	for _, tt := range tests {
		if got := sign(Compare(tt.a, tt.b)); got != tt.want {
			t.Errorf("Compare(%q, %q) sign = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func TestMax(t *testing.T) {
	if got := Max([]string{"1.0", "2.0", "1.5"}); got != "2.0" {
		t.Errorf("Max = %q, want 2.0", got)
	}
	if got := Max(nil); got != "" {
		t.Errorf("Max(nil) = %q, want empty", got)
	}
}

func TestSort(t *testing.T) {
	versions := []string{"2.0", "1.0-alpha", "1.0", "1.5"}
	Sort(versions)
	want := []string{"1.0-alpha", "1.0", "1.5", "2.0"}
	if !slices.Equal(versions, want) {
		t.Errorf("Sort = %v, want %v", versions, want)
	}
}

func TestParseConstraintSoft(t *testing.T) {
	c, err := ParseConstraint("1.2.3")
	if err != nil {
		t.Fatalf("ParseConstraint error: %v", err)
	}
	if c.IsRange() {
		t.Error("soft version parsed as range")
	}
	if !c.Matches("1.2.3") {
		t.Error("soft constraint must match its own version")
	}
	if c.Matches("1.2.4") {
		t.Error("soft constraint must not match other versions")
	}
}

func TestParseConstraintRanges(t *testing.T) {
	tests := []struct {
		spec    string
		matches []string
		misses  []string
	}{
		{"[1.0,2.0)", []string{"1.0", "1.5", "1.9.9"}, []string{"0.9", "2.0", "2.1"}},
		{"[1.0,2.0]", []string{"1.0", "2.0"}, []string{"2.0.1"}},
		{"(1.0,2.0)", []string{"1.5"}, []string{"1.0", "2.0"}},
		{"(,1.0]", []string{"0.1", "1.0"}, []string{"1.1"}},
		{"[1.5,)", []string{"1.5", "9.9"}, []string{"1.4"}},
		{"[1.0]", []string{"1.0"}, []string{"1.0.1", "0.9"}},
		{"(,1.0],[2.0,)", []string{"0.5", "1.0", "2.0", "3.0"}, []string{"1.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			c, err := ParseConstraint(tt.spec)
			if err != nil {
				t.Fatalf("ParseConstraint(%q) error: %v", tt.spec, err)
			}
			if !c.IsRange() {
				t.Fatalf("ParseConstraint(%q) not a range", tt.spec)
			}
			for _, v := range tt.matches {
				if !c.Matches(v) {
					t.Errorf("%q must match %q", tt.spec, v)
				}
			}
			for _, v := range tt.misses {
				if c.Matches(v) {
					t.Errorf("%q must not match %q", tt.spec, v)
				}
			}
		})
	}
}

func TestParseConstraintRejectsMalformed(t *testing.T) {
	for _, spec := range []string{"", "[1.0", "1.0]", "[2.0,1.0]", "(1.0)", "[,1.0)"} {
		if _, err := ParseConstraint(spec); err == nil {
			t.Errorf("ParseConstraint(%q) succeeded, want error", spec)
		}
	}
}

func TestResultSelected(t *testing.T) {
	r := &Result{Versions: []string{"1.0", "1.5", "2.0"}}
	if got := r.Selected(); got != "2.0" {
		t.Errorf("Selected = %q, want the highest", got)
	}
	if got := (&Result{}).Selected(); got != "" {
		t.Errorf("empty Selected = %q, want empty", got)
	}
}
