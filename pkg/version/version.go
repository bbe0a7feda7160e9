// Package version implements version ordering and Maven-style range
// constraints for the collection engine.
//
// Versions in the wild are not all semantic versions, so [Compare] first
// attempts a coerced semver comparison (via Masterminds/semver) and falls
// back to a segment-wise numeric/lexical comparison for anything the semver
// grammar rejects. The ordering is total and deterministic; the collector
// relies on it to pick the highest version of a resolved range.
package version

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Compare orders two version strings. It returns a negative number when a
// sorts before b, zero when they rank equally, and a positive number
// otherwise.
//
// Both versions parseable as (coerced) semver are ordered by semver rules;
// equal semver ranks fall back to a byte comparison so the ordering stays
// total. Everything else uses a dotted segment comparison where numeric
// segments order numerically and mixed segments order lexically; a version
// with extra segments sorts after its prefix ("1.0.1" > "1.0"), except
// qualifier segments, which sort before the release ("1.0-alpha" < "1.0").
func Compare(a, b string) int {
	if a == b {
		return 0
	}

	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		if c := va.Compare(vb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	}

	return compareSegments(split(a), split(b))
}

// Less reports whether a sorts strictly before b.
func Less(a, b string) bool { return Compare(a, b) < 0 }

// Max returns the highest version in the list, or "" for an empty list.
func Max(versions []string) string {
	if len(versions) == 0 {
		return ""
	}
	best := versions[0]
	for _, v := range versions[1:] {
		if Compare(v, best) > 0 {
			best = v
		}
	}
	return best
}

// Sort orders versions ascending in place using [Compare].
func Sort(versions []string) {
	// insertion sort keeps the common short lists allocation-free
	for i := 1; i < len(versions); i++ {
		for j := i; j > 0 && Compare(versions[j-1], versions[j]) > 0; j-- {
			versions[j-1], versions[j] = versions[j], versions[j-1]
		}
	}
}

func split(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool { return r == '.' || r == '-' })
}

func compareSegments(a, b []string) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := range n {
		switch {
		case i >= len(a):
			return -qualifierSign(b[i])
		case i >= len(b):
			return qualifierSign(a[i])
		}
		if c := compareSegment(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// qualifierSign determines how a trailing segment compares against nothing:
// numeric or unknown segments extend the version ("1.0.1" > "1.0"), while
// well-known qualifiers precede the release ("1.0-alpha" < "1.0").
func qualifierSign(seg string) int {
	switch strings.ToLower(seg) {
	case "alpha", "beta", "milestone", "rc", "cr", "snapshot":
		return -1
	}
	return 1
}

func compareSegment(a, b string) int {
	na, okA := atoi(a)
	nb, okB := atoi(b)
	switch {
	case okA && okB:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	case okA:
		return 1 // numbers sort after qualifiers
	case okB:
		return -1
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func atoi(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}
