package version

import (
	"strings"

	"github.com/okvist/quarry/pkg/errors"
)

// Constraint is a parsed version specification: either a soft single version
// ("1.2.3") or a union of ranges ("[1.0,2.0)", "(,1.0],[2.0,)").
//
// Constraints are immutable after parsing.
type Constraint struct {
	raw    string
	soft   string  // set when the constraint is a plain version
	ranges []Range // set when the constraint is a range union
}

// Range is a single interval with optional bounds. An empty bound string
// means unbounded on that side.
type Range struct {
	Lower, Upper           string
	LowerBound, UpperBound bool // inclusive flags
}

// ParseConstraint parses a version specification. A specification that
// contains no range brackets is treated as a soft version that pins itself.
func ParseConstraint(spec string) (*Constraint, error) {
	if spec == "" {
		return nil, errors.New(errors.ErrCodeInvalidRange, "empty version specification")
	}
	if !strings.ContainsAny(spec, "[]()") {
		return &Constraint{raw: spec, soft: spec}, nil
	}

	c := &Constraint{raw: spec}
	rest := spec
	for rest != "" {
		var r Range
		var err error
		r, rest, err = parseRange(rest, spec)
		if err != nil {
			return nil, err
		}
		c.ranges = append(c.ranges, r)
		rest = strings.TrimPrefix(rest, ",")
	}
	if len(c.ranges) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidRange, "bad version range %q", spec)
	}
	return c, nil
}

func parseRange(s, spec string) (Range, string, error) {
	var r Range
	switch {
	case strings.HasPrefix(s, "["):
		r.LowerBound = true
	case strings.HasPrefix(s, "("):
	default:
		return r, "", errors.New(errors.ErrCodeInvalidRange,
			"bad version range %q: expected '[' or '(' at %q", spec, s)
	}

	end := strings.IndexAny(s, "])")
	if end < 0 {
		return r, "", errors.New(errors.ErrCodeInvalidRange,
			"bad version range %q: unclosed bound", spec)
	}
	r.UpperBound = s[end] == ']'

	body := s[1:end]
	comma := strings.Index(body, ",")
	if comma < 0 {
		// single-version pin "[1.0]"
		if body == "" || !r.LowerBound || !r.UpperBound {
			return r, "", errors.New(errors.ErrCodeInvalidRange,
				"bad version range %q: single version must use []", spec)
		}
		r.Lower, r.Upper = body, body
		return r, s[end+1:], nil
	}

	r.Lower, r.Upper = body[:comma], body[comma+1:]
	if r.Lower == "" && r.LowerBound {
		return r, "", errors.New(errors.ErrCodeInvalidRange,
			"bad version range %q: unbounded lower bound must use '('", spec)
	}
	if r.Upper == "" && r.UpperBound {
		return r, "", errors.New(errors.ErrCodeInvalidRange,
			"bad version range %q: unbounded upper bound must use ')'", spec)
	}
	if r.Lower != "" && r.Upper != "" && Compare(r.Lower, r.Upper) > 0 {
		return r, "", errors.New(errors.ErrCodeInvalidRange,
			"bad version range %q: lower bound above upper bound", spec)
	}
	return r, s[end+1:], nil
}

// IsRange reports whether the constraint is a true range (as opposed to a
// soft pinned version). Soft versions resolve to themselves without
// consulting repository metadata.
func (c *Constraint) IsRange() bool { return len(c.ranges) > 0 }

// Matches reports whether the version satisfies the constraint. A soft
// constraint matches only its own version.
func (c *Constraint) Matches(v string) bool {
	if !c.IsRange() {
		return Compare(c.soft, v) == 0
	}
	for _, r := range c.ranges {
		if r.contains(v) {
			return true
		}
	}
	return false
}

// String returns the original specification.
func (c *Constraint) String() string { return c.raw }

func (r Range) contains(v string) bool {
	if r.Lower != "" {
		c := Compare(v, r.Lower)
		if c < 0 || (c == 0 && !r.LowerBound) {
			return false
		}
	}
	if r.Upper != "" {
		c := Compare(v, r.Upper)
		if c > 0 || (c == 0 && !r.UpperBound) {
			return false
		}
	}
	return true
}
