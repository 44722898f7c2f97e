package selector

import (
	"slices"
	"strings"

	mm "github.com/Masterminds/semver/v3"

	"github.com/matzehuels/stacksolve/pkg/errors"
)

// VersionConstraint is the rule set a candidate version must satisfy.
//
// A version satisfies a constraint iff it is not matched by any Rejected
// rule and, when Required is set, it matches Required. Preferred never
// narrows the candidate set. Strict means no other requirement on the same
// module may override this one.
//
// The zero value accepts every version.
type VersionConstraint struct {
	Required  string   `json:"required,omitempty" toml:"version,omitempty" yaml:"version,omitempty"`
	Preferred string   `json:"preferred,omitempty" toml:"prefer,omitempty" yaml:"prefer,omitempty"`
	Rejected  []string `json:"rejected,omitempty" toml:"reject,omitempty" yaml:"reject,omitempty"`
	Strict    bool     `json:"strict,omitempty" toml:"strict,omitempty" yaml:"strict,omitempty"`
}

// Require returns a constraint requiring the version or range.
func Require(rule string) VersionConstraint {
	return VersionConstraint{Required: rule}
}

// Strictly returns a strict constraint requiring the version or range.
func Strictly(rule string) VersionConstraint {
	return VersionConstraint{Required: rule, Strict: true}
}

// Prefer returns a copy of c with the preferred version set.
func (c VersionConstraint) Prefer(version string) VersionConstraint {
	c.Preferred = version
	return c
}

// Reject returns a copy of c that additionally rejects the given rules.
func (c VersionConstraint) Reject(rules ...string) VersionConstraint {
	c.Rejected = append(append([]string(nil), c.Rejected...), rules...)
	return c
}

// Validate reports the first malformed rule in c.
func (c VersionConstraint) Validate() error {
	_, err := c.Compile()
	return err
}

// String renders the constraint in a compact, human readable form such as
// "1.5", "{strictly 1.0}" or "{require >=1.0; prefer 1.2; reject 1.3}".
func (c VersionConstraint) String() string {
	if !c.Strict && c.Preferred == "" && len(c.Rejected) == 0 {
		if c.Required == "" {
			return "*"
		}
		return c.Required
	}
	var parts []string
	if c.Required != "" {
		verb := "require "
		if c.Strict {
			verb = "strictly "
		}
		parts = append(parts, verb+c.Required)
	}
	if c.Preferred != "" {
		parts = append(parts, "prefer "+c.Preferred)
	}
	if len(c.Rejected) > 0 {
		parts = append(parts, "reject "+strings.Join(c.Rejected, ", "))
	}
	return "{" + strings.Join(parts, "; ") + "}"
}

// Compile parses every rule of c into a Matcher.
func (c VersionConstraint) Compile() (Matcher, error) {
	m := Matcher{strict: c.Strict}
	if strings.TrimSpace(c.Required) != "" && strings.TrimSpace(c.Required) != "*" {
		r, err := ParseRule(c.Required)
		if err != nil {
			return Matcher{}, err
		}
		m.required = &r
	}
	if c.Preferred != "" {
		v, err := ParseVersion(c.Preferred)
		if err != nil {
			return Matcher{}, errors.Wrap(errors.ErrCodeInvalidConstraint, err, "invalid preferred version")
		}
		m.preferred = v
	}
	for _, raw := range c.Rejected {
		r, err := ParseRule(raw)
		if err != nil {
			return Matcher{}, err
		}
		m.rejected = append(m.rejected, r)
	}
	return m, nil
}

// Matcher is a compiled VersionConstraint.
type Matcher struct {
	required  *Rule
	preferred Version
	rejected  []Rule
	strict    bool
}

// Satisfies reports whether v satisfies the constraint: rejection overrides
// everything, the required rule narrows, and preference is ignored.
func (m Matcher) Satisfies(v Version) bool {
	return !m.Rejects(v) && m.Requires(v)
}

// Rejects reports whether v is matched by a rejected rule.
func (m Matcher) Rejects(v Version) bool {
	for _, r := range m.rejected {
		if r.Matches(v) {
			return true
		}
	}
	return false
}

// Requires reports whether v matches the required rule. Constraints without
// a required rule accept every version.
func (m Matcher) Requires(v Version) bool {
	if m.required == nil {
		return !v.IsZero()
	}
	return m.required.Matches(v)
}

// HasRequired reports whether the constraint narrows the candidate set.
func (m Matcher) HasRequired() bool { return m.required != nil }

// Strict reports whether the constraint is strict.
func (m Matcher) Strict() bool { return m.strict }

// Pin returns the exact version required by the constraint, if any.
func (m Matcher) Pin() (Version, bool) {
	if m.required == nil {
		return Version{}, false
	}
	return m.required.Exact()
}

// Preferred returns the preferred version hint, if any.
func (m Matcher) Preferred() (Version, bool) {
	return m.preferred, !m.preferred.IsZero()
}

// Satisfies reports whether v satisfies c. A constraint that cannot be
// compiled is satisfied by no version.
func Satisfies(v Version, c VersionConstraint) bool {
	m, err := c.Compile()
	if err != nil {
		return false
	}
	return m.Satisfies(v)
}

// Compatible reports whether at least one version satisfies both a and b.
//
// Two strict constraints pinning different exact versions are never
// compatible. Otherwise the candidates are searched. When candidates is
// empty, the versions mentioned by either constraint, their next patch,
// minor and major versions, and 0.0.0 stand in for the universe; a
// constraint without a required rule accepts any of them.
func Compatible(a, b VersionConstraint, candidates []Version) bool {
	ma, err := a.Compile()
	if err != nil {
		return false
	}
	mb, err := b.Compile()
	if err != nil {
		return false
	}
	pa, aPinned := ma.Pin()
	pb, bPinned := mb.Pin()
	if ma.Strict() && mb.Strict() && aPinned && bPinned && Compare(pa, pb) != 0 {
		return false
	}
	if len(candidates) == 0 {
		candidates = witnesses(ma, mb)
	}
	for _, v := range candidates {
		if ma.Satisfies(v) && mb.Satisfies(v) {
			return true
		}
	}
	return false
}

// witnesses returns a finite set of versions that contains a version
// satisfying every matcher whenever one exists among the versions the
// rules can tell apart.
func witnesses(ms ...Matcher) []Version {
	seen := make(map[string]bool)
	var out []Version
	add := func(v Version) {
		key := v.v.String()
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	wrap := func(v mm.Version) Version { return Version{raw: v.String(), v: &v} }

	add(wrap(*mm.New(0, 0, 0, "", "")))
	for _, m := range ms {
		rules := slices.Clone(m.rejected)
		if m.required != nil {
			rules = append(rules, *m.required)
		}
		for _, r := range rules {
			for _, b := range r.bounds() {
				add(b)
				add(wrap(b.v.IncPatch()))
				add(wrap(b.v.IncMinor()))
				add(wrap(b.v.IncMajor()))
			}
		}
	}
	return out
}
