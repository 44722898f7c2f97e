package selector

import (
	"slices"
	"strings"

	mm "github.com/Masterminds/semver/v3"

	"github.com/matzehuels/stacksolve/pkg/errors"
)

// Version is a parsed component version.
//
// It is a thin wrapper around github.com/Masterminds/semver/v3 that keeps the
// original text. The zero Version is valid and sorts before every parsed
// version.
type Version struct {
	raw string
	v   *mm.Version
}

// ParseVersion parses raw as a (possibly partial) semantic version such as
// "1", "1.5", "1.5.0-rc.1" or "v2.0.0+build.7".
func ParseVersion(raw string) (Version, error) {
	raw = strings.TrimSpace(raw)
	v, err := mm.NewVersion(raw)
	if err != nil {
		return Version{}, errors.Wrap(errors.ErrCodeInvalidConstraint, err, "parse version %q", raw)
	}
	return Version{raw: raw, v: v}, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseVersions parses every entry of raws, skipping entries that are not
// valid versions. The result is sorted ascending.
func ParseVersions(raws []string) []Version {
	out := make([]Version, 0, len(raws))
	for _, raw := range raws {
		if v, err := ParseVersion(raw); err == nil {
			out = append(out, v)
		}
	}
	SortVersions(out)
	return out
}

// String returns the text the version was parsed from.
func (v Version) String() string { return v.raw }

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool { return v.v == nil }

// Metadata returns the build metadata ("build.7" in "1.0.0+build.7").
func (v Version) Metadata() string {
	if v.v == nil {
		return ""
	}
	return v.v.Metadata()
}

// Compare compares a and b, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
//
// Build metadata is ignored, so "1.5.0+a" and "1.5.0+b" compare equal.
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// SortVersions sorts vs ascending. Versions that compare equal are ordered
// by their original text so the result is deterministic.
func SortVersions(vs []Version) {
	slices.SortStableFunc(vs, func(a, b Version) int {
		if c := Compare(a, b); c != 0 {
			return c
		}
		return strings.Compare(a.raw, b.raw)
	})
}

// MaxVersion returns the highest version in candidates.
//
// If multiple versions are equal, the first encountered wins.
func MaxVersion(candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}
