package selector

import (
	"regexp"
	"strings"

	mm "github.com/Masterminds/semver/v3"

	"github.com/matzehuels/stacksolve/pkg/errors"
)

// Rule matches versions, either exactly or by range.
//
// Examples:
// - "1.5"           exact
// - ">=1.2.0 <2.0.0"
// - "^1.0.0"
// - "[1.0,2.0)"     bracket notation, upper bound exclusive
type Rule struct {
	raw   string
	exact Version
	rng   *mm.Constraints
}

var symbolReplacer = strings.NewReplacer("≥", ">=", "≤", "<=", "≠", "!=")

// ParseRule parses raw into a Rule. A bare version is an exact rule; anything
// else must be a range.
func ParseRule(raw string) (Rule, error) {
	text := strings.TrimSpace(symbolReplacer.Replace(raw))
	if text == "" {
		return Rule{}, errors.New(errors.ErrCodeInvalidConstraint, "empty version rule")
	}

	if translated, exact, ok, err := translateBrackets(text); err != nil {
		return Rule{}, err
	} else if ok {
		if exact {
			v, err := ParseVersion(translated)
			if err != nil {
				return Rule{}, err
			}
			return Rule{raw: raw, exact: v}, nil
		}
		text = translated
	} else if v, err := mm.NewVersion(text); err == nil {
		return Rule{raw: raw, exact: Version{raw: text, v: v}}, nil
	}

	c, err := mm.NewConstraint(text)
	if err != nil {
		return Rule{}, errors.Wrap(errors.ErrCodeInvalidConstraint, err, "parse version rule %q", raw)
	}
	return Rule{raw: raw, rng: c}, nil
}

// MustParseRule is like ParseRule but panics on error.
func MustParseRule(raw string) Rule {
	r, err := ParseRule(raw)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the text the rule was parsed from.
func (r Rule) String() string { return r.raw }

// Exact returns the pinned version for exact rules.
func (r Rule) Exact() (Version, bool) {
	return r.exact, !r.exact.IsZero()
}

// Matches reports whether v is accepted by the rule. Build metadata is only
// compared when an exact rule spells it out.
func (r Rule) Matches(v Version) bool {
	if v.IsZero() {
		return false
	}
	if !r.exact.IsZero() {
		if Compare(r.exact, v) != 0 {
			return false
		}
		return r.exact.Metadata() == "" || r.exact.Metadata() == v.Metadata()
	}
	if r.rng == nil {
		return false
	}
	return r.rng.Check(v.v)
}

var versionToken = regexp.MustCompile(`v?\d+(\.\d+){0,2}(-[0-9A-Za-z][0-9A-Za-z.]*)?`)

// bounds returns the versions the rule mentions: the pin of an exact rule,
// or every version appearing in a range.
func (r Rule) bounds() []Version {
	if !r.exact.IsZero() {
		return []Version{r.exact}
	}
	if r.rng == nil {
		return nil
	}
	var out []Version
	for _, tok := range versionToken.FindAllString(r.rng.String(), -1) {
		if v, err := mm.NewVersion(tok); err == nil {
			out = append(out, Version{raw: v.String(), v: v})
		}
	}
	return out
}

// translateBrackets rewrites Maven/Gradle interval notation into the
// Masterminds constraint syntax. ok is false when text is not bracketed.
// "[1.0]" is reported as an exact version.
func translateBrackets(text string) (out string, exact, ok bool, err error) {
	if len(text) < 2 || !strings.ContainsRune("[](", rune(text[0])) || !strings.ContainsRune("[])", rune(text[len(text)-1])) {
		return "", false, false, nil
	}
	opening, closing := text[0], text[len(text)-1]
	inner := strings.TrimSpace(text[1 : len(text)-1])

	lo, hi, isRange := strings.Cut(inner, ",")
	if !isRange {
		if opening == '[' && closing == ']' && inner != "" {
			return inner, true, true, nil
		}
		return "", false, false, errors.New(errors.ErrCodeInvalidConstraint, "invalid interval %q", text)
	}

	var parts []string
	if lo = strings.TrimSpace(lo); lo != "" {
		v, err := mm.NewVersion(lo)
		if err != nil {
			return "", false, false, errors.Wrap(errors.ErrCodeInvalidConstraint, err, "invalid lower bound in %q", text)
		}
		op := ">"
		if opening == '[' {
			op = ">="
		}
		parts = append(parts, op+v.String())
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		v, err := mm.NewVersion(hi)
		if err != nil {
			return "", false, false, errors.Wrap(errors.ErrCodeInvalidConstraint, err, "invalid upper bound in %q", text)
		}
		op := "<"
		if closing == ']' {
			op = "<="
		}
		parts = append(parts, op+v.String())
	}
	if len(parts) == 0 {
		return "*", false, true, nil
	}
	return strings.Join(parts, ", "), false, true, nil
}
