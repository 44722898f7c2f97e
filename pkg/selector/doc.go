// Package selector describes what a dependency declaration asks for, before
// anything has been resolved.
//
// # Identity
//
// A [ModuleIdentifier] is the (group, name) pair that groups competing
// requirements. A [ComponentIdentifier] adds a concrete version and names
// one node of a resolved graph.
//
// # Versions and rules
//
// [Version] wraps github.com/Masterminds/semver/v3 and keeps the text it was
// parsed from, so "1.5" stays "1.5" in reports while comparing equal to
// "1.5.0". A [Rule] is either an exact version or a range. Ranges accept the
// Masterminds syntax (">=1.0 <2.0", "^1.2", "~1.4", "1.x", "*") and the
// bracket notation used by Maven and Gradle ("[1.0,2.0)", "]1.0,2.0[").
//
// # Constraints
//
// A [VersionConstraint] combines a required rule, a preferred version, a set
// of rejected rules and a strict flag:
//
//	c := selector.Require(">=1.0").Reject("1.3").Prefer("1.2")
//	ok := selector.Satisfies(selector.MustParseVersion("1.4"), c) // true
//
// Rejection always wins over the required rule. The preferred version never
// narrows the set of acceptable versions; conflict resolution only uses it to
// break ties. A strict constraint cannot be overridden by other requirements
// on the same module.
//
// # Selectors
//
// [ComponentSelector] is implemented by [ModuleSelector] (module identity plus
// constraint) and [ProjectSelector] (a local project reference). Only module
// selectors take part in conflict resolution.
package selector
