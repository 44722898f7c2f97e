// Package conflict selects one version per module identity.
//
// [Select] is the pure decision: given the versions a provider knows and the
// constraints of every live edge to a module, it picks the winner and splits
// the edges into accepted and rejected. Strict constraints that cannot all
// hold make a [ConflictError] that fails every edge to the module.
//
// [Resolver] wraps Select for concurrent callers. Calls for one module are
// serialized with a [KeyLock]; a decision becomes visible through
// [Resolver.Selection] only once it is complete.
package conflict
