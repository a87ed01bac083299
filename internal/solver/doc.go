// Package solver implements the fixpoint reasoner behind ibis.
//
// A solve takes a Problem (typed nodes grouped into particles, declared
// subtype and capability relations, and claims, checks and trust
// declarations) and produces the Solutions that satisfy it.
//
// ARCHITECTURE:
//
// Phases:
// 1. Closure: the Subtype and KnownType relations are closed to a fixpoint
//    with semi-naive evaluation (closure.go). Products, unions, labels,
//    generics and the universal type all derive their facts here.
// 2. Compatibility: capability admission and data subtyping are read off the
//    closure (compat.go) to list the admissible edges between nodes.
// 3. Generation: in planning mode, seed Solutions grow one admissible edge
//    at a time until no new Solution appears (generate.go). The content
//    addressed store deduplicates equal edge sets.
// 4. Analysis: every Solution gets Feedback (taint.go). Tags move along
//    edges and across handles of one particle, leaks and edge errors are
//    derived from the result. Solutions are independent so analysis may run
//    on several goroutines (analyze.go).
// 5. Selection: invalid Solutions are rejected in planning mode and the loss
//    filter keeps the near-maximal ones (select.go).
//
// Policy violations are data, never errors. Solve fails only on quota,
// closure bound, unknown node or cancellation (errors.go).
//
// DETERMINISM:
//
// Every phase iterates in ascending handle or Solution order, so a Problem
// built from the same input always yields the same Solutions, Feedback and
// digests, whatever the parallelism.
package solver
