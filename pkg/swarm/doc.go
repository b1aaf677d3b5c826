// Package swarm partitions the children of an epic into waves of work that
// can proceed in parallel.
//
// # Waves
//
// [Analyze] looks only at blocking edges whose endpoints are both children
// of the epic. It layers the children with Kahn's algorithm: wave 0 holds
// every child with no in-set blocker, wave k+1 holds the children whose last
// in-set blocker sits in wave k. Children never released by the loop sit on
// a dependency cycle; they are reported in [Analysis.Unresolved] and the
// epic is not swarmable.
//
// Edges to the epic itself and to items outside the epic do not affect the
// waves. Blocking edges to outside items produce a warning instead, since
// they can stall a wave that looks ready on paper.
//
// # Warnings and Errors
//
// Warnings are advisory: a child that looks foundational but that nothing
// depends on, a child that looks like integration or test work but depends
// on nothing, an external blocker, or an epic with no children. Errors are
// produced only by cycles and are what flips [Analysis.Swarmable] to false.
//
// # Status
//
// [Status] overlays completion state on an existing analysis. It never
// re-validates acyclicity.
package swarm
