// Package entity implements the in-memory graph store shared by every level
// of a loom document: the root graph and the internal contents of each
// subgraph definition.
//
// # Overview
//
// A [Store] holds one level's nodes, links, groups and reroutes, indexed by
// their numeric ids. It knows nothing about nesting; subgraph semantics live
// in package subgraph. The store enforces local invariants only:
//
//   - link endpoints must reference nodes present in the same store (or a
//     boundary sentinel, see below)
//   - connecting incompatible slot types is refused with TYPE_MISMATCH
//   - removing a node cascades to its incident links
//
// # Boundary Sentinels
//
// Inside a store owned by a subgraph definition, two reserved node ids stand
// for the definition's own interface: [InputBoundary] (-10) as a link origin
// means "fed by the enclosing instance's numbered input", and
// [OutputBoundary] (-20) as a link target means "feeds the enclosing
// instance's numbered output". Sentinels are only legal in stores created
// with [NewWithBoundaries]; configuring a root-level store containing them
// is a schema error.
//
// # Serialization
//
// [Store.Serialize] produces a [State] document fragment and [Configure]
// rebuilds a store from one. Two schema versions are supported: the current
// "1" (reroute parent ids embedded on each link) and the legacy "0.4"
// (parent ids in an extra.linkExtensions side table). Unknown versions fall
// back to the current parser with a logged warning. Links whose non-boundary
// endpoint no longer exists are dropped with a warning rather than failing
// the load, so a partially broken document stays openable.
//
// # Concurrency
//
// A Store is a single-owner data structure with no internal locking. All
// operations are synchronous and complete before returning; a multi-threaded
// host must serialize access externally.
package entity
