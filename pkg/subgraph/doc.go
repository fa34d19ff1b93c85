// Package subgraph implements the hierarchical definition/instance model on
// top of the entity store.
//
// # Overview
//
// A [Definition] is a named, reusable subgraph template: an owned entity
// store plus a declared input/output interface ([SlotSpec] lists). An
// [Instance] is a node in some containing store that references a definition
// by UUID - the node's type field carries the UUID instead of a class name -
// and mirrors the definition's interface onto its own slot lists. A
// [Library] is the arena holding every definition in a document, keyed by
// UUID; instances hold forward references only, and the one inverted
// relationship (definition edits reaching instances) runs through the
// definition's notification stream, so deleting a definition never requires
// hunting down its instances.
//
// # Notifications
//
// Interface mutations on a definition fire paired notifications: a
// cancelable "before" event ahead of the change and an "after" event once
// it is applied. Dispatch is synchronous and in registration order; a
// mutation either completes fully - including both notifications - or is
// vetoed with state unchanged. Instances subscribe to the after events to
// keep their slot mirror live, which is how renaming an input on a
// definition updates every existing instance without per-instance calls.
//
// # Identity
//
// Nested traversal wraps inner nodes with a [Path]: the chain of instance
// ids walked to reach the node. Paths replace object identity wherever the
// same definition may legitimately appear several times - visited sets,
// memoization keys, and DTO addressing all key on paths. Traversal refuses
// definitions that re-enter themselves (directly or transitively) and
// nesting deeper than [MaxNestingDepth].
//
// # Concurrency
//
// Like the entity store, everything here is single-owner and synchronous.
// Hosts with multiple threads must serialize access externally.
package subgraph
