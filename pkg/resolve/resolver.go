// Package resolve answers where a node input actually gets its value from
// once subgraph boundaries are elided.
//
// A link whose origin is the input boundary stands for "whatever feeds the
// enclosing instance node at that slot", so resolution steps outward into the
// containing graph. A link whose origin is an instance node stands for the
// link feeding the matching output boundary inside that instance's
// definition, so resolution steps inward. Reroutes never affect resolution:
// link endpoints stay authoritative and reroute chains are visual transit.
package resolve

import (
	"github.com/charmbracelet/log"

	"github.com/loomgraph/loom/pkg/document"
	"github.com/loomgraph/loom/pkg/entity"
	apperrors "github.com/loomgraph/loom/pkg/errors"
	"github.com/loomgraph/loom/pkg/subgraph"
)

// Source is a resolved upstream endpoint: a concrete node output reachable
// without crossing any boundary or instance node.
type Source struct {
	Path subgraph.Path
	Node *entity.Node
	Slot int
}

// Resolver resolves path-qualified node inputs against a document. Results
// are memoized, so resolving every input of a flattened graph stays linear in
// the number of distinct (path, slot) pairs.
type Resolver struct {
	doc    *document.Document
	logger *log.Logger
	memo   map[memoKey]memoEntry
}

type memoKey struct {
	path string
	slot int
}

type memoEntry struct {
	src *Source
	err error
}

// Option customizes a [Resolver].
type Option func(*Resolver)

// WithLogger routes resolution warnings to the given logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a resolver over the given document.
func New(doc *document.Document, opts ...Option) *Resolver {
	r := &Resolver{
		doc:  doc,
		memo: map[memoKey]memoEntry{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	return r
}

// ResolveInput resolves the input slot of the node named by path. The path's
// last element is the node id; the prefix walks instance nodes from the root.
//
// A nil source with a nil error means the input is not connected, which
// covers unconnected slots, dangling links and unconnected subgraph
// boundaries alike.
func (r *Resolver) ResolveInput(path subgraph.Path, slot int) (*Source, error) {
	if len(path) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidDocument, "empty node path")
	}
	key := memoKey{path: path.String(), slot: slot}
	if e, ok := r.memo[key]; ok {
		return e.src, e.err
	}

	src, err := r.resolve(path, slot)
	r.memo[key] = memoEntry{src: src, err: err}
	return src, err
}

func (r *Resolver) resolve(path subgraph.Path, slot int) (*Source, error) {
	prefix := path[:len(path)-1]
	node := path[len(path)-1]
	store, err := r.storeAt(prefix)
	if err != nil {
		return nil, err
	}
	link, ok := store.IncomingLink(node, slot)
	if !ok {
		return nil, nil
	}
	return r.resolveOrigin(prefix, store, link)
}

// resolveOrigin follows a link's origin across boundaries until it lands on
// a concrete node output.
func (r *Resolver) resolveOrigin(prefix subgraph.Path, store *entity.Store, link *entity.Link) (*Source, error) {
	if len(prefix) > subgraph.MaxNestingDepth {
		return nil, apperrors.At(apperrors.ErrCodeRecursion, prefix.String(),
			"resolution exceeds %d nesting levels", subgraph.MaxNestingDepth)
	}

	if link.OriginID == entity.InputBoundary {
		// Step outward: the boundary slot maps to the enclosing instance
		// node's input in the containing graph.
		if len(prefix) == 0 {
			return nil, apperrors.New(apperrors.ErrCodeSchema,
				"link %d crosses an input boundary outside any instance", link.ID)
		}
		instNode := prefix[len(prefix)-1]
		outerPrefix := prefix[:len(prefix)-1]
		outerStore, err := r.storeAt(outerPrefix)
		if err != nil {
			return nil, err
		}
		outerLink, ok := outerStore.IncomingLink(instNode, link.OriginSlot)
		if !ok {
			return nil, nil
		}
		return r.resolveOrigin(outerPrefix, outerStore, outerLink)
	}

	origin, ok := store.Node(link.OriginID)
	if !ok {
		r.logger.Warn("link origin missing, treating input as unconnected",
			"link", link.ID, "node", link.OriginID, "path", prefix)
		return nil, nil
	}

	if ref, isInstance := subgraph.ParseDefinitionRef(origin.Type); isInstance {
		// Step inward: the instance output maps to whatever feeds the
		// matching output boundary slot inside the definition.
		def, found := r.doc.Library.Definition(ref)
		if !found {
			return nil, apperrors.New(apperrors.ErrCodeMissingDefinition,
				"node %s references unknown definition %s", prefix.Child(origin.ID), ref)
		}
		innerPrefix := prefix.Child(origin.ID)
		innerStore := def.Store()
		innerLink, ok := innerStore.IncomingLink(entity.OutputBoundary, link.OriginSlot)
		if !ok {
			return nil, nil
		}
		return r.resolveOrigin(innerPrefix, innerStore, innerLink)
	}

	return &Source{Path: prefix.Child(origin.ID), Node: origin, Slot: link.OriginSlot}, nil
}

// storeAt returns the store addressed by an instance-node path prefix. The
// empty prefix is the document root.
func (r *Resolver) storeAt(prefix subgraph.Path) (*entity.Store, error) {
	store := r.doc.Root
	for i, id := range prefix {
		node, ok := store.Node(id)
		if !ok {
			return nil, apperrors.New(apperrors.ErrCodeInvalidDocument,
				"path %s names unknown node %d", prefix[:i+1], id)
		}
		ref, isInstance := subgraph.ParseDefinitionRef(node.Type)
		if !isInstance {
			return nil, apperrors.New(apperrors.ErrCodeInvalidDocument,
				"path %s crosses non-instance node %d", prefix[:i+1], id)
		}
		def, found := r.doc.Library.Definition(ref)
		if !found {
			return nil, apperrors.New(apperrors.ErrCodeMissingDefinition,
				"node %s references unknown definition %s", prefix[:i+1], ref)
		}
		store = def.Store()
	}
	return store, nil
}
