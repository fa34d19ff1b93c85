// Package flatten turns a document with nested subgraph instances into a
// flat, executable node list.
//
// Instance nodes and boundary links never appear in the output: each instance
// is replaced by its definition's nodes under path-qualified ids, and every
// input is rewritten to its resolved concrete source. Flattening the same
// document twice yields identical output.
package flatten

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/loomgraph/loom/pkg/document"
	"github.com/loomgraph/loom/pkg/entity"
	apperrors "github.com/loomgraph/loom/pkg/errors"
	"github.com/loomgraph/loom/pkg/resolve"
	"github.com/loomgraph/loom/pkg/subgraph"
)

// Input describes one input slot of an executable node with its resolved
// source. Origin is empty when the slot is unconnected.
type Input struct {
	Name   string `json:"name" yaml:"name" msgpack:"name"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty" msgpack:"type,omitempty"`
	Origin string `json:"origin,omitempty" yaml:"origin,omitempty" msgpack:"origin,omitempty"`
	Slot   int    `json:"slot,omitempty" yaml:"slot,omitempty" msgpack:"slot,omitempty"`
}

// Node is one executable node. ID is the path-qualified id, unique across
// the whole flattened graph even when a definition is instantiated many
// times.
type Node struct {
	ID      string         `json:"id" yaml:"id" msgpack:"id"`
	Type    string         `json:"type" yaml:"type" msgpack:"type"`
	Title   string         `json:"title,omitempty" yaml:"title,omitempty" msgpack:"title,omitempty"`
	Inputs  []Input        `json:"inputs,omitempty" yaml:"inputs,omitempty" msgpack:"inputs,omitempty"`
	Widgets map[string]any `json:"widgets_values,omitempty" yaml:"widgets_values,omitempty" msgpack:"widgets_values,omitempty"`
}

// Graph is the flattened document.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes" msgpack:"nodes"`
}

// Option customizes [Flatten].
type Option func(*flattener)

// WithLogger routes flattening warnings to the given logger.
func WithLogger(l *log.Logger) Option {
	return func(f *flattener) { f.logger = l }
}

type flattener struct {
	doc      *document.Document
	resolver *resolve.Resolver
	logger   *log.Logger
	visited  map[string]bool
	out      []Node
}

// Flatten produces the executable view of a document. Node order follows a
// depth-first walk: a store's nodes in z-order, with each instance node
// replaced in place by its definition's nodes.
func Flatten(doc *document.Document, opts ...Option) (*Graph, error) {
	f := &flattener{
		doc:     doc,
		visited: map[string]bool{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = log.Default()
	}
	f.resolver = resolve.New(doc, resolve.WithLogger(f.logger))

	onPath := map[string]bool{}
	if err := f.walk(nil, doc.Root, nil, onPath); err != nil {
		return nil, err
	}
	return &Graph{Nodes: f.out}, nil
}

// walk emits the store's concrete nodes under the given path prefix,
// descending through instance nodes. overrides carries the enclosing
// instance's widget overrides for exposed widgets.
func (f *flattener) walk(prefix subgraph.Path, store *entity.Store, overrides map[string]any, onPath map[string]bool) error {
	if len(prefix) > subgraph.MaxNestingDepth {
		return apperrors.At(apperrors.ErrCodeRecursion, prefix.String(),
			"nesting exceeds %d levels", subgraph.MaxNestingDepth)
	}
	for _, n := range store.Nodes() {
		path := prefix.Child(n.ID)
		key := path.String()
		if f.visited[key] {
			continue
		}
		f.visited[key] = true

		ref, isInstance := subgraph.ParseDefinitionRef(n.Type)
		if !isInstance {
			node, err := f.emit(path, n, overrides)
			if err != nil {
				return err
			}
			f.out = append(f.out, node)
			continue
		}

		def, found := f.doc.Library.Definition(ref)
		if !found {
			return apperrors.New(apperrors.ErrCodeMissingDefinition,
				"node %s references unknown definition %s", path, ref)
		}
		if onPath[ref.String()] {
			return apperrors.At(apperrors.ErrCodeRecursion, key,
				"definition %q re-entered on its own path", def.Name())
		}
		onPath[ref.String()] = true
		if err := f.walk(path, def.Store(), exposedOverrides(def, n), onPath); err != nil {
			return err
		}
		delete(onPath, ref.String())
	}
	return nil
}

// emit builds the executable node, resolving every declared input.
func (f *flattener) emit(path subgraph.Path, n *entity.Node, overrides map[string]any) (Node, error) {
	node := Node{
		ID:    path.String(),
		Type:  n.Type,
		Title: n.Title,
	}
	if len(n.Widgets) > 0 || len(overrides) > 0 {
		node.Widgets = map[string]any{}
		for k, v := range n.Widgets {
			node.Widgets[k] = v
		}
		for key, v := range overrides {
			ref, widget, ok := splitWidgetKey(key)
			if ok && ref == n.ID {
				node.Widgets[widget] = v
			}
		}
	}
	for i, slot := range n.Inputs {
		in := Input{Name: slot.Name, Type: slot.Type}
		src, err := f.resolver.ResolveInput(path, i)
		if err != nil {
			return Node{}, err
		}
		if src != nil {
			in.Origin = src.Path.String()
			in.Slot = src.Slot
		}
		node.Inputs = append(node.Inputs, in)
	}
	return node, nil
}

// exposedOverrides maps the instance node's widget values onto the widgets
// the definition exposes. Unexposed keys are dropped.
func exposedOverrides(def *subgraph.Definition, instNode *entity.Node) map[string]any {
	if len(instNode.Widgets) == 0 {
		return nil
	}
	out := map[string]any{}
	for _, ref := range def.ExposedWidgets() {
		key := subgraph.WidgetKey(ref)
		if v, ok := instNode.Widgets[key]; ok {
			out[key] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// splitWidgetKey parses a "nodeID:widget" override key.
func splitWidgetKey(key string) (entity.NodeID, string, bool) {
	idPart, widget, ok := strings.Cut(key, ":")
	if !ok {
		return 0, "", false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return entity.NodeID(id), widget, true
}
