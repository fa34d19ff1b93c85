// Package document assembles a root graph and its subgraph definitions into
// one serializable unit.
//
// A serialized document carries the root store fragment inline plus a
// definitions table with exactly one entry per definition, no matter how many
// instance nodes reference it. Deserialization is strict about references:
// an instance node whose definition is missing from the table fails the load
// with MISSING_DEFINITION rather than producing a half-bound graph.
package document

import (
	"github.com/charmbracelet/log"

	"github.com/loomgraph/loom/pkg/entity"
	apperrors "github.com/loomgraph/loom/pkg/errors"
	"github.com/loomgraph/loom/pkg/subgraph"
)

// State is the serialized form of a whole document.
type State struct {
	Version      string `json:"version" yaml:"version" msgpack:"version"`
	entity.State `yaml:",inline"`
	Definitions  map[string]*subgraph.DefinitionState `json:"definitions,omitempty" yaml:"definitions,omitempty" msgpack:"definitions,omitempty"`
}

// Document is a root graph together with the library of definitions its
// instance nodes reference.
type Document struct {
	Version string
	Root    *entity.Store
	Library *subgraph.Library

	instances []*subgraph.Instance
}

// New wraps a root store and library into a document at the current schema
// version. The library may be nil when the graph uses no subgraphs.
func New(root *entity.Store, lib *subgraph.Library) *Document {
	if lib == nil {
		lib = subgraph.NewLibrary()
	}
	return &Document{Version: entity.SchemaCurrent, Root: root, Library: lib}
}

// Instances returns the root-level instances bound during deserialization.
func (d *Document) Instances() []*subgraph.Instance { return d.instances }

// Serialize converts the document to its serialized form. The definitions
// table is keyed by UUID and holds every definition registered in the
// library, one entry each. Definitions with zero instances are kept: they
// are reusable templates, and membership in the library is what persists
// them, not reachability from the root graph.
func (d *Document) Serialize() *State {
	st := &State{
		Version: d.Version,
		State:   *d.Root.Serialize(),
	}
	for _, def := range d.Library.Definitions() {
		if st.Definitions == nil {
			st.Definitions = map[string]*subgraph.DefinitionState{}
		}
		st.Definitions[def.ID().String()] = def.Serialize()
	}
	return st
}

// Validate checks referential integrity of the root store, every definition
// store, and every instance reference.
func (d *Document) Validate() error {
	if err := d.Root.Validate(); err != nil {
		return err
	}
	stores := []*entity.Store{d.Root}
	for _, def := range d.Library.Definitions() {
		if err := def.Store().Validate(); err != nil {
			return apperrors.Wrap(apperrors.GetCode(err), err, "definition %q", def.Name())
		}
		stores = append(stores, def.Store())
	}
	for _, s := range stores {
		for _, n := range s.Nodes() {
			ref, ok := subgraph.ParseDefinitionRef(n.Type)
			if !ok {
				continue
			}
			if _, found := d.Library.Definition(ref); !found {
				return apperrors.New(apperrors.ErrCodeMissingDefinition,
					"node %d references unknown definition %s", n.ID, ref)
			}
		}
	}
	return nil
}

// Option customizes [Deserialize].
type Option func(*options)

type options struct {
	logger *log.Logger
}

// WithLogger routes load warnings to the given logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Deserialize rebuilds a document from its serialized form.
//
// Definitions are restored before the root graph so that every instance node
// can be bound as soon as its store exists. Instance nodes inside definition
// stores are bound too: an interface edit on a definition propagates into the
// definitions that nest it, not just into the root graph.
func Deserialize(st *State, opts ...Option) (*Document, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = log.Default()
	}

	lib := subgraph.NewLibrary()
	for key, ds := range st.Definitions {
		if ds == nil || key != ds.ID {
			return nil, apperrors.New(apperrors.ErrCodeSchema,
				"definitions table key %q does not match entry id", key)
		}
		def, err := subgraph.RestoreDefinition(ds,
			entity.WithVersion(st.Version), entity.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := lib.Add(def); err != nil {
			return nil, err
		}
	}

	root, err := entity.Configure(&st.State,
		entity.WithVersion(st.Version), entity.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	doc := &Document{Version: st.Version, Root: root, Library: lib}
	if doc.Version == "" {
		doc.Version = entity.SchemaCurrent
	}

	doc.instances, err = bindStore(lib, root)
	if err != nil {
		return nil, err
	}
	for _, def := range lib.Definitions() {
		if _, err := bindStore(lib, def.Store()); err != nil {
			return nil, apperrors.Wrap(apperrors.GetCode(err), err, "definition %q", def.Name())
		}
	}
	return doc, nil
}

// bindStore binds every instance node in the store, in z-order.
func bindStore(lib *subgraph.Library, s *entity.Store) ([]*subgraph.Instance, error) {
	var bound []*subgraph.Instance
	for _, n := range s.Nodes() {
		if _, ok := subgraph.ParseDefinitionRef(n.Type); !ok {
			continue
		}
		inst, err := lib.Bind(s, n.ID)
		if err != nil {
			return nil, err
		}
		bound = append(bound, inst)
	}
	return bound, nil
}
