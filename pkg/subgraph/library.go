package subgraph

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/loomgraph/loom/pkg/entity"
	apperrors "github.com/loomgraph/loom/pkg/errors"
)

// Library is the document's arena of definitions keyed by UUID, plus the
// bookkeeping of which live instances reference each definition. Definitions
// are flyweights: stored once here, referenced by key from any number of
// instance nodes.
type Library struct {
	defs      map[uuid.UUID]*Definition
	instances map[uuid.UUID][]*Instance
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		defs:      make(map[uuid.UUID]*Definition),
		instances: make(map[uuid.UUID][]*Instance),
	}
}

// Add registers a definition. Re-adding an id that is already present is an
// INVALID_DOCUMENT error.
func (l *Library) Add(def *Definition) error {
	if _, exists := l.defs[def.ID()]; exists {
		return apperrors.New(apperrors.ErrCodeInvalidDocument, "definition %s already registered", def.ID())
	}
	l.defs[def.ID()] = def
	return nil
}

// Definition returns the definition with the given id.
func (l *Library) Definition(id uuid.UUID) (*Definition, bool) {
	d, ok := l.defs[id]
	return d, ok
}

// Definitions returns all definitions sorted by name, then id, for
// deterministic iteration.
func (l *Library) Definitions() []*Definition {
	out := make([]*Definition, 0, len(l.defs))
	for _, d := range l.defs {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *Definition) int {
		if c := strings.Compare(a.Name(), b.Name()); c != 0 {
			return c
		}
		return strings.Compare(a.ID().String(), b.ID().String())
	})
	return out
}

// Len returns the number of registered definitions.
func (l *Library) Len() int { return len(l.defs) }

// InstanceCount returns how many live instances reference the definition.
func (l *Library) InstanceCount(id uuid.UUID) int { return len(l.instances[id]) }

// Instances returns the live instances bound through this library for the
// given definition.
func (l *Library) Instances(id uuid.UUID) []*Instance {
	return slices.Clone(l.instances[id])
}

// Instantiate places a new instance of the definition into the containing
// store. Returns MISSING_DEFINITION when the id is not registered.
func (l *Library) Instantiate(containing *entity.Store, id uuid.UUID, data *InstanceData) (*Instance, error) {
	def, ok := l.defs[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeMissingDefinition, "definition %s is not registered", id)
	}
	inst, err := NewInstance(containing, def, data)
	if err != nil {
		return nil, err
	}
	l.instances[id] = append(l.instances[id], inst)
	return inst, nil
}

// Bind wraps an existing node as an instance, tracking it against its
// definition. Returns MISSING_DEFINITION when the node references an
// unregistered definition - a broken reference is fatal, never skipped.
func (l *Library) Bind(containing *entity.Store, nodeID entity.NodeID) (*Instance, error) {
	node, ok := containing.Node(nodeID)
	if !ok {
		return nil, entity.ErrUnknownNode
	}
	ref, isRef := ParseDefinitionRef(node.Type)
	if !isRef {
		return nil, apperrors.New(apperrors.ErrCodeInvalidDocument,
			"node %d type %q is not a definition reference", nodeID, node.Type)
	}
	def, found := l.defs[ref]
	if !found {
		return nil, apperrors.New(apperrors.ErrCodeMissingDefinition,
			"node %d references unknown definition %s", nodeID, ref)
	}
	inst, err := Bind(containing, node, def)
	if err != nil {
		return nil, err
	}
	l.instances[ref] = append(l.instances[ref], inst)
	return inst, nil
}

// Remove deletes a definition from the library. While any live instance
// still references it the call fails with DEFINITION_IN_USE: the model must
// never manufacture a dangling reference itself. Detach or delete the
// instances first. Deleting the last instance of a definition does not
// remove the definition - it stays registered as a reusable template until
// removed explicitly.
func (l *Library) Remove(id uuid.UUID) error {
	if _, ok := l.defs[id]; !ok {
		return apperrors.New(apperrors.ErrCodeMissingDefinition, "definition %s is not registered", id)
	}
	if n := len(l.instances[id]); n > 0 {
		return apperrors.New(apperrors.ErrCodeDefinitionInUse,
			"definition %s still has %d live instance(s)", id, n)
	}
	delete(l.defs, id)
	delete(l.instances, id)
	return nil
}

// Detach converts an instance node back into a plain node: the mirror
// subscription is closed, the node's type becomes the definition's name,
// and the instance stops counting against [Library.Remove]. The node and
// its connections stay in the containing store.
func (l *Library) Detach(inst *Instance) {
	id := inst.DefinitionID()
	inst.Close()
	inst.Node().Type = inst.Definition().Name()
	subs := l.instances[id]
	if i := slices.Index(subs, inst); i >= 0 {
		l.instances[id] = slices.Delete(subs, i, i+1)
	}
}

// Release drops an instance from tracking without touching its node, for
// callers that removed the node from its store themselves.
func (l *Library) Release(inst *Instance) {
	id := inst.DefinitionID()
	inst.Close()
	subs := l.instances[id]
	if i := slices.Index(subs, inst); i >= 0 {
		l.instances[id] = slices.Delete(subs, i, i+1)
	}
}
