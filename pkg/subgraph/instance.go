package subgraph

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/loomgraph/loom/pkg/entity"
	apperrors "github.com/loomgraph/loom/pkg/errors"
)

// Path is the chain of instance ids traversed to reach a node, ending with
// the node's own local id. Path values key visited sets and address DTOs:
// the same definition instantiated twice yields distinct paths.
type Path []entity.NodeID

// String renders the path as colon-joined ids, e.g. "7:3:12".
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, id := range p {
		parts[i] = strconv.FormatInt(int64(id), 10)
	}
	return strings.Join(parts, ":")
}

// Child returns a new path extended by one id. The receiver is not modified.
func (p Path) Child(id entity.NodeID) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, id)
}

// ParseDefinitionRef reports whether a node type string is a definition
// reference. Instance nodes overload the class-name field with the
// definition's UUID; only the canonical 36-character form counts, so class
// names can never be mistaken for references.
func ParseDefinitionRef(nodeType string) (uuid.UUID, bool) {
	if len(nodeType) != 36 {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(nodeType)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

// InstanceData carries per-instance overrides applied at construction:
// position, size, title, and values for the definition's exposed widgets
// (keyed by [WidgetKey]).
type InstanceData struct {
	Title   string
	Pos     *[2]float64
	Size    *[2]float64
	Widgets map[string]any
}

// WidgetKey builds the override key for an exposed widget ref.
func WidgetKey(ref WidgetRef) string {
	return fmt.Sprintf("%d:%s", ref.NodeID, ref.Widget)
}

// Instance is a node standing for one use of a definition inside a
// containing store. It mirrors the definition's declared interface onto its
// node's slot lists and keeps the mirror live by subscribing to the
// definition's notification stream - instances created before a later
// interface edit still reflect it.
//
// The subscription is non-owning: dropping the definition drops the stream,
// and [Instance.Close] detaches the mirror explicitly.
type Instance struct {
	node    *entity.Node
	store   *entity.Store
	def     *Definition
	cancels []func()
}

// NewInstance creates a fresh instance node in the containing store and
// binds it to the definition. Optional data overrides position, size, title
// and exposed widget values.
func NewInstance(containing *entity.Store, def *Definition, data *InstanceData) (*Instance, error) {
	node := &entity.Node{
		Type:  def.ID().String(),
		Title: def.Name(),
	}
	applyInstanceData(node, def, data)
	syncSlots(node, def)
	if err := containing.AddNode(node); err != nil {
		return nil, fmt.Errorf("add instance node: %w", err)
	}
	return bind(containing, node, def), nil
}

// Bind wraps an existing node of the containing store as an instance of the
// definition. The node's slot lists are synchronized to the definition's
// current interface. Used by the deserializer after restoring a document.
func Bind(containing *entity.Store, node *entity.Node, def *Definition) (*Instance, error) {
	ref, ok := ParseDefinitionRef(node.Type)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeInvalidDocument,
			"node %d type %q is not a definition reference", node.ID, node.Type)
	}
	if ref != def.ID() {
		return nil, apperrors.New(apperrors.ErrCodeInvalidDocument,
			"node %d references %s, not definition %s", node.ID, ref, def.ID())
	}
	syncSlots(node, def)
	return bind(containing, node, def), nil
}

func bind(containing *entity.Store, node *entity.Node, def *Definition) *Instance {
	inst := &Instance{node: node, store: containing, def: def}
	ev := def.Events()
	inst.cancels = []func(){
		ev.Subscribe(EventInputAdded, inst.onSlotAdded),
		ev.Subscribe(EventOutputAdded, inst.onSlotAdded),
		ev.Subscribe(EventInputRemoved, inst.onSlotRemoved),
		ev.Subscribe(EventOutputRemoved, inst.onSlotRemoved),
		ev.Subscribe(EventInputRenamed, inst.onSlotRenamed),
		ev.Subscribe(EventOutputRenamed, inst.onSlotRenamed),
	}
	return inst
}

// Close detaches the instance from its definition's notification stream.
// The underlying node stays in the containing store.
func (i *Instance) Close() {
	for _, cancel := range i.cancels {
		cancel()
	}
	i.cancels = nil
}

// Node returns the instance's node in the containing store.
func (i *Instance) Node() *entity.Node { return i.node }

// Store returns the containing store.
func (i *Instance) Store() *entity.Store { return i.store }

// Definition returns the referenced definition.
func (i *Instance) Definition() *Definition { return i.def }

// DefinitionID returns the referenced definition's UUID.
func (i *Instance) DefinitionID() uuid.UUID { return i.def.ID() }

// QualifiedNode is one node of a definition's store wrapped with the full
// instance path that reaches it.
type QualifiedNode struct {
	Path Path
	Node *entity.Node

	// Definition owns the store that contains Node.
	Definition *Definition
}

// InnerNodes returns the definition's nodes wrapped with path-qualified ids,
// descending through nested instances. The same definition instantiated
// multiple times never collides: each wrapping carries its own path.
//
// Traversal fails with a RECURSION error when a definition already on the
// current path is re-entered (direct or indirect self-reference), or when
// nesting exceeds [MaxNestingDepth]. A nested instance whose definition is
// absent from the library fails with MISSING_DEFINITION.
func (i *Instance) InnerNodes(lib *Library) ([]QualifiedNode, error) {
	var out []QualifiedNode
	onPath := map[uuid.UUID]bool{i.def.ID(): true}
	if err := collectInner(lib, i.def, Path{i.node.ID}, onPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func collectInner(lib *Library, def *Definition, prefix Path, onPath map[uuid.UUID]bool, out *[]QualifiedNode) error {
	if len(prefix) > MaxNestingDepth {
		return apperrors.At(apperrors.ErrCodeRecursion, prefix.String(),
			"nesting exceeds %d levels", MaxNestingDepth)
	}
	nodes := def.Store().Nodes()
	slices.SortFunc(nodes, func(a, b *entity.Node) int { return int(a.ID - b.ID) })
	for _, n := range nodes {
		p := prefix.Child(n.ID)
		*out = append(*out, QualifiedNode{Path: p, Node: n, Definition: def})

		ref, ok := ParseDefinitionRef(n.Type)
		if !ok {
			continue
		}
		sub, found := lib.Definition(ref)
		if !found {
			return apperrors.New(apperrors.ErrCodeMissingDefinition,
				"node %s references unknown definition %s", p, ref)
		}
		if onPath[ref] {
			return apperrors.At(apperrors.ErrCodeRecursion, p.String(),
				"definition %q re-entered on its own path", sub.Name())
		}
		onPath[ref] = true
		if err := collectInner(lib, sub, p, onPath, out); err != nil {
			return err
		}
		delete(onPath, ref)
	}
	return nil
}

// applyInstanceData writes the per-instance overrides onto the node.
func applyInstanceData(node *entity.Node, def *Definition, data *InstanceData) {
	if node.Widgets == nil {
		node.Widgets = map[string]any{}
	}
	if data == nil {
		return
	}
	if data.Title != "" {
		node.Title = data.Title
	}
	if data.Pos != nil {
		node.Pos = *data.Pos
	}
	if data.Size != nil {
		node.Size = *data.Size
	}
	exposed := def.ExposedWidgets()
	for key, val := range data.Widgets {
		for _, ref := range exposed {
			if WidgetKey(ref) == key {
				node.Widgets[key] = val
				break
			}
		}
	}
}

// syncSlots rewrites the node's slot lists from the definition's interface.
func syncSlots(node *entity.Node, def *Definition) {
	node.Inputs = node.Inputs[:0]
	for _, s := range def.Inputs() {
		node.Inputs = append(node.Inputs, entity.Slot{Name: s.Label(), Type: s.Type})
	}
	node.Outputs = node.Outputs[:0]
	for _, s := range def.Outputs() {
		node.Outputs = append(node.Outputs, entity.Slot{Name: s.Label(), Type: s.Type})
	}
}

func (i *Instance) onSlotAdded(ev Event) error {
	slot := entity.Slot{Name: ev.Slot.Label(), Type: ev.Slot.Type}
	if ev.Kind == EventInputAdded {
		i.node.Inputs = slices.Insert(i.node.Inputs, min(ev.Index, len(i.node.Inputs)), slot)
	} else {
		i.node.Outputs = slices.Insert(i.node.Outputs, min(ev.Index, len(i.node.Outputs)), slot)
	}
	return nil
}

func (i *Instance) onSlotRemoved(ev Event) error {
	if ev.Kind == EventInputRemoved {
		if ev.Index < len(i.node.Inputs) {
			i.node.Inputs = slices.Delete(i.node.Inputs, ev.Index, ev.Index+1)
		}
		i.compactLinks(false, ev.Index)
	} else {
		if ev.Index < len(i.node.Outputs) {
			i.node.Outputs = slices.Delete(i.node.Outputs, ev.Index, ev.Index+1)
		}
		i.compactLinks(true, ev.Index)
	}
	return nil
}

func (i *Instance) onSlotRenamed(ev Event) error {
	if ev.Kind == EventInputRenamed {
		if ev.Index < len(i.node.Inputs) {
			i.node.Inputs[ev.Index].Name = ev.Slot.Label()
		}
	} else {
		if ev.Index < len(i.node.Outputs) {
			i.node.Outputs[ev.Index].Name = ev.Slot.Label()
		}
	}
	return nil
}

// compactLinks drops the containing-store link bound to a removed instance
// slot and shifts links on higher slots down, mirroring what the definition
// did to its boundary links.
func (i *Instance) compactLinks(output bool, index int) {
	for _, l := range i.store.Links() {
		if output {
			if l.OriginID != i.node.ID {
				continue
			}
			switch {
			case l.OriginSlot == index:
				i.store.Disconnect(l.ID)
			case l.OriginSlot > index:
				i.store.RemapLinkSlots(l.ID, l.OriginSlot-1, l.TargetSlot)
			}
		} else {
			if l.TargetID != i.node.ID {
				continue
			}
			switch {
			case l.TargetSlot == index:
				i.store.Disconnect(l.ID)
			case l.TargetSlot > index:
				i.store.RemapLinkSlots(l.ID, l.OriginSlot, l.TargetSlot-1)
			}
		}
	}
}
