package subgraph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/loomgraph/loom/pkg/entity"
	apperrors "github.com/loomgraph/loom/pkg/errors"
)

// MaxNestingDepth bounds how deep definitions may nest inside each other.
// Traversals beyond this depth fail with a RECURSION error.
const MaxNestingDepth = 1000

var (
	// ErrSlotIndexOutOfRange is returned by slot mutations when the index
	// does not name an existing input or output.
	ErrSlotIndexOutOfRange = errors.New("slot index out of range")

	// ErrEmptySlotName is returned when adding or renaming a slot with an
	// empty name.
	ErrEmptySlotName = errors.New("slot name must not be empty")
)

// SlotSpec declares one input or output on a definition's interface.
// The ID is allocation-ordered and stable across renames and reorders;
// externally held references survive interface edits. Name is the wire
// name, DisplayName an optional human-facing override.
type SlotSpec struct {
	ID          int    `json:"id" yaml:"id" msgpack:"id"`
	Name        string `json:"name" yaml:"name" msgpack:"name"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty" msgpack:"type,omitempty"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty" msgpack:"display_name,omitempty"`
}

// Label returns the DisplayName when set, otherwise the Name.
func (s SlotSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// WidgetRef names one widget on an internal node that the definition
// exposes on its instances.
type WidgetRef struct {
	NodeID entity.NodeID `json:"node_id" yaml:"node_id" msgpack:"node_id"`
	Widget string        `json:"widget" yaml:"widget" msgpack:"widget"`
}

// Definition is a named, reusable subgraph template: an entity store plus a
// declared input/output interface. Definitions own their store - the
// constructor deep-copies the graph they were extracted from - and are
// referenced by instances through their UUID, never duplicated per instance.
//
// Interface mutations fire before/after notifications on [Definition.Events];
// before-notifications are cancelable.
type Definition struct {
	id      uuid.UUID
	name    string
	store   *entity.Store
	inputs  []SlotSpec
	outputs []SlotSpec
	exposed []WidgetRef
	events  Events

	nextSlotID int
}

// NewDefinition creates a definition owning a deep copy of the supplied
// store. The inputs and outputs describe the declared interface; their ids
// are reassigned so that input ids and output ids are unique and disjoint.
func NewDefinition(name string, store *entity.Store, inputs, outputs []SlotSpec) *Definition {
	d := &Definition{
		id:   uuid.New(),
		name: name,
	}
	if store != nil {
		d.store = store.Clone()
	} else {
		d.store = entity.NewWithBoundaries()
	}
	d.store.EnableBoundaries()
	for _, in := range inputs {
		in.ID = d.allocSlotID()
		d.inputs = append(d.inputs, in)
	}
	for _, out := range outputs {
		out.ID = d.allocSlotID()
		d.outputs = append(d.outputs, out)
	}
	return d
}

// restoreDefinition rebuilds a definition from serialized parts, keeping the
// persisted UUID and slot ids.
func restoreDefinition(id uuid.UUID, name string, store *entity.Store, inputs, outputs []SlotSpec, exposed []WidgetRef) *Definition {
	d := &Definition{
		id:      id,
		name:    name,
		store:   store,
		inputs:  slices.Clone(inputs),
		outputs: slices.Clone(outputs),
		exposed: slices.Clone(exposed),
	}
	d.store.EnableBoundaries()
	for _, s := range append(slices.Clone(inputs), outputs...) {
		if s.ID >= d.nextSlotID {
			d.nextSlotID = s.ID + 1
		}
	}
	return d
}

// ID returns the definition's UUID.
func (d *Definition) ID() uuid.UUID { return d.id }

// Name returns the definition's display name.
func (d *Definition) Name() string { return d.name }

// SetName updates the display name. Instance titles are not touched; they
// keep whatever title they were created with.
func (d *Definition) SetName(name string) { d.name = name }

// Store returns the definition's owned entity store.
func (d *Definition) Store() *entity.Store { return d.store }

// Inputs returns a copy of the declared input slots in order.
func (d *Definition) Inputs() []SlotSpec { return slices.Clone(d.inputs) }

// Outputs returns a copy of the declared output slots in order.
func (d *Definition) Outputs() []SlotSpec { return slices.Clone(d.outputs) }

// Events returns the definition's notification stream.
func (d *Definition) Events() *Events { return &d.events }

// ExposedWidgets returns a copy of the widget refs surfaced on instances.
func (d *Definition) ExposedWidgets() []WidgetRef { return slices.Clone(d.exposed) }

// ExposeWidget surfaces an internal node's widget on every instance.
// The node must exist in the definition's store.
func (d *Definition) ExposeWidget(node entity.NodeID, widget string) error {
	if _, ok := d.store.Node(node); !ok {
		return fmt.Errorf("expose widget %q: %w", widget, entity.ErrUnknownNode)
	}
	ref := WidgetRef{NodeID: node, Widget: widget}
	if slices.Contains(d.exposed, ref) {
		return nil
	}
	d.exposed = append(d.exposed, ref)
	return nil
}

// AddInput appends an input slot, firing "adding-input" (cancelable) before
// the mutation and "input-added" after it. Returns the new slot.
func (d *Definition) AddInput(name, slotType string) (SlotSpec, error) {
	return d.addSlot(false, name, slotType)
}

// AddOutput appends an output slot, firing "adding-output" before and
// "output-added" after.
func (d *Definition) AddOutput(name, slotType string) (SlotSpec, error) {
	return d.addSlot(true, name, slotType)
}

// RemoveInput removes the input at index, firing "removing-input"
// (cancelable) before and "input-removed" after. Internal links originating
// at that boundary slot are disconnected, and links on higher slots shift
// down to keep slot indexes dense.
func (d *Definition) RemoveInput(index int) error {
	return d.removeSlot(false, index)
}

// RemoveOutput removes the output at index; symmetric to [Definition.RemoveInput].
func (d *Definition) RemoveOutput(index int) error {
	return d.removeSlot(true, index)
}

// RenameInput renames the input at index, firing "renaming-input"
// (cancelable) before and "input-renamed" after. The slot id is unchanged.
func (d *Definition) RenameInput(index int, newName string) error {
	return d.renameSlot(false, index, newName)
}

// RenameOutput renames the output at index; symmetric to [Definition.RenameInput].
func (d *Definition) RenameOutput(index int, newName string) error {
	return d.renameSlot(true, index, newName)
}

func (d *Definition) allocSlotID() int {
	id := d.nextSlotID
	d.nextSlotID++
	return id
}

func (d *Definition) slots(output bool) *[]SlotSpec {
	if output {
		return &d.outputs
	}
	return &d.inputs
}

func (d *Definition) addSlot(output bool, name, slotType string) (SlotSpec, error) {
	if name == "" {
		return SlotSpec{}, ErrEmptySlotName
	}
	slots := d.slots(output)
	slot := SlotSpec{ID: d.nextSlotID, Name: name, Type: slotType}

	before, after := EventAddingInput, EventInputAdded
	if output {
		before, after = EventAddingOutput, EventOutputAdded
	}
	ev := Event{Kind: before, Definition: d, Index: len(*slots), Slot: slot}
	if err := d.events.dispatch(ev); err != nil {
		return SlotSpec{}, apperrors.Wrap(apperrors.ErrCodeMutationDenied, err, "%s vetoed", before)
	}

	slot.ID = d.allocSlotID()
	*slots = append(*slots, slot)

	ev.Kind = after
	ev.Slot = slot
	if err := d.events.dispatch(ev); err != nil {
		return slot, fmt.Errorf("%s listeners: %w", after, err)
	}
	return slot, nil
}

func (d *Definition) removeSlot(output bool, index int) error {
	slots := d.slots(output)
	if index < 0 || index >= len(*slots) {
		return ErrSlotIndexOutOfRange
	}

	before, after := EventRemovingInput, EventInputRemoved
	if output {
		before, after = EventRemovingOutput, EventOutputRemoved
	}
	ev := Event{Kind: before, Definition: d, Index: index, Slot: (*slots)[index]}
	if err := d.events.dispatch(ev); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeMutationDenied, err, "%s vetoed", before)
	}

	*slots = slices.Delete(*slots, index, index+1)
	d.compactBoundaryLinks(output, index)

	ev.Kind = after
	if err := d.events.dispatch(ev); err != nil {
		return fmt.Errorf("%s listeners: %w", after, err)
	}
	return nil
}

func (d *Definition) renameSlot(output bool, index int, newName string) error {
	if newName == "" {
		return ErrEmptySlotName
	}
	slots := d.slots(output)
	if index < 0 || index >= len(*slots) {
		return ErrSlotIndexOutOfRange
	}

	before, after := EventRenamingInput, EventInputRenamed
	if output {
		before, after = EventRenamingOutput, EventOutputRenamed
	}
	ev := Event{Kind: before, Definition: d, Index: index, Slot: (*slots)[index], NewName: newName}
	if err := d.events.dispatch(ev); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeMutationDenied, err, "%s vetoed", before)
	}

	(*slots)[index].Name = newName

	ev.Kind = after
	ev.Slot = (*slots)[index]
	if err := d.events.dispatch(ev); err != nil {
		return fmt.Errorf("%s listeners: %w", after, err)
	}
	return nil
}

// compactBoundaryLinks removes internal links bound to the removed boundary
// slot and shifts links on higher slots down by one.
func (d *Definition) compactBoundaryLinks(output bool, index int) {
	for _, l := range d.store.Links() {
		if output {
			if l.TargetID != entity.OutputBoundary {
				continue
			}
			switch {
			case l.TargetSlot == index:
				d.store.Disconnect(l.ID)
			case l.TargetSlot > index:
				d.store.RemapLinkSlots(l.ID, l.OriginSlot, l.TargetSlot-1)
			}
		} else {
			if l.OriginID != entity.InputBoundary {
				continue
			}
			switch {
			case l.OriginSlot == index:
				d.store.Disconnect(l.ID)
			case l.OriginSlot > index:
				d.store.RemapLinkSlots(l.ID, l.OriginSlot-1, l.TargetSlot)
			}
		}
	}
}
