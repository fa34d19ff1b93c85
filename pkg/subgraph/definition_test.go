package subgraph

import (
	"errors"
	"testing"

	"github.com/loomgraph/loom/pkg/entity"
	apperrors "github.com/loomgraph/loom/pkg/errors"
)

func innerStore(t *testing.T) *entity.Store {
	t.Helper()
	s := entity.NewWithBoundaries()
	n := &entity.Node{
		ID:      1,
		Type:    "sampler",
		Inputs:  []entity.Slot{{Name: "in", Type: "STRING"}},
		Outputs: []entity.Slot{{Name: "out", Type: "STRING"}},
	}
	if err := s.AddNode(n); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewDefinitionOwnsItsStore(t *testing.T) {
	src := innerStore(t)
	def := NewDefinition("Denoise", src, nil, nil)

	// Mutating the source must not leak into the definition.
	src.RemoveNode(1)
	if def.Store().NodeCount() != 1 {
		t.Error("definition aliases the store it was constructed from")
	}
	if !def.Store().AllowsBoundaries() {
		t.Error("definition store must allow boundary sentinels")
	}
}

func TestSlotIDsDisjointAndStable(t *testing.T) {
	def := NewDefinition("D", innerStore(t), []SlotSpec{{Name: "a"}, {Name: "b"}}, []SlotSpec{{Name: "c"}})

	seen := map[int]bool{}
	for _, s := range append(def.Inputs(), def.Outputs()...) {
		if seen[s.ID] {
			t.Fatalf("slot id %d reused across the interface", s.ID)
		}
		seen[s.ID] = true
	}

	id := def.Inputs()[0].ID
	if err := def.RenameInput(0, "renamed"); err != nil {
		t.Fatal(err)
	}
	if def.Inputs()[0].ID != id {
		t.Error("rename changed the slot id")
	}
	if def.Inputs()[0].Name != "renamed" {
		t.Error("rename did not change the slot name")
	}
}

func TestAddInputNotifications(t *testing.T) {
	def := NewDefinition("D", innerStore(t), nil, nil)

	var order []EventKind
	def.Events().Subscribe(EventAddingInput, func(ev Event) error {
		order = append(order, ev.Kind)
		if len(def.Inputs()) != 0 {
			t.Error("before notification observed mutated state")
		}
		return nil
	})
	def.Events().Subscribe(EventInputAdded, func(ev Event) error {
		order = append(order, ev.Kind)
		if len(def.Inputs()) != 1 {
			t.Error("after notification observed unmutated state")
		}
		return nil
	})

	slot, err := def.AddInput("image", "IMAGE")
	if err != nil {
		t.Fatal(err)
	}
	if slot.Name != "image" || slot.Type != "IMAGE" {
		t.Errorf("AddInput() = %+v", slot)
	}
	want := []EventKind{EventAddingInput, EventInputAdded}
	if len(order) != 2 || order[0] != want[0] || order[1] != want[1] {
		t.Errorf("notification order = %v, want %v", order, want)
	}
}

func TestBeforeListenerVetoesMutation(t *testing.T) {
	def := NewDefinition("D", innerStore(t), []SlotSpec{{Name: "keep", Type: "STRING"}}, nil)
	def.Events().Subscribe(EventRemovingInput, func(Event) error {
		return errors.New("this input is load-bearing")
	})
	var afterFired bool
	def.Events().Subscribe(EventInputRemoved, func(Event) error {
		afterFired = true
		return nil
	})

	err := def.RemoveInput(0)
	if !apperrors.Is(err, apperrors.ErrCodeMutationDenied) {
		t.Fatalf("RemoveInput() error = %v, want MUTATION_DENIED", err)
	}
	if len(def.Inputs()) != 1 {
		t.Error("vetoed removal still mutated the interface")
	}
	if afterFired {
		t.Error("after notification fired for a vetoed mutation")
	}
}

func TestPanickingListenerDoesNotStopDispatch(t *testing.T) {
	def := NewDefinition("D", innerStore(t), nil, nil)
	var laterRan bool
	def.Events().Subscribe(EventInputAdded, func(Event) error { panic("boom") })
	def.Events().Subscribe(EventInputAdded, func(Event) error {
		laterRan = true
		return nil
	})

	_, err := def.AddInput("x", "")
	if err == nil {
		t.Fatal("dispatch failure should be reported upward")
	}
	if !laterRan {
		t.Error("panic in one listener prevented the next from running")
	}
	if len(def.Inputs()) != 1 {
		t.Error("after-listener failure must not roll back the mutation")
	}
}

func TestRemoveInputCleansBoundaryLinks(t *testing.T) {
	s := innerStore(t)
	def := NewDefinition("D", s, []SlotSpec{{Name: "a", Type: "STRING"}, {Name: "b", Type: "STRING"}}, nil)

	// Boundary slot 1 feeds the inner node; removing slot 0 must shift it.
	if _, err := def.Store().AddLink(entity.InputBoundary, 1, 1, 0, "STRING"); err != nil {
		t.Fatal(err)
	}

	if err := def.RemoveInput(0); err != nil {
		t.Fatal(err)
	}
	links := def.Store().Links()
	if len(links) != 1 {
		t.Fatalf("link count = %d, want 1", len(links))
	}
	if links[0].OriginSlot != 0 {
		t.Errorf("surviving boundary link slot = %d, want 0 (shifted down)", links[0].OriginSlot)
	}
}

func TestRemoveInputDropsLinksAtSlot(t *testing.T) {
	s := innerStore(t)
	def := NewDefinition("D", s, []SlotSpec{{Name: "a", Type: "STRING"}}, nil)
	if _, err := def.Store().AddLink(entity.InputBoundary, 0, 1, 0, "STRING"); err != nil {
		t.Fatal(err)
	}

	if err := def.RemoveInput(0); err != nil {
		t.Fatal(err)
	}
	if def.Store().LinkCount() != 0 {
		t.Error("boundary link at the removed slot should be disconnected")
	}
}

func TestSlotIndexOutOfRange(t *testing.T) {
	def := NewDefinition("D", innerStore(t), nil, nil)
	if err := def.RemoveInput(0); !errors.Is(err, ErrSlotIndexOutOfRange) {
		t.Errorf("RemoveInput(0) error = %v", err)
	}
	if err := def.RenameOutput(3, "x"); !errors.Is(err, ErrSlotIndexOutOfRange) {
		t.Errorf("RenameOutput(3) error = %v", err)
	}
}

func TestExposeWidget(t *testing.T) {
	def := NewDefinition("D", innerStore(t), nil, nil)
	if err := def.ExposeWidget(99, "seed"); !errors.Is(err, entity.ErrUnknownNode) {
		t.Errorf("ExposeWidget(99) error = %v", err)
	}
	if err := def.ExposeWidget(1, "seed"); err != nil {
		t.Fatal(err)
	}
	if err := def.ExposeWidget(1, "seed"); err != nil {
		t.Fatal(err)
	}
	if got := len(def.ExposedWidgets()); got != 1 {
		t.Errorf("ExposedWidgets() len = %d, want 1 (deduplicated)", got)
	}
}
