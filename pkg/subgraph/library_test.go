package subgraph

import (
	"testing"

	"github.com/loomgraph/loom/pkg/entity"
	apperrors "github.com/loomgraph/loom/pkg/errors"
	"github.com/google/uuid"
)

func TestLibraryAddRejectsDuplicates(t *testing.T) {
	lib, def := newTestLibrary(t)
	if err := lib.Add(def); !apperrors.Is(err, apperrors.ErrCodeInvalidDocument) {
		t.Fatalf("Add(duplicate) error = %v, want INVALID_DOCUMENT", err)
	}
}

func TestLibraryDefinitionsAreSorted(t *testing.T) {
	lib := NewLibrary()
	for _, name := range []string{"zeta", "alpha", "alpha"} {
		if err := lib.Add(NewDefinition(name, entity.NewWithBoundaries(), nil, nil)); err != nil {
			t.Fatal(err)
		}
	}
	defs := lib.Definitions()
	if len(defs) != 3 {
		t.Fatalf("Definitions() len = %d, want 3", len(defs))
	}
	if defs[0].Name() != "alpha" || defs[1].Name() != "alpha" || defs[2].Name() != "zeta" {
		t.Errorf("definitions out of order: %s, %s, %s", defs[0].Name(), defs[1].Name(), defs[2].Name())
	}
}

func TestLibraryInstantiateUnknown(t *testing.T) {
	lib := NewLibrary()
	if _, err := lib.Instantiate(entity.New(), uuid.New(), nil); !apperrors.Is(err, apperrors.ErrCodeMissingDefinition) {
		t.Fatalf("Instantiate(unknown) error = %v, want MISSING_DEFINITION", err)
	}
}

func TestLibraryRemoveRefusedWhileInUse(t *testing.T) {
	lib, def := newTestLibrary(t)
	root := entity.New()
	inst, err := lib.Instantiate(root, def.ID(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := lib.Remove(def.ID()); !apperrors.Is(err, apperrors.ErrCodeDefinitionInUse) {
		t.Fatalf("Remove(in use) error = %v, want DEFINITION_IN_USE", err)
	}

	lib.Release(inst)
	if err := lib.Remove(def.ID()); err != nil {
		t.Fatalf("Remove(released) error = %v", err)
	}
	if _, ok := lib.Definition(def.ID()); ok {
		t.Error("definition still registered after Remove")
	}
}

func TestReleaseLastInstanceKeepsDefinition(t *testing.T) {
	lib, def := newTestLibrary(t)
	root := entity.New()
	inst, _ := lib.Instantiate(root, def.ID(), nil)

	lib.Release(inst)
	if lib.InstanceCount(def.ID()) != 0 {
		t.Error("instance still tracked after Release")
	}
	if _, ok := lib.Definition(def.ID()); !ok {
		t.Error("releasing the last instance must not delete the definition")
	}
}

func TestDetachConvertsInstanceToPlainNode(t *testing.T) {
	lib, def := newTestLibrary(t)
	root := entity.New()
	inst, _ := lib.Instantiate(root, def.ID(), nil)
	node := inst.Node()

	lib.Detach(inst)
	if node.Type != def.Name() {
		t.Errorf("detached node type = %q, want %q", node.Type, def.Name())
	}
	if lib.InstanceCount(def.ID()) != 0 {
		t.Error("detached instance still tracked")
	}
	// Detached node no longer follows interface edits.
	if err := def.RenameInput(0, "latent"); err != nil {
		t.Fatal(err)
	}
	if node.Inputs[0].Name != "image" {
		t.Error("detached node still mirrors definition edits")
	}
}

func TestBind(t *testing.T) {
	lib, def := newTestLibrary(t)
	root := entity.New()
	root.AddNode(&entity.Node{ID: 1, Type: "loader"})
	root.AddNode(&entity.Node{ID: 2, Type: def.ID().String()})
	root.AddNode(&entity.Node{ID: 3, Type: uuid.NewString()})

	t.Run("UnknownNode", func(t *testing.T) {
		if _, err := lib.Bind(root, 99); err == nil {
			t.Fatal("Bind(unknown node) succeeded")
		}
	})
	t.Run("PlainNode", func(t *testing.T) {
		if _, err := lib.Bind(root, 1); !apperrors.Is(err, apperrors.ErrCodeInvalidDocument) {
			t.Fatalf("Bind(plain node) error = %v, want INVALID_DOCUMENT", err)
		}
	})
	t.Run("MissingDefinition", func(t *testing.T) {
		if _, err := lib.Bind(root, 3); !apperrors.Is(err, apperrors.ErrCodeMissingDefinition) {
			t.Fatalf("Bind(unregistered ref) error = %v, want MISSING_DEFINITION", err)
		}
	})
	t.Run("Bound", func(t *testing.T) {
		inst, err := lib.Bind(root, 2)
		if err != nil {
			t.Fatal(err)
		}
		if inst.Node().Inputs[0].Name != "image" {
			t.Errorf("bound instance inputs = %+v", inst.Node().Inputs)
		}
		if err := def.RenameInput(0, "latent"); err != nil {
			t.Fatal(err)
		}
		if inst.Node().Inputs[0].Name != "latent" {
			t.Error("bound instance does not mirror renames")
		}
	})
}

// promoteFixture builds loader(1) -> worker(2) -> two sinks(3, 4).
func promoteFixture(t *testing.T) *entity.Store {
	t.Helper()
	s := entity.New()
	nodes := []*entity.Node{
		{ID: 1, Type: "loader", Outputs: []entity.Slot{{Name: "out", Type: "STRING"}}},
		{ID: 2, Type: "worker",
			Inputs:  []entity.Slot{{Name: "in", Type: "STRING"}},
			Outputs: []entity.Slot{{Name: "out", Type: "STRING"}}},
		{ID: 3, Type: "sink", Inputs: []entity.Slot{{Name: "in", Type: "STRING"}}},
		{ID: 4, Type: "sink", Inputs: []entity.Slot{{Name: "in", Type: "STRING"}}},
	}
	for _, n := range nodes {
		if err := s.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	mustLink := func(o entity.NodeID, os int, tg entity.NodeID, ts int) {
		if _, err := s.AddLink(o, os, tg, ts, "STRING"); err != nil {
			t.Fatal(err)
		}
	}
	mustLink(1, 0, 2, 0)
	mustLink(2, 0, 3, 0)
	mustLink(2, 0, 4, 0)
	return s
}

func TestPromoteExtractsSelection(t *testing.T) {
	lib := NewLibrary()
	root := promoteFixture(t)

	def, inst, err := lib.Promote(root, []entity.NodeID{2}, "Worker")
	if err != nil {
		t.Fatal(err)
	}

	// Interface: one input for the incoming border link, one output for the
	// outgoing ones. The two outgoing links share an origin slot, so they
	// collapse into a single output.
	if got := len(def.Inputs()); got != 1 {
		t.Fatalf("inputs = %d, want 1", got)
	}
	if got := len(def.Outputs()); got != 1 {
		t.Fatalf("outputs = %d, want 1", got)
	}
	if def.Inputs()[0].Type != "STRING" || def.Outputs()[0].Type != "STRING" {
		t.Error("promoted slots lost the link type")
	}

	// The selection is gone from the containing store, replaced by the
	// instance node, and the border links are reconnected through it.
	if _, ok := root.Node(2); ok {
		t.Error("promoted node still present in containing store")
	}
	in, ok := root.IncomingLink(inst.Node().ID, 0)
	if !ok || in.OriginID != 1 {
		t.Fatalf("instance input not reconnected: %+v", in)
	}
	targets := map[entity.NodeID]bool{}
	for _, l := range root.OutgoingLinks(inst.Node().ID, 0) {
		targets[l.TargetID] = true
	}
	if !targets[3] || !targets[4] {
		t.Errorf("instance output targets = %v, want nodes 3 and 4", targets)
	}

	// The definition's store carries the promoted node with boundary links.
	if _, ok := def.Store().Node(2); !ok {
		t.Error("promoted node missing from definition store")
	}
	innerIn, ok := def.Store().IncomingLink(2, 0)
	if !ok || innerIn.OriginID != entity.InputBoundary {
		t.Errorf("inner link origin = %+v, want input boundary", innerIn)
	}
}

func TestPromoteRejectsBadSelection(t *testing.T) {
	lib := NewLibrary()
	root := promoteFixture(t)

	if _, _, err := lib.Promote(root, nil, "Empty"); err == nil {
		t.Error("Promote(empty selection) succeeded")
	}
	if _, _, err := lib.Promote(root, []entity.NodeID{99}, "Ghost"); err == nil {
		t.Error("Promote(unknown node) succeeded")
	}
}

func TestPromoteKeepsInternalLinks(t *testing.T) {
	lib := NewLibrary()
	root := promoteFixture(t)

	def, _, err := lib.Promote(root, []entity.NodeID{1, 2}, "Pair")
	if err != nil {
		t.Fatal(err)
	}
	if got := len(def.Inputs()); got != 0 {
		t.Errorf("inputs = %d, want 0 (no incoming border links)", got)
	}
	inner, ok := def.Store().IncomingLink(2, 0)
	if !ok || inner.OriginID != 1 {
		t.Errorf("internal link not carried into the definition: %+v", inner)
	}
}
