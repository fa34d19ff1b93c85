package subgraph

import (
	"fmt"
	"slices"

	"github.com/loomgraph/loom/pkg/entity"
)

// Promote extracts a selection of nodes from the containing store into a new
// definition and replaces the selection with a single instance of it.
//
// Links internal to the selection are carried into the definition's store.
// Links crossing the selection border become interface slots: each external
// link feeding a selected node yields a definition input plus an
// InputBoundary link, and each selected output feeding the outside yields a
// definition output plus an OutputBoundary link. The border links are then
// re-established between the outside endpoints and the new instance.
//
// The new definition is registered with the library and the instance is
// tracked, so [Library.Remove] sees it.
func (l *Library) Promote(containing *entity.Store, selection []entity.NodeID, name string) (*Definition, *Instance, error) {
	if len(selection) == 0 {
		return nil, nil, fmt.Errorf("promote %q: empty selection", name)
	}
	selected := make(map[entity.NodeID]bool, len(selection))
	var centroid [2]float64
	for _, id := range selection {
		n, ok := containing.Node(id)
		if !ok {
			return nil, nil, fmt.Errorf("promote %q: node %d: %w", name, id, entity.ErrUnknownNode)
		}
		selected[id] = true
		centroid[0] += n.Pos[0] / float64(len(selection))
		centroid[1] += n.Pos[1] / float64(len(selection))
	}

	inner := entity.NewWithBoundaries()
	ids := slices.Clone(selection)
	slices.Sort(ids)
	for _, id := range ids {
		n, _ := containing.Node(id)
		if err := inner.AddNode(n.Clone()); err != nil {
			return nil, nil, fmt.Errorf("promote %q: %w", name, err)
		}
	}

	// Split the selection's links into internal ones and border crossings.
	type inBinding struct {
		origin     entity.NodeID // outside endpoint
		originSlot int
		linkType   string
	}
	type outBinding struct {
		slot       int           // instance output slot
		target     entity.NodeID // outside endpoint
		targetSlot int
		linkType   string
	}
	var (
		inputs      []SlotSpec
		outputs     []SlotSpec
		inBindings  []inBinding
		outBindings []outBinding
		// one output per distinct selected (origin, slot), fan-out preserved
		outIndex = map[[2]int64]int{}
	)

	for _, link := range containing.Links() {
		fromSel, toSel := selected[link.OriginID], selected[link.TargetID]
		switch {
		case fromSel && toSel:
			if _, err := inner.AddLink(link.OriginID, link.OriginSlot, link.TargetID, link.TargetSlot, link.Type); err != nil {
				return nil, nil, fmt.Errorf("promote %q: carry link %d: %w", name, link.ID, err)
			}
		case toSel:
			slot := len(inputs)
			target, _ := containing.Node(link.TargetID)
			inputs = append(inputs, SlotSpec{Name: inputName(target, link.TargetSlot, slot), Type: link.Type})
			if _, err := inner.AddLink(entity.InputBoundary, slot, link.TargetID, link.TargetSlot, link.Type); err != nil {
				return nil, nil, fmt.Errorf("promote %q: boundary input %d: %w", name, slot, err)
			}
			inBindings = append(inBindings, inBinding{link.OriginID, link.OriginSlot, link.Type})
		case fromSel:
			key := [2]int64{int64(link.OriginID), int64(link.OriginSlot)}
			slot, seen := outIndex[key]
			if !seen {
				slot = len(outputs)
				outIndex[key] = slot
				origin, _ := containing.Node(link.OriginID)
				outputs = append(outputs, SlotSpec{Name: outputName(origin, link.OriginSlot, slot), Type: link.Type})
				if _, err := inner.AddLink(link.OriginID, link.OriginSlot, entity.OutputBoundary, slot, link.Type); err != nil {
					return nil, nil, fmt.Errorf("promote %q: boundary output %d: %w", name, slot, err)
				}
			}
			outBindings = append(outBindings, outBinding{slot, link.TargetID, link.TargetSlot, link.Type})
		}
	}

	def := NewDefinition(name, inner, inputs, outputs)
	if err := l.Add(def); err != nil {
		return nil, nil, err
	}

	for _, id := range ids {
		containing.RemoveNode(id) // cascades the border links
	}

	inst, err := l.Instantiate(containing, def.ID(), &InstanceData{Pos: &centroid})
	if err != nil {
		return nil, nil, err
	}
	for slot, b := range inBindings {
		if _, err := containing.AddLink(b.origin, b.originSlot, inst.Node().ID, slot, b.linkType); err != nil {
			return nil, nil, fmt.Errorf("promote %q: reconnect input %d: %w", name, slot, err)
		}
	}
	for _, b := range outBindings {
		if _, err := containing.AddLink(inst.Node().ID, b.slot, b.target, b.targetSlot, b.linkType); err != nil {
			return nil, nil, fmt.Errorf("promote %q: reconnect output %d: %w", name, b.slot, err)
		}
	}
	return def, inst, nil
}

func inputName(target *entity.Node, slot, fallback int) string {
	if target != nil && slot < len(target.Inputs) && target.Inputs[slot].Name != "" {
		return target.Inputs[slot].Name
	}
	return fmt.Sprintf("input_%d", fallback)
}

func outputName(origin *entity.Node, slot, fallback int) string {
	if origin != nil && slot < len(origin.Outputs) && origin.Outputs[slot].Name != "" {
		return origin.Outputs[slot].Name
	}
	return fmt.Sprintf("output_%d", fallback)
}
