package subgraph

import (
	"github.com/google/uuid"

	"github.com/loomgraph/loom/pkg/entity"
	apperrors "github.com/loomgraph/loom/pkg/errors"
)

// DefinitionState is the serialized form of one definition: its identity,
// declared interface and the owned store fragment. Documents keep one entry
// per definition no matter how many instances reference it.
type DefinitionState struct {
	ID      string        `json:"id" yaml:"id" msgpack:"id"`
	Name    string        `json:"name" yaml:"name" msgpack:"name"`
	Inputs  []SlotSpec    `json:"inputs,omitempty" yaml:"inputs,omitempty" msgpack:"inputs,omitempty"`
	Outputs []SlotSpec    `json:"outputs,omitempty" yaml:"outputs,omitempty" msgpack:"outputs,omitempty"`
	Widgets []WidgetRef   `json:"exposed_widgets,omitempty" yaml:"exposed_widgets,omitempty" msgpack:"exposed_widgets,omitempty"`
	Graph   *entity.State `json:"graph" yaml:"graph" msgpack:"graph"`
}

// Serialize converts the definition to its document entry. The store fragment
// is written with the same deterministic ordering as [entity.Store.Serialize].
func (d *Definition) Serialize() *DefinitionState {
	return &DefinitionState{
		ID:      d.id.String(),
		Name:    d.name,
		Inputs:  d.Inputs(),
		Outputs: d.Outputs(),
		Widgets: d.ExposedWidgets(),
		Graph:   d.store.Serialize(),
	}
}

// RestoreDefinition rebuilds a definition from its document entry. The
// persisted uuid and slot ids are kept so that references from instance nodes
// and widget overrides stay valid across a round trip.
func RestoreDefinition(st *DefinitionState, opts ...entity.ConfigureOption) (*Definition, error) {
	id, err := uuid.Parse(st.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeSchema, err, "definition id %q", st.ID)
	}
	if st.Graph == nil {
		return nil, apperrors.New(apperrors.ErrCodeSchema, "definition %q has no graph fragment", st.Name)
	}
	opts = append(opts, entity.WithBoundaries())
	store, err := entity.Configure(st.Graph, opts...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.GetCode(err), err, "definition %q", st.Name)
	}
	return restoreDefinition(id, st.Name, store, st.Inputs, st.Outputs, st.Widgets), nil
}
