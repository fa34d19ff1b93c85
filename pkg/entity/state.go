package entity

import (
	"fmt"

	"github.com/charmbracelet/log"

	apperrors "github.com/loomgraph/loom/pkg/errors"
)

// Schema versions understood by [Configure].
const (
	// SchemaCurrent embeds reroute parent ids directly on each link entry.
	SchemaCurrent = "1"

	// SchemaLegacy keeps reroute parent ids in an extra.linkExtensions side
	// table instead of on the link entries.
	SchemaLegacy = "0.4"
)

// linkExtensionsKey is the extra map key holding the legacy side table.
const linkExtensionsKey = "linkExtensions"

// State is the serialized form of one store: a document fragment. The same
// shape is embedded at the document root and inside every definition entry.
type State struct {
	Nodes    []NodeState    `json:"nodes" yaml:"nodes" msgpack:"nodes"`
	Links    []LinkState    `json:"links,omitempty" yaml:"links,omitempty" msgpack:"links,omitempty"`
	Groups   []GroupState   `json:"groups,omitempty" yaml:"groups,omitempty" msgpack:"groups,omitempty"`
	Reroutes []RerouteState `json:"reroutes,omitempty" yaml:"reroutes,omitempty" msgpack:"reroutes,omitempty"`
	Extra    map[string]any `json:"extra,omitempty" yaml:"extra,omitempty" msgpack:"extra,omitempty"`
}

// NodeState is one serialized node entry.
type NodeState struct {
	ID      int64          `json:"id" yaml:"id" msgpack:"id"`
	Type    string         `json:"type" yaml:"type" msgpack:"type"`
	Title   string         `json:"title,omitempty" yaml:"title,omitempty" msgpack:"title,omitempty"`
	Pos     [2]float64     `json:"pos" yaml:"pos" msgpack:"pos"`
	Size    [2]float64     `json:"size" yaml:"size" msgpack:"size"`
	Inputs  []SlotState    `json:"inputs,omitempty" yaml:"inputs,omitempty" msgpack:"inputs,omitempty"`
	Outputs []SlotState    `json:"outputs,omitempty" yaml:"outputs,omitempty" msgpack:"outputs,omitempty"`
	Widgets map[string]any `json:"widgets_values,omitempty" yaml:"widgets_values,omitempty" msgpack:"widgets_values,omitempty"`
}

// SlotState is one serialized node slot.
type SlotState struct {
	Name string `json:"name" yaml:"name" msgpack:"name"`
	Type string `json:"type,omitempty" yaml:"type,omitempty" msgpack:"type,omitempty"`
}

// LinkState is one serialized link entry. OriginID and TargetID may equal
// the boundary sentinels only inside a definition's own fragment.
type LinkState struct {
	ID         int64  `json:"id" yaml:"id" msgpack:"id"`
	OriginID   int64  `json:"origin_id" yaml:"origin_id" msgpack:"origin_id"`
	OriginSlot int    `json:"origin_slot" yaml:"origin_slot" msgpack:"origin_slot"`
	TargetID   int64  `json:"target_id" yaml:"target_id" msgpack:"target_id"`
	TargetSlot int    `json:"target_slot" yaml:"target_slot" msgpack:"target_slot"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty" msgpack:"type,omitempty"`
	ParentID   int64  `json:"parentId,omitempty" yaml:"parentId,omitempty" msgpack:"parentId,omitempty"`
}

// GroupState is one serialized group entry.
type GroupState struct {
	ID       int64      `json:"id" yaml:"id" msgpack:"id"`
	Title    string     `json:"title,omitempty" yaml:"title,omitempty" msgpack:"title,omitempty"`
	Bounding [4]float64 `json:"bounding" yaml:"bounding" msgpack:"bounding"`
}

// RerouteState is one serialized reroute entry.
type RerouteState struct {
	ID       int64      `json:"id" yaml:"id" msgpack:"id"`
	ParentID int64      `json:"parentId,omitempty" yaml:"parentId,omitempty" msgpack:"parentId,omitempty"`
	Pos      [2]float64 `json:"pos" yaml:"pos" msgpack:"pos"`
	LinkIDs  []int64    `json:"linkIds,omitempty" yaml:"linkIds,omitempty" msgpack:"linkIds,omitempty"`
}

// Serialize converts the store to a document fragment. Nodes appear in
// z-order and links, groups and reroutes in ascending id order, so output is
// deterministic. Reroute parent ids are written inline on links (schema "1").
func (s *Store) Serialize() *State {
	st := &State{Extra: s.extra}
	for _, n := range s.Nodes() {
		ns := NodeState{
			ID:    int64(n.ID),
			Type:  n.Type,
			Title: n.Title,
			Pos:   n.Pos,
			Size:  n.Size,
		}
		for _, sl := range n.Inputs {
			ns.Inputs = append(ns.Inputs, SlotState{Name: sl.Name, Type: sl.Type})
		}
		for _, sl := range n.Outputs {
			ns.Outputs = append(ns.Outputs, SlotState{Name: sl.Name, Type: sl.Type})
		}
		if len(n.Widgets) > 0 {
			ns.Widgets = n.Widgets
		}
		st.Nodes = append(st.Nodes, ns)
	}
	for _, l := range s.Links() {
		st.Links = append(st.Links, LinkState{
			ID:         int64(l.ID),
			OriginID:   int64(l.OriginID),
			OriginSlot: l.OriginSlot,
			TargetID:   int64(l.TargetID),
			TargetSlot: l.TargetSlot,
			Type:       l.Type,
			ParentID:   int64(l.ParentRerouteID),
		})
	}
	for _, g := range s.Groups() {
		st.Groups = append(st.Groups, GroupState{ID: int64(g.ID), Title: g.Title, Bounding: g.Bounds})
	}
	for _, r := range s.Reroutes() {
		rs := RerouteState{ID: int64(r.ID), ParentID: int64(r.ParentID), Pos: r.Pos}
		for _, id := range r.LinkIDs {
			rs.LinkIDs = append(rs.LinkIDs, int64(id))
		}
		st.Reroutes = append(st.Reroutes, rs)
	}
	return st
}

// ConfigureOption customizes [Configure].
type ConfigureOption func(*configureOptions)

type configureOptions struct {
	version    string
	boundaries bool
	logger     *log.Logger
}

// WithVersion selects the schema version parser. Defaults to [SchemaCurrent].
// Unknown versions fall back to the current parser with a logged warning.
func WithVersion(v string) ConfigureOption {
	return func(o *configureOptions) { o.version = v }
}

// WithBoundaries marks the store as owned by a subgraph definition, making
// boundary sentinel endpoints legal.
func WithBoundaries() ConfigureOption {
	return func(o *configureOptions) { o.boundaries = true }
}

// WithLogger routes configure warnings (dangling links, unknown versions) to
// the given logger instead of the package default.
func WithLogger(l *log.Logger) ConfigureOption {
	return func(o *configureOptions) { o.logger = l }
}

// Configure rebuilds a store from a serialized fragment.
//
// Links whose non-boundary endpoint is missing are dropped with a warning:
// a partially broken document still loads. Boundary sentinels outside a
// definition-owned fragment are a schema error, since they are only
// meaningful relative to a definition's declared interface.
func Configure(state *State, opts ...ConfigureOption) (*Store, error) {
	o := configureOptions{version: SchemaCurrent}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = log.Default()
	}

	switch o.version {
	case SchemaCurrent, SchemaLegacy:
	default:
		logger.Warn("unknown document schema version, parsing as current", "version", o.version)
	}

	s := New()
	s.boundaries = o.boundaries
	s.extra = state.Extra

	for i, ns := range state.Nodes {
		n := &Node{
			ID:      NodeID(ns.ID),
			Type:    ns.Type,
			Title:   ns.Title,
			Pos:     ns.Pos,
			Size:    ns.Size,
			Widgets: ns.Widgets,
		}
		for _, sl := range ns.Inputs {
			n.Inputs = append(n.Inputs, Slot{Name: sl.Name, Type: sl.Type})
		}
		for _, sl := range ns.Outputs {
			n.Outputs = append(n.Outputs, Slot{Name: sl.Name, Type: sl.Type})
		}
		if err := s.AddNode(n); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeSchema, err, "node entry %d (id %d)", i, ns.ID)
		}
	}

	parents := legacyLinkParents(state, o.version, logger)

	for _, ls := range state.Links {
		l := &Link{
			ID:         LinkID(ls.ID),
			OriginID:   NodeID(ls.OriginID),
			OriginSlot: ls.OriginSlot,
			TargetID:   NodeID(ls.TargetID),
			TargetSlot: ls.TargetSlot,
			Type:       ls.Type,
		}
		switch o.version {
		case SchemaLegacy:
			l.ParentRerouteID = parents[l.ID]
		default:
			l.ParentRerouteID = RerouteID(ls.ParentID)
		}
		if err := s.restoreLink(l, logger); err != nil {
			return nil, err
		}
	}

	for _, gs := range state.Groups {
		s.AddGroup(&Group{ID: GroupID(gs.ID), Title: gs.Title, Bounds: gs.Bounding})
	}
	for _, rs := range state.Reroutes {
		r := &Reroute{ID: RerouteID(rs.ID), ParentID: RerouteID(rs.ParentID), Pos: rs.Pos}
		for _, id := range rs.LinkIDs {
			r.LinkIDs = append(r.LinkIDs, LinkID(id))
		}
		s.AddReroute(r)
	}

	return s, nil
}

// restoreLink inserts a deserialized link, applying the dangling-link policy:
// missing real endpoints drop the link with a warning, while illegal boundary
// sentinels fail the load.
func (s *Store) restoreLink(l *Link, logger *log.Logger) error {
	for _, end := range [2]struct {
		id       NodeID
		isTarget bool
	}{{l.OriginID, false}, {l.TargetID, true}} {
		if end.id.IsBoundary() {
			if !s.boundaries {
				return apperrors.New(apperrors.ErrCodeSchema,
					"link %d uses boundary sentinel %d outside a subgraph definition", l.ID, end.id)
			}
			if (end.isTarget && end.id != OutputBoundary) || (!end.isTarget && end.id != InputBoundary) {
				return apperrors.New(apperrors.ErrCodeSchema,
					"link %d uses boundary sentinel %d on the wrong side", l.ID, end.id)
			}
			continue
		}
		if _, ok := s.nodes[end.id]; !ok {
			logger.Warn("dropping dangling link", "link", l.ID, "node", end.id)
			return nil
		}
	}
	s.insertLink(l)
	return nil
}

// legacyLinkParents extracts the 0.4 extra.linkExtensions side table.
// Malformed entries are skipped with a warning; the table is advisory.
func legacyLinkParents(state *State, version string, logger *log.Logger) map[LinkID]RerouteID {
	if version != SchemaLegacy || state.Extra == nil {
		return nil
	}
	raw, ok := state.Extra[linkExtensionsKey]
	if !ok {
		return nil
	}
	entries, ok := raw.([]any)
	if !ok {
		logger.Warn("ignoring malformed extra.linkExtensions", "type", fmt.Sprintf("%T", raw))
		return nil
	}
	parents := make(map[LinkID]RerouteID, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			logger.Warn("ignoring malformed linkExtensions entry", "type", fmt.Sprintf("%T", e))
			continue
		}
		id, okID := asInt64(m["id"])
		parent, okParent := asInt64(m["parentId"])
		if !okID || !okParent {
			logger.Warn("ignoring linkExtensions entry without numeric id/parentId")
			continue
		}
		parents[LinkID(id)] = RerouteID(parent)
	}
	return parents
}

// asInt64 coerces the numeric types JSON, YAML and msgpack decoders produce.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float32:
		return int64(n), true
	default:
		return 0, false
	}
}

// Validate checks referential integrity of the store: every link endpoint
// resolves (or is a legal boundary sentinel) and reroute parent chains are
// acyclic. It returns a coded error for the first violation found.
func (s *Store) Validate() error {
	for _, l := range s.Links() {
		for _, pair := range [2]struct {
			id       NodeID
			isTarget bool
		}{{l.OriginID, false}, {l.TargetID, true}} {
			if pair.id.IsBoundary() {
				if !s.boundaries {
					return apperrors.New(apperrors.ErrCodeSchema,
						"link %d uses boundary sentinel %d outside a subgraph definition", l.ID, pair.id)
				}
				continue
			}
			if _, ok := s.nodes[pair.id]; !ok {
				return apperrors.New(apperrors.ErrCodeDanglingLink,
					"link %d references missing node %d", l.ID, pair.id)
			}
		}
	}
	for _, r := range s.Reroutes() {
		seen := map[RerouteID]bool{}
		for cur := r; cur != nil && cur.ParentID != 0; {
			if seen[cur.ID] {
				return apperrors.New(apperrors.ErrCodeSchema, "reroute %d parent chain forms a cycle", r.ID)
			}
			seen[cur.ID] = true
			next, ok := s.reroutes[cur.ParentID]
			if !ok {
				break // broken chains are tolerated, endpoints stay authoritative
			}
			cur = next
		}
	}
	return nil
}
