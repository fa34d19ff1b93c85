package entity

import (
	"errors"
	"slices"
	"strconv"

	apperrors "github.com/loomgraph/loom/pkg/errors"
)

var (
	// ErrNilNode is returned by [Store.AddNode] when the node is nil.
	ErrNilNode = errors.New("node must not be nil")

	// ErrInvalidNodeID is returned by [Store.AddNode] when a negative id is
	// supplied. Real nodes have positive ids; negatives are reserved for
	// boundary sentinels and are never stored as nodes.
	ErrInvalidNodeID = errors.New("node ID must be positive")

	// ErrDuplicateNodeID is returned by [Store.AddNode] when a node with the
	// same id already exists. Node ids must be unique within one store.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownNode is returned when an operation references a node id not
	// present in the store.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownLink is returned by [Store.Disconnect] when the link id is
	// not present in the store.
	ErrUnknownLink = errors.New("unknown link")

	// ErrBoundaryNotAllowed is returned by [Store.AddLink] when a boundary
	// sentinel is used in a store not owned by a subgraph definition, or on
	// the wrong side of a link (InputBoundary can only originate links,
	// OutputBoundary can only terminate them).
	ErrBoundaryNotAllowed = errors.New("boundary sentinel not allowed here")
)

// Store is the in-memory graph for one level of a document: either the root
// graph or the internal contents of one subgraph definition.
//
// The zero value is not usable - use [New] or [NewWithBoundaries].
// Store is not safe for concurrent use without external synchronization.
type Store struct {
	boundaries bool

	nodes    map[NodeID]*Node
	links    map[LinkID]*Link
	groups   map[GroupID]*Group
	reroutes map[RerouteID]*Reroute

	order []NodeID // explicit z-order, insertion order by default

	incoming map[NodeID]map[int]LinkID   // target -> slot -> link
	outgoing map[NodeID]map[int][]LinkID // origin -> slot -> links

	nextNode    NodeID
	nextLink    LinkID
	nextGroup   GroupID
	nextReroute RerouteID

	extra map[string]any
}

// New creates an empty store for a root-level graph. Boundary sentinels are
// rejected by [Store.AddLink] on stores created with New.
func New() *Store {
	return &Store{
		nodes:    make(map[NodeID]*Node),
		links:    make(map[LinkID]*Link),
		groups:   make(map[GroupID]*Group),
		reroutes: make(map[RerouteID]*Reroute),
		incoming: make(map[NodeID]map[int]LinkID),
		outgoing: make(map[NodeID]map[int][]LinkID),
	}
}

// NewWithBoundaries creates an empty store owned by a subgraph definition.
// Links in such a store may originate at [InputBoundary] and terminate at
// [OutputBoundary].
func NewWithBoundaries() *Store {
	s := New()
	s.boundaries = true
	return s
}

// AllowsBoundaries reports whether boundary sentinels are legal in this store.
func (s *Store) AllowsBoundaries() bool { return s.boundaries }

// EnableBoundaries marks the store as owned by a subgraph definition,
// making boundary sentinel endpoints legal. There is no way back: a store
// that contained sentinels cannot be demoted to a root-level store.
func (s *Store) EnableBoundaries() { s.boundaries = true }

// RemapLinkSlots moves an existing link to different origin/target slots,
// keeping the incoming and outgoing indexes consistent. Endpoint nodes are
// unchanged. Returns ErrUnknownLink when the id is not present.
func (s *Store) RemapLinkSlots(id LinkID, originSlot, targetSlot int) error {
	l, ok := s.links[id]
	if !ok {
		return ErrUnknownLink
	}
	parent := l.ParentRerouteID
	rerouteRefs := make([]RerouteID, 0, 1)
	for _, r := range s.reroutes {
		if slices.Contains(r.LinkIDs, id) {
			rerouteRefs = append(rerouteRefs, r.ID)
		}
	}
	s.removeLink(id)
	l.OriginSlot, l.TargetSlot = originSlot, targetSlot
	l.ParentRerouteID = parent
	s.insertLinkID(id, l)
	for _, rid := range rerouteRefs {
		r := s.reroutes[rid]
		r.LinkIDs = append(r.LinkIDs, id)
	}
	return nil
}

// Extra returns the free-form document extras attached to this store.
// The returned map may be nil.
func (s *Store) Extra() map[string]any { return s.extra }

// SetExtra replaces the free-form extras preserved across serialization.
func (s *Store) SetExtra(extra map[string]any) { s.extra = extra }

// AddNode adds a node to the store. A zero id is replaced with the next free
// id; explicit ids are kept (the deserializer relies on this). Returns
// ErrNilNode, ErrInvalidNodeID or ErrDuplicateNodeID on invalid input.
func (s *Store) AddNode(n *Node) error {
	if n == nil {
		return ErrNilNode
	}
	if n.ID == 0 {
		n.ID = s.nextNode + 1
	}
	if n.ID < 0 {
		return ErrInvalidNodeID
	}
	if _, exists := s.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Widgets == nil {
		n.Widgets = map[string]any{}
	}
	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
	if n.ID > s.nextNode {
		s.nextNode = n.ID
	}
	return nil
}

// RemoveNode removes a node and cascades to every link that touches it.
// Returns ErrUnknownNode if the id is not present.
func (s *Store) RemoveNode(id NodeID) error {
	if _, ok := s.nodes[id]; !ok {
		return ErrUnknownNode
	}
	for _, l := range s.Links() {
		if l.OriginID == id || l.TargetID == id {
			s.removeLink(l.ID)
		}
	}
	delete(s.nodes, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return nil
}

// Node returns the node with the given id.
func (s *Store) Node(id NodeID) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns all nodes in z-order. The slice is freshly allocated; the
// node pointers are shared with the store.
func (s *Store) Nodes() []*Node {
	out := make([]*Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id])
	}
	return out
}

// NodeCount returns the number of nodes in the store.
func (s *Store) NodeCount() int { return len(s.nodes) }

// AddLink connects origin's output slot to target's input slot, allocating a
// link id. The connection is refused with a TYPE_MISMATCH error when the
// declared slot types are incompatible (types match when equal, or when
// either side is empty or the wildcard "*").
//
// An existing link into the same target slot is disconnected first: input
// slots hold at most one connection.
//
// Boundary sentinels are accepted only in stores created with
// [NewWithBoundaries], and only on their own side: InputBoundary as origin,
// OutputBoundary as target.
func (s *Store) AddLink(origin NodeID, originSlot int, target NodeID, targetSlot int, linkType string) (*Link, error) {
	originType, err := s.endpointType(origin, originSlot, false)
	if err != nil {
		return nil, err
	}
	targetType, err := s.endpointType(target, targetSlot, true)
	if err != nil {
		return nil, err
	}

	if !TypesCompatible(originType, targetType) || !TypesCompatible(linkType, targetType) {
		return nil, apperrors.New(apperrors.ErrCodeTypeMismatch,
			"cannot connect %s output %d (%s) to %s input %d (%s)",
			nodeLabel(origin), originSlot, originType, nodeLabel(target), targetSlot, targetType)
	}

	if prev, ok := s.incomingLinkID(target, targetSlot); ok {
		s.removeLink(prev)
	}

	s.nextLink++
	l := &Link{
		ID:         s.nextLink,
		OriginID:   origin,
		OriginSlot: originSlot,
		TargetID:   target,
		TargetSlot: targetSlot,
		Type:       linkType,
	}
	s.insertLink(l)
	return l, nil
}

// Disconnect removes a link by id. Returns ErrUnknownLink when absent.
func (s *Store) Disconnect(id LinkID) error {
	if _, ok := s.links[id]; !ok {
		return ErrUnknownLink
	}
	s.removeLink(id)
	return nil
}

// Link returns the link with the given id.
func (s *Store) Link(id LinkID) (*Link, bool) {
	l, ok := s.links[id]
	return l, ok
}

// Links returns all links sorted by id.
func (s *Store) Links() []*Link {
	out := make([]*Link, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b *Link) int { return int(a.ID - b.ID) })
	return out
}

// LinkCount returns the number of links in the store.
func (s *Store) LinkCount() int { return len(s.links) }

// IncomingLink returns the single link feeding the given input slot.
func (s *Store) IncomingLink(node NodeID, slot int) (*Link, bool) {
	id, ok := s.incomingLinkID(node, slot)
	if !ok {
		return nil, false
	}
	return s.links[id], true
}

// OutgoingLinks returns the links leaving the given output slot, sorted by id.
func (s *Store) OutgoingLinks(node NodeID, slot int) []*Link {
	ids := s.outgoing[node][slot]
	out := make([]*Link, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.links[id])
	}
	slices.SortFunc(out, func(a, b *Link) int { return int(a.ID - b.ID) })
	return out
}

// AddGroup adds a visual group, allocating an id when zero.
func (s *Store) AddGroup(g *Group) {
	if g.ID == 0 {
		g.ID = s.nextGroup + 1
	}
	if g.ID > s.nextGroup {
		s.nextGroup = g.ID
	}
	s.groups[g.ID] = g
}

// Groups returns all groups sorted by id.
func (s *Store) Groups() []*Group {
	out := make([]*Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b *Group) int { return int(a.ID - b.ID) })
	return out
}

// AddReroute adds a reroute waypoint, allocating an id when zero.
func (s *Store) AddReroute(r *Reroute) {
	if r.ID == 0 {
		r.ID = s.nextReroute + 1
	}
	if r.ID > s.nextReroute {
		s.nextReroute = r.ID
	}
	s.reroutes[r.ID] = r
}

// Reroute returns the reroute with the given id.
func (s *Store) Reroute(id RerouteID) (*Reroute, bool) {
	r, ok := s.reroutes[id]
	return r, ok
}

// Reroutes returns all reroutes sorted by id.
func (s *Store) Reroutes() []*Reroute {
	out := make([]*Reroute, 0, len(s.reroutes))
	for _, r := range s.reroutes {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b *Reroute) int { return int(a.ID - b.ID) })
	return out
}

// Clone returns a deep copy of the store. Nodes, links, groups and reroutes
// are copied; the clone shares nothing with the original.
func (s *Store) Clone() *Store {
	c := New()
	c.boundaries = s.boundaries
	c.nextNode, c.nextLink = s.nextNode, s.nextLink
	c.nextGroup, c.nextReroute = s.nextGroup, s.nextReroute
	for _, id := range s.order {
		n := s.nodes[id].Clone()
		c.nodes[n.ID] = n
		c.order = append(c.order, n.ID)
	}
	for id, l := range s.links {
		c.insertLinkID(id, l.Clone())
	}
	for id, g := range s.groups {
		cg := *g
		c.groups[id] = &cg
	}
	for id, r := range s.reroutes {
		cr := *r
		cr.LinkIDs = slices.Clone(r.LinkIDs)
		c.reroutes[id] = &cr
	}
	if s.extra != nil {
		c.extra = make(map[string]any, len(s.extra))
		for k, v := range s.extra {
			c.extra[k] = v
		}
	}
	return c
}

// TypesCompatible reports whether two slot types may be connected. Types
// match when equal, or when either side is the wildcard "*" or undeclared.
func TypesCompatible(a, b string) bool {
	if a == "" || b == "" || a == "*" || b == "*" {
		return true
	}
	return a == b
}

func (s *Store) endpointType(id NodeID, slot int, isTarget bool) (string, error) {
	if id.IsBoundary() {
		if !s.boundaries {
			return "", ErrBoundaryNotAllowed
		}
		if (isTarget && id != OutputBoundary) || (!isTarget && id != InputBoundary) {
			return "", ErrBoundaryNotAllowed
		}
		return "", nil // boundary slot types are declared on the definition
	}
	n, ok := s.nodes[id]
	if !ok {
		return "", ErrUnknownNode
	}
	if isTarget {
		return n.InputType(slot), nil
	}
	return n.OutputType(slot), nil
}

func (s *Store) incomingLinkID(node NodeID, slot int) (LinkID, bool) {
	id, ok := s.incoming[node][slot]
	return id, ok
}

func (s *Store) insertLink(l *Link) { s.insertLinkID(l.ID, l) }

func (s *Store) insertLinkID(id LinkID, l *Link) {
	l.ID = id
	s.links[id] = l
	if s.incoming[l.TargetID] == nil {
		s.incoming[l.TargetID] = make(map[int]LinkID)
	}
	s.incoming[l.TargetID][l.TargetSlot] = id
	if s.outgoing[l.OriginID] == nil {
		s.outgoing[l.OriginID] = make(map[int][]LinkID)
	}
	s.outgoing[l.OriginID][l.OriginSlot] = append(s.outgoing[l.OriginID][l.OriginSlot], id)
	if id > s.nextLink {
		s.nextLink = id
	}
}

func (s *Store) removeLink(id LinkID) {
	l, ok := s.links[id]
	if !ok {
		return
	}
	delete(s.links, id)
	if m := s.incoming[l.TargetID]; m != nil && m[l.TargetSlot] == id {
		delete(m, l.TargetSlot)
	}
	if m := s.outgoing[l.OriginID]; m != nil {
		ids := m[l.OriginSlot]
		if i := slices.Index(ids, id); i >= 0 {
			m[l.OriginSlot] = slices.Delete(ids, i, i+1)
		}
	}
	for _, r := range s.reroutes {
		if i := slices.Index(r.LinkIDs, id); i >= 0 {
			r.LinkIDs = slices.Delete(r.LinkIDs, i, i+1)
		}
	}
}

func nodeLabel(id NodeID) string {
	switch id {
	case InputBoundary:
		return "input boundary"
	case OutputBoundary:
		return "output boundary"
	default:
		return "node " + strconv.FormatInt(int64(id), 10)
	}
}
