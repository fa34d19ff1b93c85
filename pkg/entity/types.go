package entity

import "slices"

// NodeID identifies a node within one store. Positive for real nodes;
// the negative values [InputBoundary] and [OutputBoundary] are reserved.
type NodeID int64

// LinkID identifies a link within one store.
type LinkID int64

// GroupID identifies a group within one store.
type GroupID int64

// RerouteID identifies a reroute within one store. Zero means "none".
type RerouteID int64

// Boundary sentinels. Valid only inside a store owned by a subgraph
// definition, where they represent the definition's own input and output
// interface.
const (
	InputBoundary  NodeID = -10
	OutputBoundary NodeID = -20
)

// IsBoundary reports whether id is one of the two reserved sentinels.
func (id NodeID) IsBoundary() bool {
	return id == InputBoundary || id == OutputBoundary
}

// Slot describes one declared input or output on a node.
type Slot struct {
	Name string
	Type string
}

// Node is a vertex in the store. Type is the node's class name, or a
// definition UUID when the node is a subgraph instance (package subgraph
// distinguishes the two shapes).
//
// The zero value is not usable on its own - add nodes through
// [Store.AddNode], which assigns ids and initializes maps.
type Node struct {
	ID      NodeID
	Type    string
	Title   string
	Pos     [2]float64
	Size    [2]float64
	Inputs  []Slot
	Outputs []Slot

	// Widgets holds widget values keyed by widget name.
	Widgets map[string]any
}

// InputType returns the declared type of input slot, or "" when the slot is
// undeclared (undeclared slots accept any type).
func (n *Node) InputType(slot int) string {
	if slot >= 0 && slot < len(n.Inputs) {
		return n.Inputs[slot].Type
	}
	return ""
}

// OutputType returns the declared type of output slot, or "" when undeclared.
func (n *Node) OutputType(slot int) string {
	if slot >= 0 && slot < len(n.Outputs) {
		return n.Outputs[slot].Type
	}
	return ""
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	c.Inputs = slices.Clone(n.Inputs)
	c.Outputs = slices.Clone(n.Outputs)
	if n.Widgets != nil {
		c.Widgets = make(map[string]any, len(n.Widgets))
		for k, v := range n.Widgets {
			c.Widgets[k] = v
		}
	}
	return &c
}

// Link is a directed connection between an origin output slot and a target
// input slot. Endpoints always record the true node ids; reroutes are an
// overlay referenced through ParentRerouteID and never replace an endpoint.
type Link struct {
	ID         LinkID
	OriginID   NodeID
	OriginSlot int
	TargetID   NodeID
	TargetSlot int
	Type       string

	// ParentRerouteID names the last reroute on this link's visual path,
	// or zero when the link is drawn direct.
	ParentRerouteID RerouteID
}

// HasBoundary reports whether either endpoint is a boundary sentinel.
func (l *Link) HasBoundary() bool {
	return l.OriginID.IsBoundary() || l.TargetID.IsBoundary()
}

// Clone returns a copy of the link.
func (l *Link) Clone() *Link {
	c := *l
	return &c
}

// Group is a visual grouping of nodes, kept for round-trip fidelity.
type Group struct {
	ID     GroupID
	Title  string
	Bounds [4]float64 // x, y, width, height
}

// Reroute is a draggable waypoint on a link's path. Reroutes chain through
// ParentID back toward the link origin; the chain bottoms out at zero.
type Reroute struct {
	ID       RerouteID
	ParentID RerouteID
	Pos      [2]float64
	LinkIDs  []LinkID
}
