// Package task models the build pipeline as a tree of stage groups and units
// of work, and provides the executor that walks the tree: groups strictly in
// declared order, units within a group concurrently.
package task

import "context"

// Job is the callable contract for a unit of work. A nil error means success;
// an error aborts only the owning unit.
type Job func(ctx context.Context) error

// Unit is a single schedulable job with optional staleness hints. Dependency
// and Target are advisory: when both are set the executor may skip the unit
// if Target is not older than Dependency.
type Unit struct {
	Name       string
	Job        Job
	Dependency string // path the unit consumes; empty = no gate
	Target     string // path the unit produces; empty = always run
}

// Group is an ordered container of child nodes executed as one pipeline
// phase. Children are owned exclusively by their parent; insertion order is
// execution order.
type Group struct {
	Name     string
	children []Node
}

// Node is the closed set of graph node kinds. Only Group and Unit implement it.
type Node interface {
	node()
}

func (*Group) node() {}
func (*Unit) node()  {}

// NewGroup creates an empty group.
func NewGroup(name string) *Group {
	return &Group{Name: name}
}

// AddGroup appends a new child group and returns it.
func (g *Group) AddGroup(name string) *Group {
	child := NewGroup(name)
	g.children = append(g.children, child)
	return child
}

// AddUnit appends a unit of work.
func (g *Group) AddUnit(u *Unit) {
	g.children = append(g.children, u)
}

// Children returns the ordered child nodes.
func (g *Group) Children() []Node {
	return g.children
}

// Len reports the number of direct children.
func (g *Group) Len() int { return len(g.children) }

// Units returns the unit children in insertion order, skipping subgroups.
func (g *Group) Units() []*Unit {
	var units []*Unit
	for _, n := range g.children {
		if u, ok := n.(*Unit); ok {
			units = append(units, u)
		}
	}
	return units
}
