// Package bidir turns backend search payloads into the forward/backward/
// meeting classification that drives the bidirectional visualization.
package bidir

import (
	"sort"

	"go.uber.org/zap"

	"github.com/alchviz/alchviz/tree"
)

// State is the classification of every element seen so far: reachable by
// expanding from the base elements (Forward), by contracting from the target
// (Backward), or both (Meeting). Connections maps an element to the
// ingredients used to produce it, present only for non-leaf elements.
//
// Meeting is always Forward ∩ Backward, recomputed after every
// classification, never mutated on its own.
type State struct {
	Forward     map[string]bool
	Backward    map[string]bool
	Meeting     map[string]bool
	Connections map[string][]string
}

// NewState returns an empty classification.
func NewState() *State {
	return &State{
		Forward:     make(map[string]bool),
		Backward:    make(map[string]bool),
		Meeting:     make(map[string]bool),
		Connections: make(map[string][]string),
	}
}

// MeetingPoints returns the meeting set as a sorted slice.
func (s *State) MeetingPoints() []string {
	out := make([]string, 0, len(s.Meeting))
	for elem := range s.Meeting {
		out = append(out, elem)
	}
	sort.Strings(out)
	return out
}

// Classify builds a fresh State from one backend payload. Payloads carrying
// explicit visited maps are copied through; plain recipe trees fall back to
// the path heuristic of classifyTree. The previous state is never reused:
// each message produces a whole new classification.
func Classify(p *tree.Payload, target string, logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := NewState()
	explicit := p != nil && p.HasVisited
	if explicit {
		classifyExplicit(s, p)
	} else if p != nil && len(p.Trees) > 0 {
		classifyTree(s, p.Trees[0], target)
	}

	// The base elements always belong to the forward frontier. The path
	// heuristic additionally evicts them from the backward set, since it
	// only guesses at frontiers; explicit visited maps are the backend's
	// own record, and a backward frontier that reached a base element is
	// exactly where the two searches met, so that membership stays.
	for elem := range tree.BaseElements {
		s.Forward[elem] = true
		if !explicit {
			delete(s.Backward, elem)
		}
	}
	if target != "" {
		s.Backward[target] = true
	}

	s.recomputeMeeting()
	s.dropDanglingConnections(logger)
	return s
}

// classifyExplicit copies the backend's own visited maps. The explicit
// meeting-point list is advisory only; the intersection computed afterwards
// is authoritative.
func classifyExplicit(s *State, p *tree.Payload) {
	for elem, ingredients := range p.Forward {
		s.Forward[elem] = true
		if len(ingredients) > 0 {
			s.Connections[elem] = ingredients
		}
	}
	for elem, ingredients := range p.Backward {
		s.Backward[elem] = true
		if len(ingredients) > 0 {
			s.Connections[elem] = ingredients
		}
	}
	// The payload's explicit meeting-point list is advisory only. Whatever
	// genuinely sits in both sets survives the recompute; anything else was
	// stale backend bookkeeping.
	for _, elem := range p.MeetingPoints {
		if elem != "" {
			s.Meeting[elem] = true
		}
	}
}

// classifyTree reconstructs a plausible frontier split from a plain recipe
// tree: elements on the root→target path, and their direct ingredients, are
// treated as reached backward from the target; everything else as reached
// forward from the bases. This is a visualization approximation, not a
// replay of the backend's actual frontiers.
func classifyTree(s *State, root *tree.Node, target string) {
	if root == nil {
		return
	}

	onPath := make(map[*tree.Node]bool)
	findPath(root, target, onPath)

	var walk func(n, parent *tree.Node)
	walk = func(n, parent *tree.Node) {
		if n == nil {
			return
		}
		if onPath[n] || (parent != nil && onPath[parent]) {
			s.Backward[n.Element] = true
		} else {
			s.Forward[n.Element] = true
		}
		if !n.IsLeaf() {
			if _, ok := s.Connections[n.Element]; !ok {
				s.Connections[n.Element] = n.Ingredients()
			}
		}
		for _, child := range n.Recipes {
			walk(child, n)
		}
	}
	walk(root, nil)
}

// findPath marks the nodes on the first depth-first path from n to the
// target, ties broken by ingredient order. Reports whether a path exists
// below (or at) n.
func findPath(n *tree.Node, target string, onPath map[*tree.Node]bool) bool {
	if n == nil {
		return false
	}
	if n.Element == target {
		onPath[n] = true
		return true
	}
	for _, child := range n.Recipes {
		if findPath(child, target, onPath) {
			onPath[n] = true
			return true
		}
	}
	return false
}

func (s *State) recomputeMeeting() {
	s.Meeting = make(map[string]bool)
	for elem := range s.Forward {
		if s.Backward[elem] {
			s.Meeting[elem] = true
		}
	}
}

// dropDanglingConnections removes connection entries for elements that ended
// up in neither set; drawing them would fabricate nodes the search never
// classified.
func (s *State) dropDanglingConnections(logger *zap.Logger) {
	for elem := range s.Connections {
		if !s.Forward[elem] && !s.Backward[elem] {
			logger.Debug("dropping connection for unclassified element",
				zap.String("element", elem))
			delete(s.Connections, elem)
		}
	}
}
