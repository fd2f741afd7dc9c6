// Package dfstrace reconstructs the order a depth-first search would have
// visited a recipe tree in, so an already-complete result can still be
// animated step by step.
package dfstrace

import (
	"github.com/google/uuid"

	"github.com/alchviz/alchviz/tree"
)

// Node is one visit event of the reconstructed traversal. Depth is the
// distance from the root; Parent is the element that reached the node first
// (empty for the root). Parents accumulates every distinct parent that
// reached the same (element, depth) spot, in encounter order, so shared
// sub-recipes collapse into one visual node instead of exploding into
// duplicates.
type Node struct {
	ID      string   `json:"id"`
	Element string   `json:"element"`
	Depth   int      `json:"depth"`
	Parent  string   `json:"parent,omitempty"`
	Parents []string `json:"parents,omitempty"`
}

// Connection links a parent visit to a child visit by node id. Each pair is
// emitted at most once.
type Connection struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

// Trace is the full reconstructed traversal: visit events in depth-first
// order, the connections between them, and the root-to-node path of the
// last visit, which animation uses as the "current" exploration path.
type Trace struct {
	Nodes       []*Node
	Connections []Connection
	CurrentPath []string
}

// MaxDepth returns the deepest level in the trace.
func (t *Trace) MaxDepth() int {
	max := 0
	for _, n := range t.Nodes {
		if n.Depth > max {
			max = n.Depth
		}
	}
	return max
}

type levelKey struct {
	element string
	depth   int
}

type builder struct {
	trace    *Trace
	byLevel  map[levelKey]*Node
	connSeen map[Connection]bool
}

// Build reconstructs a depth-first traversal of root. Visits are pre-order
// with the root at depth 0. A visited set cloned per branch lets the same
// element reappear down a different branch while blocking true cycles within
// one path; a node already present at the same (element, depth) is merged
// into the first occurrence rather than re-emitted, and its subtree is not
// expanded a second time.
func Build(root *tree.Node) *Trace {
	b := &builder{
		trace:    &Trace{},
		byLevel:  map[levelKey]*Node{},
		connSeen: map[Connection]bool{},
	}
	if root != nil && root.Element != "" {
		b.visit(root, 0, nil, map[string]bool{}, nil)
	}
	return b.trace
}

func (b *builder) visit(n *tree.Node, depth int, parent *Node, visited map[string]bool, path []string) {
	if n == nil || n.Element == "" {
		return
	}
	if visited[n.Element] {
		// Cycle within the current path.
		return
	}

	parentElem := ""
	parentID := ""
	if parent != nil {
		parentElem = parent.Element
		parentID = parent.ID
	}

	if existing, ok := b.byLevel[levelKey{n.Element, depth}]; ok {
		// Same element at the same depth via another parent: merge into the
		// first node instead of emitting a visual duplicate. The subtree was
		// already expanded on the first visit.
		b.mergeParent(existing, parentElem)
		b.connect(parentID, existing.ID)
		return
	}

	node := &Node{
		ID:      uuid.NewString(),
		Element: n.Element,
		Depth:   depth,
		Parent:  parentElem,
	}
	if parentElem != "" {
		node.Parents = []string{parentElem}
	}
	b.byLevel[levelKey{n.Element, depth}] = node
	b.trace.Nodes = append(b.trace.Nodes, node)
	b.connect(parentID, node.ID)

	path = append(path, n.Element)
	b.trace.CurrentPath = append([]string(nil), path...)

	branchVisited := make(map[string]bool, len(visited)+1)
	for k, v := range visited {
		branchVisited[k] = v
	}
	branchVisited[n.Element] = true

	for _, child := range n.Recipes {
		b.visit(child, depth+1, node, branchVisited, path)
	}
}

func (b *builder) mergeParent(node *Node, parentElem string) {
	if parentElem == "" {
		return
	}
	for _, p := range node.Parents {
		if p == parentElem {
			return
		}
	}
	node.Parents = append(node.Parents, parentElem)
}

func (b *builder) connect(parentID, childID string) {
	if parentID == "" || childID == "" {
		return
	}
	c := Connection{Parent: parentID, Child: childID}
	if b.connSeen[c] {
		return
	}
	b.connSeen[c] = true
	b.trace.Connections = append(b.trace.Connections, c)
}
