package tree

import (
	"sort"
	"strings"
)

// BaseElements are the four starting elements of the game. They have no
// recipe and seed the forward frontier of a bidirectional search.
var BaseElements = map[string]bool{
	"Water": true,
	"Earth": true,
	"Fire":  true,
	"Air":   true,
}

// IsBaseElement reports whether name is one of the four starting elements.
func IsBaseElement(name string) bool {
	return BaseElements[name]
}

// Node is one node of a recipe tree: a craftable element together with the
// ingredient sub-trees that produce it. An empty Recipes slice marks a leaf,
// either a base element or a node the backend did not expand.
//
// A Node belongs to the message that produced it and is never mutated after
// decoding; a new message always carries a new tree.
type Node struct {
	Element string  `json:"element"`
	Recipes []*Node `json:"recipes"`
}

// IsLeaf reports whether the node has no ingredient sub-trees.
func (n *Node) IsLeaf() bool {
	return len(n.Recipes) == 0
}

// Ingredients returns the element names of the node's direct children,
// in recipe order. Nil children are skipped.
func (n *Node) Ingredients() []string {
	if len(n.Recipes) == 0 {
		return nil
	}
	out := make([]string, 0, len(n.Recipes))
	for _, child := range n.Recipes {
		if child != nil {
			out = append(out, child.Element)
		}
	}
	return out
}

// Size counts the nodes of the tree, root included.
func (n *Node) Size() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, child := range n.Recipes {
		total += child.Size()
	}
	return total
}

// Depth returns the height of the tree. A single leaf has depth 0.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	max := 0
	for _, child := range n.Recipes {
		if d := child.Depth() + 1; d > max {
			max = d
		}
	}
	return max
}

// maxSignatureDepth caps the recursion of Signature so pathological trees do
// not produce unbounded keys. Below the cap only the element name is kept.
const maxSignatureDepth = 5

// Signature returns a canonical string for the tree, stable under child
// reordering. Two trees that craft the same element from the same ingredient
// structure share a signature, which is what recipe deduplication keys off.
func Signature(n *Node) string {
	if n == nil {
		return "nil"
	}
	var sb strings.Builder
	writeSignature(n, &sb, 0)
	return sb.String()
}

func writeSignature(n *Node, sb *strings.Builder, depth int) {
	if n == nil {
		sb.WriteString("nil")
		return
	}
	sb.WriteString(n.Element)
	if IsBaseElement(n.Element) || len(n.Recipes) == 0 {
		return
	}
	sb.WriteString(":[")

	children := make([]*Node, 0, len(n.Recipes))
	for _, child := range n.Recipes {
		if child != nil {
			children = append(children, child)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		return children[i].Element < children[j].Element
	})

	for i, child := range children {
		if i > 0 {
			sb.WriteString(",")
		}
		if depth < maxSignatureDepth {
			writeSignature(child, sb, depth+1)
		} else {
			sb.WriteString(child.Element)
		}
	}
	sb.WriteString("]")
}

// FilterDuplicates drops trees whose signature already occurred earlier in
// the slice, keeping first occurrences and their order.
func FilterDuplicates(trees []*Node) []*Node {
	if len(trees) <= 1 {
		return trees
	}
	seen := make(map[string]bool, len(trees))
	filtered := make([]*Node, 0, len(trees))
	for _, t := range trees {
		sig := Signature(t)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		filtered = append(filtered, t)
	}
	return filtered
}
