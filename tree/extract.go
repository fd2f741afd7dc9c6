package tree

// Recipe is one row of the flattened recipe listing: an element and the
// ingredients, in tree order, that combine into it.
type Recipe struct {
	Result      string   `json:"result"`
	Ingredients []string `json:"ingredients"`
}

// ExtractRecipes flattens a recipe tree into an ordered list of crafting
// steps. The traversal is post-order, so every ingredient's own recipe is
// listed before any recipe that consumes it, and a single visited set spans
// the whole walk, so an element shared by several branches is listed once,
// at its first bottom-up occurrence. Leaves contribute nothing; a leaf-only
// tree yields an empty list.
func ExtractRecipes(root *Node) []Recipe {
	var out []Recipe
	extract(root, make(map[string]bool), &out)
	return out
}

func extract(n *Node, emitted map[string]bool, out *[]Recipe) {
	if n == nil || len(n.Recipes) == 0 {
		return
	}
	for _, child := range n.Recipes {
		extract(child, emitted, out)
	}
	if emitted[n.Element] {
		return
	}
	emitted[n.Element] = true
	*out = append(*out, Recipe{
		Result:      n.Element,
		Ingredients: n.Ingredients(),
	})
}
