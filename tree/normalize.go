package tree

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Message kinds emitted by the search backend.
const (
	KindProgress = "progress"
	KindResult   = "result"
	KindError    = "error"
)

// Stats carries the backend's per-update search counters.
type Stats struct {
	NodeCount     int     `json:"nodeCount"`
	StepCount     int     `json:"stepCount"`
	ElapsedTimeMs float64 `json:"elapsedTimeMs"`
}

// DFSStep is the incremental single-node update a DFS search attaches to
// progress messages.
type DFSStep struct {
	Element string `json:"element"`
	Depth   int    `json:"depth"`
	Parent  string `json:"parent"`
}

// Payload is the canonical form of one inbound backend message. Every
// heterogeneous wire shape (single tree vs recipe list, lower- vs
// upper-cased bidirectional fields, error-in-path vs top-level message) is
// folded into this one struct before any other component sees it.
type Payload struct {
	Kind     string
	Element  string
	Complete bool
	Stats    Stats

	// Err holds the backend's error text when Kind is KindError.
	Err string

	// Trees holds the recipe tree(s) carried by the message: a single
	// (possibly partial) tree for progress updates, one tree per returned
	// recipe for results.
	Trees       []*Node
	RecipeCount int

	// Explicit bidirectional search data, element -> ingredients used to
	// produce it (empty for frontier seeds). HasVisited tells explicit
	// classification apart from an absent section.
	Forward       map[string][]string
	Backward      map[string][]string
	MeetingPoints []string
	HasVisited    bool

	// Step is the incremental DFS node update, when present.
	Step *DFSStep
}

// NoRecipes reports whether a result payload came back without any usable
// recipe, which the session surfaces as "no path found" rather than an error.
func (p *Payload) NoRecipes() bool {
	if p.Kind != KindResult {
		return false
	}
	return len(p.Trees) == 0 || allLeaves(p.Trees)
}

func allLeaves(trees []*Node) bool {
	for _, t := range trees {
		if t != nil && len(t.Recipes) > 0 {
			return false
		}
	}
	return true
}

// visitedEntry is one value of a forwardVisited/backwardVisited map. Some
// backends marshal these without struct tags, so the keys arrive upper-cased;
// others emit lower case. encoding/json matches field names
// case-insensitively, which covers both.
type visitedEntry struct {
	Recipe []string `json:"recipe"`
	Depth  int      `json:"depth"`
}

// rawMessage mirrors the wire envelope. Path is kept raw because its shape
// depends on algorithm and mode.
type rawMessage struct {
	Type     string          `json:"type"`
	Element  string          `json:"element"`
	Path     json.RawMessage `json:"path"`
	Complete bool            `json:"complete"`
	Stats    Stats           `json:"stats"`
	Message  string          `json:"message"`
	Node     *DFSStep        `json:"node"`
}

// rawPath is the union of every path shape the backend emits: a lone error
// object, a bare recipe tree, or the full multi-recipe/bidirectional
// response. Field presence decides which variant applies.
type rawPath struct {
	Error string `json:"error"`

	Element     string  `json:"element"`
	Recipes     []*Node `json:"recipes"`
	RecipeCount *int    `json:"recipeCount"`

	ForwardVisited  map[string]visitedEntry `json:"forwardVisited"`
	BackwardVisited map[string]visitedEntry `json:"backwardVisited"`
	MeetingPoints   []string                `json:"meetingPoints"`
}

// DecodeMessage parses one raw websocket frame into its canonical Payload.
// Malformed recipe nodes inside the payload are pruned with a warning and
// their siblings kept; only an unparseable envelope is an error.
func DecodeMessage(data []byte, logger *zap.Logger) (*Payload, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode message envelope: %w", err)
	}

	p := &Payload{
		Kind:     raw.Type,
		Element:  raw.Element,
		Complete: raw.Complete,
		Stats:    raw.Stats,
		Step:     raw.Node,
	}

	if raw.Type == KindError {
		p.Err = raw.Message
		if len(raw.Path) > 0 {
			var pe struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(raw.Path, &pe); err == nil && pe.Error != "" {
				p.Err = pe.Error
			}
		}
		if p.Err == "" {
			p.Err = "search failed"
		}
		return p, nil
	}

	if len(raw.Path) == 0 || string(raw.Path) == "null" {
		return p, nil
	}

	var path rawPath
	if err := json.Unmarshal(raw.Path, &path); err != nil {
		return nil, fmt.Errorf("decode %s path: %w", raw.Type, err)
	}

	if path.Error != "" {
		p.Kind = KindError
		p.Err = path.Error
		return p, nil
	}

	if path.Element != "" && p.Element == "" {
		p.Element = path.Element
	}

	switch {
	case path.RecipeCount != nil || path.ForwardVisited != nil || path.BackwardVisited != nil:
		// Full response shape: recipes is a list of trees.
		if path.RecipeCount != nil {
			p.RecipeCount = *path.RecipeCount
		} else {
			p.RecipeCount = len(path.Recipes)
		}
		for _, t := range path.Recipes {
			if pruned := pruneInvalid(t, logger); pruned != nil {
				p.Trees = append(p.Trees, pruned)
			}
		}
		// Multiple mode can return structurally equivalent recipe variants;
		// only the first of each is navigable. The advertised count follows
		// what survived dedup and pruning.
		p.Trees = FilterDuplicates(p.Trees)
		if p.RecipeCount > len(p.Trees) {
			p.RecipeCount = len(p.Trees)
		}
	default:
		// Bare tree shape: the path object itself is the root node.
		root := &Node{Element: path.Element, Recipes: path.Recipes}
		if root.Element == "" {
			root.Element = raw.Element
		}
		if pruned := pruneInvalid(root, logger); pruned != nil {
			p.Trees = append(p.Trees, pruned)
			p.RecipeCount = 1
		}
	}

	if path.ForwardVisited != nil || path.BackwardVisited != nil {
		p.HasVisited = true
		p.Forward = flattenVisited(path.ForwardVisited)
		p.Backward = flattenVisited(path.BackwardVisited)
		p.MeetingPoints = path.MeetingPoints
	}

	return p, nil
}

func flattenVisited(visited map[string]visitedEntry) map[string][]string {
	out := make(map[string][]string, len(visited))
	for element, entry := range visited {
		out[element] = entry.Recipe
	}
	return out
}

// pruneInvalid drops nodes with a missing element field, keeping their
// siblings. Returns nil when the node itself is unusable.
func pruneInvalid(n *Node, logger *zap.Logger) *Node {
	if n == nil {
		return nil
	}
	if n.Element == "" {
		logger.Warn("skipping recipe node with missing element")
		return nil
	}
	if len(n.Recipes) == 0 {
		return n
	}
	kept := make([]*Node, 0, len(n.Recipes))
	for _, child := range n.Recipes {
		if pruned := pruneInvalid(child, logger); pruned != nil {
			kept = append(kept, pruned)
		}
	}
	n.Recipes = kept
	return n
}
