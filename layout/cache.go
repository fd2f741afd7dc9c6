package layout

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/alchviz/alchviz/dfstrace"
	"github.com/alchviz/alchviz/tree"
)

// Engine runs layouts through a content-keyed LRU cache. Layout is
// deterministic, so identical input always reproduces identical coordinates
// and caching is purely an allocation saver during progress storms, when the
// backend streams the same partially-built tree many times over.
type Engine struct {
	cfg   Config
	cache *lru.Cache[uint64, []Point]
}

// NewEngine builds an Engine with the given config and cache capacity.
func NewEngine(cfg Config, cacheSize int) (*Engine, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	cache, err := lru.New[uint64, []Point](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create layout cache: %w", err)
	}
	return &Engine{cfg: cfg, cache: cache}, nil
}

// Tree lays out a recipe tree, serving repeats from cache.
func (e *Engine) Tree(root *tree.Node) []Point {
	key := e.keyFor("tree", treeDigest(root))
	if cached, ok := e.cache.Get(key); ok {
		return clonePoints(cached)
	}
	points := Tree(root, e.cfg)
	e.cache.Add(key, points)
	return clonePoints(points)
}

// Trace lays out a DFS trace, serving repeats from cache.
func (e *Engine) Trace(tr *dfstrace.Trace) []Point {
	key := e.keyFor("trace", traceDigest(tr))
	if cached, ok := e.cache.Get(key); ok {
		return clonePoints(cached)
	}
	points := Levels(tr, e.cfg)
	e.cache.Add(key, points)
	return clonePoints(points)
}

// Purge drops every cached layout. Called when a new search session starts
// so no coordinates derived from a superseded request survive.
func (e *Engine) Purge() {
	e.cache.Purge()
}

// keyFor hashes the layout kind, the content digest, and every config field
// that influences coordinates.
func (e *Engine) keyFor(kind, digest string) uint64 {
	h := xxhash.New()
	h.WriteString(kind)
	h.WriteString("\x00")
	h.WriteString(digest)
	h.WriteString("\x00")
	for _, v := range []float64{
		e.cfg.Width, e.cfg.Height, e.cfg.MarginX,
		e.cfg.MarginY, e.cfg.MinSpacing, e.cfg.BaseRadius,
	} {
		h.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		h.WriteString(",")
	}
	return h.Sum64()
}

// treeDigest folds a tree's full pre-order shape into a stable string.
// Layout is order-sensitive and unbounded in depth, so the digest must be
// lossless: child order and every level participate, unlike tree.Signature,
// which sorts children and truncates.
func treeDigest(root *tree.Node) string {
	if root == nil {
		return "empty"
	}
	h := xxhash.New()
	var walk func(n *tree.Node)
	walk = func(n *tree.Node) {
		h.WriteString(n.Element)
		h.WriteString("|")
		h.WriteString(strconv.Itoa(len(n.Recipes)))
		h.WriteString(";")
		for _, child := range n.Recipes {
			walk(child)
		}
	}
	walk(root)
	return strconv.FormatUint(h.Sum64(), 16)
}

// traceDigest folds a trace's visit order into a stable string. Node ids
// participate because layout points carry them as keys; two builds of the
// same tree get fresh ids and therefore fresh cache entries.
func traceDigest(tr *dfstrace.Trace) string {
	if tr == nil {
		return "empty"
	}
	h := xxhash.New()
	for _, n := range tr.Nodes {
		h.WriteString(n.ID)
		h.WriteString("|")
		h.WriteString(n.Element)
		h.WriteString("|")
		h.WriteString(strconv.Itoa(n.Depth))
		h.WriteString("|")
		h.WriteString(n.Parent)
		h.WriteString(";")
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

func clonePoints(points []Point) []Point {
	if points == nil {
		return nil
	}
	out := make([]Point, len(points))
	copy(out, points)
	return out
}
