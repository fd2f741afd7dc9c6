package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchviz/alchviz/dfstrace"
	"github.com/alchviz/alchviz/tree"
)

func leaf(element string) *tree.Node {
	return &tree.Node{Element: element}
}

func node(element string, children ...*tree.Node) *tree.Node {
	return &tree.Node{Element: element, Recipes: children}
}

func sampleTree() *tree.Node {
	return node("Brick", node("Mud", leaf("Water"), leaf("Earth")), leaf("Fire"))
}

func TestTreeLayoutIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	root := sampleTree()

	first := Tree(root, cfg)
	second := Tree(root, cfg)

	assert.Equal(t, first, second)
}

func TestLevelsLayoutIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	tr := dfstrace.Build(sampleTree())

	first := Levels(tr, cfg)
	second := Levels(tr, cfg)

	assert.Equal(t, first, second)
}

func TestLevelsGroupsByDepth(t *testing.T) {
	cfg := DefaultConfig()
	tr := dfstrace.Build(sampleTree())

	points := Levels(tr, cfg)
	require.Len(t, points, 5)

	yByDepth := map[int]float64{}
	for _, p := range points {
		if y, ok := yByDepth[p.Depth]; ok {
			assert.Equalf(t, y, p.Pos.Y, "nodes at depth %d on different rows", p.Depth)
		} else {
			yByDepth[p.Depth] = p.Pos.Y
		}
	}
	assert.Less(t, yByDepth[0], yByDepth[1])
	assert.Less(t, yByDepth[1], yByDepth[2])

	// y proportional to depth/maxDepth within the margins.
	usable := cfg.Height - 2*cfg.MarginY
	assert.InDelta(t, cfg.MarginY, yByDepth[0], 1e-9)
	assert.InDelta(t, cfg.MarginY+usable/2, yByDepth[1], 1e-9)
	assert.InDelta(t, cfg.MarginY+usable, yByDepth[2], 1e-9)
}

func TestLevelsEvenSpreadCentered(t *testing.T) {
	cfg := DefaultConfig()
	tr := dfstrace.Build(node("Root", leaf("A"), leaf("B"), leaf("C")))

	points := Levels(tr, cfg)

	var xs []float64
	for _, p := range points {
		if p.Depth == 1 {
			xs = append(xs, p.Pos.X)
		}
	}
	require.Len(t, xs, 3)
	// Evenly stepped and centered: middle node on the canvas center line.
	assert.InDelta(t, xs[1]-xs[0], xs[2]-xs[1], 1e-9)
	assert.InDelta(t, cfg.Width/2, xs[1], 1e-9)
}

func TestLevelsCrowdedRowWidensSpan(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = 200
	cfg.MinSpacing = 90

	children := make([]*tree.Node, 10)
	for i := range children {
		children[i] = leaf(string(rune('A' + i)))
	}
	tr := dfstrace.Build(node("Root", children...))

	points := Levels(tr, cfg)

	minX, maxX := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		if p.Depth == 1 {
			minX = math.Min(minX, p.Pos.X)
			maxX = math.Max(maxX, p.Pos.X)
		}
	}
	// Ten nodes at MinSpacing do not fit in 200px; the row must overflow
	// the canvas rather than collapse onto itself.
	assert.Greater(t, maxX-minX, cfg.Width)
}

func TestShrinkFactorMonotone(t *testing.T) {
	assert.Equal(t, 1.0, shrinkFactor(1))
	assert.Equal(t, 1.0, shrinkFactor(crowdThreshold))

	prev := 1.0
	for _, n := range []int{30, 60, 120, 500} {
		f := shrinkFactor(n)
		assert.Lessf(t, f, prev, "shrink factor not decreasing at %d nodes", n)
		assert.Greater(t, f, 0.0)
		prev = f
	}
}

func TestTreeLayoutShrinksWhenCrowded(t *testing.T) {
	cfg := DefaultConfig()

	small := Tree(sampleTree(), cfg)

	wide := make([]*tree.Node, 40)
	for i := range wide {
		wide[i] = node("Mix", leaf("Water"), leaf("Fire"))
	}
	large := Tree(node("Blob", wide...), cfg)

	require.NotEmpty(t, small)
	require.NotEmpty(t, large)
	assert.Less(t, large[0].Radius, small[0].Radius)
}

func TestTreeLayoutCentersBoundingBox(t *testing.T) {
	cfg := DefaultConfig()

	points := Tree(sampleTree(), cfg)
	require.NotEmpty(t, points)

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.Pos.X)
		maxX = math.Max(maxX, p.Pos.X)
		minY = math.Min(minY, p.Pos.Y)
		maxY = math.Max(maxY, p.Pos.Y)
	}
	assert.InDelta(t, cfg.Width/2, (minX+maxX)/2, 1e-9)
	assert.InDelta(t, cfg.Height/2, (minY+maxY)/2, 1e-9)
}

func TestTreeLayoutDistinctKeysForRepeatedElements(t *testing.T) {
	root := node("Wall",
		node("Mud", leaf("Water"), leaf("Earth")),
		node("Mud", leaf("Water"), leaf("Earth")),
	)

	points := Tree(root, DefaultConfig())

	keys := map[string]bool{}
	for _, p := range points {
		assert.Falsef(t, keys[p.Key], "duplicate key %s", p.Key)
		keys[p.Key] = true
	}
	require.Len(t, points, 7)
}

func TestTreeLayoutSiblingSubtreeSeparation(t *testing.T) {
	// B roots a subtree; A and C are plain leaves. The gap around the
	// subtree child must exceed the plain sibling gap.
	root := node("Root",
		leaf("A"),
		node("B", leaf("X"), leaf("Y")),
		leaf("C"),
	)

	points := Tree(root, DefaultConfig())

	byKey := map[string]Point{}
	for _, p := range points {
		byKey[p.Key] = p
	}
	a, b, c := byKey["0.0"], byKey["0.1"], byKey["0.2"]
	gapAB := b.Pos.X - a.Pos.X
	gapBC := c.Pos.X - b.Pos.X
	assert.Greater(t, gapAB, 0.0)
	assert.Greater(t, gapBC, 0.0)

	// Both gaps adjoin the subtree; compare against what the spacing would
	// be if all three were plain leaves sharing the row evenly.
	plain := Tree(node("Root", leaf("A"), leaf("B"), leaf("C")), DefaultConfig())
	plainByKey := map[string]Point{}
	for _, p := range plain {
		plainByKey[p.Key] = p
	}
	plainGap := plainByKey["0.1"].Pos.X - plainByKey["0.0"].Pos.X
	assert.Greater(t, gapAB, plainGap)
}

func TestEmptyInputs(t *testing.T) {
	assert.Nil(t, Tree(nil, DefaultConfig()))
	assert.Nil(t, Tree(&tree.Node{}, DefaultConfig()))
	assert.Nil(t, Levels(nil, DefaultConfig()))
	assert.Nil(t, Levels(&dfstrace.Trace{}, DefaultConfig()))
}
