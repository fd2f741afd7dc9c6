// Package layout assigns screen coordinates to recipe trees and DFS traces.
// Both layouts are pure functions of their input: the same nodes in the same
// order always land on identical coordinates.
package layout

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/alchviz/alchviz/dfstrace"
	"github.com/alchviz/alchviz/tree"
)

// Config holds the viewport and spacing parameters of a layout run.
type Config struct {
	Width      float64
	Height     float64
	MarginX    float64
	MarginY    float64
	MinSpacing float64
	BaseRadius float64
}

// DefaultConfig is sized for the standard visualization canvas.
func DefaultConfig() Config {
	return Config{
		Width:      1200,
		Height:     800,
		MarginX:    60,
		MarginY:    50,
		MinSpacing: 90,
		BaseRadius: 28,
	}
}

// Point is a positioned node: a recipe-tree or trace node augmented with
// screen coordinates. Points are derived state, recomputed on every
// relayout, never persisted.
type Point struct {
	Key     string
	Element string
	Depth   int
	Pos     r2.Vec
	Radius  float64
}

// crowdThreshold is the node count above which spacing and radius start to
// shrink to keep large trees legible.
const crowdThreshold = 24

// shrinkFactor decreases monotonically with node count, 1.0 at or below the
// crowding threshold.
func shrinkFactor(nodes int) float64 {
	if nodes <= crowdThreshold {
		return 1
	}
	return math.Sqrt(float64(crowdThreshold) / float64(nodes))
}

// Levels positions a DFS trace: nodes grouped by depth, each level spread
// evenly across the greater of the available width and count×MinSpacing,
// centered on the canvas, with y proportional to depth/maxDepth.
func Levels(tr *dfstrace.Trace, cfg Config) []Point {
	if tr == nil || len(tr.Nodes) == 0 {
		return nil
	}

	maxDepth := tr.MaxDepth()
	byDepth := make(map[int][]*dfstrace.Node)
	for _, n := range tr.Nodes {
		byDepth[n.Depth] = append(byDepth[n.Depth], n)
	}

	shrink := shrinkFactor(len(tr.Nodes))
	radius := cfg.BaseRadius * shrink
	usableHeight := cfg.Height - 2*cfg.MarginY
	centerX := cfg.Width / 2

	points := make([]Point, 0, len(tr.Nodes))
	for _, n := range tr.Nodes {
		level := byDepth[n.Depth]
		idx := indexOf(level, n)

		span := cfg.Width - 2*cfg.MarginX
		if min := float64(len(level)) * cfg.MinSpacing * shrink; min > span {
			span = min
		}
		step := span / float64(len(level))
		x := centerX - span/2 + step*(float64(idx)+0.5)

		y := cfg.MarginY
		if maxDepth > 0 {
			y += usableHeight * float64(n.Depth) / float64(maxDepth)
		} else {
			y += usableHeight / 2
		}

		points = append(points, Point{
			Key:     n.ID,
			Element: n.Element,
			Depth:   n.Depth,
			Pos:     r2.Vec{X: x, Y: y},
			Radius:  radius,
		})
	}
	return points
}

func indexOf(level []*dfstrace.Node, n *dfstrace.Node) int {
	for i, other := range level {
		if other == n {
			return i
		}
	}
	return 0
}

// subtreeGapRatio is how much wider the gap between two sibling subtrees is
// than the gap between plain siblings under one parent.
const subtreeGapRatio = 1.6

// Tree lays out a full recipe tree top-down. Horizontal room is allotted per
// subtree in proportion to its leaf count, siblings that root distinct
// subtrees get extra separation, and the finished layout is recentered on
// the canvas using its bounding box. Point keys are the node's child-index
// path from the root, so repeated elements stay distinct.
func Tree(root *tree.Node, cfg Config) []Point {
	if root == nil || root.Element == "" {
		return nil
	}

	total := root.Size()
	shrink := shrinkFactor(total)
	radius := cfg.BaseRadius * shrink
	spacing := cfg.MinSpacing * shrink
	levelGap := spacing * 1.4

	var points []Point
	var place func(n *tree.Node, key string, depth int, left, right float64)
	place = func(n *tree.Node, key string, depth int, left, right float64) {
		if n == nil || n.Element == "" {
			return
		}
		points = append(points, Point{
			Key:     key,
			Element: n.Element,
			Depth:   depth,
			Pos:     r2.Vec{X: (left + right) / 2, Y: float64(depth) * levelGap},
			Radius:  radius,
		})
		if len(n.Recipes) == 0 {
			return
		}

		// Leaf-weighted spans: a child with a deep subtree claims more of
		// the parent's horizontal room. Children that are subtrees get the
		// wider gap.
		weights := make([]float64, len(n.Recipes))
		var totalWeight float64
		for i, child := range n.Recipes {
			w := float64(leafCount(child))
			if child != nil && !child.IsLeaf() {
				w *= subtreeGapRatio
			}
			weights[i] = w
			totalWeight += w
		}
		if totalWeight == 0 {
			return
		}

		width := right - left
		if min := totalWeight * spacing; min > width {
			// Crowded: widen the span symmetrically around the parent.
			mid := (left + right) / 2
			left = mid - min/2
			right = mid + min/2
			width = min
		}

		cursor := left
		for i, child := range n.Recipes {
			childWidth := width * weights[i] / totalWeight
			place(child, fmt.Sprintf("%s.%d", key, i), depth+1, cursor, cursor+childWidth)
			cursor += childWidth
		}
	}
	place(root, "0", 0, 0, cfg.Width-2*cfg.MarginX)

	return recenter(points, cfg)
}

func leafCount(n *tree.Node) int {
	if n == nil {
		return 0
	}
	if len(n.Recipes) == 0 {
		return 1
	}
	total := 0
	for _, child := range n.Recipes {
		total += leafCount(child)
	}
	return total
}

// recenter translates all points so the bounding box of the layout sits
// centered on the configured canvas.
func recenter(points []Point, cfg Config) []Point {
	if len(points) == 0 {
		return points
	}
	minX, maxX := points[0].Pos.X, points[0].Pos.X
	minY, maxY := points[0].Pos.Y, points[0].Pos.Y
	for _, p := range points[1:] {
		minX = math.Min(minX, p.Pos.X)
		maxX = math.Max(maxX, p.Pos.X)
		minY = math.Min(minY, p.Pos.Y)
		maxY = math.Max(maxY, p.Pos.Y)
	}
	offset := r2.Vec{
		X: cfg.Width/2 - (minX+maxX)/2,
		Y: cfg.Height/2 - (minY+maxY)/2,
	}
	for i := range points {
		points[i].Pos = r2.Add(points[i].Pos, offset)
	}
	return points
}
