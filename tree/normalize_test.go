package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func decode(t *testing.T, raw string) *Payload {
	t.Helper()
	p, err := DecodeMessage([]byte(raw), zaptest.NewLogger(t))
	require.NoError(t, err)
	return p
}

func TestDecodeProgressWithBareTree(t *testing.T) {
	p := decode(t, `{
		"type": "progress",
		"element": "Brick",
		"path": {"element": "Brick", "recipes": [
			{"element": "Mud", "recipes": []},
			{"element": "Fire", "recipes": []}
		]},
		"complete": false,
		"stats": {"nodeCount": 12, "stepCount": 7, "elapsedTimeMs": 34.5}
	}`)

	assert.Equal(t, KindProgress, p.Kind)
	assert.Equal(t, "Brick", p.Element)
	assert.Equal(t, 12, p.Stats.NodeCount)
	assert.Equal(t, 34.5, p.Stats.ElapsedTimeMs)
	require.Len(t, p.Trees, 1)
	assert.Equal(t, "Brick", p.Trees[0].Element)
	assert.Equal(t, []string{"Mud", "Fire"}, p.Trees[0].Ingredients())
	assert.False(t, p.HasVisited)
}

func TestDecodeResultWithRecipeList(t *testing.T) {
	p := decode(t, `{
		"type": "result",
		"element": "Mud",
		"path": {
			"element": "Mud",
			"recipeCount": 2,
			"recipes": [
				{"element": "Mud", "recipes": [{"element":"Water","recipes":[]},{"element":"Earth","recipes":[]}]},
				{"element": "Mud", "recipes": [{"element":"Rain","recipes":[]},{"element":"Earth","recipes":[]}]}
			]
		},
		"complete": true
	}`)

	assert.Equal(t, KindResult, p.Kind)
	assert.Equal(t, 2, p.RecipeCount)
	require.Len(t, p.Trees, 2)
	assert.Equal(t, []string{"Water", "Earth"}, p.Trees[0].Ingredients())
	assert.False(t, p.NoRecipes())
}

func TestDecodeResultDedupsEquivalentRecipes(t *testing.T) {
	// Multiple mode returned the same recipe twice, children swapped. Only
	// the first variant is navigable and the count follows.
	p := decode(t, `{
		"type": "result",
		"element": "Mud",
		"path": {
			"element": "Mud",
			"recipeCount": 3,
			"recipes": [
				{"element": "Mud", "recipes": [{"element":"Water","recipes":[]},{"element":"Earth","recipes":[]}]},
				{"element": "Mud", "recipes": [{"element":"Earth","recipes":[]},{"element":"Water","recipes":[]}]},
				{"element": "Mud", "recipes": [{"element":"Rain","recipes":[]},{"element":"Earth","recipes":[]}]}
			]
		},
		"complete": true
	}`)

	require.Len(t, p.Trees, 2)
	assert.Equal(t, 2, p.RecipeCount)
	assert.Equal(t, []string{"Water", "Earth"}, p.Trees[0].Ingredients())
	assert.Equal(t, []string{"Rain", "Earth"}, p.Trees[1].Ingredients())
}

func TestDecodeBidirectionalCasingVariants(t *testing.T) {
	lower := `{
		"type": "result", "element": "Wood",
		"path": {
			"element": "Wood", "recipeCount": 1,
			"recipes": [{"element":"Wood","recipes":[{"element":"Water","recipes":[]},{"element":"Earth","recipes":[]}]}],
			"forwardVisited": {"Water": {}, "Wood": {"recipe": ["Water","Earth"]}},
			"backwardVisited": {"Wood": {}},
			"meetingPoints": ["Wood"]
		}
	}`
	upper := `{
		"type": "result", "element": "Wood",
		"path": {
			"element": "Wood", "recipeCount": 1,
			"recipes": [{"element":"Wood","recipes":[{"element":"Water","recipes":[]},{"element":"Earth","recipes":[]}]}],
			"ForwardVisited": {"Water": {}, "Wood": {"Recipe": ["Water","Earth"]}},
			"BackwardVisited": {"Wood": {}},
			"MeetingPoints": ["Wood"]
		}
	}`

	for name, raw := range map[string]string{"lower": lower, "upper": upper} {
		t.Run(name, func(t *testing.T) {
			p := decode(t, raw)
			require.True(t, p.HasVisited)
			assert.Equal(t, []string{"Water", "Earth"}, p.Forward["Wood"])
			assert.Contains(t, p.Forward, "Water")
			assert.Contains(t, p.Backward, "Wood")
			assert.Equal(t, []string{"Wood"}, p.MeetingPoints)
		})
	}
}

func TestDecodeErrorInPath(t *testing.T) {
	p := decode(t, `{"type": "error", "path": {"error": "element not found"}}`)

	assert.Equal(t, KindError, p.Kind)
	assert.Equal(t, "element not found", p.Err)
}

func TestDecodeErrorTopLevelMessage(t *testing.T) {
	p := decode(t, `{"type": "error", "message": "backend overloaded"}`)

	assert.Equal(t, KindError, p.Kind)
	assert.Equal(t, "backend overloaded", p.Err)
}

func TestDecodeErrorWithoutText(t *testing.T) {
	p := decode(t, `{"type": "error"}`)

	assert.Equal(t, KindError, p.Kind)
	assert.NotEmpty(t, p.Err)
}

func TestDecodePrunesMalformedNodes(t *testing.T) {
	p := decode(t, `{
		"type": "progress", "element": "Brick",
		"path": {"element": "Brick", "recipes": [
			{"recipes": [{"element":"Ghost","recipes":[]}]},
			{"element": "Fire", "recipes": []}
		]}
	}`)

	require.Len(t, p.Trees, 1)
	// The nameless node is gone along with its subtree; its sibling stays.
	assert.Equal(t, []string{"Fire"}, p.Trees[0].Ingredients())
}

func TestDecodeDFSNodeUpdate(t *testing.T) {
	p := decode(t, `{
		"type": "progress", "element": "Mud",
		"node": {"element": "Earth", "depth": 1, "parent": "Mud"}
	}`)

	require.NotNil(t, p.Step)
	assert.Equal(t, "Earth", p.Step.Element)
	assert.Equal(t, 1, p.Step.Depth)
	assert.Equal(t, "Mud", p.Step.Parent)
}

func TestDecodeEmptyResultIsNoRecipes(t *testing.T) {
	p := decode(t, `{
		"type": "result", "element": "Philosopher Stone",
		"path": {"element": "Philosopher Stone", "recipeCount": 0, "recipes": []}
	}`)

	assert.Equal(t, KindResult, p.Kind)
	assert.True(t, p.NoRecipes())
	assert.Empty(t, p.Trees)
}

func TestDecodeLeafOnlyResultIsNoRecipes(t *testing.T) {
	p := decode(t, `{
		"type": "result", "element": "Water",
		"path": {"element": "Water", "recipes": []}
	}`)

	assert.True(t, p.NoRecipes())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeMessage([]byte("not json"), nil)
	assert.Error(t, err)
}
