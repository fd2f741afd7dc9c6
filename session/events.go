package session

import (
	"fmt"

	"github.com/alchviz/alchviz/bidir"
	"github.com/alchviz/alchviz/dfstrace"
	"github.com/alchviz/alchviz/layout"
	"github.com/alchviz/alchviz/tree"
)

// Algorithms the backend implements.
const (
	AlgorithmBFS           = "bfs"
	AlgorithmDFS           = "dfs"
	AlgorithmBidirectional = "bidirectional"
)

// Search modes.
const (
	ModeShortest = "shortest"
	ModeMultiple = "multiple"
)

// Request is the search request sent to the backend once per session,
// immediately after the connection is established.
type Request struct {
	Target    string `json:"target"`
	Algorithm string `json:"algorithm"`
	Mode      string `json:"mode"`
	Limit     int    `json:"limit,omitempty"`
}

// Validate rejects requests the backend would bounce anyway.
func (r Request) Validate() error {
	if r.Target == "" {
		return fmt.Errorf("request target is empty")
	}
	switch r.Algorithm {
	case AlgorithmBFS, AlgorithmDFS, AlgorithmBidirectional:
	default:
		return fmt.Errorf("unknown algorithm %q", r.Algorithm)
	}
	switch r.Mode {
	case ModeShortest, ModeMultiple:
	default:
		return fmt.Errorf("unknown mode %q", r.Mode)
	}
	return nil
}

// Status of a search session.
type Status int

const (
	// StatusRunning means the session is open and progress is streaming in.
	StatusRunning Status = iota
	// StatusDone means a result arrived with at least one recipe.
	StatusDone
	// StatusNoPath means a syntactically valid result arrived with zero
	// recipes. Not an error.
	StatusNoPath
	// StatusFailed means the backend reported an error or the transport
	// broke. No further messages are processed.
	StatusFailed
	// StatusClosed means the session was torn down locally, either by a
	// new search or an orderly close. Derived state is frozen as-is.
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusNoPath:
		return "no path found"
	case StatusFailed:
		return "failed"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session will never produce another snapshot.
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// Snapshot is the complete derived state of a session at one point in time.
// Every inbound message and every recipe navigation produces a brand-new
// Snapshot; nothing in it is ever patched in place, so a consumer can hold
// one without seeing it change underneath.
type Snapshot struct {
	SessionID string
	Request   Request
	Status    Status
	Err       string
	Stats     tree.Stats

	// Trees are the recipe trees of the latest message; ActiveRecipe picks
	// which one the derived state below was built from.
	Trees        []*tree.Node
	ActiveRecipe int
	RecipeCount  int

	// Derived state, rebuilt from scratch for the active tree.
	Recipes []tree.Recipe
	Bidir   *bidir.State
	Trace   *dfstrace.Trace
	Points  []layout.Point

	// Step is the backend's incremental DFS node update, when the latest
	// progress message carried one. Advisory, for highlight animation only.
	Step *tree.DFSStep
}

// ActiveTree returns the tree the snapshot's derived state was built from,
// or nil when the session has none yet.
func (s *Snapshot) ActiveTree() *tree.Node {
	if s.ActiveRecipe < 0 || s.ActiveRecipe >= len(s.Trees) {
		return nil
	}
	return s.Trees[s.ActiveRecipe]
}
