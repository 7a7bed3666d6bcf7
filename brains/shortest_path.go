package brains

import (
	"log"

	"citybrains/planner"
	. "citybrains/road_graph"
)

// PlanState is the state of a ShortestPathBrain.
type PlanState int

const (
	// NoGoal: nothing to follow, either because no goal was set, the goal did
	// not resolve, or no path to it exists.
	NoGoal PlanState = iota
	// Planning is transient, between deciding to (re)plan and having a path.
	Planning
	Following
)

func (s PlanState) String() string {
	switch s {
	case NoGoal:
		return "no_goal"
	case Planning:
		return "planning"
	case Following:
		return "following"
	}
	return "unknown"
}

// ShortestPathBrain follows a BFS path to its goal. It keeps an index into the
// path that is its belief of where the agent is; when the agent reports a
// different node, it replans from there. It does not learn.
type ShortestPathBrain struct {
	graph    *RoadGraph
	resolver GoalResolver
	logger   *log.Logger

	goalID   string
	goalNode RoadNode
	resolved bool

	state   PlanState
	path    planner.Path
	index   int
	replans int
}

// NewShortestPathBrain returns a brain in the NoGoal state. A nil logger logs to stderr.
func NewShortestPathBrain(graph *RoadGraph, resolver GoalResolver, logger *log.Logger) *ShortestPathBrain {
	if logger == nil {
		logger = NewLogger("ShortestPathBrain")
	}
	return &ShortestPathBrain{
		graph:    graph,
		resolver: resolver,
		logger:   logger,
		state:    NoGoal,
	}
}

// SetGoal resolves the goal and plans from start. An unknown goal, or one with
// no path from start, leaves the brain in NoGoal.
func (b *ShortestPathBrain) SetGoal(goalID string, start RoadNode) {
	b.goalID = goalID
	b.path = nil
	b.index = 0
	b.state = NoGoal

	node, ok := b.resolver.Resolve(goalID)
	if !ok {
		b.resolved = false
		b.logger.Printf("unknown or unreachable goal %q", goalID)
		return
	}
	b.goalNode = node
	b.resolved = true

	b.state = Planning
	if !b.plan(start) {
		b.logger.Printf("no path from %v to goal %q at %v", start, goalID, node)
	}
}

// Replan discards the current path and plans again from the given node:
// Following -> Planning -> Following, or NoGoal if no path exists. It returns
// false if there is no resolved goal or no path.
func (b *ShortestPathBrain) Replan(from RoadNode) bool {
	if !b.resolved {
		return false
	}
	b.replans++
	b.state = Planning
	return b.plan(from)
}

func (b *ShortestPathBrain) plan(from RoadNode) bool {
	path, ok := planner.FindPath(b.graph, from, b.goalNode)
	if !ok {
		b.path = nil
		b.index = 0
		b.state = NoGoal
		return false
	}
	b.path = path
	b.index = 0
	b.state = Following
	return true
}

// ChooseNextRoad returns the next node along the path. If current is not where
// the brain believes the agent to be, the brain first replans from current.
// It returns false without a goal or path, and once the agent is at the goal.
func (b *ShortestPathBrain) ChooseNextRoad(current RoadNode) (RoadNode, bool) {
	if b.state == NoGoal {
		return RoadNode{}, false
	}
	if b.index >= len(b.path) || b.path[b.index] != current {
		if !b.Replan(current) {
			b.logger.Printf("lost path to goal %q from %v", b.goalID, current)
			return RoadNode{}, false
		}
	}
	if b.index == len(b.path)-1 {
		return RoadNode{}, false
	}
	b.index++
	return b.path[b.index], true
}

// OnNodeArrived is a no-op; drift is detected in ChooseNextRoad.
func (b *ShortestPathBrain) OnNodeArrived(prev, next RoadNode, info ArrivalInfo) {}

// State returns the planning state.
func (b *ShortestPathBrain) State() PlanState {
	return b.state
}

// Path returns a copy of the current path.
func (b *ShortestPathBrain) Path() planner.Path {
	return append(planner.Path(nil), b.path...)
}

// ShortestPathDebug is the Detail of a ShortestPathBrain's DebugInfo.
type ShortestPathDebug struct {
	State          string     `json:"state"`
	PathLength     int        `json:"pathLength"`
	CurrentIndex   int        `json:"currentIndex"`
	RemainingSteps int        `json:"remainingSteps"`
	Replans        int        `json:"replans"`
	Path           []RoadNode `json:"path"`
}

func (b *ShortestPathBrain) DebugInfo() DebugInfo {
	remaining := 0
	if len(b.path) > 0 {
		remaining = len(b.path) - 1 - b.index
	}
	return DebugInfo{
		Kind:   "shortest_path",
		GoalID: b.goalID,
		Detail: ShortestPathDebug{
			State:          b.state.String(),
			PathLength:     len(b.path),
			CurrentIndex:   b.index,
			RemainingSteps: remaining,
			Replans:        b.replans,
			Path:           b.Path(),
		},
	}
}
