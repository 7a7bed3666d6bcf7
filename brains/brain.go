package brains

import (
	"log"
	"os"

	. "citybrains/road_graph"
)

// GoalResolver maps a goal id to the road cell an agent must reach to get there.
// *road_graph.City satisfies it.
type GoalResolver interface {
	Resolve(goalID string) (RoadNode, bool)
}

// ArrivalInfo describes a completed hop, as reported by the driver.
// Reward is only honoured when HasReward is set; otherwise learning brains
// compute their own.
type ArrivalInfo struct {
	GoalID    string
	IsGoal    bool
	Reward    float64
	HasReward bool
}

// DebugInfo is a read-only snapshot of a brain for overlays and the debug endpoint.
// Detail is brain specific.
type DebugInfo struct {
	Kind   string `json:"kind"`
	GoalID string `json:"goalId"`
	Detail any    `json:"detail,omitempty"`
}

// Brain is a pluggable strategy for choosing an agent's next road cell.
//
// The driver calls ChooseNextRoad when its agent is idle on a node, moves the
// agent to the returned node, and then calls OnNodeArrived exactly once for that
// hop. Brains that do not learn may ignore OnNodeArrived.
type Brain interface {
	// SetGoal points the brain at a new goal, with the agent currently at start.
	SetGoal(goalID string, start RoadNode)
	// ChooseNextRoad returns the next road cell to move to, or false if the
	// brain has nowhere to go (no goal, no path, arrived, or no legal move).
	ChooseNextRoad(current RoadNode) (RoadNode, bool)
	OnNodeArrived(prev, next RoadNode, info ArrivalInfo)
	DebugInfo() DebugInfo
}

// NewLogger returns a stderr logger whose lines begin with "[component] ".
func NewLogger(component string) *log.Logger {
	return log.New(os.Stderr, "["+component+"] ", log.LstdFlags)
}
