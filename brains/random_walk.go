package brains

import (
	"math/rand"

	. "citybrains/road_graph"
)

// RandomWalkBrain wanders: at each node it picks a random neighbor, never the
// node it just came from unless that is the only way out. Goals are recorded
// for debug output but otherwise ignored.
type RandomWalkBrain struct {
	graph   *RoadGraph
	rng     *rand.Rand
	goalID  string
	prev    RoadNode
	hasPrev bool
	moves   int
}

func NewRandomWalkBrain(graph *RoadGraph, seed int64) *RandomWalkBrain {
	return &RandomWalkBrain{
		graph: graph,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (b *RandomWalkBrain) SetGoal(goalID string, start RoadNode) {
	b.goalID = goalID
	b.hasPrev = false
}

func (b *RandomWalkBrain) ChooseNextRoad(current RoadNode) (RoadNode, bool) {
	neighbors := b.graph.Neighbors(current)
	if len(neighbors) == 0 {
		return RoadNode{}, false
	}

	options := make([]RoadNode, 0, len(neighbors))
	for _, nb := range neighbors {
		if b.hasPrev && nb.Node == b.prev && len(neighbors) > 1 {
			continue
		}
		options = append(options, nb.Node)
	}

	next := options[b.rng.Intn(len(options))]
	b.prev = current
	b.hasPrev = true
	b.moves++
	return next, true
}

func (b *RandomWalkBrain) OnNodeArrived(prev, next RoadNode, info ArrivalInfo) {}

type RandomWalkDebug struct {
	Moves int `json:"moves"`
}

func (b *RandomWalkBrain) DebugInfo() DebugInfo {
	return DebugInfo{
		Kind:   "random_walk",
		GoalID: b.goalID,
		Detail: RandomWalkDebug{Moves: b.moves},
	}
}
