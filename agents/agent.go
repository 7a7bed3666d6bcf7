// agents moves walkers and cars over the road graph, one hop at a time, as
// directed by their brains.
package agents

import (
	"log"

	"citybrains/brains"
	. "citybrains/road_graph"
)

type Kind string

const (
	Walker Kind = "walker"
	Car    Kind = "car"
)

// Default speeds, in cells per second.
const (
	WalkerSpeed = 1.5
	CarSpeed    = 3.0
)

// Agent is the movement driver of one brain. When idle on a node it asks the
// brain for the next node, interpolates toward it over several updates, and
// reports the arrival to the brain exactly once.
type Agent struct {
	ID   string
	Kind Kind

	graph    *RoadGraph
	resolver brains.GoalResolver
	brain    brains.Brain
	logger   *log.Logger
	mission  *Mission

	current  RoadNode
	target   RoadNode
	moving   bool
	progress float64
	speed    float64

	goalID      string
	deferred    string
	hasDeferred bool

	hops     int
	rejected int
}

// NewAgent places an agent on start. A nil logger logs to stderr.
func NewAgent(
	id string,
	kind Kind,
	graph *RoadGraph,
	resolver brains.GoalResolver,
	brain brains.Brain,
	start RoadNode,
	speed float64,
	logger *log.Logger,
) *Agent {
	if logger == nil {
		logger = brains.NewLogger("Agent " + id)
	}
	return &Agent{
		ID:       id,
		Kind:     kind,
		graph:    graph,
		resolver: resolver,
		brain:    brain,
		logger:   logger,
		current:  start,
		speed:    speed,
	}
}

// WithMission makes the agent shuttle between the mission's goals, starting with the first.
func (a *Agent) WithMission(m *Mission) *Agent {
	a.mission = m
	a.SetGoal(m.Current())
	return a
}

// SetGoal hands a new goal to the brain. A moving agent takes it on arrival.
func (a *Agent) SetGoal(goalID string) {
	if a.moving {
		a.deferred, a.hasDeferred = goalID, true
		return
	}
	a.goalID = goalID
	a.brain.SetGoal(goalID, a.current)
}

// Update advances the agent by dt seconds and reports whether it arrived at a node.
// At most one hop completes per update.
func (a *Agent) Update(dt float64) bool {
	if !a.moving {
		next, ok := a.brain.ChooseNextRoad(a.current)
		if !ok {
			// Already standing on the goal, e.g. spawned there.
			if a.mission != nil && a.AtGoal() {
				a.SetGoal(a.mission.Advance())
			}
			return false
		}
		if !a.graph.IsAdjacent(a.current, next) {
			a.rejected++
			a.logger.Printf("rejected hop %v -> %v: not adjacent", a.current, next)
			return false
		}
		a.target = next
		a.moving = true
		a.progress = 0
	}

	a.progress += a.speed * dt
	if a.progress < 1 {
		return false
	}

	prev := a.current
	a.current = a.target
	a.moving = false
	a.progress = 0
	a.hops++

	atGoal := a.AtGoal()
	a.brain.OnNodeArrived(prev, a.current, brains.ArrivalInfo{
		GoalID: a.goalID,
		IsGoal: atGoal,
	})

	switch {
	case a.hasDeferred:
		a.hasDeferred = false
		a.SetGoal(a.deferred)
	case atGoal && a.mission != nil:
		a.SetGoal(a.mission.Advance())
	}
	return true
}

// AtGoal reports whether the agent stands on the entrance of its goal.
func (a *Agent) AtGoal() bool {
	if a.moving || a.goalID == "" {
		return false
	}
	goal, ok := a.resolver.Resolve(a.goalID)
	return ok && goal == a.current
}

// Position returns the interpolated grid position.
func (a *Agent) Position() (x, z float64) {
	x, z = float64(a.current.GridX), float64(a.current.GridZ)
	if a.moving {
		x += (float64(a.target.GridX) - x) * a.progress
		z += (float64(a.target.GridZ) - z) * a.progress
	}
	return
}

func (a *Agent) Node() RoadNode { return a.current }

func (a *Agent) GoalID() string { return a.goalID }

func (a *Agent) Brain() brains.Brain { return a.brain }

func (a *Agent) Hops() int { return a.hops }

// RejectedHops counts next hops the brain proposed that were not adjacent.
func (a *Agent) RejectedHops() int { return a.rejected }

func (a *Agent) Mission() *Mission { return a.mission }

// AgentState is a read-only view of an agent for snapshots.
type AgentState struct {
	ID     string           `json:"id"`
	Kind   Kind             `json:"kind"`
	Node   RoadNode         `json:"node"`
	Target *RoadNode        `json:"target,omitempty"`
	X      float64          `json:"x"`
	Z      float64          `json:"z"`
	GoalID string           `json:"goalId"`
	Hops   int              `json:"hops"`
	Trips  map[string]int   `json:"trips,omitempty"`
	Brain  brains.DebugInfo `json:"brain"`
}

func (a *Agent) State() AgentState {
	x, z := a.Position()
	state := AgentState{
		ID:     a.ID,
		Kind:   a.Kind,
		Node:   a.current,
		X:      x,
		Z:      z,
		GoalID: a.goalID,
		Hops:   a.hops,
		Brain:  a.brain.DebugInfo(),
	}
	if a.moving {
		target := a.target
		state.Target = &target
	}
	if a.mission != nil {
		state.Trips = a.mission.Trips()
	}
	return state
}
