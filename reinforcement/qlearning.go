package reinforcement

import (
	"log"
	"math/rand"

	"citybrains/brains"
	"citybrains/planner"
	. "citybrains/road_graph"
)

// Transition is the last action chosen by a QLearningBrain, awaiting its arrival report.
type Transition struct {
	From   RoadNode  `json:"from"`
	To     RoadNode  `json:"to"`
	GoalID string    `json:"goalId"`
	Action Direction `json:"action"`
}

// QLearningBrain learns to reach goals by one-step tabular Q-learning.
//
// The state is (goal, node), and the actions of a state are its neighbors.
// Actions are chosen epsilon-greedily, and each reported arrival updates the
// value of the action that led to it. Episodes end at the goal or after a
// fixed number of steps; the table outlives goals and episodes.
//
// A brain is driven by a single agent and is not safe for concurrent use.
type QLearningBrain struct {
	graph    *RoadGraph
	resolver brains.GoalResolver
	cfg      QLearningConfig
	logger   *log.Logger
	rng      *rand.Rand

	table *QTable
	// BFS distances to each goal node, for reward shaping.
	distances map[RoadNode]map[RoadNode]int

	goalID   string
	goalNode RoadNode
	hasGoal  bool

	epsilon       float64
	episode       int
	episodeSteps  int
	episodeReward float64
	totalSteps    int
	lastReward    float64
	history       *EpisodeHistory

	// At most one transition is outstanding.
	pending *Transition
	dropped int

	observers []func(EpisodeRecord)
}

// NewQLearningBrain returns a brain with an empty table. A nil logger logs to stderr.
func NewQLearningBrain(
	graph *RoadGraph,
	resolver brains.GoalResolver,
	cfg QLearningConfig,
	logger *log.Logger,
) *QLearningBrain {
	if logger == nil {
		logger = brains.NewLogger("QLearningBrain")
	}
	return &QLearningBrain{
		graph:     graph,
		resolver:  resolver,
		cfg:       cfg,
		logger:    logger,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		table:     NewQTable(),
		distances: map[RoadNode]map[RoadNode]int{},
		epsilon:   cfg.Epsilon,
		history:   NewEpisodeHistory(cfg.MaxEpisodeStats),
	}
}

// OnEpisodeEnd registers fn to be called with every finished episode.
func (b *QLearningBrain) OnEpisodeEnd(fn func(EpisodeRecord)) {
	b.observers = append(b.observers, fn)
}

// SetGoal starts a new episode toward goalID. Any pending transition is
// discarded; the table is kept.
func (b *QLearningBrain) SetGoal(goalID string, start RoadNode) {
	b.pending = nil
	b.resetEpisode()
	b.goalID = goalID

	node, ok := b.resolver.Resolve(goalID)
	if !ok {
		b.hasGoal = false
		b.logger.Printf("unknown or unreachable goal %q", goalID)
		return
	}
	b.goalNode = node
	b.hasGoal = true
	if _, ok := b.distances[node]; !ok {
		b.distances[node] = planner.Distances(b.graph, node)
	}
}

func (b *QLearningBrain) resetEpisode() {
	b.episodeSteps = 0
	b.episodeReward = 0
}

// actions returns the neighbors of node, restricted to the exploration bounds
// when the brain has them. A node whose neighbors all lie outside the bounds
// keeps all of them, so an agent that starts outside can still move.
func (b *QLearningBrain) actions(node RoadNode) []Neighbor {
	neighbors := b.graph.Neighbors(node)
	if b.cfg.Bounds == nil {
		return neighbors
	}
	inside := make([]Neighbor, 0, len(neighbors))
	for _, nb := range neighbors {
		if b.cfg.Bounds.Contains(nb.Node) {
			inside = append(inside, nb)
		}
	}
	if len(inside) == 0 {
		return neighbors
	}
	return inside
}

// ChooseNextRoad picks the next node epsilon-greedily and records it as the
// pending transition. It returns false without a goal or without legal moves.
func (b *QLearningBrain) ChooseNextRoad(current RoadNode) (RoadNode, bool) {
	if !b.hasGoal {
		return RoadNode{}, false
	}
	if b.pending != nil {
		b.drop("new action requested from %v before arrival at %v was reported", current, b.pending.To)
	}

	actions := b.actions(current)
	if len(actions) == 0 {
		return RoadNode{}, false
	}
	b.table.Ensure(b.goalID, current, actions)

	var choice Neighbor
	if b.rng.Float64() < b.epsilon {
		// Explore
		choice = actions[b.rng.Intn(len(actions))]
	} else {
		choice = b.greedy(current, actions)
	}

	b.pending = &Transition{
		From:   current,
		To:     choice.Node,
		GoalID: b.goalID,
		Action: choice.Dir,
	}
	b.totalSteps++
	return choice.Node, true
}

// greedy returns a max-valued action, choosing uniformly among ties.
func (b *QLearningBrain) greedy(node RoadNode, actions []Neighbor) Neighbor {
	choice := actions[0]
	best := b.table.Value(b.goalID, node, choice.Node)
	ties := 1
	for _, a := range actions[1:] {
		v := b.table.Value(b.goalID, node, a.Node)
		switch {
		case v > best:
			best, choice, ties = v, a, 1
		case v == best:
			ties++
			if b.rng.Intn(ties) == 0 {
				choice = a
			}
		}
	}
	return choice
}

func (b *QLearningBrain) drop(format string, args ...any) {
	b.dropped++
	b.pending = nil
	b.logger.Printf("dropping transition: "+format, args...)
}

// Reward is the shaped reward of a step from prev to next: the step cost,
// plus ShapingWeight times the reduction in BFS distance to the goal, plus
// GoalReward when next is the goal. The shaping term is 0 if either node
// cannot reach the goal.
func (b *QLearningBrain) Reward(prev, next RoadNode, isGoal bool) float64 {
	reward := b.cfg.StepCost
	dist := b.distances[b.goalNode]
	dPrev, okPrev := dist[prev]
	dNext, okNext := dist[next]
	if okPrev && okNext {
		reward += b.cfg.ShapingWeight * float64(dPrev-dNext)
	}
	if isGoal {
		reward += b.cfg.GoalReward
	}
	return reward
}

// OnNodeArrived applies the temporal-difference update for the pending
// transition. An arrival that does not match it is dropped without an update.
func (b *QLearningBrain) OnNodeArrived(prev, next RoadNode, info brains.ArrivalInfo) {
	t := b.pending
	switch {
	case t == nil:
		b.logger.Printf("arrival %v -> %v without a pending transition", prev, next)
		return
	case t.From != prev || t.To != next || t.GoalID != b.goalID:
		b.drop("arrival %v -> %v does not match %v -> %v", prev, next, t.From, t.To)
		return
	}
	b.pending = nil

	isGoal := next == b.goalNode || (info.IsGoal && (info.GoalID == "" || info.GoalID == b.goalID))
	reward := info.Reward
	if !info.HasReward {
		reward = b.Reward(prev, next, isGoal)
	}

	target := reward
	if !isGoal {
		target += b.cfg.Gamma * b.table.MaxValue(b.goalID, next, b.actions(next))
	}
	q := b.table.Value(b.goalID, prev, next)
	b.table.Set(b.goalID, prev, next, q+b.cfg.Alpha*(target-q))

	b.episodeSteps++
	b.episodeReward += reward
	b.lastReward = reward

	switch {
	case isGoal:
		b.endEpisode(GoalReached)
	case b.episodeSteps >= b.cfg.MaxEpisodeSteps:
		b.endEpisode(Timeout)
	}
}

// endEpisode records the episode, decays epsilon and restarts the counters for the same goal.
func (b *QLearningBrain) endEpisode(reason TerminalReason) {
	rec := EpisodeRecord{
		Episode:     b.episode,
		Steps:       b.episodeSteps,
		TotalReward: b.episodeReward,
		GoalID:      b.goalID,
		Reason:      reason,
	}
	b.history.Add(rec)
	// The floor only bounds the decay. An epsilon set below it stays put.
	if b.epsilon > b.cfg.EpsilonMin {
		b.epsilon = max(b.cfg.EpsilonMin, b.epsilon*b.cfg.EpsilonDecay)
	}
	b.episode++
	b.resetEpisode()
	for _, fn := range b.observers {
		fn(rec)
	}
}

// GreedyAction returns the best known move from node toward the current goal,
// without exploring and without recording a transition. Ties resolve to the
// first action in neighbor order.
func (b *QLearningBrain) GreedyAction(node RoadNode) (RoadNode, bool) {
	if !b.hasGoal {
		return RoadNode{}, false
	}
	actions := b.actions(node)
	if len(actions) == 0 {
		return RoadNode{}, false
	}
	choice := actions[0]
	best := b.table.Value(b.goalID, node, choice.Node)
	for _, a := range actions[1:] {
		if v := b.table.Value(b.goalID, node, a.Node); v > best {
			best, choice = v, a
		}
	}
	return choice.Node, true
}

// PolicyEntry is the greedy action of one visited state.
type PolicyEntry struct {
	Node       RoadNode  `json:"node"`
	BestAction RoadNode  `json:"bestAction"`
	BestDir    Direction `json:"bestDir"`
	BestValue  float64   `json:"bestValue"`
}

// GetPolicySnapshot returns the argmax action of every visited state for the goal, row by row.
func (b *QLearningBrain) GetPolicySnapshot(goalID string) []PolicyEntry {
	entries := []PolicyEntry{}
	for _, node := range b.table.States(goalID) {
		action, val, ok := argmax(b.table.rows[StateKey{GoalID: goalID, Node: node}])
		if !ok {
			continue
		}
		dir, _ := DirectionTo(node, action)
		entries = append(entries, PolicyEntry{
			Node:       node,
			BestAction: action,
			BestDir:    dir,
			BestValue:  val,
		})
	}
	return entries
}

// QSnapshot deep copies the table rows of a goal.
func (b *QLearningBrain) QSnapshot(goalID string) map[RoadNode]map[RoadNode]float64 {
	return b.table.Snapshot(goalID)
}

func (b *QLearningBrain) GoalID() string { return b.goalID }

func (b *QLearningBrain) Epsilon() float64 { return b.epsilon }

// Episode returns the number of finished episodes.
func (b *QLearningBrain) Episode() int { return b.episode }

func (b *QLearningBrain) TotalSteps() int { return b.totalSteps }

func (b *QLearningBrain) DroppedTransitions() int { return b.dropped }

// SetEpsilon overrides the exploration probability, e.g. to evaluate the greedy policy.
func (b *QLearningBrain) SetEpsilon(eps float64) {
	b.epsilon = eps
}

// History returns the retained episode records, oldest first.
func (b *QLearningBrain) History() []EpisodeRecord {
	return b.history.Records()
}

// QLearningDebug is the Detail of a QLearningBrain's DebugInfo.
type QLearningDebug struct {
	Episode            int             `json:"episode"`
	EpisodeSteps       int             `json:"episodeSteps"`
	EpisodeReward      float64         `json:"episodeReward"`
	TotalSteps         int             `json:"totalSteps"`
	Epsilon            float64         `json:"epsilon"`
	TableSize          int             `json:"tableSize"`
	LastReward         float64         `json:"lastReward"`
	DroppedTransitions int             `json:"droppedTransitions"`
	Pending            *Transition     `json:"pending,omitempty"`
	History            []EpisodeRecord `json:"history"`
}

func (b *QLearningBrain) DebugInfo() brains.DebugInfo {
	var pending *Transition
	if b.pending != nil {
		cp := *b.pending
		pending = &cp
	}
	return brains.DebugInfo{
		Kind:   "q_learning",
		GoalID: b.goalID,
		Detail: QLearningDebug{
			Episode:            b.episode,
			EpisodeSteps:       b.episodeSteps,
			EpisodeReward:      b.episodeReward,
			TotalSteps:         b.totalSteps,
			Epsilon:            b.epsilon,
			TableSize:          b.table.Len(),
			LastReward:         b.lastReward,
			DroppedTransitions: b.dropped,
			Pending:            pending,
			History:            b.History(),
		},
	}
}
