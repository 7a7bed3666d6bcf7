package reinforcement

import (
	. "citybrains/road_graph"
)

// StateKey identifies a learning state: the agent's node, relative to a goal.
type StateKey struct {
	GoalID string
	Node   RoadNode
}

// QTable maps a state to the estimated value of moving to each neighbor.
// Entries are created on first evaluation and never deleted; a missing entry
// reads as 0. It is not safe for concurrent use.
type QTable struct {
	rows map[StateKey]map[RoadNode]float64
}

func NewQTable() *QTable {
	return &QTable{
		rows: map[StateKey]map[RoadNode]float64{},
	}
}

// Value returns Q(goal, node, action).
func (q *QTable) Value(goalID string, node, action RoadNode) float64 {
	return q.rows[StateKey{GoalID: goalID, Node: node}][action]
}

// Set overwrites Q(goal, node, action).
func (q *QTable) Set(goalID string, node, action RoadNode, val float64) {
	row := q.row(goalID, node)
	row[action] = val
}

// Ensure creates zero entries for any of the actions the state does not have yet.
func (q *QTable) Ensure(goalID string, node RoadNode, actions []Neighbor) {
	row := q.row(goalID, node)
	for _, a := range actions {
		if _, ok := row[a.Node]; !ok {
			row[a.Node] = 0
		}
	}
}

func (q *QTable) row(goalID string, node RoadNode) map[RoadNode]float64 {
	key := StateKey{GoalID: goalID, Node: node}
	row, ok := q.rows[key]
	if !ok {
		row = map[RoadNode]float64{}
		q.rows[key] = row
	}
	return row
}

// MaxValue returns the largest Q(goal, node, a) over the given actions, or 0 if there are none.
func (q *QTable) MaxValue(goalID string, node RoadNode, actions []Neighbor) float64 {
	if len(actions) == 0 {
		return 0
	}
	row := q.rows[StateKey{GoalID: goalID, Node: node}]
	best := row[actions[0].Node]
	for _, a := range actions[1:] {
		if v := row[a.Node]; v > best {
			best = v
		}
	}
	return best
}

// Len returns the number of state-action entries.
func (q *QTable) Len() int {
	n := 0
	for _, row := range q.rows {
		n += len(row)
	}
	return n
}

// States returns the nodes with at least one entry for the goal, row by row.
func (q *QTable) States(goalID string) []RoadNode {
	nodes := []RoadNode{}
	for key := range q.rows {
		if key.GoalID == goalID {
			nodes = append(nodes, key.Node)
		}
	}
	SortNodes(nodes)
	return nodes
}

// Snapshot deep copies every row of the goal.
func (q *QTable) Snapshot(goalID string) map[RoadNode]map[RoadNode]float64 {
	snap := map[RoadNode]map[RoadNode]float64{}
	for key, row := range q.rows {
		if key.GoalID != goalID {
			continue
		}
		cp := make(map[RoadNode]float64, len(row))
		for action, v := range row {
			cp[action] = v
		}
		snap[key.Node] = cp
	}
	return snap
}

// argmax returns the best action of a row, scanning actions in row-by-row
// order so that ties resolve the same way every time.
func argmax(row map[RoadNode]float64) (best RoadNode, bestVal float64, ok bool) {
	actions := make([]RoadNode, 0, len(row))
	for a := range row {
		actions = append(actions, a)
	}
	SortNodes(actions)
	for i, a := range actions {
		if v := row[a]; i == 0 || v > bestVal {
			best, bestVal, ok = a, v, true
		}
	}
	return
}
