// planner computes unweighted shortest paths over the road graph.
package planner

import (
	. "citybrains/road_graph"
)

// Path is an ordered sequence of road nodes from a start to a goal, both
// included. A path from a node to itself has a single element.
// Paths are replaced wholesale, never edited in place.
type Path []RoadNode

// Steps returns the number of moves along the path.
func (p Path) Steps() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Last returns the final node of the path.
func (p Path) Last() (RoadNode, bool) {
	if len(p) == 0 {
		return RoadNode{}, false
	}
	return p[len(p)-1], true
}

// FindPath runs a breadth-first search from start to goal and returns the
// shortest path, or false if either endpoint is not a road or no path exists.
// Among equally short paths the one returned depends only on the order in which
// the graph enumerates neighbors; callers must not rely on which one it is.
func FindPath(graph *RoadGraph, start, goal RoadNode) (Path, bool) {
	if !graph.HasRoad(start) {
		return nil, false
	}
	if !graph.HasRoad(goal) {
		return nil, false
	}

	parent := map[RoadNode]RoadNode{}
	visited := map[RoadNode]struct{}{start: {}}
	queue := []RoadNode{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current == goal {
			return reconstruct(parent, start, goal), true
		}

		for _, nb := range graph.Neighbors(current) {
			if _, seen := visited[nb.Node]; seen {
				continue
			}
			visited[nb.Node] = struct{}{}
			parent[nb.Node] = current
			queue = append(queue, nb.Node)
		}
	}

	return nil, false
}

// Walk the parent pointers back from goal, then reverse.
func reconstruct(parent map[RoadNode]RoadNode, start, goal RoadNode) Path {
	path := Path{goal}
	for node := goal; node != start; {
		node = parent[node]
		path = append(path, node)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Distances returns the number of moves from every node that can reach goal
// to goal. Nodes that cannot reach it are absent. Links are undirected, so this
// is a single BFS outward from the goal.
func Distances(graph *RoadGraph, goal RoadNode) map[RoadNode]int {
	dist := map[RoadNode]int{}
	if !graph.HasRoad(goal) {
		return dist
	}

	dist[goal] = 0
	queue := []RoadNode{goal}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, nb := range graph.Neighbors(current) {
			if _, seen := dist[nb.Node]; seen {
				continue
			}
			dist[nb.Node] = dist[current] + 1
			queue = append(queue, nb.Node)
		}
	}
	return dist
}
