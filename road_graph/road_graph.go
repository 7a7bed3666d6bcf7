package road_graph

import (
	"fmt"
	"sort"
)

// RoadNode is a street cell identified by its grid coordinates. It is a plain
// value and is used directly as a map key.
type RoadNode struct {
	GridX int `json:"gridX"`
	GridZ int `json:"gridZ"`
}

func (n RoadNode) String() string {
	return fmt.Sprintf("(%d,%d)", n.GridX, n.GridZ)
}

// Manhattan returns the grid distance between two nodes, ignoring roads.
func (n RoadNode) Manhattan(other RoadNode) int {
	return abs(n.GridX-other.GridX) + abs(n.GridZ-other.GridZ)
}

// Direction labels a unit step along one grid axis. Z grows to the south.
type Direction int

const (
	East Direction = iota
	West
	South
	North
)

func (d Direction) String() string {
	switch d {
	case East:
		return "east"
	case West:
		return "west"
	case South:
		return "south"
	case North:
		return "north"
	}
	return "unknown"
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	for _, dir := range []Direction{East, West, South, North} {
		if string(text) == dir.String() {
			*d = dir
			return nil
		}
	}
	return fmt.Errorf("unknown direction %q", text)
}

// Arrow returns a console rune for the direction.
func (d Direction) Arrow() rune {
	switch d {
	case East:
		return '>'
	case West:
		return '<'
	case South:
		return 'v'
	case North:
		return '^'
	}
	return '?'
}

// The enumeration order of neighbors. Anything that iterates neighbors
// (BFS, greedy action selection) inherits this order.
var steps = [...]struct {
	dx, dz int
	dir    Direction
}{
	{1, 0, East},
	{-1, 0, West},
	{0, 1, South},
	{0, -1, North},
}

// Neighbor is an adjacent road cell and the direction taken to reach it.
type Neighbor struct {
	Node RoadNode
	Dir  Direction
}

// RoadInfo is the metadata stored per road cell.
type RoadInfo struct {
	IsIntersection bool
}

// link is an unordered pair of adjacent cells, normalized so that a <= b.
type link struct {
	a, b RoadNode
}

func newLink(a, b RoadNode) link {
	if b.GridX < a.GridX || (b.GridX == a.GridX && b.GridZ < a.GridZ) {
		a, b = b, a
	}
	return link{a: a, b: b}
}

// RoadGraph is the static street topology. A cell is traversable iff it was
// added with AddRoad. Two road cells one step apart are connected unless the
// link between them was closed.
// The graph is mutated only while a city is being built, and is read-only
// (and safe to share between goroutines) afterward.
type RoadGraph struct {
	roads  map[RoadNode]RoadInfo
	closed map[link]struct{}
	width  int
	depth  int
}

// NewRoadGraph returns an empty graph.
func NewRoadGraph() *RoadGraph {
	return &RoadGraph{
		roads:  map[RoadNode]RoadInfo{},
		closed: map[link]struct{}{},
	}
}

// AddRoad registers a street cell.
func (g *RoadGraph) AddRoad(node RoadNode, info RoadInfo) {
	g.roads[node] = info
	if node.GridX+1 > g.width {
		g.width = node.GridX + 1
	}
	if node.GridZ+1 > g.depth {
		g.depth = node.GridZ + 1
	}
}

// CloseLink removes the adjacency between two neighboring cells, in both directions.
// Closing a link between cells that are not one step apart has no effect on Neighbors.
func (g *RoadGraph) CloseLink(a, b RoadNode) {
	g.closed[newLink(a, b)] = struct{}{}
}

// IsClosed reports whether the link between a and b was closed.
func (g *RoadGraph) IsClosed(a, b RoadNode) bool {
	_, ok := g.closed[newLink(a, b)]
	return ok
}

// HasRoad reports whether node is a registered street cell.
func (g *RoadGraph) HasRoad(node RoadNode) bool {
	_, ok := g.roads[node]
	return ok
}

// Info returns the metadata of a street cell.
func (g *RoadGraph) Info(node RoadNode) (RoadInfo, bool) {
	info, ok := g.roads[node]
	return info, ok
}

// Neighbors returns the road cells one cardinal step from node, in the fixed
// order east, west, south, north. A cell without roads around it yields an
// empty slice; so does a node that is not a road.
func (g *RoadGraph) Neighbors(node RoadNode) []Neighbor {
	if !g.HasRoad(node) {
		return nil
	}
	neighbors := make([]Neighbor, 0, len(steps))
	for _, step := range steps {
		next := RoadNode{GridX: node.GridX + step.dx, GridZ: node.GridZ + step.dz}
		if !g.HasRoad(next) || g.IsClosed(node, next) {
			continue
		}
		neighbors = append(neighbors, Neighbor{Node: next, Dir: step.dir})
	}
	return neighbors
}

// IsAdjacent reports whether b is a legal one-step move from a.
func (g *RoadGraph) IsAdjacent(a, b RoadNode) bool {
	if a.Manhattan(b) != 1 {
		return false
	}
	return g.HasRoad(a) && g.HasRoad(b) && !g.IsClosed(a, b)
}

// DirectionTo returns the direction of the one-step move from a to b.
func DirectionTo(a, b RoadNode) (Direction, bool) {
	for _, step := range steps {
		if a.GridX+step.dx == b.GridX && a.GridZ+step.dz == b.GridZ {
			return step.dir, true
		}
	}
	return 0, false
}

// Nodes returns every road cell, ordered row by row (z, then x).
func (g *RoadGraph) Nodes() []RoadNode {
	nodes := make([]RoadNode, 0, len(g.roads))
	for node := range g.roads {
		nodes = append(nodes, node)
	}
	SortNodes(nodes)
	return nodes
}

// Len returns the number of road cells.
func (g *RoadGraph) Len() int {
	return len(g.roads)
}

// Bounds returns the extent of the grid that contains every road cell.
func (g *RoadGraph) Bounds() (width, depth int) {
	return g.width, g.depth
}

// SortNodes orders nodes row by row, for reproducible iteration over maps.
func SortNodes(nodes []RoadNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].GridZ != nodes[j].GridZ {
			return nodes[i].GridZ < nodes[j].GridZ
		}
		return nodes[i].GridX < nodes[j].GridX
	})
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
