package planner

import (
	"testing"

	. "citybrains/road_graph"

	. "github.com/smartystreets/goconvey/convey"
)

func lattice(n int) *RoadGraph {
	g := NewRoadGraph()
	for x := 0; x < n; x++ {
		for z := 0; z < n; z++ {
			g.AddRoad(RoadNode{GridX: x, GridZ: z}, RoadInfo{})
		}
	}
	return g
}

// allPairs is an independent reference: Floyd-Warshall over unit edges.
func allPairs(g *RoadGraph) map[RoadNode]map[RoadNode]int {
	const inf = 1 << 30
	nodes := g.Nodes()
	dist := map[RoadNode]map[RoadNode]int{}
	for _, a := range nodes {
		dist[a] = map[RoadNode]int{}
		for _, b := range nodes {
			switch {
			case a == b:
				dist[a][b] = 0
			case g.IsAdjacent(a, b):
				dist[a][b] = 1
			default:
				dist[a][b] = inf
			}
		}
	}
	for _, k := range nodes {
		for _, i := range nodes {
			for _, j := range nodes {
				if d := dist[i][k] + dist[k][j]; d < dist[i][j] {
					dist[i][j] = d
				}
			}
		}
	}
	for _, a := range nodes {
		for _, b := range nodes {
			if dist[a][b] >= inf {
				delete(dist[a], b)
			}
		}
	}
	return dist
}

func shouldBeValidPath(actual interface{}, expected ...interface{}) string {
	path := actual.(Path)
	g := expected[0].(*RoadGraph)
	start := expected[1].(RoadNode)
	goal := expected[2].(RoadNode)
	if len(path) == 0 {
		return "path is empty"
	}
	if path[0] != start {
		return "path does not begin at " + start.String()
	}
	if path[len(path)-1] != goal {
		return "path does not end at " + goal.String()
	}
	for i := 1; i < len(path); i++ {
		if !g.IsAdjacent(path[i-1], path[i]) {
			return "illegal hop " + path[i-1].String() + " -> " + path[i].String()
		}
	}
	return ""
}

func TestFindPath(t *testing.T) {
	Convey("Given a 3x3 lattice with the (1,0)-(1,1) link removed", t, func() {
		g := lattice(3)
		g.CloseLink(RoadNode{GridX: 1, GridZ: 0}, RoadNode{GridX: 1, GridZ: 1})
		start := RoadNode{GridX: 0, GridZ: 0}
		goal := RoadNode{GridX: 2, GridZ: 2}

		Convey("The path from (0,0) to (2,2) has five nodes and avoids the closed link", func() {
			path, ok := FindPath(g, start, goal)
			So(ok, ShouldBeTrue)
			So(len(path), ShouldEqual, 5)
			So(path.Steps(), ShouldEqual, 4)
			So(path, shouldBeValidPath, g, start, goal)
			for i := 1; i < len(path); i++ {
				So(g.IsClosed(path[i-1], path[i]), ShouldBeFalse)
			}
		})

		Convey("A path from a node to itself is that node alone", func() {
			path, ok := FindPath(g, start, start)
			So(ok, ShouldBeTrue)
			So(path, ShouldResemble, Path{start})
			So(path.Steps(), ShouldEqual, 0)
		})

		Convey("Endpoints that are not roads are not found", func() {
			off := RoadNode{GridX: 7, GridZ: 7}
			_, ok := FindPath(g, off, goal)
			So(ok, ShouldBeFalse)
			_, ok = FindPath(g, start, off)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given every pair of nodes in the downtown city", t, func() {
		city, err := Convert(DowntownLayout)
		So(err, ShouldBeNil)
		g := city.Graph
		ref := allPairs(g)

		Convey("Each path is valid and as short as the reference distance", func() {
			nodes := g.Nodes()
			for _, a := range nodes {
				for _, b := range nodes {
					path, ok := FindPath(g, a, b)
					d, reachable := ref[a][b]
					So(ok, ShouldEqual, reachable)
					if !ok {
						continue
					}
					So(path.Steps(), ShouldEqual, d)
					So(path, shouldBeValidPath, g, a, b)
				}
			}
		})
	})

	Convey("Given two disconnected components", t, func() {
		g := NewRoadGraph()
		for x := 0; x < 3; x++ {
			g.AddRoad(RoadNode{GridX: x, GridZ: 0}, RoadInfo{})
			g.AddRoad(RoadNode{GridX: x, GridZ: 4}, RoadInfo{})
		}

		Convey("No path, not even a partial one, is returned across them", func() {
			path, ok := FindPath(g, RoadNode{GridX: 0, GridZ: 0}, RoadNode{GridX: 2, GridZ: 4})
			So(ok, ShouldBeFalse)
			So(path, ShouldBeNil)
		})

		Convey("Paths within a component are still found", func() {
			path, ok := FindPath(g, RoadNode{GridX: 0, GridZ: 4}, RoadNode{GridX: 2, GridZ: 4})
			So(ok, ShouldBeTrue)
			So(len(path), ShouldEqual, 3)
		})
	})
}

func TestDistances(t *testing.T) {
	Convey("Given a closed link in a lattice", t, func() {
		g := lattice(4)
		g.CloseLink(RoadNode{GridX: 1, GridZ: 0}, RoadNode{GridX: 1, GridZ: 1})
		goal := RoadNode{GridX: 3, GridZ: 3}
		ref := allPairs(g)

		Convey("Distances to the goal agree with the reference", func() {
			dist := Distances(g, goal)
			So(len(dist), ShouldEqual, g.Len())
			for node, d := range dist {
				So(d, ShouldEqual, ref[node][goal])
			}
		})

		Convey("A goal off the roads has no distances", func() {
			So(Distances(g, RoadNode{GridX: 9, GridZ: 9}), ShouldBeEmpty)
		})
	})
}
