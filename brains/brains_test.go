package brains

import (
	"io"
	"log"
	"testing"

	"citybrains/planner"
	. "citybrains/road_graph"

	. "github.com/smartystreets/goconvey/convey"
)

var quiet = log.New(io.Discard, "", 0)

type mapResolver map[string]RoadNode

func (m mapResolver) Resolve(goalID string) (RoadNode, bool) {
	node, ok := m[goalID]
	return node, ok
}

// drive asks the brain for hops until it stops or limit is hit, reporting each arrival.
func drive(b Brain, start RoadNode, limit int) []RoadNode {
	visited := []RoadNode{start}
	current := start
	for i := 0; i < limit; i++ {
		next, ok := b.ChooseNextRoad(current)
		if !ok {
			break
		}
		b.OnNodeArrived(current, next, ArrivalInfo{})
		current = next
		visited = append(visited, current)
	}
	return visited
}

func TestShortestPathBrain(t *testing.T) {
	Convey("Given the debug city", t, func() {
		city, err := Convert(DebugLayout)
		So(err, ShouldBeNil)
		home, _ := city.Resolve("home")
		shop, _ := city.Resolve("shop")
		brain := NewShortestPathBrain(city.Graph, city, quiet)

		Convey("A new brain has no goal and goes nowhere", func() {
			So(brain.State(), ShouldEqual, NoGoal)
			_, ok := brain.ChooseNextRoad(home)
			So(ok, ShouldBeFalse)
		})

		Convey("When the goal is the shop", func() {
			brain.SetGoal("shop", home)
			So(brain.State(), ShouldEqual, Following)
			ref, _ := planner.FindPath(city.Graph, home, shop)

			Convey("The brain walks a shortest path and then stops", func() {
				visited := drive(brain, home, 100)
				So(visited[len(visited)-1], ShouldResemble, shop)
				So(len(visited), ShouldEqual, len(ref))
				for i := 1; i < len(visited); i++ {
					So(city.Graph.IsAdjacent(visited[i-1], visited[i]), ShouldBeTrue)
				}
				_, ok := brain.ChooseNextRoad(shop)
				So(ok, ShouldBeFalse)
			})

			Convey("The debug info tracks the remaining steps", func() {
				info := brain.DebugInfo()
				So(info.Kind, ShouldEqual, "shortest_path")
				So(info.GoalID, ShouldEqual, "shop")
				detail := info.Detail.(ShortestPathDebug)
				So(detail.RemainingSteps, ShouldEqual, ref.Steps())
				So(detail.PathLength, ShouldEqual, len(ref))

				brain.ChooseNextRoad(home)
				detail = brain.DebugInfo().Detail.(ShortestPathDebug)
				So(detail.RemainingSteps, ShouldEqual, ref.Steps()-1)
				So(detail.CurrentIndex, ShouldEqual, 1)
			})

			Convey("An agent that drifts off the path causes a replan from where it is", func() {
				_, ok := brain.ChooseNextRoad(home)
				So(ok, ShouldBeTrue)
				// the agent went the other way around the block
				var drifted RoadNode
				for _, nb := range city.Graph.Neighbors(home) {
					if nb.Node != brain.Path()[1] {
						drifted = nb.Node
					}
				}

				next, ok := brain.ChooseNextRoad(drifted)
				So(ok, ShouldBeTrue)
				So(city.Graph.IsAdjacent(drifted, next), ShouldBeTrue)
				So(brain.DebugInfo().Detail.(ShortestPathDebug).Replans, ShouldEqual, 1)
				So(brain.Path()[0], ShouldResemble, drifted)

				visited := drive(brain, next, 100)
				So(visited[len(visited)-1], ShouldResemble, shop)
			})

			Convey("Replan is an explicit transition back to Following", func() {
				So(brain.Replan(shop), ShouldBeTrue)
				So(brain.State(), ShouldEqual, Following)
				So(brain.Path(), ShouldResemble, planner.Path{shop})
				_, ok := brain.ChooseNextRoad(shop)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("An unknown goal leaves the brain without a goal", func() {
			brain.SetGoal("shop", home)
			brain.SetGoal("moon", home)
			So(brain.State(), ShouldEqual, NoGoal)
			So(brain.Path(), ShouldBeEmpty)
			_, ok := brain.ChooseNextRoad(home)
			So(ok, ShouldBeFalse)
			So(brain.Replan(home), ShouldBeFalse)
		})
	})

	Convey("Given a goal in a disconnected component", t, func() {
		g := NewRoadGraph()
		g.AddRoad(RoadNode{GridX: 0, GridZ: 0}, RoadInfo{})
		g.AddRoad(RoadNode{GridX: 1, GridZ: 0}, RoadInfo{})
		g.AddRoad(RoadNode{GridX: 5, GridZ: 5}, RoadInfo{})
		brain := NewShortestPathBrain(g, mapResolver{"island": {GridX: 5, GridZ: 5}}, quiet)
		brain.SetGoal("island", RoadNode{GridX: 0, GridZ: 0})

		Convey("The brain stays idle rather than retrying", func() {
			So(brain.State(), ShouldEqual, NoGoal)
			for i := 0; i < 3; i++ {
				_, ok := brain.ChooseNextRoad(RoadNode{GridX: 0, GridZ: 0})
				So(ok, ShouldBeFalse)
			}
			So(brain.DebugInfo().Detail.(ShortestPathDebug).Replans, ShouldEqual, 0)
		})
	})
}

func TestRandomWalkBrain(t *testing.T) {
	Convey("Given a straight corridor", t, func() {
		g := NewRoadGraph()
		for x := 0; x < 5; x++ {
			g.AddRoad(RoadNode{GridX: x, GridZ: 0}, RoadInfo{})
		}
		brain := NewRandomWalkBrain(g, 7)
		brain.SetGoal("anywhere", RoadNode{GridX: 2, GridZ: 0})

		Convey("The walker never turns around except at a dead end", func() {
			visited := drive(brain, RoadNode{GridX: 2, GridZ: 0}, 40)
			So(len(visited), ShouldEqual, 41)
			for i := 2; i < len(visited); i++ {
				uturn := visited[i] == visited[i-2]
				deadEnd := len(g.Neighbors(visited[i-1])) == 1
				So(!uturn || deadEnd, ShouldBeTrue)
			}
			So(brain.DebugInfo().Detail.(RandomWalkDebug).Moves, ShouldEqual, 40)
		})

		Convey("Off the roads there is nowhere to go", func() {
			_, ok := brain.ChooseNextRoad(RoadNode{GridX: 3, GridZ: 3})
			So(ok, ShouldBeFalse)
		})
	})
}

// Both strategies satisfy the same contract.
var (
	_ Brain = (*ShortestPathBrain)(nil)
	_ Brain = (*RandomWalkBrain)(nil)
)
