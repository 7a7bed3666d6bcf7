// cell_views contains views derived from the Frame view-model, a flattening
// of a simulation snapshot onto the city grid.
package cell_views

import (
	"fmt"

	. "citybrains/road_graph"
	"citybrains/simulation"
)

// Cell is one grid square of the city, in svg orientation: [0][0] is the top left,
// as printed in the console. Cell fields are immediately usable as view parameters.
type Cell struct {
	X, Y                int
	Glyph               string
	IsRoad              bool
	Fill                string
	Max                 float64
	PolicyArrowRotation int
	// Arrows are hidden on cells for which the learning agent has no policy yet.
	PolicyOpacity string
}

// Marker is an agent drawn over the grid, in grid units.
type Marker struct {
	ID    string
	X, Y  float64
	Fill  string
	Label string
}

// Frame is the view-model of one snapshot. Cells is indexed [x][y].
type Frame struct {
	Cells      [][]Cell
	Markers    []Marker
	Tick       uint64
	Elapsed    float64
	PolicyGoal string
}

// NewConverter returns the snapshot-to-frame conversion for a city. The static
// parts of each cell (glyph and fill) are computed once.
func NewConverter(city *City) func(simulation.Snapshot) Frame {
	width, depth := city.Graph.Bounds()
	base := make([][]Cell, width)
	for x := range base {
		base[x] = make([]Cell, depth)
		for y := range base[x] {
			node := RoadNode{GridX: x, GridZ: y}
			glyph := city.Glyph(node)
			base[x][y] = Cell{
				X:             x,
				Y:             y,
				Glyph:         string(glyph),
				IsRoad:        city.Graph.HasRoad(node),
				Fill:          getFill(glyph),
				PolicyOpacity: "0",
			}
		}
	}

	return func(snap simulation.Snapshot) Frame {
		cells := make([][]Cell, width)
		for x := range base {
			cells[x] = append([]Cell(nil), base[x]...)
		}
		for _, entry := range snap.Policy {
			x, y := entry.Node.GridX, entry.Node.GridZ
			if x < 0 || x >= width || y < 0 || y >= depth {
				continue
			}
			cells[x][y].Max = entry.BestValue
			cells[x][y].PolicyArrowRotation = getDegrees(entry.BestDir)
			cells[x][y].PolicyOpacity = "1"
		}

		markers := make([]Marker, 0, len(snap.Agents))
		for _, agent := range snap.Agents {
			markers = append(markers, Marker{
				ID:    agent.ID,
				X:     agent.X,
				Y:     agent.Z,
				Fill:  getMarkerFill(agent.Brain.Kind),
				Label: fmt.Sprintf("%s: %s -> %s", agent.ID, agent.Brain.Kind, agent.GoalID),
			})
		}

		return Frame{
			Cells:      cells,
			Markers:    markers,
			Tick:       snap.Tick,
			Elapsed:    snap.Elapsed,
			PolicyGoal: snap.PolicyGoal,
		}
	}
}

// getDegrees converts a direction into the degrees passed to svg's rotate()
// for an upward arrow rune. North is up on the page.
func getDegrees(dir Direction) int {
	switch dir {
	case East:
		return 90
	case South:
		return 180
	case West:
		return 270
	}
	return 0
}

func getFill(glyph rune) (fill string) {
	switch glyph {
	case BUILDING:
		fill = "lightgreen"
	case ROAD:
		fill = "lightgray"
	case '+':
		fill = "darkgray"
	default:
		fill = "lightyellow"
	}
	return
}

func getMarkerFill(kind string) (fill string) {
	switch kind {
	case "q_learning":
		fill = "crimson"
	case "shortest_path":
		fill = "royalblue"
	default:
		fill = "darkorange"
	}
	return
}
