package cell_views

import (
	"bytes"
	"html/template"
	"strings"
	"testing"

	"citybrains/agents"
	"citybrains/brains"
	"citybrains/reinforcement"
	. "citybrains/road_graph"
	"citybrains/server/fastview"
	"citybrains/simulation"

	. "github.com/smartystreets/goconvey/convey"
)

var funcs = template.FuncMap{
	"add":  func(i, j int) int { return i + j },
	"sub":  func(i, j int) int { return i - j },
	"mult": func(i, j int) int { return i * j },
	"div":  func(i, j int) int { return i / j },
}

func findUpdate(ops []fastview.EleUpdate, id string) (fastview.EleUpdate, bool) {
	for _, op := range ops {
		if op.EleId == id {
			return op, true
		}
	}
	return fastview.EleUpdate{}, false
}

func opValue(update fastview.EleUpdate, key string) string {
	for _, op := range update.Ops {
		if op.Key == key {
			return op.Value
		}
	}
	return ""
}

func debugSnapshot() simulation.Snapshot {
	home := RoadNode{GridX: 0, GridZ: 0}
	return simulation.Snapshot{
		Tick:       7,
		Elapsed:    0.7,
		PolicyGoal: "shop",
		Policy: []reinforcement.PolicyEntry{
			{Node: home, BestAction: RoadNode{GridX: 1, GridZ: 0}, BestDir: East, BestValue: 2.5},
			{Node: RoadNode{GridX: 3, GridZ: 1}, BestAction: RoadNode{GridX: 3, GridZ: 2}, BestDir: South, BestValue: -0.5},
		},
		Agents: []agents.AgentState{
			{ID: "walker-q", Node: home, X: 0.5, Z: 0, GoalID: "shop", Brain: brains.DebugInfo{Kind: "q_learning"}},
		},
	}
}

func TestConverter(t *testing.T) {
	Convey("Given the debug city", t, func() {
		city, err := Convert(DebugLayout)
		So(err, ShouldBeNil)
		convert := NewConverter(city)

		Convey("The frame covers the grid with static cell kinds", func() {
			frame := convert(simulation.Snapshot{})
			So(len(frame.Cells), ShouldEqual, 6)
			So(len(frame.Cells[0]), ShouldEqual, 4)
			So(frame.Cells[0][0].Glyph, ShouldEqual, "H")
			So(frame.Cells[0][0].IsRoad, ShouldBeTrue)
			So(frame.Cells[1][1].IsRoad, ShouldBeFalse)
			So(frame.Cells[1][1].Fill, ShouldEqual, "lightgreen")
			So(frame.Cells[0][0].PolicyOpacity, ShouldEqual, "0")
		})

		Convey("Policy entries become arrows and values", func() {
			frame := convert(debugSnapshot())
			So(frame.Cells[0][0].Max, ShouldEqual, 2.5)
			So(frame.Cells[0][0].PolicyArrowRotation, ShouldEqual, 90)
			So(frame.Cells[0][0].PolicyOpacity, ShouldEqual, "1")
			So(frame.Cells[3][1].PolicyArrowRotation, ShouldEqual, 180)
			So(frame.Tick, ShouldEqual, 7)
			So(frame.PolicyGoal, ShouldEqual, "shop")

			Convey("Conversions do not share cells", func() {
				empty := convert(simulation.Snapshot{})
				So(empty.Cells[0][0].Max, ShouldEqual, 0)
				So(empty.Cells[0][0].PolicyOpacity, ShouldEqual, "0")
			})
		})

		Convey("Agents become markers", func() {
			frame := convert(debugSnapshot())
			So(len(frame.Markers), ShouldEqual, 1)
			So(frame.Markers[0].ID, ShouldEqual, "walker-q")
			So(frame.Markers[0].X, ShouldEqual, 0.5)
			So(frame.Markers[0].Fill, ShouldEqual, "crimson")
			So(frame.Markers[0].Label, ShouldEqual, "walker-q: q_learning -> shop")
		})
	})
}

func TestViews(t *testing.T) {
	Convey("Given a frame of the debug city", t, func() {
		city, err := Convert(DebugLayout)
		So(err, ShouldBeNil)
		frame := NewConverter(city)(debugSnapshot())

		Convey("The grid updates values, arrows and agent positions", func() {
			grid := &CityGrid{id: "citygrid"}
			ops := grid.onUpdate(frame)

			text, ok := findUpdate(ops, "0-0-value-text")
			So(ok, ShouldBeTrue)
			So(opValue(text, "textContent"), ShouldEqual, "2.5")

			arrow, ok := findUpdate(ops, "0-0-policy-arrow")
			So(ok, ShouldBeTrue)
			So(opValue(arrow, "transform"), ShouldEqual, "rotate(90)")

			_, ok = findUpdate(ops, "1-1-value-text")
			So(ok, ShouldBeFalse)

			marker, ok := findUpdate(ops, "agent-walker-q")
			So(ok, ShouldBeTrue)
			So(opValue(marker, "cx"), ShouldEqual, "40")
			So(opValue(marker, "cy"), ShouldEqual, "20")
		})

		Convey("The status panel updates the clock and agent lines", func() {
			panel := &StatusPanel{id: "statuspanel"}
			ops := panel.onUpdate(frame)

			clock, ok := findUpdate(ops, "statuspanel-clock")
			So(ok, ShouldBeTrue)
			So(opValue(clock, "textContent"), ShouldEqual, "tick 7  t=0.7s")

			line, ok := findUpdate(ops, "status-walker-q")
			So(ok, ShouldBeTrue)
			So(opValue(line, "textContent"), ShouldContainSubstring, "q_learning")
		})

		Convey("The value surface updates one polygon per quad and the group", func() {
			surface := &ValueSurface{id: "valuesurface", width: 180, height: 120, xyscale: 30, zscale: 9}
			ops := surface.onUpdate(frame)
			So(len(ops), ShouldEqual, 5*3+1)

			group, ok := findUpdate(ops, "valuesurface-group")
			So(ok, ShouldBeTrue)
			So(opValue(group, "transform"), ShouldStartWith, "scale(")
		})

		Convey("Every view renders its initial markup", func() {
			done := make(chan struct{})
			defer close(done)
			frames := make(chan Frame)
			views := []interface {
				Parse(*template.Template) (string, error)
			}{
				NewCityGrid(done, frames),
				NewStatusPanel(done, frames),
				NewValueSurface(done, 6, 4, frames),
			}

			for _, view := range views {
				tmpl := template.New("test").Funcs(funcs)
				name, err := view.Parse(tmpl)
				So(err, ShouldBeNil)
				_, err = tmpl.Parse(`{{ template "` + name + `" . }}`)
				So(err, ShouldBeNil)

				var buf bytes.Buffer
				So(tmpl.Execute(&buf, frame), ShouldBeNil)
				So(strings.Contains(buf.String(), `id="`+name+`"`) || strings.Contains(buf.String(), name+"-"), ShouldBeTrue)
			}
		})
	})
}

func TestRGBFill(t *testing.T) {
	Convey("Fills run from blue at the minimum to red at the maximum", t, func() {
		So(getRGBFill(0, 0, 10), ShouldEqual, "rgb(0%,0%,100%)")
		So(getRGBFill(10, 0, 10), ShouldEqual, "rgb(100%,0%,0%)")
		So(getRGBFill(5, 5, 5), ShouldEqual, "rgb(0%,0%,100%)")
	})
}
