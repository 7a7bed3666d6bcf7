package road_graph

import (
	"fmt"
	"io"
)

// Glyph returns the console rune for a grid cell: the glyph of a point of
// interest, '+' for intersections, '#' for roads and '.' for everything else.
// Points of interest sharing an entrance show the first by id.
func (c *City) Glyph(node RoadNode) rune {
	for _, id := range c.GoalIDs() {
		if poi := c.PointsOfInterest[id]; poi.EntranceRoad == node {
			if poi.Glyph == 0 {
				return glyphOf(id)
			}
			return poi.Glyph
		}
	}
	info, ok := c.Graph.Info(node)
	switch {
	case !ok:
		return BUILDING
	case info.IsIntersection:
		return '+'
	}
	return ROAD
}

// ShowGrid prints the city, for visual reference.
func ShowGrid(w io.Writer, city *City) {
	width, depth := city.Graph.Bounds()
	for z := 0; z < depth; z++ {
		for x := 0; x < width; x++ {
			fmt.Fprintf(w, "%c ", city.Glyph(RoadNode{GridX: x, GridZ: z}))
		}
		fmt.Fprintln(w)
	}
}
