package road_graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// PointOfInterest is a named destination reached through a street cell.
type PointOfInterest struct {
	ID           string   `json:"id"`
	EntranceRoad RoadNode `json:"entranceRoad"`

	// The rune marking the entrance in layouts and console dumps.
	Glyph rune `json:"-"`
}

// City is a road graph plus the named places on it.
type City struct {
	Graph            *RoadGraph
	GridSize         int
	PointsOfInterest map[string]PointOfInterest
}

// Resolve returns the entrance road of a goal. It fails for unknown goals and
// for goals whose entrance is not a registered road.
func (c *City) Resolve(goalID string) (RoadNode, bool) {
	poi, ok := c.PointsOfInterest[goalID]
	if !ok || !c.Graph.HasRoad(poi.EntranceRoad) {
		return RoadNode{}, false
	}
	return poi.EntranceRoad, true
}

// GoalIDs returns the sorted ids of the points of interest.
func (c *City) GoalIDs() []string {
	ids := make([]string, 0, len(c.PointsOfInterest))
	for id := range c.PointsOfInterest {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Box is an inclusive rectangle of grid cells.
type Box struct {
	MinX, MaxX, MinZ, MaxZ int
}

func (b Box) Contains(node RoadNode) bool {
	return node.GridX >= b.MinX && node.GridX <= b.MaxX &&
		node.GridZ >= b.MinZ && node.GridZ <= b.MaxZ
}

// Corridor returns the box spanning the entrances of the given goals, grown by
// margin cells and clipped to the grid. It fails if any goal cannot be resolved.
func (c *City) Corridor(margin int, goalIDs ...string) (Box, bool) {
	if len(goalIDs) == 0 {
		return Box{}, false
	}
	var box Box
	for i, id := range goalIDs {
		node, ok := c.Resolve(id)
		if !ok {
			return Box{}, false
		}
		if i == 0 {
			box = Box{MinX: node.GridX, MaxX: node.GridX, MinZ: node.GridZ, MaxZ: node.GridZ}
			continue
		}
		box.MinX = min(box.MinX, node.GridX)
		box.MaxX = max(box.MaxX, node.GridX)
		box.MinZ = min(box.MinZ, node.GridZ)
		box.MaxZ = max(box.MaxZ, node.GridZ)
	}

	limit := c.GridSize - 1
	if limit < 0 {
		width, depth := c.Graph.Bounds()
		limit = max(width, depth) - 1
	}
	box.MinX = max(0, box.MinX-margin)
	box.MinZ = max(0, box.MinZ-margin)
	box.MaxX = min(limit, box.MaxX+margin)
	box.MaxZ = min(limit, box.MaxZ+margin)
	return box, true
}

var (
	// ErrBadLayout is returned when a text layout cannot be converted to a city.
	ErrBadLayout = errors.New("bad city layout")
	// ErrUnknownPOI is returned when a point of interest does not sit on a road.
	ErrUnknownPOI = errors.New("point of interest is not on a road")
)

// Layout glyphs. Upper case letters mark the entrance road of a point of interest.
const (
	ROAD     = '#'
	BUILDING = '.'
)

var poiGlyphs = map[rune]string{
	'H': "home",
	'S': "shop",
	'P': "park",
	'W': "work",
	'C': "school",
}

// glyphOf returns the layout rune of a known id, or its first letter in upper case.
func glyphOf(id string) rune {
	for glyph, known := range poiGlyphs {
		if known == id {
			return glyph
		}
	}
	if id == "" {
		return '?'
	}
	return []rune(strings.ToUpper(id))[0]
}

// A small city for development and tests, and the layout of the default
// lattice city with a blocked avenue in the middle.
var (
	DebugLayout []string = []string{
		"H#####",
		"#..#.#",
		"#..#.#",
		"####.S",
	}

	DowntownLayout []string = []string{
		"H##############",
		"#..#..#..#..#..",
		"#..#..#..#..#..",
		"###############",
		"#..#..#..#..#..",
		"#..#..#..#..#..",
		"#####..########",
		"#..#..#..#..#..",
		"#..#..#..#..#..",
		"#######P#######",
		"#..#..#..#..#..",
		"#..#..#..#..#..",
		"############S##",
	}
)

// Convert builds a city from a text layout. Row index is the z coordinate and
// column index is the x coordinate, so the first line is the northern edge.
// Every line must have the same width.
func Convert(layout []string) (*City, error) {
	if len(layout) == 0 {
		return nil, fmt.Errorf("%w: empty layout", ErrBadLayout)
	}
	width := len([]rune(layout[0]))

	city := &City{
		Graph:            NewRoadGraph(),
		GridSize:         max(width, len(layout)),
		PointsOfInterest: map[string]PointOfInterest{},
	}

	for z, row := range layout {
		runes := []rune(row)
		if len(runes) != width {
			return nil, fmt.Errorf("%w: row %d has width %d, expected %d", ErrBadLayout, z, len(runes), width)
		}
		for x, glyph := range runes {
			node := RoadNode{GridX: x, GridZ: z}
			switch {
			case glyph == ROAD:
				city.Graph.AddRoad(node, RoadInfo{})
			case glyph == BUILDING || glyph == ' ':
			case unicode.IsUpper(glyph):
				id, ok := poiGlyphs[glyph]
				if !ok {
					id = strings.ToLower(string(glyph))
				}
				city.Graph.AddRoad(node, RoadInfo{})
				city.PointsOfInterest[id] = PointOfInterest{ID: id, EntranceRoad: node, Glyph: glyph}
			default:
				return nil, fmt.Errorf("%w: unexpected glyph %q at %v", ErrBadLayout, glyph, node)
			}
		}
	}

	markIntersections(city.Graph)
	return city, nil
}

// An intersection is a road cell that continues both along x and along z.
func markIntersections(g *RoadGraph) {
	for node := range g.roads {
		alongX := g.HasRoad(RoadNode{node.GridX + 1, node.GridZ}) || g.HasRoad(RoadNode{node.GridX - 1, node.GridZ})
		alongZ := g.HasRoad(RoadNode{node.GridX, node.GridZ + 1}) || g.HasRoad(RoadNode{node.GridX, node.GridZ - 1})
		g.roads[node] = RoadInfo{IsIntersection: alongX && alongZ}
	}
}

// CityConfig parameterizes the procedural lattice city.
type CityConfig struct {
	GridSize int
	// A street runs along every RoadStep-th row and column.
	RoadStep int
	// Fraction (0..1) of street links closed by noise. Zero closes nothing.
	ClosureRate float64
	Seed        int64
	// Entrance roads by goal id.
	PointsOfInterest map[string]RoadNode
}

// DefaultCityConfig is a 15x15 grid with a street every third cell.
func DefaultCityConfig() CityConfig {
	return CityConfig{
		GridSize: 15,
		RoadStep: 3,
		PointsOfInterest: map[string]RoadNode{
			"home": {GridX: 3, GridZ: 1},
			"shop": {GridX: 12, GridZ: 10},
			"park": {GridX: 6, GridZ: 13},
		},
	}
}

// Noise frequency for link closures; lower values give longer blocked stretches.
const closureFrequency = 0.35

// NewLatticeCity generates a grid city: cells on a street row or street column
// are roads, cells on both are intersections. When ClosureRate is positive,
// links are closed where normalized OpenSimplex noise, sampled at the midpoint
// of the link, falls below the rate.
func NewLatticeCity(cfg CityConfig) (*City, error) {
	if cfg.GridSize <= 0 || cfg.RoadStep <= 0 {
		return nil, fmt.Errorf("%w: grid size %d, road step %d", ErrBadLayout, cfg.GridSize, cfg.RoadStep)
	}

	graph := NewRoadGraph()
	for gx := 0; gx < cfg.GridSize; gx++ {
		for gz := 0; gz < cfg.GridSize; gz++ {
			roadCol := gx%cfg.RoadStep == 0
			roadRow := gz%cfg.RoadStep == 0
			if roadCol || roadRow {
				graph.AddRoad(RoadNode{GridX: gx, GridZ: gz}, RoadInfo{IsIntersection: roadCol && roadRow})
			}
		}
	}

	if cfg.ClosureRate > 0 {
		noise := opensimplex.NewNormalized(cfg.Seed)
		for _, node := range graph.Nodes() {
			// East and south only, so each link is sampled once.
			for _, nb := range graph.Neighbors(node) {
				if nb.Dir != East && nb.Dir != South {
					continue
				}
				mx := (float64(node.GridX) + float64(nb.Node.GridX)) / 2
				mz := (float64(node.GridZ) + float64(nb.Node.GridZ)) / 2
				if noise.Eval2(mx*closureFrequency, mz*closureFrequency) < cfg.ClosureRate {
					graph.CloseLink(node, nb.Node)
				}
			}
		}
	}

	city := &City{
		Graph:            graph,
		GridSize:         cfg.GridSize,
		PointsOfInterest: map[string]PointOfInterest{},
	}
	for id, entrance := range cfg.PointsOfInterest {
		if !graph.HasRoad(entrance) {
			return nil, fmt.Errorf("%w: %s at %v", ErrUnknownPOI, id, entrance)
		}
		city.PointsOfInterest[id] = PointOfInterest{ID: id, EntranceRoad: entrance, Glyph: glyphOf(id)}
	}
	return city, nil
}
