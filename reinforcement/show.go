package reinforcement

import (
	"fmt"
	"io"

	. "citybrains/road_graph"
)

// ShowPolicy prints the city with the greedy direction of every visited state
// for the goal. Unvisited roads keep their map glyph.
func ShowPolicy(w io.Writer, city *City, brain *QLearningBrain, goalID string) {
	arrows := map[RoadNode]rune{}
	for _, entry := range brain.GetPolicySnapshot(goalID) {
		arrows[entry.Node] = entry.BestDir.Arrow()
	}
	goal, hasGoal := city.Resolve(goalID)

	fmt.Fprintf(w, "Policy (%s):\n", goalID)
	width, depth := city.Graph.Bounds()
	for z := 0; z < depth; z++ {
		for x := 0; x < width; x++ {
			node := RoadNode{GridX: x, GridZ: z}
			glyph, ok := arrows[node]
			if !ok || (hasGoal && node == goal) {
				glyph = city.Glyph(node)
			}
			fmt.Fprintf(w, "%c ", glyph)
		}
		fmt.Fprintln(w)
	}
}

// ShowMaxValues prints the max action value of every road cell for the goal.
func ShowMaxValues(w io.Writer, city *City, brain *QLearningBrain, goalID string) {
	snap := brain.QSnapshot(goalID)
	fmt.Fprintf(w, "Max vals (%s):\n", goalID)
	total := 0.0
	width, depth := city.Graph.Bounds()
	for z := 0; z < depth; z++ {
		for x := 0; x < width; x++ {
			node := RoadNode{GridX: x, GridZ: z}
			row, ok := snap[node]
			if !ok {
				fmt.Fprint(w, "  .   ")
				continue
			}
			_, val, _ := argmax(row)
			fmt.Fprintf(w, "%5.2f ", val)
			total += val
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Total: %.2f\n", total)
}
