package cell_views

import (
	"fmt"
	"html/template"

	"citybrains/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// Cell height/width in pixels.
const gridCellDim = 40

// CityGrid draws the city's cells with the learning agent's greedy value and
// arrow per cell, and the agents as circles moving over it.
type CityGrid struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewCityGrid(
	done <-chan struct{},
	frames <-chan Frame,
) (cg *CityGrid) {
	cg = &CityGrid{id: "citygrid"}
	cg.updates = channerics.Convert(done, frames, cg.onUpdate)
	return
}

func (cg *CityGrid) Updates() <-chan []fastview.EleUpdate {
	return cg.updates
}

// agentCenter converts grid units to the pixel center of the cell.
func agentCenter(v float64) string {
	return fmt.Sprintf("%d", int(v*gridCellDim+gridCellDim/2))
}

func (cg *CityGrid) onUpdate(frame Frame) (ops []fastview.EleUpdate) {
	for _, row := range frame.Cells {
		for _, cell := range row {
			if !cell.IsRoad {
				continue
			}
			ops = append(ops, fastview.EleUpdate{
				EleId: fmt.Sprintf("%d-%d-value-text", cell.X, cell.Y),
				Ops: []fastview.Op{
					{Key: fastview.TextContent, Value: fmt.Sprintf("%.1f", cell.Max)},
				},
			})
			ops = append(ops, fastview.EleUpdate{
				EleId: fmt.Sprintf("%d-%d-policy-arrow", cell.X, cell.Y),
				Ops: []fastview.Op{
					{Key: "transform", Value: fmt.Sprintf("rotate(%d)", cell.PolicyArrowRotation)},
					{Key: "opacity", Value: cell.PolicyOpacity},
				},
			})
		}
	}

	for _, marker := range frame.Markers {
		ops = append(ops, fastview.EleUpdate{
			EleId: "agent-" + marker.ID,
			Ops: []fastview.Op{
				{Key: "cx", Value: agentCenter(marker.X)},
				{Key: "cy", Value: agentCenter(marker.Y)},
			},
		})
	}
	return
}

// Parse returns an svg of the city grid.
func (cg *CityGrid) Parse(
	t *template.Template,
) (name string, err error) {
	name = cg.id
	addedMap := template.FuncMap{
		"agentCenter": agentCenter,
	}
	_, err = t.Funcs(addedMap).Parse(
		`{{ define "` + name + `" }}
		<div id="city_grid" style="float:left; padding:20px;">
			{{ $x_cells := len .Cells }}
			{{ $y_cells := len (index .Cells 0) }}
			{{ $cell_width := ` + fmt.Sprintf("%d", gridCellDim) + ` }}
			{{ $cell_height := $cell_width }}
			{{ $width := mult $cell_width $x_cells }}
			{{ $height := mult $cell_height $y_cells }}
			{{ $half_height := div $cell_height 2 }}
			{{ $half_width := div $cell_width 2 }}
			<svg id="` + cg.id + `"
				width="{{ add $width 1 }}px"
				height="{{ add $height 1 }}px"
				style="shape-rendering: crispEdges;">
				{{ range $row := .Cells }}
					{{ range $cell := $row }}
					<g>
						<rect
							x="{{ mult $cell.X $cell_width }}"
							y="{{ mult $cell.Y $cell_height }}"
							width="{{ $cell_width }}"
							height="{{ $cell_height }}"
							fill="{{ $cell.Fill }}"
							stroke="white"
							stroke-width="1"><title>{{ $cell.Glyph }} ({{ $cell.X }},{{ $cell.Y }})</title></rect>
						{{ if $cell.IsRoad }}
						<text id="{{$cell.X}}-{{$cell.Y}}-value-text"
							x="{{ add (mult $cell.X $cell_width) $half_width }}"
							y="{{ add (mult $cell.Y $cell_height) (sub $half_height 8) }}"
							font-size="9" fill="blue"
							dominant-baseline="text-top" text-anchor="middle"
							>{{ printf "%.1f" $cell.Max }}</text>
						<g transform="translate({{ add (mult $cell.X $cell_width) $half_width }}, {{ add (mult $cell.Y $cell_height) (add $half_height 8) }})">
							<text id="{{$cell.X}}-{{$cell.Y}}-policy-arrow"
							fill="blue" opacity="{{ $cell.PolicyOpacity }}"
							dominant-baseline="central" text-anchor="middle"
							transform="rotate({{ $cell.PolicyArrowRotation }})"
							>&uarr;</text>
						</g>
						{{ end }}
					</g>
					{{ end }}
				{{ end }}
				{{ range $marker := .Markers }}
					<circle id="agent-{{ $marker.ID }}"
						cx="{{ agentCenter $marker.X }}"
						cy="{{ agentCenter $marker.Y }}"
						r="{{ div $half_width 2 }}"
						fill="{{ $marker.Fill }}" fill-opacity="0.8">
						<title>{{ $marker.ID }}</title>
					</circle>
				{{ end }}
			</svg>
		</div>
		{{ end }}`)
	return
}
