package cell_views

import (
	"fmt"
	"html/template"
	"math"

	"citybrains/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// ang is the angle of the x and y axes of the projection.
var (
	ang            = math.Pi / 6
	sinAng, cosAng = math.Sin(ang), math.Cos(ang)
)

// ValueSurface provides a view of the learning agent's greedy values as a 2d
// projection of the 3d function (x,y,value).
type ValueSurface struct {
	id      string
	updates <-chan []fastview.EleUpdate

	width, height float64 // canvas size in pixels
	cellDim       float64 // cell height/width in pixels
	xyscale       float64 // pixels per x or y unit
	zscale        float64 // pixels per z unit
}

// NewValueSurface sizes the plot for a grid of xcells by ycells.
func NewValueSurface(
	done <-chan struct{},
	xcells, ycells int,
	frames <-chan Frame,
) (vs *ValueSurface) {
	cellDim := 30.0
	vs = &ValueSurface{
		id:      "valuesurface",
		width:   float64(xcells) * cellDim,
		height:  float64(ycells) * cellDim,
		cellDim: cellDim,
		xyscale: cellDim,
		zscale:  cellDim * 0.3,
	}
	vs.updates = channerics.Convert(done, frames, vs.onUpdate)
	return
}

func (vs *ValueSurface) Updates() <-chan []fastview.EleUpdate {
	return vs.updates
}

// project applies an isometric projection to the passed point.
func (vs *ValueSurface) project(x, y, z float64) (float64, float64) {
	sx := (x - y) * cosAng * vs.xyscale
	sy := (x+y)*sinAng*vs.xyscale - z*vs.zscale
	return sx, sy
}

// Returns an svg polygon describing these four adjacent cells. Cell-A is bottom
// left, Cell-B is top left, Cell-C is top right, and Cell-D is bottom right.
func (vs *ValueSurface) makeFuncPolygon(
	id string,
	cellA, cellB, cellC, cellD Cell,
) (fp *funcPolygon) {
	fp = &funcPolygon{
		Id: id,
	}
	fp.ax, fp.ay = vs.project(float64(cellA.X), float64(cellA.Y), cellA.Max)
	fp.bx, fp.by = vs.project(float64(cellB.X), float64(cellB.Y), cellB.Max)
	fp.cx, fp.cy = vs.project(float64(cellC.X), float64(cellC.Y), cellC.Max)
	fp.dx, fp.dy = vs.project(float64(cellD.X), float64(cellD.Y), cellD.Max)
	return
}

type funcPolygon struct {
	Id     string
	ax, ay float64
	bx, by float64
	cx, cy float64
	dx, dy float64
}

// String returns a string suitable for the svg-polygon 'points' attribute.
func (fp *funcPolygon) String() string {
	return fmt.Sprintf("%d,%d %d,%d %d,%d %d,%d",
		int(fp.ax), int(fp.ay),
		int(fp.bx), int(fp.by),
		int(fp.cx), int(fp.cy),
		int(fp.dx), int(fp.dy),
	)
}

func (fp *funcPolygon) MinX() float64 {
	return min(fp.ax, fp.bx, fp.cx, fp.dx)
}

func (fp *funcPolygon) MinY() float64 {
	return min(fp.ay, fp.by, fp.cy, fp.dy)
}

func (fp *funcPolygon) MaxX() float64 {
	return max(fp.ax, fp.bx, fp.cx, fp.dx)
}

func (fp *funcPolygon) MaxY() float64 {
	return max(fp.ay, fp.by, fp.cy, fp.dy)
}

func polygonID(cell Cell) string {
	return fmt.Sprintf("%d-%d-value-polygon", cell.X, cell.Y)
}

// quad returns the four cells of the polygon anchored at cells[ri][ci].
func quad(cells [][]Cell, ri, ci int) (a, b, c, d Cell) {
	return cells[ri+1][ci], cells[ri][ci], cells[ri][ci+1], cells[ri+1][ci+1]
}

// Returns the set of view updates needed for the view to reflect current values.
func (vs *ValueSurface) onUpdate(
	frame Frame,
) (ops []fastview.EleUpdate) {
	cells := frame.Cells
	if len(cells) < 2 || len(cells[0]) < 2 {
		return
	}

	// Each polygon is shaded by the average of its four values, relative to the extremes.
	minVal, maxVal := math.MaxFloat64, -math.MaxFloat64
	for _, row := range cells {
		for _, cell := range row {
			minVal = math.Min(minVal, cell.Max)
			maxVal = math.Max(maxVal, cell.Max)
		}
	}

	xmin, ymin := math.MaxFloat64, math.MaxFloat64
	xmax, ymax := -math.MaxFloat64, -math.MaxFloat64
	for ri, row := range cells[:len(cells)-1] {
		for ci, cell := range row[:len(row)-1] {
			cellA, cellB, cellC, cellD := quad(cells, ri, ci)
			polygon := vs.makeFuncPolygon(polygonID(cell), cellA, cellB, cellC, cellD)

			xmin = math.Min(xmin, polygon.MinX())
			xmax = math.Max(xmax, polygon.MaxX())
			ymin = math.Min(ymin, polygon.MinY())
			ymax = math.Max(ymax, polygon.MaxY())

			avgVal := (cellA.Max + cellB.Max + cellC.Max + cellD.Max) / 4
			ops = append(ops, fastview.EleUpdate{
				EleId: polygon.Id,
				Ops: []fastview.Op{
					{Key: "points", Value: polygon.String()},
					{Key: "fill", Value: getRGBFill(avgVal, minVal, maxVal)},
				},
			})
		}
	}

	// Shift by the min x and y to center the plot, and scale it down only if it does not fit.
	scaler := math.Min(
		math.Min(
			math.Abs(2*vs.width/(xmax-xmin)),
			math.Abs(2*vs.height/(ymax-ymin)),
		),
		1.0,
	)
	ops = append(ops, fastview.EleUpdate{
		EleId: vs.id + "-group",
		Ops: []fastview.Op{
			{
				Key:   "transform",
				Value: fmt.Sprintf("scale(%f) translate(%d %d)", scaler, int(-xmin), int(-ymin)),
			},
		},
	})
	return
}

// Returns an RGB value by where avgVal lies between minVal and maxVal: blue at
// the minimum, red at the maximum.
func getRGBFill(avgVal, minVal, maxVal float64) string {
	span := maxVal - minVal
	if span <= 0 {
		return "rgb(0%,0%,100%)"
	}
	redPct := int(100.0 * (avgVal - minVal) / span)
	redPct = max(0, min(100, redPct))
	return fmt.Sprintf("rgb(%d%%,0%%,%d%%)", redPct, 100-redPct)
}

// Parse returns an svg of polygons plotting the value surface as a 2D projection.
func (vs *ValueSurface) Parse(
	t *template.Template,
) (name string, err error) {
	name = vs.id
	addedMap := template.FuncMap{
		"surfacePoints": func(cells [][]Cell, ri, ci int) string {
			a, b, c, d := quad(cells, ri, ci)
			return vs.makeFuncPolygon("", a, b, c, d).String()
		},
	}
	// Polygons are drawn back to front so nearer ones obscure the ones behind. Order matters.
	_, err = t.Funcs(addedMap).Parse(
		`{{ define "` + name + `" }}
		<div style="clear:both; padding:40px;">
			{{ $cells := .Cells }}
			{{ $num_x_polys := sub (len $cells) 1 }}
			{{ $num_y_polys := sub (len (index $cells 0)) 1 }}
			<svg id="` + vs.id + `" xmlns='http://www.w3.org/2000/svg'
				width="` + fmt.Sprintf("%d", int(vs.width*2)) + `px"
				height="` + fmt.Sprintf("%d", int(vs.height*2)) + `px"
				style="shape-rendering: crispEdges; stroke: lightgrey; stroke-opacity: 1.0; stroke-width: 1;">
				<g id="` + vs.id + `-group" transform="translate(0 0)">
				{{ range $ri, $row := $cells }}
					{{ if lt $ri $num_x_polys }}
						{{ range $j, $unused := $row }}
							{{ $ci := sub (sub (len $row) $j) 1 }}
							{{ $cell := index $row $ci }}
							{{ if lt $ci $num_y_polys }}
								<polygon id="{{$cell.X}}-{{$cell.Y}}-value-polygon"
									fill="black" fill-opacity="1.0"
									points="{{ surfacePoints $cells $ri $ci }}" />
							{{ end }}
						{{ end }}
					{{ end }}
				{{ end }}
				</g>
			</svg>
		</div>
		{{ end }}`)
	return
}
