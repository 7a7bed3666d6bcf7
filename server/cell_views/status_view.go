package cell_views

import (
	"fmt"
	"html/template"

	"citybrains/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// StatusPanel lists the tick, the goal of the policy overlay, and one line per agent.
type StatusPanel struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewStatusPanel(
	done <-chan struct{},
	frames <-chan Frame,
) (sp *StatusPanel) {
	sp = &StatusPanel{id: "statuspanel"}
	sp.updates = channerics.Convert(done, frames, sp.onUpdate)
	return
}

func (sp *StatusPanel) Updates() <-chan []fastview.EleUpdate {
	return sp.updates
}

func formatClock(frame Frame) string {
	return fmt.Sprintf("tick %d  t=%.1fs", frame.Tick, frame.Elapsed)
}

func (sp *StatusPanel) onUpdate(frame Frame) (ops []fastview.EleUpdate) {
	ops = append(ops,
		fastview.EleUpdate{
			EleId: sp.id + "-clock",
			Ops:   []fastview.Op{{Key: fastview.TextContent, Value: formatClock(frame)}},
		},
		fastview.EleUpdate{
			EleId: sp.id + "-goal",
			Ops:   []fastview.Op{{Key: fastview.TextContent, Value: frame.PolicyGoal}},
		},
	)
	for _, marker := range frame.Markers {
		ops = append(ops, fastview.EleUpdate{
			EleId: "status-" + marker.ID,
			Ops:   []fastview.Op{{Key: fastview.TextContent, Value: marker.Label}},
		})
	}
	return
}

func (sp *StatusPanel) Parse(
	t *template.Template,
) (name string, err error) {
	name = sp.id
	addedMap := template.FuncMap{
		"formatClock": formatClock,
	}
	_, err = t.Funcs(addedMap).Parse(
		`{{ define "` + name + `" }}
		<div id="status_panel" style="float:left; padding:20px; font-family:monospace;">
			<div id="` + sp.id + `-clock">{{ formatClock . }}</div>
			<div>policy goal: <span id="` + sp.id + `-goal">{{ .PolicyGoal }}</span></div>
			<ul>
			{{ range $marker := .Markers }}
				<li style="color:{{ $marker.Fill }};" id="status-{{ $marker.ID }}">{{ $marker.Label }}</li>
			{{ end }}
			</ul>
		</div>
		{{ end }}`)
	return
}
