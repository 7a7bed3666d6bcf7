// fastview implements a builder pattern for simple server-side views:
// given an input data model, apply a transformation to a view-model,
// and then multiplex that view-model to one or more views whose element
// updates are pushed to the page over a websocket.
package fastview

import (
	"html/template"
)

// EleUpdate is an element identifier and a set of operations to apply to its attributes/content.
type EleUpdate struct {
	// The id by which to find the element
	EleId string
	// Op keys are attrib keys or 'textContent', values are the strings to which these are set.
	// Example: ('x','123') means 'set attribute 'x' to 123. 'textContent' is a reserved key:
	// ('textContent','abc') means 'set ele.textContent to abc'.
	Ops []Op
}

// Op is a key and value. For example an html attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// TextContent is the reserved Op key for an element's text.
const TextContent = "textContent"

// ViewComponent is a server-side view: Parse adds its initial markup to a
// page template, and Updates delivers the element updates that keep it current.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse adds the view to the parent template, inheriting its func-map,
	// and returns the name of the template it defined.
	Parse(*template.Template) (string, error)
}
