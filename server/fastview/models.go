// fastview implements a builder pattern for simple server-side views:
// given an input data model, apply a transformation to a view-model,
// and then multiplex that view-model to one or more views.
package fastview

import (
	"html/template"
)

// EleUpdate is an element identifier and a set of operations to apply to its attributes/content.
type EleUpdate struct {
	// The id by which to find the element
	EleId string
	// Op keys are attribute names or 'textContent', values are what they are set to.
	// ('fill','red') sets the fill attribute; ('textContent','1.43') sets ele.textContent.
	Ops []Op
}

// Op is a key and value, e.g. an html attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// TEXT_CONTENT is the reserved Op key for an element's text.
const TEXT_CONTENT = "textContent"

// ViewComponent is a server side view: Parse adds its initial form to a parent template,
// and Updates is the chan by which its element updates are published.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse adds the view's template definition to the parent, which supplies the func-map,
	// and returns the name the view is defined under.
	Parse(*template.Template) (string, error)
}
