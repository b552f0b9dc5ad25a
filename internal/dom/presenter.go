package dom

import (
	"errors"

	"github.com/thruflo/unidlewatch/internal/watcher"
)

// HiddenClass hides an outcome region until it is revealed.
const HiddenClass = "hidden"

// ErrNoStatusElement is returned when the page has neither a #message nor
// a #status element.
var ErrNoStatusElement = errors.New("dom: page has no message or status element")

// Document finds elements in a page. Lookups return nil when nothing
// matches.
type Document interface {
	ElementByID(id string) Element
	FirstByClass(class string) Element
}

// Element is the part of a page element the watcher writes to.
type Element interface {
	SetInnerHTML(html string)
	RemoveClass(class string)
}

// Presenter renders watcher output into page elements resolved once at
// construction.
type Presenter struct {
	status  Element
	success Element
	failure Element
}

var _ watcher.Presenter = (*Presenter)(nil)

// NewPresenter looks up the status element (#message, falling back to
// #status) and the success and failure regions (by id, falling back to the
// first element with that class). Missing regions are skipped when revealed.
func NewPresenter(doc Document) (*Presenter, error) {
	status := doc.ElementByID("message")
	if status == nil {
		status = doc.ElementByID("status")
	}
	if status == nil {
		return nil, ErrNoStatusElement
	}
	return &Presenter{
		status:  status,
		success: region(doc, "success"),
		failure: region(doc, "failure"),
	}, nil
}

// ShowMessage replaces the status element's content with text. Messages
// come from the page's own backend and may carry markup.
func (p *Presenter) ShowMessage(text string) {
	p.status.SetInnerHTML(text)
}

// RevealState removes the hidden class from the state's region.
func (p *Presenter) RevealState(s watcher.State) {
	var el Element
	switch s {
	case watcher.Success:
		el = p.success
	case watcher.Failure:
		el = p.failure
	default:
		return
	}
	if el != nil {
		el.RemoveClass(HiddenClass)
	}
}

func region(doc Document, name string) Element {
	if el := doc.ElementByID(name); el != nil {
		return el
	}
	return doc.FirstByClass(name)
}
