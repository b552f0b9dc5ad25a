//go:build js && wasm

package dom

import "syscall/js"

// jsDocument adapts a browser document to Document.
type jsDocument struct {
	v js.Value
}

// WrapDocument returns doc as a Document.
func WrapDocument(doc js.Value) Document {
	return jsDocument{v: doc}
}

func (d jsDocument) ElementByID(id string) Element {
	return element(d.v.Call("getElementById", id))
}

func (d jsDocument) FirstByClass(class string) Element {
	return element(d.v.Call("getElementsByClassName", class).Index(0))
}

type jsElement struct {
	v js.Value
}

func element(v js.Value) Element {
	if !present(v) {
		return nil
	}
	return jsElement{v: v}
}

func (e jsElement) SetInnerHTML(html string) {
	e.v.Set("innerHTML", html)
}

func (e jsElement) RemoveClass(class string) {
	e.v.Get("classList").Call("remove", class)
}

func present(v js.Value) bool {
	return !v.IsNull() && !v.IsUndefined()
}
