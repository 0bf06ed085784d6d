//go:build js && wasm

// Package main provides WASM bindings for factform.
// This allows pages to be rendered and linted in the browser.
package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/dlovans/factform/pkg/dom"
	"github.com/dlovans/factform/pkg/factgraph"
	"github.com/dlovans/factform/pkg/form"
	"github.com/dlovans/factform/pkg/lint"
)

func main() {
	// Export FactformRender function to JavaScript
	js.Global().Set("FactformRender", js.FuncOf(factformRender))

	// Export FactformLint function to JavaScript
	js.Global().Set("FactformLint", js.FuncOf(factformLint))

	// Keep the Go runtime alive
	select {}
}

// factformRender mounts a page over a fact graph and returns its markup.
// Usage: FactformRender(page, dictionaryYAML, [factsJSON]) -> { result: string, error?: string }
func factformRender(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return makeError("FactformRender requires 2 arguments: page, dictionary")
	}

	dict, err := factgraph.ParseDictionary([]byte(args[1].String()))
	if err != nil {
		return makeError(err.Error())
	}
	doc, err := dom.ParseString(args[0].String())
	if err != nil {
		return makeError(err.Error())
	}

	var store form.Store = factgraph.New(dict)
	if len(args) > 2 && args[2].Type() == js.TypeString && args[2].String() != "" {
		g, err := factgraph.Deserialize(dict, args[2].String())
		if err != nil {
			return makeError(err.Error())
		}
		store = g
	}

	f := form.New(doc, store, form.Options{})
	f.Mount()
	return map[string]any{
		"result": doc.String(),
	}
}

// factformLint is the JS-callable wrapper for lint.Run()
// Usage: FactformLint(page, [dictionaryYAML]) -> { result: object, error?: string }
func factformLint(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return makeError("FactformLint requires 1 argument: page")
	}

	opts := lint.Options{}
	if len(args) > 1 && args[1].Type() == js.TypeString && args[1].String() != "" {
		dict, err := factgraph.ParseDictionary([]byte(args[1].String()))
		if err != nil {
			return makeError(err.Error())
		}
		opts.Dictionary = dict
	}

	result, err := lint.RunString(args[0].String(), opts)
	if err != nil {
		return makeError(err.Error())
	}
	data, err := json.Marshal(result)
	if err != nil {
		return makeError(err.Error())
	}
	return makeResult(string(data))
}

// makeError creates a JS-friendly error response
func makeError(msg string) map[string]any {
	return map[string]any{
		"error": msg,
	}
}

// makeResult creates a JS-friendly success response
func makeResult(jsonStr string) map[string]any {
	// Parse the result to return as a JS object instead of string
	var result any
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return map[string]any{
			"result": jsonStr,
		}
	}

	return map[string]any{
		"result": result,
	}
}
