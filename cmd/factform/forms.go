package main

import (
	"fmt"
	"os"

	"github.com/dlovans/factform/pkg/dom"
	"github.com/dlovans/factform/pkg/factgraph"
	"github.com/dlovans/factform/pkg/form"
)

// openForm mounts the configured page over an empty graph.
func openForm() (*form.Form, error) {
	dict, err := factgraph.LoadDictionary(cfg.Dictionary)
	if err != nil {
		return nil, err
	}
	page, err := os.ReadFile(cfg.Page)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	doc, err := dom.ParseString(string(page))
	if err != nil {
		return nil, err
	}
	ops, err := cfg.BuildOperators()
	if err != nil {
		return nil, err
	}

	f := form.New(doc, factgraph.New(dict), form.Options{
		Logger:    logger,
		Operators: ops,
		Messages:  cfg.Messages,
		NewStore:  func() form.Store { return factgraph.New(dict) },
		LoadStore: func(serialized string) (form.Store, error) {
			return factgraph.Deserialize(dict, serialized)
		},
	})
	f.Mount()
	return f, nil
}
