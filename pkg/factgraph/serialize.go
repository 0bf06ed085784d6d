package factgraph

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dlovans/factform/pkg/factpath"
)

var ErrMalformed = errors.New("factgraph: malformed serialized graph")

type snapshot struct {
	Facts       map[string]string   `json:"facts"`
	Collections map[string][]string `json:"collections"`
}

// Serialize writes every stored value in canonical text form. Placeholders
// are not stored and so are not written.
func (g *Graph) Serialize() (string, error) {
	snap := snapshot{
		Facts:       make(map[string]string, len(g.facts)),
		Collections: make(map[string][]string, len(g.collections)),
	}
	for k, v := range g.facts {
		snap.Facts[k] = formatValue(v)
	}
	for k, ids := range g.collections {
		if len(ids) > 0 {
			snap.Collections[k] = ids
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("serialize graph: %w", err)
	}
	return string(data), nil
}

// Deserialize rebuilds a graph from Serialize output.
// Collections are restored before facts so that item paths resolve.
func Deserialize(dict *Dictionary, data string, opts ...Option) (*Graph, error) {
	if !gjson.Valid(data) {
		return nil, ErrMalformed
	}
	g := New(dict, opts...)
	doc := gjson.Parse(data)

	var err error
	doc.Get("collections").ForEach(func(key, ids gjson.Result) bool {
		var coll factpath.Path
		if coll, err = factpath.Parse(key.String()); err != nil {
			return false
		}
		ids.ForEach(func(_, id gjson.Result) bool {
			err = g.AddToCollection(coll, id.String())
			return err == nil
		})
		return err == nil
	})
	if err != nil {
		return nil, fmt.Errorf("restore collections: %w", err)
	}

	doc.Get("facts").ForEach(func(key, raw gjson.Result) bool {
		var p factpath.Path
		if p, err = factpath.Parse(key.String()); err != nil {
			return false
		}
		err = g.Set(p, raw.String())
		return err == nil
	})
	if err != nil {
		return nil, fmt.Errorf("restore facts: %w", err)
	}
	return g, nil
}
