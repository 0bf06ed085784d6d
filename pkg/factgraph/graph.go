// Package factgraph is an in-memory fact store: typed answers addressed by
// fact paths, with completeness tracking, placeholders and collections of
// repeated items.
//
// It is the reference store for the form engine and is deliberately small:
// there are no derived facts and no dependency resolution.
package factgraph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dlovans/factform/pkg/factpath"
)

// Persister receives the serialized graph on every Save.
type Persister interface {
	Persist(serialized string) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(serialized string) error

func (f PersisterFunc) Persist(serialized string) error { return f(serialized) }

// Option configures a Graph.
type Option func(*Graph)

// WithPersister makes Save hand the serialized graph to p.
func WithPersister(p Persister) Option {
	return func(g *Graph) { g.persister = p }
}

// Graph holds fact values keyed by concrete path.
type Graph struct {
	dict        *Dictionary
	facts       map[string]any
	collections map[string][]string
	persister   Persister
}

// New creates an empty graph over dict.
func New(dict *Dictionary, opts ...Option) *Graph {
	g := &Graph{
		dict:        dict,
		facts:       make(map[string]any),
		collections: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dictionary returns the dictionary the graph was built with.
func (g *Graph) Dictionary() *Dictionary { return g.dict }

// Get reads one fact. Abstract, unknown and unreachable paths read as empty.
func (g *Graph) Get(p factpath.Path) Result {
	if p.IsAbstract() {
		return Result{}
	}
	def, ok := g.dict.Lookup(p)
	if !ok || !g.reachable(p) {
		return Result{}
	}

	key := p.String()
	if def.Type == TypeCollection {
		return Result{HasValue: true, Complete: true, Value: slices.Clone(g.collections[key])}
	}
	if v, ok := g.facts[key]; ok {
		return Result{HasValue: true, Complete: true, Value: v}
	}
	if def.placeholder != nil {
		return Result{HasValue: true, Complete: false, Value: def.placeholder}
	}
	return Result{}
}

// Set parses raw according to the fact's type and stores it.
func (g *Graph) Set(p factpath.Path, raw string) error {
	if p.IsAbstract() {
		return fmt.Errorf("%w: %s", ErrAbstractPath, p)
	}
	def, ok := g.dict.Lookup(p)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFact, p)
	}
	if !g.reachable(p) {
		return fmt.Errorf("%w: %s", ErrUnknownItem, p)
	}

	v, err := def.parse(raw)
	if err != nil {
		if ve, ok := err.(*ValueError); ok {
			ve.Path = p.String()
		}
		return err
	}
	g.facts[p.String()] = v
	return nil
}

// Delete removes a fact and everything beneath it. Deleting a member path
// removes that item from its collection. Absent paths are a no-op.
func (g *Graph) Delete(p factpath.Path) {
	if p.IsAbstract() {
		return
	}
	key := p.String()
	prefix := key + "/"

	delete(g.facts, key)
	for k := range g.facts {
		if strings.HasPrefix(k, prefix) {
			delete(g.facts, k)
		}
	}
	delete(g.collections, key)
	for k := range g.collections {
		if strings.HasPrefix(k, prefix) {
			delete(g.collections, k)
		}
	}

	if last, ok := p.Last(); ok && last.Kind == factpath.KindMember {
		coll := p.Parent().String()
		g.collections[coll] = slices.DeleteFunc(g.collections[coll], func(id string) bool {
			return id == last.Value
		})
	}
}

// AddToCollection appends id to the collection at coll.
func (g *Graph) AddToCollection(coll factpath.Path, id string) error {
	if coll.IsAbstract() {
		return fmt.Errorf("%w: %s", ErrAbstractPath, coll)
	}
	def, ok := g.dict.Lookup(coll)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFact, coll)
	}
	if def.Type != TypeCollection {
		return fmt.Errorf("%w: %s", ErrNotCollection, coll)
	}
	if !g.reachable(coll) {
		return fmt.Errorf("%w: %s", ErrUnknownItem, coll)
	}
	if id == "" {
		return fmt.Errorf("factgraph: empty item id for %s", coll)
	}

	key := coll.String()
	if slices.Contains(g.collections[key], id) {
		return fmt.Errorf("factgraph: item %s already in %s", id, coll)
	}
	g.collections[key] = append(g.collections[key], id)
	return nil
}

// CollectionIDs returns the item ids of a collection in insertion order.
func (g *Graph) CollectionIDs(coll factpath.Path) []string {
	if coll.IsAbstract() || !g.reachable(coll) {
		return nil
	}
	return slices.Clone(g.collections[coll.String()])
}

// Values reads every fact an abstract path expands to, walking collection
// items in order. A concrete path yields its single result.
func (g *Graph) Values(p factpath.Path) []Result {
	var out []Result
	g.expand(p, func(c factpath.Path) {
		out = append(out, g.Get(c))
	})
	return out
}

func (g *Graph) expand(p factpath.Path, visit func(factpath.Path)) {
	segs := p.Segments()
	for i, s := range segs {
		if s.Kind != factpath.KindWildcard {
			continue
		}
		for _, id := range g.CollectionIDs(factpath.New(segs[:i]...)) {
			g.expand(p.Substitute(id), visit)
		}
		return
	}
	visit(p)
}

// reachable reports whether every item p passes through exists.
func (g *Graph) reachable(p factpath.Path) bool {
	segs := p.Segments()
	for i, s := range segs {
		if s.Kind != factpath.KindMember {
			continue
		}
		coll := factpath.New(segs[:i]...).String()
		if !slices.Contains(g.collections[coll], s.Value) {
			return false
		}
	}
	return true
}

// Save hands the serialized graph to the configured persister.
func (g *Graph) Save() error {
	if g.persister == nil {
		return nil
	}
	s, err := g.Serialize()
	if err != nil {
		return err
	}
	if err := g.persister.Persist(s); err != nil {
		return fmt.Errorf("persist graph: %w", err)
	}
	return nil
}
