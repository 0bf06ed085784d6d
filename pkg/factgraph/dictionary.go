package factgraph

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dlovans/factform/pkg/factpath"
)

// Definition declares one fact. Paths are abstract: facts living inside a
// collection item are declared once with a wildcard for the item id.
type Definition struct {
	Path        string   `yaml:"path"`
	Type        Type     `yaml:"type"`
	Options     []string `yaml:"options,omitempty"`     // for "enum"
	Placeholder string   `yaml:"placeholder,omitempty"` // reported as an incomplete value until set

	path        factpath.Path
	placeholder any
}

// Dictionary is the set of facts a graph can hold.
type Dictionary struct {
	Facts []*Definition `yaml:"facts"`

	index map[string]*Definition
}

// NewDictionary validates defs and indexes them by path.
func NewDictionary(defs ...*Definition) (*Dictionary, error) {
	d := &Dictionary{Facts: defs}
	if err := d.build(); err != nil {
		return nil, err
	}
	return d, nil
}

// ParseDictionary reads a YAML dictionary document.
func ParseDictionary(data []byte) (*Dictionary, error) {
	var d Dictionary
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse dictionary: %w", err)
	}
	if err := d.build(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadDictionary reads a YAML dictionary from disk.
func LoadDictionary(filename string) (*Dictionary, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return ParseDictionary(data)
}

func (d *Dictionary) build() error {
	d.index = make(map[string]*Definition, len(d.Facts))

	for i, def := range d.Facts {
		if def == nil {
			return fmt.Errorf("dictionary: fact %d is empty", i)
		}
		p, err := factpath.Parse(def.Path)
		if err != nil {
			return fmt.Errorf("dictionary: fact %d: %w", i, err)
		}
		if !def.Type.valid() {
			return fmt.Errorf("dictionary: fact %s has unknown type %q", def.Path, def.Type)
		}
		if def.Type == TypeEnum && len(def.Options) == 0 {
			return fmt.Errorf("dictionary: enum fact %s has no options", def.Path)
		}
		key := p.Abstract().String()
		if _, dup := d.index[key]; dup {
			return fmt.Errorf("dictionary: fact %s declared twice", def.Path)
		}
		def.path = p.Abstract()
		d.index[key] = def
	}

	// Second pass: wildcards must sit under declared collections, and
	// placeholders must be valid values.
	for _, def := range d.Facts {
		segs := def.path.Segments()
		for i, s := range segs {
			if s.Kind != factpath.KindWildcard {
				continue
			}
			parent, ok := d.index[factpath.New(segs[:i]...).String()]
			if !ok || parent.Type != TypeCollection {
				return fmt.Errorf("dictionary: fact %s: wildcard is not under a collection", def.Path)
			}
		}

		if def.Placeholder != "" {
			v, err := def.parse(def.Placeholder)
			if err != nil {
				return fmt.Errorf("dictionary: placeholder for %s: %w", def.Path, err)
			}
			def.placeholder = v
		}
	}
	return nil
}

// Lookup finds the definition for a concrete or abstract path.
func (d *Dictionary) Lookup(p factpath.Path) (*Definition, bool) {
	if d == nil {
		return nil, false
	}
	def, ok := d.index[p.Abstract().String()]
	return def, ok
}

// Paths lists every declared path, sorted.
func (d *Dictionary) Paths() []string {
	paths := make([]string, 0, len(d.index))
	for k := range d.index {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	return paths
}
