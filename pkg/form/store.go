package form

import (
	"github.com/dlovans/factform/pkg/factgraph"
	"github.com/dlovans/factform/pkg/factpath"
)

// Store is the fact graph the form reads and writes. The form never passes
// an abstract path to Set, Delete or AddToCollection.
type Store interface {
	Get(p factpath.Path) factgraph.Result
	Set(p factpath.Path, raw string) error
	Delete(p factpath.Path)
	AddToCollection(coll factpath.Path, id string) error
	CollectionIDs(coll factpath.Path) []string
	// Values reads every fact an abstract path expands to.
	Values(p factpath.Path) []factgraph.Result
	Save() error
}

// Serializer is implemented by stores that can be written out for reload.
type Serializer interface {
	Serialize() (string, error)
}

var _ Store = (*factgraph.Graph)(nil)
