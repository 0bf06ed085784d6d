// Package form binds an HTML page to a fact store.
//
// Custom elements in the page are mounted as components: fg-set fields
// read and write one fact each, fg-collection elements repeat a template
// per collection item, fg-show elements display facts, and fg-reset starts
// over. Elements carrying condition and operator attributes are hidden
// while their condition does not hold, and a hidden field's fact is
// deleted. Components stay in sync through two signals on a shared Bus.
package form

import (
	"bytes"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/dlovans/factform/pkg/dom"
)

// Tag names of the mounted components.
const (
	TagField      = "fg-set"
	TagCollection = "fg-collection"
	TagItem       = "fg-collection-item"
	TagDisplay    = "fg-show"
	TagReset      = "fg-reset"
)

// Messages are the user-facing strings the form inserts.
type Messages struct {
	Required string `yaml:"required"`
	Summary  string `yaml:"summary"`
	Complete string `yaml:"complete"`
}

// DefaultMessages returns the built-in wording.
func DefaultMessages() Messages {
	return Messages{
		Required: "This question is required",
		Summary:  "Answer the questions marked below before continuing.",
		Complete: "You have completed this section.",
	}
}

// Options configures a Form. Zero values select defaults.
type Options struct {
	Logger    *zap.Logger
	Bus       Bus
	IDs       func() string
	Operators *Operators
	Metrics   Recorder
	Messages  Messages

	// NewStore builds the empty store Reset switches to.
	NewStore func() Store
	// LoadStore rebuilds a store from serialized form for Load.
	LoadStore func(serialized string) (Store, error)
	// OnComplete runs after "mark complete" passes the gate.
	OnComplete func()
}

type component interface {
	destroy()
}

// Form is the context shared by every mounted component. It is not safe
// for concurrent use.
type Form struct {
	doc      *dom.Document
	pristine []byte
	store    Store

	log        *zap.Logger
	bus        Bus
	ids        func() string
	operators  *Operators
	metrics    Recorder
	messages   Messages
	newStore   func() Store
	loadStore  func(string) (Store, error)
	onComplete func()

	components map[*html.Node]component
	// templates holds each collection's captured item template, keyed by
	// the collection's concrete path.
	templates map[string][]*html.Node
}

// New prepares a form over doc. Nothing is mounted until Mount.
func New(doc *dom.Document, store Store, opts Options) *Form {
	f := &Form{
		doc:        doc,
		store:      store,
		log:        opts.Logger,
		bus:        opts.Bus,
		ids:        opts.IDs,
		operators:  opts.Operators,
		metrics:    opts.Metrics,
		messages:   opts.Messages,
		newStore:   opts.NewStore,
		loadStore:  opts.LoadStore,
		onComplete: opts.OnComplete,
		components: make(map[*html.Node]component),
		templates:  make(map[string][]*html.Node),
	}
	if f.log == nil {
		f.log = zap.NewNop()
	}
	if f.bus == nil {
		f.bus = NewSignalBus()
	}
	if f.ids == nil {
		f.ids = uuid.NewString
	}
	if f.operators == nil {
		f.operators = NewOperators()
	}
	if f.metrics == nil {
		f.metrics = nopRecorder{}
	}
	defaults := DefaultMessages()
	if f.messages.Required == "" {
		f.messages.Required = defaults.Required
	}
	if f.messages.Summary == "" {
		f.messages.Summary = defaults.Summary
	}
	if f.messages.Complete == "" {
		f.messages.Complete = defaults.Complete
	}

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		f.log.Warn("Could not capture page markup, reload disabled", zap.Error(err))
	}
	f.pristine = buf.Bytes()

	f.bus.Subscribe(SignalUpdate, TierVisibility, f.EvaluateVisibility)
	f.bus.Subscribe(SignalClear, TierVisibility, f.EvaluateVisibility)
	return f
}

// Document returns the current page. Reload replaces it.
func (f *Form) Document() *dom.Document { return f.doc }

// Store returns the current store. Reset and Load replace it.
func (f *Form) Store() Store { return f.store }

// Bus returns the signal bus.
func (f *Form) Bus() Bus { return f.bus }

// Logger returns the form's logger.
func (f *Form) Logger() *zap.Logger { return f.log }

// Operators returns the condition operator registry.
func (f *Form) Operators() *Operators { return f.operators }

// Mount instantiates components for every custom element in the page, in
// document order, and runs one visibility pass. Elements already mounted
// are left alone.
func (f *Form) Mount() {
	f.mount(f.doc.Root())
	if main := f.doc.Query(dom.Tag("main")); main != nil {
		dom.RemoveClass(main, ClassHidden)
	}
	f.EvaluateVisibility()
	f.log.Debug("Form mounted", zap.Int("components", len(f.components)))
}

func (f *Form) mount(n *html.Node) {
	if n.Type == html.ElementNode {
		if n.Data == "template" {
			return
		}
		_, mounted := f.components[n]
		switch n.Data {
		case TagCollection:
			if !mounted {
				f.mountCollection(n)
			}
			return
		case TagField:
			if !mounted {
				f.mountField(n)
			}
		case TagDisplay:
			if !mounted {
				f.mountDisplay(n)
			}
		case TagReset:
			if !mounted {
				f.mountReset(n)
			}
		case TagItem:
			if !mounted {
				f.log.Warn("Collection item outside of a collection", zap.String("path", dom.Attr(n, "path")))
			}
		}
	}
	f.mountChildren(n)
}

func (f *Form) mountChildren(n *html.Node) {
	for _, c := range dom.Children(n) {
		f.mount(c)
	}
}

// Unmount destroys every component in n's subtree, n included.
func (f *Form) Unmount(n *html.Node) {
	for el, c := range f.components {
		if dom.Contains(n, el) {
			c.destroy()
			delete(f.components, el)
		}
	}
}

// Fields returns the mounted fields in document order.
func (f *Form) Fields() []*Field {
	var out []*Field
	for _, el := range f.doc.QueryAll(dom.Tag(TagField)) {
		if fld, ok := f.components[el].(*Field); ok {
			out = append(out, fld)
		}
	}
	return out
}

// Field returns the mounted field bound to path, or nil.
func (f *Form) Field(path string) *Field {
	for _, fld := range f.Fields() {
		if fld.rawPath == path {
			return fld
		}
	}
	return nil
}

// Collection returns the mounted collection at path, or nil.
func (f *Form) Collection(path string) *Collection {
	for _, el := range f.doc.QueryAll(dom.Tag(TagCollection)) {
		if c, ok := f.components[el].(*Collection); ok && c.path.String() == path {
			return c
		}
	}
	return nil
}

// Displays returns the mounted displays in document order.
func (f *Form) Displays() []*Display {
	var out []*Display
	for _, el := range f.doc.QueryAll(dom.Tag(TagDisplay)) {
		if d, ok := f.components[el].(*Display); ok {
			out = append(out, d)
		}
	}
	return out
}

func (f *Form) save() {
	if err := f.store.Save(); err != nil {
		f.log.Error("Saving facts failed", zap.Error(err))
	}
}

func (f *Form) publish(s Signal) {
	f.metrics.SignalPublished(s)
	f.bus.Publish(s)
}
