package form

import (
	"bytes"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/dlovans/factform/pkg/dom"
)

var (
	// ErrNoStoreFactory is returned by Reset without Options.NewStore.
	ErrNoStoreFactory = errors.New("form: no store factory configured")
	// ErrNoStoreLoader is returned by Load without Options.LoadStore.
	ErrNoStoreLoader = errors.New("form: no store loader configured")
	// ErrNotSerializable is returned by Serialize for stores that cannot
	// write themselves out.
	ErrNotSerializable = errors.New("form: store cannot be serialized")
)

type resetButton struct {
	cancel func()
}

func (f *Form) mountReset(el *html.Node) *resetButton {
	b := &resetButton{}
	b.cancel = f.doc.Listen(el, dom.EventClick, func(ev *dom.Event) {
		ev.PreventDefault()
		if err := f.Reset(); err != nil {
			f.log.Error("Reset failed", zap.Error(err))
		}
	})
	f.components[el] = b
	return b
}

func (b *resetButton) destroy() { b.cancel() }

// Reset replaces the store with an empty one, saves it, and publishes Clear
// followed by Update.
func (f *Form) Reset() error {
	if f.newStore == nil {
		return ErrNoStoreFactory
	}
	f.store = f.newStore()
	f.save()
	f.publish(SignalClear)
	f.publish(SignalUpdate)
	f.log.Info("Form reset")
	return nil
}

// Load replaces the store with one built from serialized, saves it and
// remounts the pristine page against it.
func (f *Form) Load(serialized string) error {
	if f.loadStore == nil {
		return ErrNoStoreLoader
	}
	st, err := f.loadStore(serialized)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	f.store = st
	f.save()
	return f.Reload()
}

// Reload unmounts everything, restores the markup the form was created with
// and mounts it again against the current store.
func (f *Form) Reload() error {
	f.Unmount(f.doc.Root())
	doc, err := dom.Parse(bytes.NewReader(f.pristine))
	if err != nil {
		return fmt.Errorf("reload page: %w", err)
	}
	f.doc = doc
	f.templates = make(map[string][]*html.Node)
	f.Mount()
	return nil
}

// Serialize writes the store out when it supports it.
func (f *Form) Serialize() (string, error) {
	s, ok := f.store.(Serializer)
	if !ok {
		return "", ErrNotSerializable
	}
	return s.Serialize()
}
