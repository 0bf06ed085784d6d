package form

import (
	"slices"
	"sort"
)

// Signal is a payload-free notification broadcast to every mounted component.
type Signal string

const (
	// SignalUpdate means the store may have changed and everything should re-render.
	SignalUpdate Signal = "fg-update"
	// SignalClear means unsaved UI state must be discarded and dynamic items removed.
	SignalClear Signal = "fg-clear"
)

// Tier orders delivery of one signal: fields first, then the visibility
// pass, then read-only displays, so displays see facts the visibility pass
// deleted.
type Tier int

const (
	TierFields Tier = iota
	TierVisibility
	TierDisplay
)

// Bus delivers signals synchronously. Publish returns only after every
// subscriber ran.
type Bus interface {
	Subscribe(s Signal, tier Tier, fn func()) (unsubscribe func())
	Publish(s Signal)
}

type subscription struct {
	signal Signal
	tier   Tier
	fn     func()
	active bool
}

// SignalBus is the default Bus. Within a tier, subscribers run in the order
// they subscribed. Subscribers removed while a signal is being delivered
// are skipped.
type SignalBus struct {
	subs []*subscription
}

// NewSignalBus returns an empty bus.
func NewSignalBus() *SignalBus { return &SignalBus{} }

func (b *SignalBus) Subscribe(s Signal, tier Tier, fn func()) func() {
	sub := &subscription{signal: s, tier: tier, fn: fn, active: true}
	b.subs = append(b.subs, sub)
	return func() {
		sub.active = false
		b.subs = slices.DeleteFunc(b.subs, func(x *subscription) bool { return x == sub })
	}
}

func (b *SignalBus) Publish(s Signal) {
	var targets []*subscription
	for _, sub := range b.subs {
		if sub.signal == s {
			targets = append(targets, sub)
		}
	}
	sort.SliceStable(targets, func(i, j int) bool { return targets[i].tier < targets[j].tier })

	for _, sub := range targets {
		if sub.active {
			sub.fn()
		}
	}
}

// Subscribers counts live subscriptions to s.
func (b *SignalBus) Subscribers(s Signal) int {
	n := 0
	for _, sub := range b.subs {
		if sub.signal == s {
			n++
		}
	}
	return n
}
