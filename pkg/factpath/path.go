// Package factpath implements the structured addresses used to reach facts in a fact graph.
//
// A path is a sequence of segments written as "/a/b/c". A segment is either a
// plain name, the wildcard "*" standing for "any item of the enclosing
// collection", or a collection member "#<id>" naming one item.
//
// Paths containing a wildcard are abstract. They describe a template and must
// be made concrete with Substitute before a store is asked about them.
package factpath

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard is the textual marker for an unresolved collection item.
const Wildcard = "*"

// memberPrefix introduces a collection member segment.
const memberPrefix = "#"

var (
	ErrEmpty       = errors.New("factpath: empty path")
	ErrNotAbsolute = errors.New("factpath: path must start with '/'")
)

// Kind distinguishes the three segment forms.
type Kind int

const (
	KindName Kind = iota
	KindWildcard
	KindMember
)

// Segment is one step of a path.
type Segment struct {
	Kind  Kind
	Value string // name or member id; empty for wildcards
}

// Name returns a plain named segment.
func Name(s string) Segment { return Segment{Kind: KindName, Value: s} }

// Member returns a collection member segment for id.
func Member(id string) Segment { return Segment{Kind: KindMember, Value: id} }

// Any returns the wildcard segment.
func Any() Segment { return Segment{Kind: KindWildcard} }

func (s Segment) String() string {
	switch s.Kind {
	case KindWildcard:
		return Wildcard
	case KindMember:
		return memberPrefix + s.Value
	default:
		return s.Value
	}
}

// Path is an immutable fact address. The zero value is the root "/".
type Path struct {
	segments []Segment
}

// New builds a path from segments.
func New(segs ...Segment) Path {
	out := make([]Segment, len(segs))
	copy(out, segs)
	return Path{segments: out}
}

// Parse reads the textual form of a path.
func Parse(s string) (Path, error) {
	if s == "" {
		return Path{}, ErrEmpty
	}
	if !strings.HasPrefix(s, "/") {
		return Path{}, fmt.Errorf("%w: %q", ErrNotAbsolute, s)
	}
	if s == "/" {
		return Path{}, nil
	}

	parts := strings.Split(s[1:], "/")
	segs := make([]Segment, 0, len(parts))
	for i, part := range parts {
		switch {
		case part == "":
			return Path{}, fmt.Errorf("factpath: empty segment %d in %q", i, s)
		case part == Wildcard:
			segs = append(segs, Any())
		case strings.HasPrefix(part, memberPrefix):
			id := part[len(memberPrefix):]
			if id == "" {
				return Path{}, fmt.Errorf("factpath: member without id in %q", s)
			}
			segs = append(segs, Member(id))
		default:
			segs = append(segs, Name(part))
		}
	}
	return Path{segments: segs}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Segments returns a copy of the path's segments.
func (p Path) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segments) }

// IsRoot reports whether p has no segments.
func (p Path) IsRoot() bool { return len(p.segments) == 0 }

// IsAbstract reports whether p contains a wildcard.
func (p Path) IsAbstract() bool {
	for _, s := range p.segments {
		if s.Kind == KindWildcard {
			return true
		}
	}
	return false
}

// Substitute replaces the first wildcard with a member segment for id.
// Concrete paths are returned unchanged.
func (p Path) Substitute(id string) Path {
	for i, s := range p.segments {
		if s.Kind == KindWildcard {
			segs := p.Segments()
			segs[i] = Member(id)
			return Path{segments: segs}
		}
	}
	return p
}

// Abstract replaces every member segment with a wildcard, giving the
// template path a dictionary is keyed by.
func (p Path) Abstract() Path {
	segs := p.Segments()
	for i, s := range segs {
		if s.Kind == KindMember {
			segs[i] = Any()
		}
	}
	return Path{segments: segs}
}

// Child returns p extended by seg.
func (p Path) Child(seg Segment) Path {
	segs := make([]Segment, len(p.segments), len(p.segments)+1)
	copy(segs, p.segments)
	return Path{segments: append(segs, seg)}
}

// Parent returns p without its last segment. The parent of the root is the root.
func (p Path) Parent() Path {
	if len(p.segments) == 0 {
		return p
	}
	return Path{segments: p.Segments()[:len(p.segments)-1]}
}

// Last returns the final segment, or false for the root.
func (p Path) Last() (Segment, bool) {
	if len(p.segments) == 0 {
		return Segment{}, false
	}
	return p.segments[len(p.segments)-1], true
}

// IsMember reports whether p names one collection item, i.e. ends in "#id".
func (p Path) IsMember() bool {
	last, ok := p.Last()
	return ok && last.Kind == KindMember
}

// HasPrefix reports whether prefix is p itself or one of its ancestors.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix.segments) > len(p.segments) {
		return false
	}
	for i, s := range prefix.segments {
		if p.segments[i] != s {
			return false
		}
	}
	return true
}

// Equal reports whether p and o address the same fact.
func (p Path) Equal(o Path) bool {
	return len(p.segments) == len(o.segments) && p.HasPrefix(o)
}

func (p Path) String() string {
	if len(p.segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range p.segments {
		b.WriteByte('/')
		b.WriteString(s.String())
	}
	return b.String()
}
