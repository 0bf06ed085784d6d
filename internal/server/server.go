// Package server serves form sessions over HTTP. Each session owns a
// mounted form over its own copy of the page and its own fact graph;
// browser-side code forwards user events and renders the returned markup.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dlovans/factform/internal/metrics"
	"github.com/dlovans/factform/internal/session"
	"github.com/dlovans/factform/pkg/dom"
	"github.com/dlovans/factform/pkg/factgraph"
	"github.com/dlovans/factform/pkg/form"
)

// ErrUnknownSession is returned for session ids the server has never seen.
var ErrUnknownSession = errors.New("server: unknown session")

// Options configures a Server.
type Options struct {
	// Page is the form markup every session starts from.
	Page       []byte
	Dictionary *factgraph.Dictionary
	Operators  *form.Operators
	Messages   form.Messages
	// Sessions persists graphs between restarts. Nil keeps them in memory.
	Sessions *session.Store
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	// IDs generates session and collection item ids.
	IDs func() string
}

// Server holds live sessions. It is safe for concurrent use; requests for
// one session are serialized.
type Server struct {
	dict     *factgraph.Dictionary
	ops      *form.Operators
	messages form.Messages
	store    *session.Store
	metrics  *metrics.Metrics
	log      *zap.Logger
	ids      func() string

	mu       sync.Mutex
	page     []byte
	sessions map[string]*live
}

type live struct {
	mu        sync.Mutex
	id        string
	form      *form.Form
	completed int
}

// New validates the page and returns a server with no sessions.
func New(opts Options) (*Server, error) {
	if opts.Dictionary == nil {
		return nil, errors.New("server: a fact dictionary is required")
	}
	if _, err := dom.Parse(bytes.NewReader(opts.Page)); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	s := &Server{
		dict:     opts.Dictionary,
		ops:      opts.Operators,
		messages: opts.Messages,
		store:    opts.Sessions,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		ids:      opts.IDs,
		page:     opts.Page,
		sessions: make(map[string]*live),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.ids == nil {
		s.ids = uuid.NewString
	}
	if s.ops == nil {
		s.ops = form.NewOperators()
	}
	return s, nil
}

// Create starts a new session with an empty graph, stored right away so
// the session can be restored before its first answer.
func (s *Server) Create() (string, error) {
	id := s.ids()
	l := &live{id: id}
	g := s.newGraph(id)
	if err := g.Save(); err != nil {
		return "", fmt.Errorf("save new session: %w", err)
	}
	f, err := s.mount(l, g)
	if err != nil {
		return "", err
	}
	l.form = f

	s.mu.Lock()
	s.sessions[id] = l
	n := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetSessions(n)
	s.log.Info("Session created", zap.String("session", id))
	return id, nil
}

// session returns the live session for id, restoring it from the session
// store when it is not in memory. The store is read without holding s.mu.
func (s *Server) session(ctx context.Context, id string) (*live, error) {
	s.mu.Lock()
	l, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		return l, nil
	}
	if s.store == nil {
		return nil, ErrUnknownSession
	}

	serialized, err := s.store.Load(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrUnknownSession
	}
	if err != nil {
		return nil, err
	}
	g, err := factgraph.Deserialize(s.dict, serialized, s.persist(id)...)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another request may have restored it meanwhile.
	if l, ok := s.sessions[id]; ok {
		return l, nil
	}
	l = &live{id: id}
	if l.form, err = s.mountLocked(l, g); err != nil {
		return nil, err
	}
	s.sessions[id] = l
	s.metrics.SetSessions(len(s.sessions))
	s.log.Info("Session restored", zap.String("session", id))
	return l, nil
}

// Drop forgets a session, in memory and in the session store.
func (s *Server) Drop(ctx context.Context, id string) error {
	s.mu.Lock()
	_, known := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetSessions(n)

	if s.store != nil {
		if err := s.store.Delete(ctx, id); err != nil {
			return err
		}
		return nil
	}
	if !known {
		return ErrUnknownSession
	}
	return nil
}

// SetPage swaps the page markup. Live sessions are remounted on the new
// page with their current facts; new sessions start from it.
func (s *Server) SetPage(page []byte) error {
	if _, err := dom.Parse(bytes.NewReader(page)); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = page
	for _, l := range s.sessions {
		l.mu.Lock()
		f, err := s.mountLocked(l, l.form.Store())
		if err == nil {
			l.form = f
		}
		l.mu.Unlock()
		if err != nil {
			return err
		}
	}
	s.log.Info("Page reloaded", zap.Int("sessions", len(s.sessions)))
	return nil
}

func (s *Server) mount(l *live, store form.Store) (*form.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mountLocked(l, store)
}

// mountLocked builds and mounts a form for l over the current page. s.mu
// must be held.
func (s *Server) mountLocked(l *live, store form.Store) (*form.Form, error) {
	doc, err := dom.Parse(bytes.NewReader(s.page))
	if err != nil {
		return nil, err
	}
	id := l.id
	f := form.New(doc, store, form.Options{
		Logger:    s.log.With(zap.String("session", id)),
		IDs:       s.ids,
		Operators: s.ops,
		Metrics:   s.metrics,
		Messages:  s.messages,
		NewStore:  func() form.Store { return s.newGraph(id) },
		LoadStore: func(serialized string) (form.Store, error) {
			return factgraph.Deserialize(s.dict, serialized, s.persist(id)...)
		},
		OnComplete: func() {
			l.completed++
			s.log.Info("Section completed", zap.String("session", id))
		},
	})
	f.Mount()
	return f, nil
}

func (s *Server) newGraph(id string) *factgraph.Graph {
	return factgraph.New(s.dict, s.persist(id)...)
}

func (s *Server) persist(id string) []factgraph.Option {
	if s.store == nil {
		return nil
	}
	return []factgraph.Option{factgraph.WithPersister(s.store.Persister(id))}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("Serving forms", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	<-errc
	return nil
}
