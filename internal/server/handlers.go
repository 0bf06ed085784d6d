package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/dlovans/factform/internal/playback"
	"github.com/dlovans/factform/pkg/dom"
	"github.com/dlovans/factform/pkg/factgraph"
	"github.com/dlovans/factform/pkg/factpath"
	"github.com/dlovans/factform/pkg/form"
)

// maxBody caps request bodies; serialized graphs are the largest.
const maxBody = 1 << 20

// EventRequest is one user interaction forwarded by the page.
type EventRequest struct {
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
	Path   string `json:"path,omitempty"`
	Value  string `json:"value,omitempty"`
	Index  int    `json:"index,omitempty"`
}

// StateResponse is returned after every interaction. HTML holds the
// content of the page's main element.
type StateResponse struct {
	Session string `json:"session"`
	HTML    string `json:"html"`
	// Proceed is set by continue and complete.
	Proceed   *bool `json:"proceed,omitempty"`
	Completed int   `json:"completed"`
}

// FactResponse reports a single fact.
type FactResponse struct {
	Path     string `json:"path"`
	HasValue bool   `json:"hasValue"`
	Complete bool   `json:"complete"`
	Value    string `json:"value,omitempty"`
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	s.Register(r)
	return r
}

// Register mounts the session endpoints on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/sessions", s.handleCreate)
	r.Route("/sessions/{session}", func(r chi.Router) {
		r.Get("/", s.handlePage)
		r.Delete("/", s.handleDrop)
		r.Post("/events", s.handleEvent)
		r.Post("/continue", s.handleContinue)
		r.Post("/complete", s.handleComplete)
		r.Post("/reset", s.handleReset)
		r.Get("/facts", s.handleGetFacts)
		r.Put("/facts", s.handlePutFacts)
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	id, err := s.Create()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.withSession(w, r, id, func(l *live) {
		writeJSON(w, http.StatusCreated, l.state(nil))
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, chi.URLParam(r, "session"), func(l *live) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := l.form.Document().Render(w); err != nil {
			s.log.Warn("Rendering page failed", zap.Error(err))
		}
	})
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	if err := s.Drop(r.Context(), chi.URLParam(r, "session")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid event: "+err.Error()))
		return
	}
	step := playback.Step{
		Action: req.Action,
		Target: req.Target,
		Path:   req.Path,
		Value:  req.Value,
		Index:  req.Index,
	}
	script, err := playback.ParseSteps(step)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	s.withSession(w, r, chi.URLParam(r, "session"), func(l *live) {
		p := playback.New(l.form, s.log)
		if _, err := p.Run(r.Context(), script); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, l.state(p.Proceed()))
	})
}

func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, chi.URLParam(r, "session"), func(l *live) {
		ok := l.form.HandleSectionContinue(dom.NewEvent(dom.EventClick))
		writeJSON(w, http.StatusOK, l.state(&ok))
	})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, chi.URLParam(r, "session"), func(l *live) {
		ok := l.form.HandleSectionComplete(dom.NewEvent(dom.EventClick))
		writeJSON(w, http.StatusOK, l.state(&ok))
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, chi.URLParam(r, "session"), func(l *live) {
		if err := l.form.Reset(); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, l.state(nil))
	})
}

// handleGetFacts returns the serialized graph, or one fact when the path
// query parameter is set.
func (s *Server) handleGetFacts(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("path")
	var p factpath.Path
	if raw != "" {
		var err error
		if p, err = factpath.Parse(raw); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
	}

	s.withSession(w, r, chi.URLParam(r, "session"), func(l *live) {
		if raw != "" {
			res := l.form.Store().Get(p)
			out := FactResponse{Path: p.String(), HasValue: res.HasValue, Complete: res.Complete}
			if res.HasValue {
				out.Value = res.String()
			}
			writeJSON(w, http.StatusOK, out)
			return
		}
		serialized, err := l.form.Serialize()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, serialized)
	})
}

// handlePutFacts replaces the session's graph and reloads its page.
func (s *Server) handlePutFacts(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	s.withSession(w, r, chi.URLParam(r, "session"), func(l *live) {
		if err := l.form.Load(string(body)); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, l.state(nil))
	})
}

// withSession runs fn holding the session's lock.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, id string, fn func(*live)) {
	l, err := s.session(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l)
}

func (l *live) state(proceed *bool) StateResponse {
	doc := l.form.Document()
	out := StateResponse{Session: l.id, Proceed: proceed, Completed: l.completed}
	main := doc.Query(dom.Tag("main"))
	if main == nil {
		out.HTML = doc.String()
		return out
	}
	var b strings.Builder
	for c := main.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	out.HTML = b.String()
	return out
}

// writeError maps errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var ve *factgraph.ValueError
	switch {
	case errors.Is(err, ErrUnknownSession):
		status = http.StatusNotFound
	case errors.As(err, &ve):
		status = http.StatusBadRequest
	case errors.Is(err, playback.ErrNoElement), errors.Is(err, factgraph.ErrMalformed),
		errors.Is(err, factgraph.ErrUnknownFact), errors.Is(err, factgraph.ErrUnknownItem),
		errors.Is(err, factgraph.ErrAbstractPath), errors.Is(err, factpath.ErrEmpty),
		errors.Is(err, factpath.ErrNotAbsolute):
		status = http.StatusBadRequest
	case errors.Is(err, form.ErrNoStoreFactory), errors.Is(err, form.ErrNoStoreLoader),
		errors.Is(err, form.ErrNotSerializable):
		status = http.StatusNotImplemented
	}
	if status == http.StatusInternalServerError {
		s.log.Error("Request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errorBody(err.Error()))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
