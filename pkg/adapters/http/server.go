package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/convoflow/convoflow/internal/logging"
	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/ports"
	"github.com/convoflow/convoflow/pkg/session"
)

// FlowBuilder turns a raw prompt into an executable engine. The root
// convoflow package provides the canonical implementation; injecting it as a
// function keeps this adapter free of a dependency cycle.
type FlowBuilder func(prompt string) (ports.ConversationEngine, error)

// Server exposes flow parsing, graph inspection and session advancement over
// HTTP.
type Server struct {
	builder  FlowBuilder
	sessions *session.Manager
	logger   *slog.Logger
	metrics  bool

	mu    sync.RWMutex
	flows map[string]ports.ConversationEngine
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsEndpoint mounts GET /metrics (Prometheus exposition).
func WithMetricsEndpoint() ServerOption {
	return func(s *Server) {
		s.metrics = true
	}
}

// NewServer creates the HTTP server. Sessions are persisted through the
// given manager, so a Redis-backed store survives restarts.
func NewServer(builder FlowBuilder, sessions *session.Manager, opts ...ServerOption) *Server {
	s := &Server{
		builder:  builder,
		sessions: sessions,
		logger:   logging.NewNop(),
		flows:    make(map[string]ports.ConversationEngine),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterFlow adds a pre-built flow under the given ID.
func (s *Server) RegisterFlow(id string, engine ports.ConversationEngine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[id] = engine
}

func (s *Server) flow(id string) (ports.ConversationEngine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	engine, ok := s.flows[id]
	return engine, ok
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/flows", func(r chi.Router) {
		r.Post("/", s.createFlow)
		r.Get("/", s.listFlows)
		r.Route("/{flowID}", func(r chi.Router) {
			r.Get("/", s.getFlow)
			r.Get("/graph", s.getGraph)
			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.deleteSession)
				r.Post("/advance", s.advance)
			})
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -- Request/Response shapes --

type createFlowRequest struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

type flowSummary struct {
	ID         string           `json:"id"`
	Sections   []sectionSummary `json:"sections"`
	FlowOrder  []string         `json:"flow_order"`
	Conditions int              `json:"conditions"`
	Objections int              `json:"objections"`
}

type sectionSummary struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Type     domain.SectionType `json:"type"`
	Required []string           `json:"required,omitempty"`
	Next     string             `json:"next,omitempty"`
}

type advanceRequest struct {
	Function string         `json:"function"`
	Args     map[string]any `json:"args"`
}

type advanceResponse struct {
	Result *domain.Result            `json:"result,omitempty"`
	Node   *domain.Node              `json:"node,omitempty"`
	State  *domain.ConversationState `json:"state"`
}

// -- Handlers --

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createFlow(w http.ResponseWriter, r *http.Request) {
	var body createFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.ID == "" || body.Prompt == "" {
		http.Error(w, "id and prompt are required", http.StatusBadRequest)
		return
	}

	engine, err := s.builder(body.Prompt)
	if err != nil {
		if errors.Is(err, domain.ErrFlowEmpty) {
			http.Error(w, "prompt contains no conversational steps", http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, fmt.Sprintf("Parse error: %v", err), http.StatusBadRequest)
		return
	}

	s.RegisterFlow(body.ID, engine)
	s.logger.Info("flow registered", "flow_id", body.ID, "steps", len(engine.Config().FlowOrder))

	writeJSON(w, http.StatusCreated, summarize(body.ID, engine))
}

func (s *Server) listFlows(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.flows))
	for id := range s.flows {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) getFlow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "flowID")
	engine, ok := s.flow(id)
	if !ok {
		http.Error(w, "flow not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, summarize(id, engine))
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.flow(chi.URLParam(r, "flowID"))
	if !ok {
		http.Error(w, "flow not found", http.StatusNotFound)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, engine.Nodes())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, mermaidOf(engine))
}

// mermaidOf prefers the engine's own renderer when it exposes one.
func mermaidOf(engine ports.ConversationEngine) string {
	type mermaider interface {
		Mermaid(state *domain.ConversationState) string
	}
	if m, ok := engine.(mermaider); ok {
		return m.Mermaid(nil)
	}
	return ""
}

func (s *Server) advance(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flowID")
	sessionID := chi.URLParam(r, "sessionID")

	engine, ok := s.flow(flowID)
	if !ok {
		http.Error(w, "flow not found", http.StatusNotFound)
		return
	}

	var body advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Function == "" {
		http.Error(w, "function is required", http.StatusBadRequest)
		return
	}

	entry, err := engine.EntryNode()
	if err != nil {
		http.Error(w, fmt.Sprintf("Flow error: %v", err), http.StatusInternalServerError)
		return
	}

	var resp advanceResponse
	err = s.sessions.WithLock(r.Context(), scopedID(flowID, sessionID), func(ctx context.Context) error {
		state, err := s.sessions.Store().Load(ctx, scopedID(flowID, sessionID))
		if errors.Is(err, domain.ErrSessionNotFound) {
			state = domain.NewConversationState()
			state.CurrentSectionID = entry.ID
			state.ConversationPath = append(state.ConversationPath, entry.ID)
			err = nil
		}
		if err != nil {
			return err
		}

		result, node, err := engine.Call(ctx, state, body.Function, body.Args)
		if err != nil {
			return err
		}

		resp = advanceResponse{Result: result, Node: node, State: state}
		return s.sessions.Store().Save(ctx, scopedID(flowID, sessionID), state)
	})
	if err != nil {
		s.logger.Error("advance failed", "flow_id", flowID, "session_id", sessionID, "err", err)
		http.Error(w, fmt.Sprintf("Advance error: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flowID")
	sessionID := chi.URLParam(r, "sessionID")

	state, err := s.sessions.Load(r.Context(), scopedID(flowID, sessionID))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Load error: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flowID")
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.sessions.Delete(r.Context(), scopedID(flowID, sessionID)); err != nil {
		http.Error(w, fmt.Sprintf("Delete error: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -- Helpers --

// scopedID namespaces session state per flow so two flows can share a
// session identifier without clobbering each other.
func scopedID(flowID, sessionID string) string {
	return flowID + ":" + sessionID
}

func summarize(id string, engine ports.ConversationEngine) flowSummary {
	config := engine.Config()
	sections := make([]sectionSummary, 0, len(config.AllIDs))
	for _, sid := range config.AllIDs {
		section := config.Section(sid)
		if section == nil {
			continue
		}
		sections = append(sections, sectionSummary{
			ID:       section.ID,
			Name:     section.SectionName,
			Type:     section.Type,
			Required: section.Required,
			Next:     section.NextSectionID,
		})
	}
	return flowSummary{
		ID:         id,
		Sections:   sections,
		FlowOrder:  config.FlowOrder,
		Conditions: len(config.Conditions),
		Objections: len(config.Objections),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}
