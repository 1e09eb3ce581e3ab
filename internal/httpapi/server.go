package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tachyon/constellation/internal/backend"
	"tachyon/constellation/internal/constellation"
	"tachyon/constellation/internal/expand"
	"tachyon/constellation/internal/financing"
	"tachyon/constellation/internal/graph"
)

// Options wires the server to the rest of the process
type Options struct {
	// Profile returns the stored buyer profile; request bodies override its fields
	Profile func() financing.Profile
	// OnChange is called with every node after a mutation so the caller can persist them
	OnChange func(nodes []constellation.Node) error
	TopN     int
	Log      *slog.Logger
}

// Server exposes the constellation store and expansion workflow over HTTP
type Server struct {
	store    *constellation.Store
	flow     *expand.Workflow
	profile  func() financing.Profile
	onChange func([]constellation.Node) error
	topN     int
	log      *slog.Logger
}

// New creates a Server. Zero Options fields fall back to the stored defaults.
func New(store *constellation.Store, flow *expand.Workflow, opts Options) *Server {
	s := &Server{
		store:    store,
		flow:     flow,
		profile:  opts.Profile,
		onChange: opts.OnChange,
		topN:     opts.TopN,
		log:      opts.Log,
	}
	if s.profile == nil {
		s.profile = financing.DefaultProfile
	}
	if s.topN <= 0 {
		s.topN = graph.DefaultConfig().TopN
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Routes returns a chi.Router with every endpoint mounted
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Get("/healthz", s.healthz)
	r.Get("/constellation", s.constellation)
	r.Get("/nodes/{id}", s.node)
	r.Get("/nodes/{id}/details", s.details)
	r.Post("/nodes/{id}/expand", s.expand)
	r.Post("/nodes/{id}/plans", s.plans)
	r.Get("/payment", s.payment)
	r.Get("/analysis", s.analysis)
	r.Post("/reset", s.reset)
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "took", time.Since(start))
	})
}

type constellationResponse struct {
	Count int                  `json:"count"`
	Roots []int                `json:"roots"`
	Nodes []constellation.Node `json:"nodes"`
}

type expandResponse struct {
	Parent   constellation.Node   `json:"parent"`
	Children []constellation.Node `json:"children"`
}

type paymentResponse struct {
	Principal      float64 `json:"principal"`
	InterestRate   float64 `json:"interest_rate"`
	TermMonths     int     `json:"term_months"`
	MonthlyPayment float64 `json:"monthly_payment"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "nodes": s.store.Len()})
}

func (s *Server) constellation(w http.ResponseWriter, r *http.Request) {
	nodes := s.store.Nodes()
	roots := []int{}
	for _, n := range nodes {
		if n.IsRoot() {
			roots = append(roots, n.ID)
		}
	}
	writeJSON(w, http.StatusOK, constellationResponse{Count: len(nodes), Roots: roots, Nodes: nodes})
}

func (s *Server) node(w http.ResponseWriter, r *http.Request) {
	id, ok := s.nodeID(w, r)
	if !ok {
		return
	}
	n, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) details(w http.ResponseWriter, r *http.Request) {
	id, ok := s.nodeID(w, r)
	if !ok {
		return
	}
	n, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": n.ID, "label": n.Label, "details": constellation.Details(n)})
}

func (s *Server) expand(w http.ResponseWriter, r *http.Request) {
	id, ok := s.nodeID(w, r)
	if !ok {
		return
	}
	var requested financing.Profile
	if err := json.NewDecoder(r.Body).Decode(&requested); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_body", Message: "Profile body is not valid JSON."})
		return
	}
	// the batch is committed even if the client disconnects before it arrives
	children, err := s.flow.Expand(context.WithoutCancel(r.Context()), id, requested.Merge(s.profile()))
	s.respondExpanded(w, id, children, err)
}

func (s *Server) plans(w http.ResponseWriter, r *http.Request) {
	id, ok := s.nodeID(w, r)
	if !ok {
		return
	}
	children, err := s.flow.ExpandFinancing(id)
	s.respondExpanded(w, id, children, err)
}

func (s *Server) respondExpanded(w http.ResponseWriter, id int, children []constellation.Node, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.persist()
	parent, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expandResponse{Parent: parent, Children: children})
}

func (s *Server) payment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	principal, err1 := strconv.ParseFloat(q.Get("principal"), 64)
	rate, err2 := strconv.ParseFloat(q.Get("rate"), 64)
	term, err3 := strconv.Atoi(q.Get("term"))
	if err := errors.Join(err1, err2, err3); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_input",
			Message: "principal, rate and term query parameters are required numbers.",
		})
		return
	}
	monthly, err := financing.MonthlyPayment(principal, rate, term)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentResponse{Principal: principal, InterestRate: rate, TermMonths: term, MonthlyPayment: monthly})
}

func (s *Server) analysis(w http.ResponseWriter, r *http.Request) {
	snap := graph.SnapshotFromStore(s.store)
	if region := r.URL.Query().Get("region"); region != "" {
		rootID, err := strconv.Atoi(region)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "region must be a node id."})
			return
		}
		if _, ok := snap.Nodes[rootID]; !ok {
			s.writeError(w, fmt.Errorf("%w: %d", constellation.ErrNotFound, rootID))
			return
		}
		snap = snap.FilterToRegion(rootID)
	}
	report := graph.Analyze(snap, &graph.AnalyzerConfig{
		MinSeparation: s.store.Layout().MinSeparation,
		TopN:          s.topN,
	})
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.store.Reset()
	s.persist()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) persist() {
	if s.onChange == nil {
		return
	}
	if err := s.onChange(s.store.Nodes()); err != nil {
		s.log.Warn("persisting constellation failed", "err", err)
	}
}

func (s *Server) nodeID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "Node id must be a positive integer."})
		return 0, false
	}
	return id, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := expand.Message(err)
	if status == http.StatusBadRequest {
		msg = err.Error()
	}
	if status >= http.StatusInternalServerError {
		s.log.Warn("request failed", "status", status, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

// statusFor maps the error taxonomy onto HTTP statuses
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, constellation.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, constellation.ErrAlreadyExpanded):
		return http.StatusConflict, "already_expanded"
	case errors.Is(err, expand.ErrInFlight):
		return http.StatusConflict, "in_flight"
	case errors.Is(err, constellation.ErrStaleSession):
		return http.StatusConflict, "stale_session"
	case errors.Is(err, constellation.ErrDepthExceeded):
		return http.StatusUnprocessableEntity, "fully_explored"
	case errors.Is(err, financing.ErrInvalidInput), errors.Is(err, constellation.ErrEmptyBatch):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, backend.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, backend.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, backend.ErrMalformedResponse), errors.Is(err, backend.ErrUnavailable):
		return http.StatusBadGateway, "backend_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
