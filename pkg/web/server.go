package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ritzau/faultgraph/pkg/analysis"
	"github.com/ritzau/faultgraph/pkg/anomaly"
	"github.com/ritzau/faultgraph/pkg/cycles"
	"github.com/ritzau/faultgraph/pkg/dsep"
	"github.com/ritzau/faultgraph/pkg/graph"
	"github.com/ritzau/faultgraph/pkg/logging"
	"github.com/ritzau/faultgraph/pkg/model"
	"github.com/ritzau/faultgraph/pkg/pubsub"
	"github.com/ritzau/faultgraph/pkg/telemetry"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 8 << 20

// GraphResponse is the knowledge base with its structural report
type GraphResponse struct {
	*model.Graph
	Acyclic       bool                  `json:"acyclic"`
	FeedbackLoops []cycles.FeedbackLoop `json:"feedbackLoops"`
}

// PathInfo is one causal path, root cause first
type PathInfo struct {
	Nodes    []string `json:"nodes"`
	Strength float64  `json:"strength"`
}

// PathsResponse lists the causal paths that explain an observable
type PathsResponse struct {
	Node  string     `json:"node"`
	Depth int        `json:"depth"`
	Paths []PathInfo `json:"paths"`
}

// DiagnoseRequest is a nominal and degraded telemetry pair
type DiagnoseRequest struct {
	Nominal  *telemetry.Record `json:"nominal"`
	Degraded *telemetry.Record `json:"degraded"`
}

// DiagnoseResponse is the outcome of one diagnosis
type DiagnoseResponse struct {
	ID         string             `json:"id"`
	Threshold  float64            `json:"threshold"`
	Anomalies  []anomaly.Anomaly  `json:"anomalies"`
	Hypotheses []model.Hypothesis `json:"hypotheses"`
}

// DSeparationRequest is a d-separation query
type DSeparationRequest struct {
	X     string   `json:"x"`
	Z     string   `json:"z"`
	Given []string `json:"given"`
}

// AssumptionStatus is one entry of the assumption report
type AssumptionStatus struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	X             string   `json:"x"`
	Z             string   `json:"z"`
	Given         []string `json:"given"`
	Valid         bool     `json:"valid"`
	NoPaths       bool     `json:"noPaths"`
	BlockingNodes []string `json:"blockingNodes"`
	Error         string   `json:"error,omitempty"`
}

// ValidateResponse reports every structural assumption
type ValidateResponse struct {
	Valid       bool               `json:"valid"`
	Acyclic     bool               `json:"acyclic"`
	Assumptions []AssumptionStatus `json:"assumptions"`
}

// Server exposes the diagnosis engine over HTTP
type Server struct {
	router    *mux.Router
	graph     *graph.CausalGraph
	ranker    *analysis.Ranker
	dsep      *dsep.Analyzer
	maxDepth  int
	publisher *pubsub.SSEPublisher
	metrics   *Metrics
	gatherer  prometheus.Gatherer
}

// Option configures a Server
type Option func(*Server)

// WithMaxDepth sets the default depth for path queries
func WithMaxDepth(depth int) Option {
	return func(s *Server) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

// WithRegistry registers metrics on reg and serves them from /metrics
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.metrics = NewMetrics(reg)
		s.gatherer = reg
	}
}

// NewServer creates a new web server over a read-only knowledge base
func NewServer(cg *graph.CausalGraph, ranker *analysis.Ranker, analyzer *dsep.Analyzer, opts ...Option) *Server {
	publisher := pubsub.NewSSEPublisher()

	// diagnoses: replay the latest diagnosis to new subscribers
	publisher.ConfigureTopic(pubsub.TopicDiagnoses, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})

	s := &Server{
		router:    mux.NewRouter(),
		graph:     cg,
		ranker:    ranker,
		dsep:      analyzer,
		maxDepth:  graph.DefaultMaxDepth,
		publisher: publisher,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		reg := prometheus.NewRegistry()
		s.metrics = NewMetrics(reg)
		s.gatherer = reg
	}
	s.setupRoutes()
	return s
}

// Publisher returns the diagnosis event publisher
func (s *Server) Publisher() *pubsub.SSEPublisher {
	return s.publisher
}

// Handler returns the root handler with logging middleware applied
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) setupRoutes() {
	s.router.Use(s.countRequests)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")

	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/diagnoses", s.handleSubscribeDiagnoses).Methods("GET")

	// API routes - more specific routes must come first
	s.router.HandleFunc("/api/graph/paths/{node}", s.handlePaths).Methods("GET")
	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/diagnose", s.handleDiagnose).Methods("POST")
	s.router.HandleFunc("/api/dseparation", s.handleDSeparation).Methods("POST")
	s.router.HandleFunc("/api/validate", s.handleValidate).Methods("GET")
}

// countRequests records every routed request by route template
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.Requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for SSE support
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, graph.ErrUnknownNode):
		return http.StatusNotFound
	case errors.Is(err, telemetry.ErrSchemaMismatch), errors.Is(err, telemetry.ErrLengthMismatch):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	loops := cycles.FindFeedbackLoops(s.graph)
	writeJSON(w, http.StatusOK, GraphResponse{
		Graph:         s.graph.Snapshot(),
		Acyclic:       len(loops) == 0,
		FeedbackLoops: loops,
	})
}

func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request) {
	node := mux.Vars(r)["node"]
	if !s.graph.HasNode(node) {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", graph.ErrUnknownNode, node))
		return
	}

	depth := s.maxDepth
	if raw := r.URL.Query().Get("depth"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid depth %q", raw))
			return
		}
		depth = d
	}

	paths := s.graph.PathsToRoot(node, depth)
	resp := PathsResponse{Node: node, Depth: depth, Paths: make([]PathInfo, 0, len(paths))}
	for _, p := range paths {
		resp.Paths = append(resp.Paths, PathInfo{Nodes: p, Strength: s.graph.PathStrength(p)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req DiagnoseRequest
	if err := decode(w, r, &req); err != nil {
		s.metrics.Diagnoses.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Nominal == nil || req.Degraded == nil {
		s.metrics.Diagnoses.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusBadRequest, errors.New("both nominal and degraded telemetry are required"))
		return
	}

	start := time.Now()
	anomalies, err := s.ranker.Detect(req.Nominal, req.Degraded)
	if err != nil {
		s.metrics.Diagnoses.WithLabelValues("rejected").Inc()
		writeError(w, statusFor(err), err)
		return
	}
	hypotheses := s.ranker.AnalyzeAnomalies(anomalies)
	s.metrics.DiagnosisSeconds.Observe(time.Since(start).Seconds())

	for _, name := range anomalies.Names() {
		s.metrics.AnomaliesDetected.WithLabelValues(name).Inc()
	}

	resp := DiagnoseResponse{
		ID:         uuid.New().String(),
		Threshold:  s.ranker.Threshold(),
		Anomalies:  anomalies.All(),
		Hypotheses: hypotheses,
	}
	if resp.Anomalies == nil {
		resp.Anomalies = []anomaly.Anomaly{}
	}

	event := pubsub.DiagnosisEvent{ID: resp.ID, Anomalies: anomalies.Names(), Hypotheses: hypotheses}
	s.metrics.Diagnoses.WithLabelValues(event.EventType()).Inc()
	if err := s.publisher.Publish(pubsub.TopicDiagnoses, event.EventType(), event); err != nil {
		logging.WarnContext(ctx, "failed to publish diagnosis", "error", err)
	}

	logging.InfoContext(ctx, "diagnosis complete",
		"id", resp.ID, "anomalies", anomalies.Len(), "hypotheses", len(hypotheses))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDSeparation(w http.ResponseWriter, r *http.Request) {
	var req DSeparationRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.X == "" || req.Z == "" {
		writeError(w, http.StatusBadRequest, errors.New("x and z are required"))
		return
	}

	res, err := s.dsep.AreDSeparated(req.X, req.Z, req.Given)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	results := s.dsep.ValidateAssumptions()

	resp := ValidateResponse{
		Valid:       dsep.AllValid(results),
		Acyclic:     cycles.IsAcyclic(s.graph),
		Assumptions: make([]AssumptionStatus, 0, len(results)),
	}
	for _, res := range results {
		status := AssumptionStatus{
			Name:          res.Name,
			Description:   res.Description,
			X:             res.X,
			Z:             res.Z,
			Given:         res.Given,
			Valid:         res.Valid(),
			NoPaths:       res.NoPaths,
			BlockingNodes: res.BlockingNodes,
		}
		if res.Err != nil {
			status.Error = res.Err.Error()
		}
		resp.Assumptions = append(resp.Assumptions, status)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubscribeDiagnoses(w http.ResponseWriter, r *http.Request) {
	sub, err := s.publisher.Subscribe(r.Context(), pubsub.TopicDiagnoses)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	defer sub.Close()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Send initial comment to establish connection
	fmt.Fprintf(w, ": connected\n\n")
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	// Stream events until the client goes away or the publisher closes
	for event := range sub.Events() {
		if err := pubsub.WriteSSE(w, event); err != nil {
			logging.WarnContext(r.Context(), "failed to write SSE event", "error", err)
			return
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.publisher.Close()
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down web server")
	// Close the publisher first so streaming handlers return
	s.publisher.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
