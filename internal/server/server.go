// Package server exposes dependency collection over HTTP: a chi router with
// the collect endpoint, health probe, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okvist/quarry/pkg/artifact"
	"github.com/okvist/quarry/pkg/collector"
	"github.com/okvist/quarry/pkg/errors"
	"github.com/okvist/quarry/pkg/graph"
	"github.com/okvist/quarry/pkg/observability"
	"github.com/okvist/quarry/pkg/repository"
)

// Config wires the server to a collection engine.
type Config struct {
	Addr         string
	Collector    *collector.Collector
	Session      *collector.Session
	Repositories []repository.Remote
	Logger       *log.Logger
}

// Server is the HTTP collection API.
type Server struct {
	cfg    Config
	router chi.Router
}

// New builds the server and registers the Prometheus hooks so collection
// and cache events feed /metrics.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	metrics := newMetrics()
	observability.SetCollectionHooks(metrics)
	observability.SetCacheHooks(metrics)

	s := &Server{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/api/v1/collect", s.handleCollect)

	s.router = r
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

// requestID tags each request with a UUID for log correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// collectRequest is the wire form of a collection request.
type collectRequest struct {
	Root         string           `json:"root,omitempty"`
	Roots        []string         `json:"roots,omitempty"`
	Managed      []string         `json:"managed,omitempty"`
	Repositories []repositoryJSON `json:"repositories,omitempty"`
}

type repositoryJSON struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// collectResponse is the wire form of a collection result.
type collectResponse struct {
	Root   *nodeJSON `json:"root"`
	Errors []string  `json:"errors,omitempty"`
	Cycles int       `json:"cycles,omitempty"`
}

type nodeJSON struct {
	Coordinate  string     `json:"coordinate,omitempty"`
	Scope       string     `json:"scope,omitempty"`
	Optional    bool       `json:"optional,omitempty"`
	Versions    []string   `json:"versions,omitempty"`
	ManagedBits int        `json:"managedBits,omitempty"`
	Children    []nodeJSON `json:"children,omitempty"`
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	var body collectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	req, err := s.buildRequest(&body)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.UserMessage(err))
		return
	}

	result, err := s.cfg.Collector.Collect(r.Context(), s.cfg.Session, req)
	status := http.StatusOK
	if err != nil {
		var cerr *collector.Error
		if !stderrors.As(err, &cerr) || cerr.Result.Root == nil {
			writeError(w, http.StatusBadGateway, errors.UserMessage(err))
			return
		}
		// partial result: report it with the failure status
		result = cerr.Result
		status = http.StatusBadGateway
		s.cfg.Logger.Warn("collection failed", "error", err)
	}

	resp := collectResponse{
		Root:   toNodeJSON(result.Root),
		Cycles: len(result.Cycles),
	}
	for _, e := range result.Exceptions {
		resp.Errors = append(resp.Errors, errors.UserMessage(e))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) buildRequest(body *collectRequest) (*collector.Request, error) {
	req := &collector.Request{Repositories: s.cfg.Repositories}

	for _, rj := range body.Repositories {
		if err := errors.ValidateRepositoryID(rj.ID); err != nil {
			return nil, err
		}
		if err := errors.ValidateURL(rj.URL); err != nil {
			return nil, err
		}
		req.Repositories = append(req.Repositories, repository.NewRemote(rj.ID, rj.URL))
	}

	parse := func(s string) (artifact.Dependency, error) {
		coords, scope, _ := strings.Cut(s, "@")
		coord, err := artifact.Parse(coords)
		if err != nil {
			return artifact.Dependency{}, err
		}
		return artifact.NewDependency(coord, scope), nil
	}

	switch {
	case body.Root != "":
		root, err := parse(body.Root)
		if err != nil {
			return nil, err
		}
		req.Root = &root
	case len(body.Roots) > 0:
		for _, rs := range body.Roots {
			root, err := parse(rs)
			if err != nil {
				return nil, err
			}
			req.Roots = append(req.Roots, root)
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidRequest, "request needs root or roots")
	}

	for _, ms := range body.Managed {
		m, err := parse(ms)
		if err != nil {
			return nil, err
		}
		req.ManagedDependencies = append(req.ManagedDependencies, m)
	}
	return req, nil
}

func toNodeJSON(n *graph.Node) *nodeJSON {
	if n == nil {
		return nil
	}
	out := &nodeJSON{
		Versions:    n.Versions,
		ManagedBits: n.ManagedBits,
	}
	if n.Dependency != nil {
		out.Coordinate = n.Dependency.Coordinate.String()
		out.Scope = n.Dependency.Scope
		out.Optional = n.Dependency.IsOptional()
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, *toNodeJSON(c))
	}
	return out
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
