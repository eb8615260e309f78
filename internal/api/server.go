package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/nats-io/nuid"
	metrics "github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"

	"github.com/RowanDark/cryptex/internal/cipher"
	"github.com/RowanDark/cryptex/internal/logging"
)

// RequestIDHeader carries the identifier assigned to every request.
const RequestIDHeader = "X-Request-ID"

const defaultShutdownTimeout = 5 * time.Second

// Config configures the REST API server.
type Config struct {
	Addr            string
	MaxConnections  int
	Recipes         *cipher.RecipeManager
	Logger          logging.Logger
	Metrics         metrics.Registry
	ShutdownTimeout time.Duration
}

// Server exposes the cipher operations, pipelines, detector and recipes over
// HTTP.
type Server struct {
	cfg           Config
	httpServer    *http.Server
	recipeManager *cipher.RecipeManager
	logger        logging.Logger
	metrics       metrics.Registry
	handler       http.Handler
}

// NewServer constructs a REST API server using the provided configuration.
func NewServer(cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("api address must be provided")
	}
	if cfg.Recipes == nil {
		cfg.Recipes = cipher.NewRecipeManager("")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewRegistry()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	s := &Server{
		cfg:           cfg,
		recipeManager: cfg.Recipes,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/v1/cipher/operations", s.handleCipherListOperations)
	mux.HandleFunc("/api/v1/cipher/execute", s.handleCipherExecute)
	mux.HandleFunc("/api/v1/cipher/pipeline", s.handleCipherPipeline)
	mux.HandleFunc("/api/v1/cipher/detect", s.handleCipherDetect)
	mux.HandleFunc("/api/v1/cipher/smart-decode", s.handleCipherSmartDecode)
	mux.HandleFunc("/api/v1/cipher/recipes", s.handleRecipes)
	mux.HandleFunc("/api/v1/cipher/recipes/{name}", s.handleRecipeByName)
	mux.HandleFunc("/api/v1/cipher/recipes/{name}/run", s.handleRecipeRun)
	mux.HandleFunc("/debug/metrics", s.handleMetrics)
	return s.instrument(mux)
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve starts the HTTP server on lis and blocks until the provided context
// is cancelled or a fatal error occurs. With MaxConnections set, at most that
// many connections are accepted at once.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		lis = netutil.LimitListener(lis, s.cfg.MaxConnections)
	}
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(lis)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	s.logger.WithField("addr", lis.Addr().String()).Info("cipher api listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancelShutdown()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return <-errCh
	case err := <-errCh:
		return err
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument assigns request IDs, records per-route timers and logs every
// request.
func (s *Server) instrument(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = nuid.Next()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		_, pattern := next.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.GetOrRegisterTimer("http.requests."+pattern, s.metrics).UpdateSince(start)
		metrics.GetOrRegisterCounter("http.responses."+statusClass(rec.status), s.metrics).Inc(1)

		entry := s.logger.WithFields(log.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("request failed")
		} else {
			entry.Debug("request served")
		}
	})
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	metrics.WriteJSONOnce(s.metrics, w)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Warn("failed to encode response")
	}
}
