package server

import (
	"log/slog"
	"net/http"

	"github.com/MeKo-Tech/imread/internal/batch"
	"github.com/MeKo-Tech/imread/internal/workerpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Read modes accepted by the read endpoints.
const (
	ModeTolerant = "tolerant"
	ModeVerbose  = "verbose"
	ModeBytes    = "bytes"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	pool        *workerpool.Pool
	logger      *slog.Logger
	corsOrigin  string
	maxPaths    int
	defaultMode string
}

// Config holds server configuration.
type Config struct {
	Host       string
	Port       int
	CORSOrigin string
	MaxPaths   int
	// DefaultMode applies to requests that name no mode.
	DefaultMode string
	// Pool runs the decodes; nil means the shared pool.
	Pool   *workerpool.Pool
	Logger *slog.Logger
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Workers int    `json:"workers"`
	Time    string `json:"time"`
}

// FormatInfo describes one decodable format.
type FormatInfo struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}

// FormatsResponse is returned by /formats.
type FormatsResponse struct {
	Formats []FormatInfo `json:"formats"`
	Count   int          `json:"count"`
}

// ReadRequest is the body of POST /v1/read and the message accepted on
// /v1/ws/read.
type ReadRequest struct {
	Paths         []string `json:"paths"`
	Mode          string   `json:"mode,omitempty"`
	IncludePixels bool     `json:"include_pixels,omitempty"`
}

// ReadResponse is returned by POST /v1/read. Results holds []*reconcile.Array
// (null for failed items) in tolerant mode, reconcile.Verbose in verbose mode
// and reconcile.Bytes in bytes mode.
type ReadResponse struct {
	RequestID string      `json:"request_id"`
	Mode      string      `json:"mode"`
	Results   interface{} `json:"results"`
	Stats     batch.Stats `json:"stats"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewServer creates a new server instance.
func NewServer(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxPaths := config.MaxPaths
	if maxPaths <= 0 {
		maxPaths = 1000
	}
	defaultMode := config.DefaultMode
	if defaultMode == "" {
		defaultMode = ModeTolerant
	}
	return &Server{
		pool:        config.Pool,
		logger:      logger,
		corsOrigin:  config.CORSOrigin,
		maxPaths:    maxPaths,
		defaultMode: defaultMode,
	}
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/formats", s.corsMiddleware(s.formatsHandler))
	mux.HandleFunc("/v1/read", s.corsMiddleware(s.readHandler))
	mux.HandleFunc("/v1/ws/read", s.readWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
