package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MeKo-Tech/imread/internal/batch"
	"github.com/MeKo-Tech/imread/internal/decode"
	"github.com/MeKo-Tech/imread/internal/format"
	"github.com/MeKo-Tech/imread/internal/reconcile"
	"github.com/MeKo-Tech/imread/internal/version"
	"github.com/MeKo-Tech/imread/internal/workerpool"
)

// maxRequestBytes bounds the JSON body of a read request.
const maxRequestBytes = 8 << 20

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Workers: s.workers(),
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// formatsHandler lists the decodable formats and their extensions.
func (s *Server) formatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	infos := make([]FormatInfo, len(format.All))
	for i, h := range format.All {
		infos[i] = FormatInfo{Name: h.String(), Extensions: h.Extensions()}
	}
	writeJSON(w, http.StatusOK, FormatsResponse{Formats: infos, Count: len(infos)})
}

// readHandler decodes a batch of server-local paths.
func (s *Server) readHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var req ReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}
	if err := s.validateRequest(&req); err != nil {
		writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := w.Header().Get(RequestIDHeader)
	resp, err := s.read(req, id)
	if err != nil {
		s.logger.Error("Batch read failed", "request_id", id, "error", err)
		writeErrorResponse(w, "Batch read failed", http.StatusInternalServerError)
		return
	}
	readRequestsTotal.WithLabelValues("http", req.Mode).Inc()
	writeJSON(w, http.StatusOK, resp)
}

// validateRequest fills in the default mode and rejects malformed requests.
func (s *Server) validateRequest(req *ReadRequest) error {
	if req.Mode == "" {
		req.Mode = s.defaultMode
	}
	switch req.Mode {
	case ModeTolerant, ModeVerbose, ModeBytes:
	default:
		return fmt.Errorf("unsupported mode %q (must be %s, %s or %s)", req.Mode, ModeTolerant, ModeVerbose, ModeBytes)
	}
	if req.Paths == nil {
		return errors.New("paths is required")
	}
	if len(req.Paths) > s.maxPaths {
		return fmt.Errorf("too many paths: %d (limit %d)", len(req.Paths), s.maxPaths)
	}
	return nil
}

// read runs the batch and shapes the response for the requested mode.
func (s *Server) read(req ReadRequest, id string, opts ...batch.Option) (ReadResponse, error) {
	readRequestPaths.Observe(float64(len(req.Paths)))

	if s.pool != nil {
		opts = append(opts, batch.WithPool(s.pool))
	}
	start := time.Now()
	outcomes, err := batch.Decode(req.Paths, opts...)
	if err != nil {
		return ReadResponse{}, err
	}

	return ReadResponse{
		RequestID: id,
		Mode:      req.Mode,
		Results:   s.shape(req, outcomes),
		Stats:     batch.CalculateStats(outcomes, time.Since(start), s.workers()),
	}, nil
}

func (s *Server) shape(req ReadRequest, outcomes []decode.Outcome) interface{} {
	switch req.Mode {
	case ModeVerbose:
		v := reconcile.Reporting(s.logger, outcomes)
		if !req.IncludePixels {
			for _, im := range v.Images {
				im.Array.Data = nil
			}
		}
		return v
	case ModeBytes:
		b := reconcile.Flat(s.logger, outcomes)
		if !req.IncludePixels {
			for i := range b.Images {
				b.Images[i].Data = nil
			}
		}
		return b
	default:
		arrays := reconcile.Tolerant(s.logger, outcomes)
		if !req.IncludePixels {
			for _, a := range arrays {
				if a != nil {
					a.Data = nil
				}
			}
		}
		return arrays
	}
}

// workers reports the size of the pool requests run on, or 0 while the
// shared pool has not been created.
func (s *Server) workers() int {
	if s.pool != nil {
		return s.pool.Size()
	}
	if cfg, ok := workerpool.Current(); ok {
		return cfg.NumThreads
	}
	return 0
}
