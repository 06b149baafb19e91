// Package httpapi exposes the engine's upstream contract (probe,
// initialize, benchmark, dispose, status) over a loopback HTTP API the
// desktop shell calls. Batched analysis is not exposed here: it needs the
// host application's featurizer and assembler collaborators.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"kayad/internal/sidecar"
	"kayad/pkg/types"
)

// Service defines the engine operations required by the HTTP layer.
type Service interface {
	Available() bool
	Initialize(model string) (types.EngineInfo, error)
	Benchmark(iterations int) (types.BenchmarkStats, error)
	Dispose()
	Status() types.StatusResponse
	ListModels() []types.Model
	Ready() bool
}

// zlog is an optional structured logger. If unset, the API stays silent.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// defaultBenchIterations matches what the desktop shell requests.
const defaultBenchIterations = 30

// maxBodyBytes caps JSON request bodies; control payloads are tiny.
const maxBodyBytes int64 = 1 << 16

// NewMux builds the control-API router.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// The desktop shell's webview runs on its own origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}))

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"models": svc.ListModels()})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/probe", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"available": svc.Available()})
	})

	r.Post("/initialize", func(w http.ResponseWriter, r *http.Request) {
		var req types.InitializeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Model) == "" {
			writeJSONError(w, http.StatusBadRequest, "model is required")
			return
		}
		info, err := svc.Initialize(req.Model)
		if err != nil {
			status := errStatus(err)
			writeJSONError(w, status, err.Error())
			logOp(r, "initialize", status, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
		logOp(r, "initialize", http.StatusOK, nil)
	})

	r.Post("/benchmark", func(w http.ResponseWriter, r *http.Request) {
		var req types.BenchmarkRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Iterations <= 0 {
			req.Iterations = defaultBenchIterations
		}
		stats, err := svc.Benchmark(req.Iterations)
		if err != nil {
			status := errStatus(err)
			writeJSONError(w, status, err.Error())
			logOp(r, "benchmark", status, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
		logOp(r, "benchmark", http.StatusOK, nil)
	})

	r.Post("/dispose", func(w http.ResponseWriter, r *http.Request) {
		svc.Dispose()
		w.WriteHeader(http.StatusNoContent)
		logOp(r, "dispose", http.StatusNoContent, nil)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("uninitialized"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// errStatus maps the sidecar error taxonomy to HTTP status codes.
func errStatus(err error) int {
	switch {
	case sidecar.IsNotInitialized(err):
		return http.StatusConflict
	case sidecar.IsScriptNotFound(err), sidecar.IsSpawnFailure(err):
		return http.StatusServiceUnavailable
	case sidecar.IsRemote(err), sidecar.IsProcessDied(err),
		sidecar.IsProtocol(err), sidecar.IsDecode(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON validates content type and decodes the body, replying on error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
		"code":  status,
	})
}

func logOp(r *http.Request, op string, status int, err error) {
	if zlog == nil {
		return
	}
	z := zlog.Info().Str("op", op).Int("status", status)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	if err != nil {
		z = z.Err(err)
	}
	z.Msg("engine op")
}
