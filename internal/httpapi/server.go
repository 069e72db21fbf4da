// Package httpapi exposes the model host over HTTP: the KServe v2 inference
// protocol, the model repository extension and operational endpoints.
package httpapi

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelhost/internal/backend"
	"modelhost/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *manager.Manager implements it.
type Service interface {
	ListModels() ([]types.Model, error)
	RepositoryIndex(readyOnly bool) ([]types.RepositoryIndexEntry, error)
	Metadata(modelID string) (types.ModelMetadata, error)
	Status() types.StatusResponse
	Ready() bool
	ModelReady(modelID string) bool
	Load(ctx context.Context, modelID string) error
	Unload(ctx context.Context, modelID string) error
	Infer(ctx context.Context, modelID string, req *backend.Request) (*backend.Response, error)
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: orDefault(corsAllowedOrigins, []string{"*"}),
			AllowedMethods: orDefault(corsAllowedMethods, []string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			AllowedHeaders: orDefault(corsAllowedHeaders, []string{"Content-Type", "X-Log-Level", "X-Request-Id"}),
			MaxAge:         300,
		}))
	}

	r.Get("/v2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ServerMetadata{Name: "modelhost", Version: serverVersion, Extensions: []string{"model_repository"}})
	})
	r.Get("/v2/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/v2/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	r.Route("/v2/models/{name}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			md, err := svc.Metadata(chi.URLParam(r, "name"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, md)
		})
		r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
			if svc.ModelReady(chi.URLParam(r, "name")) {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
		})
		r.Post("/infer", inferHandler(svc))
	})

	r.Post("/v2/repository/index", func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(w, r)
		if err != nil {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		// An empty body lists every model.
		var req types.RepositoryIndexRequest
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
		}
		idx, err := svc.RepositoryIndex(req.Ready)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, idx)
	})
	r.Post("/v2/repository/models/{name}/load", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.Load(ctx, chi.URLParam(r, "name")); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	})
	r.Post("/v2/repository/models/{name}/unload", func(w http.ResponseWriter, r *http.Request) {
		// Unload keeps going when the client goes away; a half-drained model is worse.
		if err := svc.Unload(context.WithoutCancel(r.Context()), chi.URLParam(r, "name")); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		models, err := svc.ListModels()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func inferHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		model := chi.URLParam(r, "name")
		start := time.Now()
		lvl := requestLogLevel(r)

		// Content-Type check
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		body, err := readBody(w, r)
		if err != nil {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		var req types.InferRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		if len(req.Inputs) == 0 {
			writeJSONError(w, http.StatusBadRequest, "at least one input is required")
			return
		}
		for i, in := range req.Inputs {
			if in == nil {
				writeJSONError(w, http.StatusBadRequest, "input "+strconv.Itoa(i)+" is null")
				return
			}
		}
		breq := &backend.Request{ID: req.ID, Inputs: req.Inputs, Parameters: req.Parameters}
		if breq.ID == "" {
			breq.ID = uuid.NewString()
		}
		for _, o := range req.Outputs {
			breq.RequestedOutputs = append(breq.RequestedOutputs, o.Name)
		}
		if lvl >= LevelDebug {
			ev := zlog.Debug().Str("model", model).Str("id", breq.ID)
			for _, in := range breq.Inputs {
				ev = ev.Str("input."+in.Name, string(in.DataType)).Ints64("shape."+in.Name, in.Shape)
			}
			ev.Msg("infer start")
		}

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if inferTimeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, time.Duration(inferTimeout)*time.Second)
			defer tcancel()
		}

		resp, err := svc.Infer(ctx, model, breq)
		if err != nil {
			// If the client went away or the server is shutting down, nobody reads the answer.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := writeServiceError(w, err)
			logInferEnd(r, lvl, model, status, start, err)
			return
		}
		writeJSON(w, http.StatusOK, types.InferResponse{
			ModelName: model,
			ID:        breq.ID,
			Outputs:   resp.Outputs,
		})
		logInferEnd(r, lvl, model, http.StatusOK, start, nil)
	}
}

// readBody reads the request body up to maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
