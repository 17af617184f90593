package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/funding-cli/internal/config"
	"github.com/sells-group/funding-cli/internal/extract"
	"github.com/sells-group/funding-cli/internal/model"
)

// maxBodyBytes caps request bodies on the API.
const maxBodyBytes = 10 << 20

// workflowService is the orchestrator surface the API exposes.
type workflowService interface {
	ExecuteCompleteWorkflow(ctx context.Context, rawTexts []string) *model.WorkflowResult
	ProcessSingleArticle(ctx context.Context, rawText string) (*model.SingleResult, error)
	GetVerificationQueue(ctx context.Context) ([]model.QueueItem, error)
	CompleteVerificationTask(ctx context.Context, id string) (bool, error)
	GetWorkflowStats(ctx context.Context) (*model.WorkflowStats, error)
}

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, config.ModeServe)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env.Orchestrator, env.Registry),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the API routes. A nil gatherer serves the default
// Prometheus registry.
func newRouter(svc workflowService, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	h := &apiHandler{svc: svc}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/articles", h.processArticle)
		r.Post("/workflows", h.executeWorkflow)
		r.Get("/queue", h.listQueue)
		r.Delete("/queue/{id}", h.completeTask)
		r.Get("/stats", h.stats)
	})

	return r
}

type apiHandler struct {
	svc workflowService
}

type articleRequest struct {
	Text string `json:"text"`
}

type workflowRequest struct {
	Articles []string `json:"articles"`
}

type queueResponse struct {
	Count int               `json:"count"`
	Items []model.QueueItem `json:"items"`
}

func (h *apiHandler) processArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	res, err := h.svc.ProcessSingleArticle(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, extract.ErrExtraction) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		zap.L().Error("process article", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "processing failed")
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *apiHandler) executeWorkflow(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Articles) == 0 {
		respondError(w, http.StatusBadRequest, "articles must not be empty")
		return
	}
	respond(w, http.StatusOK, h.svc.ExecuteCompleteWorkflow(r.Context(), req.Articles))
}

func (h *apiHandler) listQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.GetVerificationQueue(r.Context())
	if err != nil {
		zap.L().Error("list queue", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "queue unavailable")
		return
	}
	if items == nil {
		items = []model.QueueItem{}
	}
	respond(w, http.StatusOK, queueResponse{Count: len(items), Items: items})
}

func (h *apiHandler) completeTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := h.svc.CompleteVerificationTask(r.Context(), id)
	if err != nil {
		zap.L().Error("complete task", zap.String("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "queue unavailable")
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, "queue item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *apiHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetWorkflowStats(r.Context())
	if err != nil {
		zap.L().Error("workflow stats", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	respond(w, http.StatusOK, stats)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}

// requestLogger logs each request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
