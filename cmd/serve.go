package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/identity-cli/internal/model"
	"github.com/sells-group/identity-cli/internal/resolver"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP resolution server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := initResolver(env)
		if err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/resolve", handleResolve(res))

		r.Get("/queue/status", func(w http.ResponseWriter, req *http.Request) {
			stats, err := env.queue.Stats(req.Context())
			if err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "queue unavailable"})
				return
			}
			writeJSON(w, http.StatusOK, stats)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// handleResolve resolves a small batch of rows synchronously and returns the
// enriched rows with per-request statistics.
func handleResolve(res *resolver.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Rows []map[string]string `json:"rows"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if len(body.Rows) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rows is required"})
			return
		}

		batch := &model.Batch{}
		for _, r := range body.Rows {
			batch.Rows = append(batch.Rows, model.Row(r))
		}

		stats, err := res.Resolve(req.Context(), batch)
		if err != nil {
			zap.L().Error("serve: resolve failed", zap.Int("rows", len(batch.Rows)), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "resolution failed"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"rows":  batch.Rows,
			"stats": stats,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
