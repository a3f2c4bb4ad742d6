package apiapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phillip-england/shiftrecon/internal/config"
	"github.com/phillip-england/shiftrecon/internal/middleware"
	"github.com/phillip-england/shiftrecon/internal/pipeline"
	"github.com/phillip-england/shiftrecon/internal/timesheet"
	"github.com/phillip-england/shiftrecon/internal/workbook"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Config struct {
	App    *config.Config
	Logger *zap.Logger
}

type server struct {
	cfg *config.Config
	log *zap.Logger
}

func NewHandler(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &server{cfg: cfg.App, log: cfg.Logger}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Get("/config", s.showConfig)
		r.With(middleware.MaxBody(cfg.App.API.MaxUploadMB << 20)).Post("/reconcile", s.reconcile)
	})

	return middleware.Chain(r,
		chimw.RequestID,
		middleware.RequestLogger(s.log),
		chimw.Recoverer,
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{
			ContentSecurityPolicy: "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'",
		}),
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.App.API.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{"Content-Disposition", "X-Run-ID"},
		}),
	)
}

func Run(ctx context.Context, cfg Config) error {
	if cfg.App == nil {
		return errors.New("apiapp: configuration is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	httpServer := &http.Server{
		Addr:              cfg.App.API.Addr,
		Handler:           NewHandler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		cfg.Logger.Info("api listening", zap.String("addr", cfg.App.API.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) showConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg)
}

func (s *server) reconcile(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "xlsx"
	}
	if format != "xlsx" && format != "html" && format != "json" {
		writeError(w, http.StatusBadRequest, "format must be xlsx, html or json")
		return
	}

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	upload, header, err := r.FormFile("workbook")
	if err != nil {
		writeError(w, http.StatusBadRequest, "workbook file is required")
		return
	}
	defer upload.Close()

	f, err := workbook.OpenReader(upload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "workbook could not be read")
		return
	}
	defer func() { _ = f.Close() }()

	opts := pipeline.Options{DryRun: format != "xlsx"}
	if export, exportHeader, err := r.FormFile("clock_export"); err == nil {
		defer export.Close()
		opts.ClockExport = &pipeline.ClockExport{Filename: exportHeader.Filename, Reader: export}
	} else if !errors.Is(err, http.ErrMissingFile) {
		writeError(w, http.StatusBadRequest, "clock_export could not be read")
		return
	}

	env := pipeline.NewEnv(s.cfg, s.log.With(zap.String("request_id", chimw.GetReqID(r.Context()))))
	res, err := pipeline.Process(r.Context(), env, f, opts)
	if err != nil {
		s.writeProcessError(w, env, err)
		return
	}
	w.Header().Set("X-Run-ID", env.RunID)

	switch format {
	case "json":
		writeJSON(w, http.StatusOK, res.Report)
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(res.HTML)
	default:
		data, err := workbook.Bytes(f)
		if err != nil {
			s.writeProcessError(w, env, err)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", resultName(header.Filename)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func (s *server) writeProcessError(w http.ResponseWriter, env *pipeline.Env, err error) {
	var missing *timesheet.SheetMissingError
	switch {
	case errors.As(err, &missing):
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("sheet %q not found", missing.Sheet))
	case errors.Is(err, timesheet.ErrExportUnreadable):
		writeError(w, http.StatusBadRequest, "clock export could not be read")
	case errors.Is(err, context.Canceled):
		env.Logger.Info("request canceled")
	default:
		env.Logger.Error("reconciliation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "reconciliation failed")
	}
}

func resultName(uploaded string) string {
	base := filepath.Base(strings.TrimSpace(uploaded))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "timesheet.xlsx"
	}
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-reconciled.xlsx"
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
