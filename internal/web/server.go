package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hpungsan/snag/internal/config"
	"github.com/hpungsan/snag/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server for the report browser.
// Empty bind and zero port fall back to the config values.
func NewServer(db *sql.DB, cfg *config.Config, logger *slog.Logger, version, bind string, port int) (*http.Server, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if bind == "" {
		bind = cfg.WebBind
	}
	if port == 0 {
		port = cfg.WebPort
	}

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to create template sub-FS: %w", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static sub-FS: %w", err)
	}

	h := &Handlers{
		db:       db,
		renderer: NewRenderer(templateSub, version, logger),
	}

	return &http.Server{
		Addr:              net.JoinHostPort(bind, strconv.Itoa(port)),
		Handler:           securityHeaders(routes(h, staticSub)),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// routes registers the browser routes using Go 1.22+ pattern syntax.
func routes(h *Handlers, static fs.FS) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/reports", http.StatusFound)
	})
	mux.HandleFunc("GET /reports", h.HandleList)
	mux.HandleFunc("GET /reports/search", h.HandleSearch)
	mux.HandleFunc("GET /reports/{id}", h.HandleDetail)
	mux.HandleFunc("GET /reports/{id}/raw", h.HandleRaw)
	mux.HandleFunc("DELETE /reports/{id}", h.HandleDelete)
	mux.HandleFunc("POST /reports/{id}/delete", h.HandleDelete)
	mux.HandleFunc("POST /reports/purge", h.HandlePurge)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	return mux
}

// securityHeaders adds security-related HTTP headers to all responses.
// Rendered bodies may carry screenshot images from any https host.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' https: http:; script-src 'none'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *slog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("report browser running", "url", "http://"+srv.Addr)

	if host, _, err := net.SplitHostPort(srv.Addr); err == nil && (host == "" || host == "0.0.0.0" || host == "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
