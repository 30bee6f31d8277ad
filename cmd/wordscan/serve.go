package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/wordscan/internal/config"
	"github.com/nao1215/wordscan/internal/crawler"
	"github.com/nao1215/wordscan/internal/model"
)

// shutdownTimeout bounds the graceful shutdown of the HTTP API.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve crawls over an HTTP API",
		Long: `Serve starts an HTTP API that crawls a site per request.

Endpoints:
  GET /crawl?url=<seed>  crawl the site of seed and return its top words
                         200 {"results":[{"word":"...","frequency":n}]}
                         400 {"error":"Please provide a url with a protocol and host"}
                         502 {"error":"..."} when the crawl fails
  GET /health            200 {"status":"ok","version":"...",...}

Requests are served concurrently; each crawl runs sequentially.
Logs are written as JSON to stderr.

Examples:
  # Listen on the default address
  wordscan serve

  # Listen on all interfaces, crawl at most 10 pages per request
  wordscan serve --listen :8080 -l 10`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().String("listen", config.DefaultListenAddr,
		"Address the HTTP API listens on")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()
	pinned, err := readCrawlFlags(cmd, cfg)
	if err != nil {
		return err
	}
	if cfg.ListenAddr, err = cmd.Flags().GetString("listen"); err != nil {
		return err
	}

	if err := cfg.ValidateCrawl(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closer, err := setupLogger(cmd.ErrOrStderr(), cfg, true)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on http://%s\n", listener.Addr())

	return serve(ctx, listener, newCrawlServer(cfg, pinned, logger), logger)
}

// crawlServer handles the HTTP API.
type crawlServer struct {
	cfg    *config.Config
	pinned map[string]bool
	logger *slog.Logger
}

func newCrawlServer(cfg *config.Config, pinned map[string]bool, logger *slog.Logger) *crawlServer {
	return &crawlServer{cfg: cfg, pinned: pinned, logger: logger}
}

// crawlResponse is the body of a successful crawl.
type crawlResponse struct {
	Results []model.WordFrequency `json:"results"`
}

// errorResponse is the body of a failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the routes of the API.
func (s *crawlServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /crawl", s.handleCrawl)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

func (s *crawlServer) handleCrawl(w http.ResponseWriter, r *http.Request) {
	seed := r.URL.Query().Get("url")
	if _, err := crawler.ValidateSeed(seed); err != nil {
		s.logger.Debug("rejected seed", "seed", seed, "error", err)
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: crawler.ErrInvalidInput.Error()})
		return
	}

	start := time.Now()
	result, err := newController(s.cfg, s.pinned, seed, s.logger, nil).Crawl(r.Context(), seed)
	if err != nil {
		s.logger.Warn("crawl failed", "seed", seed, "error", err)
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	s.logger.Info("crawl completed",
		"seed", seed,
		"pages_crawled", result.PagesCrawled,
		"elapsed", time.Since(start),
	)
	s.writeJSON(w, http.StatusOK, crawlResponse{Results: result.TopWords})
}

// healthResponse is the body of the health endpoint.
type healthResponse struct {
	Status string `json:"status"`
	buildInfo
}

func (s *crawlServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", buildInfo: currentBuildInfo()})
}

func (s *crawlServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

// serve runs the API on listener until ctx is done, then shuts it down
// gracefully. It returns nil after a clean shutdown.
func serve(ctx context.Context, listener net.Listener, s *crawlServer, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
