package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yangwenmai/latentvault/internal/api"
	"github.com/yangwenmai/latentvault/internal/engine"
)

const shutdownTimeout = 10 * time.Second

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vault HTTP API",
	Long:  `Start an HTTP server that exposes the vault, its slots and the generation session.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default $PORT or 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	port := servePort
	if port == "" {
		port = cfg.Port
	}

	svc, closeDB, err := openVault()
	if err != nil {
		return err
	}
	defer closeDB()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, err := newGenerator(ctx)
	if err != nil {
		return err
	}
	sess := engine.NewSession(svc, gen)

	srv := api.New(svc, sess, api.Options{
		CORSOrigin:     cfg.CORSOrigin,
		MaxImportBytes: cfg.MaxImportBytes,
		Logger:         logger,
	})
	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("latentvault listening", zap.String("addr", "http://localhost:"+port), zap.String("db", dbPath))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newGenerator(ctx context.Context) (engine.Generator, error) {
	if cfg.UseStubs() {
		logger.Warn("GEMINI_API_KEY not set, using stub generator")
		return &engine.StubGenerator{}, nil
	}
	logger.Info("using Gemini generator", zap.String("model", cfg.GeminiModel))
	return engine.NewGeminiGenerator(ctx, cfg.GeminiKey,
		engine.WithGeminiModel(cfg.GeminiModel),
		engine.WithGeminiTimeout(cfg.HTTPTimeout),
	)
}
