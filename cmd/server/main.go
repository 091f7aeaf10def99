package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/pdf-qa/backend/internal/answer"
	"github.com/pdf-qa/backend/internal/api"
	"github.com/pdf-qa/backend/internal/archive"
	"github.com/pdf-qa/backend/internal/cache"
	"github.com/pdf-qa/backend/internal/config"
	"github.com/pdf-qa/backend/internal/extract"
	"github.com/pdf-qa/backend/internal/interaction"
	"github.com/pdf-qa/backend/internal/llm"
	"github.com/pdf-qa/backend/internal/logging"
	"github.com/pdf-qa/backend/internal/storage"
	"github.com/pdf-qa/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const shutdownGrace = 15 * time.Second

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the XML or YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// defaultConfigPath places the config next to the executable.
func defaultConfigPath() string {
	exePath, err := os.Executable()
	if err != nil {
		return "pdfqa.config.xml"
	}
	return filepath.Join(filepath.Dir(exePath), "pdfqa.config.xml")
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	maxUpload, err := cfg.MaxUploadBytes()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.Advanced.LogLevel, cfg.Advanced.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("close failed", "error", err)
			}
		}
	}()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	closers = append(closers, store)

	arch, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := arch.(io.Closer); ok {
		closers = append(closers, c)
	}

	gen, err := llm.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create %s model client: %w", cfg.Model.Provider, err)
	}
	if c, ok := gen.(io.Closer); ok {
		closers = append(closers, c)
	}

	var cacheOpts []cache.Option
	if arch != nil {
		cacheOpts = append(cacheOpts, cache.WithArchiver(arch))
	}
	docs := cache.New(store,
		extract.NewPDFExtractor(logger.With("component", "extract")),
		logger.With("component", "cache"),
		cacheOpts...,
	)
	recorder := interaction.NewLogger(store, logger.With("component", "interactions"))
	pipeline := answer.New(docs, gen, recorder, logger.With("component", "answer"),
		answer.WithChunkDelay(cfg.ChunkDelay()),
		answer.WithTimeout(cfg.ModelTimeout()),
	)

	e := newEcho(cfg, logger)
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Documents:     docs,
		Answers:       pipeline,
		Interactions:  recorder,
		Archive:       arch,
		MaxUploadSize: maxUpload,
		Version:       Version,
		StoreDriver:   store.Driver(),
		ModelProvider: cfg.Model.Provider,
		Logger:        logger.With("component", "api"),
	}))
	if err := web.RegisterStaticRoutes(e); err != nil {
		logger.Warn("failed to register static routes", "error", err)
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      e,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(cfg, configPath)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openArchive returns the configured archive for original uploads, or nil
// when archiving is disabled. A local directory wins over a bucket.
func openArchive(ctx context.Context, cfg *config.AppConfig) (archive.Archiver, error) {
	switch {
	case cfg.Storage.ArchiveDirectory != "":
		a, err := archive.NewLocalArchive(cfg.Storage.ArchiveDirectory)
		if err != nil {
			return nil, fmt.Errorf("open archive directory: %w", err)
		}
		return a, nil
	case cfg.Storage.ArchiveBucket != "":
		a, err := archive.NewGCSArchive(ctx, cfg.Storage.ArchiveBucket, "pdfs/")
		if err != nil {
			return nil, fmt.Errorf("open archive bucket: %w", err)
		}
		return a, nil
	default:
		return nil, nil
	}
}

func newEcho(cfg *config.AppConfig, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = api.ErrorHandler(logger, cfg.Advanced.LogLevel == "debug")

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return !cfg.Advanced.EnableRequestLogging || c.Request().URL.Path == "/api/health"
		},
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				logger.Warn("request", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			// uploads run extraction, answers run the model; both have their own bounds
			path := c.Request().URL.Path
			return isStreaming(c) ||
				strings.HasPrefix(path, "/api/documents") ||
				strings.HasPrefix(path, "/api/ws/")
		},
		ErrorMessage: "Request timeout",
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return isStreaming(c) || strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
		},
	}))

	if cfg.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
	return e
}

func isStreaming(c echo.Context) bool {
	return c.Request().URL.Path == "/api/answer-stream" ||
		strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "text/event-stream")
}

func printBanner(cfg *config.AppConfig, configPath string) {
	title := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgHiBlack)

	fmt.Println()
	title.Println("  PDF Question Answering Server")
	row := func(k, v string) {
		label.Printf("  %-10s", k)
		fmt.Println(v)
	}
	row("Version", Version+" ("+BuildTime+")")
	row("Config", configPath)
	row("Listen", "http://"+cfg.GetServerAddr())
	row("Store", cfg.Storage.Driver)
	row("Model", cfg.Model.Provider+"/"+cfg.Model.Name)
	fmt.Println()
}
