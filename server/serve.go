package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"log/slog"

	"github.com/Pjt727/timetable/collection"
	"github.com/Pjt727/timetable/data"
	logginghelpers "github.com/Pjt727/timetable/data/logging-helpers"
	"github.com/Pjt727/timetable/data/timetable"
	servertimetable "github.com/Pjt727/timetable/server/timetable"
	"github.com/Pjt727/timetable/server/view"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultPort     = 3000
	DefaultTimeZone = "Asia/Kuala_Lumpur"
	shutdownTimeout = 10 * time.Second
)

type Config struct {
	Port        int
	CORSOrigins []string
	Limits      servertimetable.RateLimits
	// classes carry wall clock times, exports need to know where
	Location *time.Location
	Title    string
	LogLevel slog.Level
	// extra json log file next to stderr
	LogFile string
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Port:        DefaultPort,
		CORSOrigins: []string{"*"},
		Limits:      servertimetable.DefaultRateLimits,
		Title:       "Weekly Timetable",
		LogLevel:    slog.LevelInfo,
		LogFile:     os.Getenv("LOG_FILE"),
	}
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return cfg, fmt.Errorf("PORT: %w", err)
		}
		cfg.Port = p
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = nil
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}
	if limit := os.Getenv("CLASS_RATE_LIMIT"); limit != "" {
		perSecond, err := strconv.ParseFloat(limit, 64)
		if err != nil {
			return cfg, fmt.Errorf("CLASS_RATE_LIMIT: %w", err)
		}
		cfg.Limits.Writes = rate.Limit(perSecond)
	}
	if title := os.Getenv("TIMETABLE_TITLE"); title != "" {
		cfg.Title = title
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		l, err := logginghelpers.ParseLevel(level)
		if err != nil {
			return cfg, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = l
	}
	zone := os.Getenv("TIMETABLE_TZ")
	if zone == "" {
		zone = DefaultTimeZone
	}
	location, err := time.LoadLocation(zone)
	if err != nil {
		return cfg, fmt.Errorf("TIMETABLE_TZ: %w", err)
	}
	cfg.Location = location
	return cfg, nil
}

// NewLogger writes text to stderr and, when a log file is configured, json to
// the file as well
func NewLogger(cfg Config) (*slog.Logger, io.Closer, error) {
	handler := logginghelpers.NewMultiHandler(
		logginghelpers.NewHandler(os.Stderr, &logginghelpers.Options{Level: cfg.LogLevel}),
	)
	var closer io.Closer = io.NopCloser(nil)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handler.AddHandler(logginghelpers.NewHandler(f, &logginghelpers.Options{
			Level:     cfg.LogLevel,
			AddSource: true,
			JSON:      true,
		}))
		closer = f
	}
	return slog.New(handler), closer, nil
}

// NewRouter wires every route onto one backend
func NewRouter(backend data.Backend, cfg Config, logger *slog.Logger) (http.Handler, *servertimetable.WatchHub) {
	r := chi.NewRouter()
	cors := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum age for preflight requests
	})
	r.Use(cors.Handler)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	store := timetable.NewStore(backend, log.WithField("component", "store"))
	importer := collection.NewImporter(store, nil, log.WithField("component", "import"))

	var hub *servertimetable.WatchHub
	r.Route("/api", func(r chi.Router) {
		hub = servertimetable.PopulateTimetableRoutes(
			&r,
			store,
			importer,
			cfg.Location,
			cfg.Limits,
			logger.With("component", "api"),
		)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := backend.Ping(ctx); err != nil {
			logger.Log(r.Context(), logginghelpers.LevelReportIO, "Health check failed", "err", err)
			http.Error(w, timetable.ErrStoreUnavailable.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	fileServer(r, "/static", http.FS(view.Static()))
	r.Get("/", view.Handler(store, cfg.Title, logger.With("component", "view")))

	return r, hub
}

// Serve runs until ctx is cancelled, then drains requests and closes the store
func Serve(ctx context.Context, cfg Config, dbConfig data.Config) error {
	logger, logCloser, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	backend, err := data.Open(ctx, dbConfig)
	if err != nil {
		logger.Log(ctx, logginghelpers.LevelBrokenProcess, "Fatal cannot connect to store", "err", err)
		return err
	}
	defer backend.Close()

	router, hub := NewRouter(backend, cfg, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Running server on", "port", cfg.Port)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Log(ctx, logginghelpers.LevelBrokenProcess, "Server stopped", "err", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// https://github.com/go-chi/chi/blob/master/_examples/fileserver/main.go
func fileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit any URL parameters.")
	}

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", 301).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		pathPrefix := strings.TrimSuffix(rctx.RoutePattern(), "/*")
		fs := http.StripPrefix(pathPrefix, http.FileServer(root))
		fs.ServeHTTP(w, r)
	})
}
