package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tweestoelen/internal/config"
	"tweestoelen/internal/database"
	"tweestoelen/internal/domain/photo"
	"tweestoelen/internal/middleware"
	"tweestoelen/internal/pkg/retry"
	"tweestoelen/internal/realtime"
	"tweestoelen/internal/storage"
	"tweestoelen/internal/supabase"
)

const shutdownTimeout = 10 * time.Second

// App is the assembled HTTP server.
type App struct {
	cfg     *config.Config
	log     *slog.Logger
	service *photo.Service
	hub     *realtime.Hub
	router  *gin.Engine
	server  *http.Server
}

// New wires the photo service and the routes. A backend that cannot be set
// up does not stop the server; reads are served degraded instead.
func New(cfg *config.Config, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := realtime.NewHub(log)
	backend, err := Connect(cfg, log, hub)
	if err != nil {
		log.Error("photo backend unavailable, serving degraded", "backend", cfg.Backend, "error", err.Error())
		backend = &Backend{Service: photo.NewUnavailableService(err, log)}
	}

	a := &App{
		cfg:     cfg,
		log:     log,
		service: backend.Service,
		hub:     hub,
	}
	a.router = a.routes(backend)
	a.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a
}

// Handler exposes the router, mostly for tests.
func (a *App) Handler() http.Handler { return a.router }

// Service is the photo service the routes use.
func (a *App) Service() *photo.Service { return a.service }

func (a *App) routes(backend *Backend) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(a.log))
	r.Use(middleware.ErrorLogger(a.log))
	r.Use(middleware.CORS(a.cfg.CORSAllowedOrigins))

	if backend.LocalDir != "" && strings.HasPrefix(a.cfg.StorageBaseURL, "/") {
		r.Static(a.cfg.StorageBaseURL, backend.LocalDir)
	}

	v1 := r.Group("/api/v1")
	{
		photo.RegisterRoutes(v1, photo.NewHandler(a.service, a.log), middleware.AdminToken(a.cfg.AdminToken, a.log))
		realtime.RegisterRoutes(v1, realtime.NewHandler(a.hub, a.cfg.CORSAllowedOrigins))
	}
	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", "addr", a.cfg.HTTPAddr, "backend", a.cfg.Backend, "storage", a.cfg.StorageType)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Backend is a connected photo service plus what the HTTP layer needs to
// know about its storage.
type Backend struct {
	Service  *photo.Service
	LocalDir string // set when blobs live on the local filesystem
}

// Connect builds the record store and blob store selected by cfg. views may
// be nil.
func Connect(cfg *config.Config, log *slog.Logger, views photo.ViewNotifier) (*Backend, error) {
	var sb *supabase.Client
	supabaseClient := func() (*supabase.Client, error) {
		if sb != nil {
			return sb, nil
		}
		c, err := supabase.New(supabase.Config{
			URL:     cfg.SupabaseURL,
			Key:     cfg.SupabaseKey,
			Timeout: cfg.HTTPTimeout,
			Retry: retry.Policy{
				Attempts:   max(cfg.HTTPRetries, 1),
				Backoff:    cfg.RetryBackoff,
				MaxBackoff: cfg.RetryMaxBackoff,
			},
		})
		if err != nil {
			return nil, err
		}
		sb = c
		return c, nil
	}

	var store photo.Store
	switch cfg.Backend {
	case config.BackendSupabase:
		c, err := supabaseClient()
		if err != nil {
			return nil, err
		}
		store = supabase.NewRecordStore(c)
	case config.BackendDatabase:
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", photo.ErrBackendUnavailable, err)
		}
		if err := photo.Migrate(db); err != nil {
			return nil, fmt.Errorf("%w: migrate: %v", photo.ErrBackendUnavailable, err)
		}
		store = photo.NewGormStore(db)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	var (
		blobs    storage.BlobStore
		localDir string
	)
	switch cfg.StorageType {
	case config.StorageSupabase:
		c, err := supabaseClient()
		if err != nil {
			return nil, err
		}
		blobs = supabase.NewStorage(c)
	case config.StorageLocal:
		local, err := storage.NewLocal(cfg.StorageBasePath, cfg.StorageBaseURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", photo.ErrBackendUnavailable, err)
		}
		blobs = local
		localDir = local.BasePath()
	case config.StorageS3:
		s3, err := storage.NewS3(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PathStyle: cfg.S3PathStyle,
			BaseURL:   cfg.StorageBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", photo.ErrBackendUnavailable, err)
		}
		blobs = s3
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}

	svc := photo.NewService(photo.NewRepository(store), blobs, views, photo.Config{
		Bucket:        cfg.StorageBucket,
		MaxUploadSize: cfg.UploadMaxSize,
	}, log)
	return &Backend{Service: svc, LocalDir: localDir}, nil
}
