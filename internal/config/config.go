package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendSupabase = "supabase"
	BackendDatabase = "database"

	StorageSupabase = "supabase"
	StorageLocal    = "local"
	StorageS3       = "s3"
)

const (
	defaultHTTPAddr      = ":8080"
	defaultBucket        = "photos"
	defaultStorageBase   = "./uploads"
	defaultStorageURL    = "/static/photos"
	defaultUploadMaxSize = "52428800" // 50 MB
	defaultHTTPTimeout   = "10s"
	defaultHTTPRetries   = "3"
	defaultRetryBackoff  = "1s"
	defaultRetryCap      = "8s"
	defaultS3Region      = "auto"
	defaultDatabaseDSN   = "tweestoelen.db"
	defaultS3PathStyle   = "true"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	Backend string // supabase | database

	SupabaseURL string
	SupabaseKey string
	DatabaseURL string

	StorageType     string // supabase | local | s3
	StorageBucket   string
	StorageBasePath string
	StorageBaseURL  string

	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3PathStyle bool

	UploadMaxSize int64

	HTTPTimeout     time.Duration
	HTTPRetries     int // attempts; 0 is treated as 1
	RetryBackoff    time.Duration
	RetryMaxBackoff time.Duration

	AdminToken         string
	CORSAllowedOrigins []string
}

// Load reads the configuration from the environment. Missing backend
// credentials are not an error here; Connect reports them so the server can
// still start in a degraded state.
func Load() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)
	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))

	cfg.SupabaseURL = strings.TrimRight(strings.TrimSpace(firstEnv("SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL")), "/")
	cfg.SupabaseKey = strings.TrimSpace(firstEnv("SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	cfg.Backend = strings.ToLower(strings.TrimSpace(os.Getenv("BACKEND")))
	if cfg.Backend == "" {
		cfg.Backend = BackendSupabase
		if cfg.SupabaseURL == "" && cfg.DatabaseURL != "" {
			cfg.Backend = BackendDatabase
		}
	}
	if cfg.Backend == BackendDatabase && cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseDSN
	}

	cfg.StorageType = strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_TYPE")))
	if cfg.StorageType == "" {
		cfg.StorageType = StorageSupabase
		if cfg.Backend == BackendDatabase {
			cfg.StorageType = StorageLocal
		}
	}
	cfg.StorageBucket = strings.TrimSpace(getEnv("STORAGE_BUCKET", defaultBucket))
	cfg.StorageBasePath = strings.TrimSpace(getEnv("STORAGE_BASE_PATH", defaultStorageBase))
	cfg.StorageBaseURL = strings.TrimRight(strings.TrimSpace(getEnv("STORAGE_BASE_URL", defaultStorageURL)), "/")

	cfg.S3Endpoint = strings.TrimSpace(os.Getenv("S3_ENDPOINT"))
	cfg.S3Region = strings.TrimSpace(getEnv("S3_REGION", defaultS3Region))
	cfg.S3AccessKey = strings.TrimSpace(os.Getenv("S3_ACCESS_KEY"))
	cfg.S3SecretKey = strings.TrimSpace(os.Getenv("S3_SECRET_KEY"))
	cfg.S3PathStyle = parseBoolEnv("S3_PATH_STYLE", defaultS3PathStyle)

	var err error
	cfg.UploadMaxSize, err = parseInt64Env("UPLOAD_MAX_SIZE", defaultUploadMaxSize)
	if err != nil {
		return nil, err
	}

	cfg.HTTPTimeout, err = parseDurationEnv("HTTP_TIMEOUT", defaultHTTPTimeout)
	if err != nil {
		return nil, err
	}

	retries, err := parseInt64Env("HTTP_RETRIES", defaultHTTPRetries)
	if err != nil {
		return nil, err
	}
	cfg.HTTPRetries = int(retries)

	cfg.RetryBackoff, err = parseDurationEnv("HTTP_RETRY_BACKOFF", defaultRetryBackoff)
	if err != nil {
		return nil, err
	}
	cfg.RetryMaxBackoff, err = parseDurationEnv("HTTP_RETRY_MAX_BACKOFF", defaultRetryCap)
	if err != nil {
		return nil, err
	}

	cfg.AdminToken = strings.TrimSpace(os.Getenv("ADMIN_TOKEN"))

	if extra := os.Getenv("CORS_ALLOWED_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	switch cfg.Backend {
	case BackendSupabase, BackendDatabase:
	default:
		return fmt.Errorf("BACKEND must be one of: supabase, database")
	}
	switch cfg.StorageType {
	case StorageSupabase, StorageLocal, StorageS3:
	default:
		return fmt.Errorf("STORAGE_TYPE must be one of: supabase, local, s3")
	}
	if cfg.StorageBucket == "" {
		return fmt.Errorf("STORAGE_BUCKET must not be empty")
	}
	if cfg.UploadMaxSize <= 0 {
		return fmt.Errorf("UPLOAD_MAX_SIZE must be > 0")
	}
	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be > 0")
	}
	if cfg.HTTPRetries < 0 {
		return fmt.Errorf("HTTP_RETRIES must be >= 0")
	}
	if cfg.RetryBackoff < 0 {
		return fmt.Errorf("HTTP_RETRY_BACKOFF must be >= 0")
	}
	if cfg.RetryMaxBackoff < cfg.RetryBackoff {
		return fmt.Errorf("HTTP_RETRY_MAX_BACKOFF must be >= HTTP_RETRY_BACKOFF")
	}
	if cfg.StorageType == StorageS3 && cfg.S3Endpoint == "" && cfg.S3Region == defaultS3Region {
		return fmt.Errorf("S3 storage needs S3_ENDPOINT or a concrete S3_REGION")
	}

	if isProdLike(cfg.AppEnv) && cfg.AdminToken == "" {
		return fmt.Errorf("in prod/release ADMIN_TOKEN must be set")
	}
	return nil
}

// IsProdLike reports whether the app runs in a production environment.
func (c *Config) IsProdLike() bool {
	return isProdLike(c.AppEnv)
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseInt64Env(name, fallback string) (int64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
