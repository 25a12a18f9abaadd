package access

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"Fbaccess/internal/core/graph"
)

// Storage backends for the picture cache.
const (
	StorageDisk     = "disk"
	StoragePostgres = "postgres"
)

// Config validation errors
var (
	// ErrInvalidGraphURL is returned when GraphURL is not an absolute URL
	ErrInvalidGraphURL = errors.New("GraphURL must be an absolute URL")
	// ErrInvalidRESTURL is returned when RESTURL is not an absolute URL
	ErrInvalidRESTURL = errors.New("RESTURL must be an absolute URL")
	// ErrInvalidRequestTimeout is returned when RequestTimeout is not positive
	ErrInvalidRequestTimeout = errors.New("RequestTimeout must be positive")
	// ErrInvalidRateLimit is returned when RateLimitRPS is negative
	ErrInvalidRateLimit = errors.New("RateLimitRPS cannot be negative")
	// ErrInvalidStorage is returned when Storage names an unknown backend
	ErrInvalidStorage = errors.New("Storage must be \"disk\" or \"postgres\"")
	// ErrMissingCachePath is returned when disk storage has no path
	ErrMissingCachePath = errors.New("ImageCachePath is required for disk storage")
	// ErrMissingDatabaseURL is returned when postgres storage has no DSN
	ErrMissingDatabaseURL = errors.New("DatabaseURL is required for postgres storage")
	// ErrInvalidCacheTTL is returned when ImageCacheTTL is negative
	ErrInvalidCacheTTL = errors.New("ImageCacheTTL cannot be negative")
)

// Config holds the settings of a Graph API session.
type Config struct {
	// GraphURL is the Graph API root.
	GraphURL string

	// RESTURL is the legacy REST method root.
	RESTURL string

	// ClientID and ClientSecret identify the application. Without a secret, login
	// uses the implicit flow.
	ClientID     string
	ClientSecret string

	// RedirectURI is where the login dialog sends the browser. Empty means the
	// loopback server's callback.
	RedirectURI string

	// Permissions are requested at login.
	Permissions []string

	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration

	// RateLimitRPS caps outgoing requests per second. Zero disables limiting.
	RateLimitRPS float64

	// Storage selects the picture cache backend.
	Storage string

	// ImageCachePath is the disk cache directory.
	ImageCachePath string

	// ImageCacheTTL is how long temporary pictures are kept. Zero keeps them.
	ImageCacheTTL time.Duration

	// DatabaseURL is the postgres DSN.
	DatabaseURL string

	// LoopbackAddr is the listen address of the login server.
	LoopbackAddr string

	// CookieSecret signs the login session cookie.
	CookieSecret string
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if u, err := url.Parse(c.GraphURL); err != nil || !u.IsAbs() {
		return fmt.Errorf("%w: got %q", ErrInvalidGraphURL, c.GraphURL)
	}
	if u, err := url.Parse(c.RESTURL); err != nil || !u.IsAbs() {
		return fmt.Errorf("%w: got %q", ErrInvalidRESTURL, c.RESTURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidRequestTimeout, c.RequestTimeout)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidRateLimit, c.RateLimitRPS)
	}
	if c.ImageCacheTTL < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidCacheTTL, c.ImageCacheTTL)
	}

	switch c.Storage {
	case StorageDisk:
		if c.ImageCachePath == "" {
			return ErrMissingCachePath
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidStorage, c.Storage)
	}

	return nil
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		GraphURL:       graph.DefaultGraphURL,
		RESTURL:        graph.DefaultRESTURL,
		RequestTimeout: 30 * time.Second,
		RateLimitRPS:   0,
		Storage:        StorageDisk,
		ImageCachePath: defaultCachePath(),
		ImageCacheTTL:  24 * time.Hour,
		LoopbackAddr:   "127.0.0.1:8765",
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "fbaccess-images"
	}
	return filepath.Join(dir, "fbaccess", "images")
}

// ConfigFromEnv creates a Config from environment variables.
// Uses defaults for any missing environment variables.
//
// Environment variables:
//   - FB_GRAPH_URL: Graph API root (default: https://graph.facebook.com)
//   - FB_REST_URL: legacy REST method root (default: https://api.facebook.com/method)
//   - FB_CLIENT_ID, FB_CLIENT_SECRET: application credentials
//   - FB_REDIRECT_URI: login redirect (default: the loopback callback)
//   - FB_PERMISSIONS: comma-separated permissions to request
//   - FB_REQUEST_TIMEOUT_SECONDS: per-request timeout (default: 30)
//   - FB_RATE_LIMIT_RPS: request rate cap, 0 to disable (default: 0)
//   - FB_STORAGE: "disk" or "postgres" (default: disk)
//   - FB_IMAGE_CACHE_PATH: disk cache directory (default: user cache dir)
//   - FB_IMAGE_CACHE_TTL_HOURS: temporary picture lifetime, 0 to keep (default: 24)
//   - DATABASE_URL: postgres DSN
//   - FB_LOOPBACK_ADDR: login server address (default: 127.0.0.1:8765)
//   - FB_COOKIE_SECRET: login session cookie secret
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("FB_GRAPH_URL"); v != "" {
		cfg.GraphURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("FB_REST_URL"); v != "" {
		cfg.RESTURL = strings.TrimRight(v, "/")
	}
	cfg.ClientID = os.Getenv("FB_CLIENT_ID")
	cfg.ClientSecret = os.Getenv("FB_CLIENT_SECRET")
	cfg.RedirectURI = os.Getenv("FB_REDIRECT_URI")

	if v := os.Getenv("FB_PERMISSIONS"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Permissions = append(cfg.Permissions, p)
			}
		}
	}

	if v := os.Getenv("FB_REQUEST_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeout = time.Duration(n) * time.Second
		} else {
			slog.Warn("[FB-ACCESS] invalid FB_REQUEST_TIMEOUT_SECONDS value, using default",
				"value", v,
				"default_seconds", int(cfg.RequestTimeout.Seconds()),
				"error", err,
			)
		}
	}

	if v := os.Getenv("FB_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.RateLimitRPS = f
		} else {
			slog.Warn("[FB-ACCESS] invalid FB_RATE_LIMIT_RPS value, using default",
				"value", v,
				"default", cfg.RateLimitRPS,
				"error", err,
			)
		}
	}

	if v := os.Getenv("FB_STORAGE"); v != "" {
		cfg.Storage = strings.ToLower(v)
	}
	if v := os.Getenv("FB_IMAGE_CACHE_PATH"); v != "" {
		cfg.ImageCachePath = v
	}

	if v := os.Getenv("FB_IMAGE_CACHE_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ImageCacheTTL = time.Duration(n) * time.Hour
		} else {
			slog.Warn("[FB-ACCESS] invalid FB_IMAGE_CACHE_TTL_HOURS value, using default",
				"value", v,
				"default_hours", int(cfg.ImageCacheTTL.Hours()),
				"error", err,
			)
		}
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if v := os.Getenv("FB_LOOPBACK_ADDR"); v != "" {
		cfg.LoopbackAddr = v
	}
	cfg.CookieSecret = os.Getenv("FB_COOKIE_SECRET")

	return cfg
}
