package db

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/GKaszewski/k-core/pkg/apperr"
)

// Plan is a resolved Config: the backend to open and the pool parameters to
// open it with.
type Plan struct {
	Kind Kind

	// DSN is the string handed to the backend driver.
	DSN string

	MaxConnections uint32
	MinConnections uint32
	AcquireTimeout time.Duration

	// InMemory is set for the in-memory SQLite form.
	InMemory bool

	// Fallback is set when SQLite was chosen for a URL that is not a
	// recognised SQLite form.
	Fallback bool

	// Scheme is the URL scheme as written, for diagnostics.
	Scheme string
}

// Resolve picks a backend for cfg among the enabled kinds. The first match
// wins: Postgres for a postgres:// or postgresql:// URL when Postgres is
// enabled, otherwise SQLite for any URL when SQLite is enabled, otherwise a
// configuration error.
func Resolve(cfg Config, enabled []Kind) (Plan, error) {
	url := strings.TrimSpace(cfg.URL)
	timeout := cfg.AcquireTimeout
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}

	var plan Plan
	switch {
	case slices.Contains(enabled, KindPostgres) && isPostgresURL(url):
		plan = Plan{
			Kind:           KindPostgres,
			DSN:            url,
			MaxConnections: cfg.MaxConnections,
			MinConnections: cfg.MinConnections,
			AcquireTimeout: timeout,
			Scheme:         scheme(url),
		}

	case slices.Contains(enabled, KindSQLite):
		dsn, recognised, memory := sqliteDSN(url)
		if cfg.StrictScheme && !recognised {
			return Plan{}, apperr.Configuration("unsupported database url scheme " + quoteScheme(url))
		}
		plan = Plan{
			Kind:           KindSQLite,
			DSN:            dsn,
			MaxConnections: cfg.MaxConnections,
			MinConnections: cfg.MinConnections,
			AcquireTimeout: timeout,
			InMemory:       memory,
			Fallback:       !recognised,
			Scheme:         scheme(url),
		}
		if memory {
			plan.MaxConnections = 1
			plan.MinConnections = 1
		}

	default:
		return Plan{}, apperr.Configuration("no supported backend enabled")
	}

	if plan.MaxConnections == 0 {
		return Plan{}, apperr.Validation("max_connections must be at least 1")
	}
	if plan.MaxConnections > math.MaxInt32 {
		plan.MaxConnections = math.MaxInt32
	}
	if plan.MinConnections > plan.MaxConnections {
		plan.MinConnections = plan.MaxConnections
	}
	return plan, nil
}

func isPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// sqliteDSN turns a SQLite URL into a driver DSN. recognised reports whether
// url was one of the SQLite forms; memory reports the in-memory form.
func sqliteDSN(url string) (dsn string, recognised, memory bool) {
	switch {
	case url == "", url == ":memory:", url == "sqlite::memory:", url == "sqlite://:memory:":
		return ":memory:", url != "", true
	case strings.HasPrefix(url, "sqlite://"):
		dsn = strings.TrimPrefix(url, "sqlite://")
		recognised = true
	case strings.HasPrefix(url, "sqlite:"):
		dsn = strings.TrimPrefix(url, "sqlite:")
		recognised = true
	case strings.HasPrefix(url, "file:"):
		dsn = url
		recognised = true
	case !strings.Contains(url, "://"):
		// Bare path.
		dsn = url
		recognised = true
	default:
		// Unknown scheme: use everything after it as a path.
		dsn = url[strings.Index(url, "://")+3:]
	}

	if dsn == "" {
		return ":memory:", recognised, true
	}
	return dsn, recognised, isMemoryDSN(dsn)
}

func isMemoryDSN(dsn string) bool {
	path, query, _ := strings.Cut(dsn, "?")
	path = strings.TrimPrefix(path, "file:")
	return path == ":memory:" || strings.Contains(query, "mode=memory")
}

func scheme(url string) string {
	if i := strings.Index(url, "://"); i > 0 {
		return url[:i]
	}
	if i := strings.Index(url, ":"); i > 0 {
		return url[:i]
	}
	return ""
}

func quoteScheme(url string) string {
	s := scheme(url)
	if s == "" {
		return `""`
	}
	return `"` + s + `"`
}
