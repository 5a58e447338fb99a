package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/wolfman30/clinic-booking-assistant/internal/audit"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/patients"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// ConnectPostgresPool returns nil when url is empty or the database is unreachable.
func ConnectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(pingCtx, url)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("postgres not reachable", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// BuildPatientRepository returns the Postgres directory when a pool is
// available and the in-memory one otherwise.
func BuildPatientRepository(pool *pgxpool.Pool, logger *logging.Logger) patients.Repository {
	if logger == nil {
		logger = logging.Default()
	}
	if pool == nil {
		logger.Warn("DATABASE_URL not set; patient directory is in-memory")
		return patients.NewInMemoryRepository()
	}
	return patients.NewPostgresRepository(pool)
}

// OpenAuditStore opens the tool-call audit trail. Both return values are
// nil when auditing is disabled or no database is configured.
func OpenAuditStore(cfg *appconfig.Config, logger *logging.Logger) (*audit.Store, *sql.DB, error) {
	if cfg == nil || !cfg.AuditEnabled || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: open audit db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	logger.Info("tool call audit enabled")
	return audit.NewStore(db), db, nil
}
