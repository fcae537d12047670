package convo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andrewckor/kip-ai/db"
	"github.com/andrewckor/kip-ai/internal/log"
)

// PostgresStore persists one JSONB snapshot row per domain in the
// kip_conversations table. The row upsert keeps the same all-or-nothing
// write guarantee as the file backend.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewPostgresStore runs pending migrations, builds the connection pool, and
// verifies connectivity.
func NewPostgresStore(ctx context.Context, connURL string, logger log.Logger) (*PostgresStore, error) {
	if err := db.Migrate(connURL, logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Load implements Store. A missing row is an empty conversation.
func (s *PostgresStore) Load(ctx context.Context, domain string) (*Snapshot, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT snapshot FROM kip_conversations WHERE domain = $1`, domain,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Snapshot{Version: SchemaVersion}, nil
		}
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return &snap, nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, domain string, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO kip_conversations (domain, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (domain)
		DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`,
		domain, data)
	if err != nil {
		return fmt.Errorf("upserting snapshot: %w", err)
	}
	return nil
}

// Clear implements Store. Clearing an absent domain is a no-op.
func (s *PostgresStore) Clear(ctx context.Context, domain string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM kip_conversations WHERE domain = $1`, domain)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}

// Domains lists every domain with persisted state, most recently updated
// first.
func (s *PostgresStore) Domains(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT domain FROM kip_conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning domain: %w", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating domains: %w", err)
	}
	return domains, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
