// PostgreSQL-backed durable persistence, an alternative to SQLiteStore for
// multi-process deployments that need a shared, network-accessible backing
// store rather than a single local file. Grounded on go_job's
// jobs/resumedb.go ConnectResumeDB pattern: a pgxpool.Pool opened once from a
// DSN, schema ensured at connect time, context-scoped queries throughout.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anatolykoptev/go_crawler/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a durable Store backing keyed by a shared Postgres
// database, selectable behind the same shape as SQLiteStore so callers can
// pick either by config without touching the rest of the crawl core.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgresStore connects to dsn and ensures the documents/visited_urls
// tables exist.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: init postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id              TEXT PRIMARY KEY,
			url             TEXT NOT NULL UNIQUE,
			domain          TEXT NOT NULL,
			title           TEXT,
			body            TEXT NOT NULL,
			word_count      INTEGER NOT NULL,
			publish_date    TIMESTAMPTZ,
			heuristic_score DOUBLE PRECISION NOT NULL,
			outbound_links  JSONB,
			content_hash    TEXT NOT NULL UNIQUE,
			inserted_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS visited_urls (
			url        TEXT PRIMARY KEY,
			visited_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}

// Close releases the connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }

// SaveDocument upserts-by-skip a document: a conflict on url or content_hash
// is a no-op, mirroring the in-memory store's dedup invariant.
func (s *PostgresStore) SaveDocument(ctx context.Context, doc model.Document) error {
	links, err := json.Marshal(doc.OutboundLinks)
	if err != nil {
		return fmt.Errorf("store: marshal outbound links: %w", err)
	}

	var publishDate *time.Time
	if doc.PublishDate != nil {
		t := *doc.PublishDate
		publishDate = &t
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents
			(id, url, domain, title, body, word_count, publish_date, heuristic_score, outbound_links, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING`,
		doc.ID, doc.URL, doc.Domain, doc.Title, doc.Body, doc.WordCount,
		publishDate, doc.HeuristicScore, links, doc.ContentHash,
	)
	if err != nil {
		return fmt.Errorf("store: insert document: %w", err)
	}
	return nil
}

// LoadAll returns every document in insertion order.
func (s *PostgresStore) LoadAll(ctx context.Context) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, url, domain, title, body, word_count, publish_date, heuristic_score, outbound_links, content_hash
		FROM documents ORDER BY inserted_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: query documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		var publishDate *time.Time
		var links []byte
		if err := rows.Scan(&doc.ID, &doc.URL, &doc.Domain, &doc.Title, &doc.Body,
			&doc.WordCount, &publishDate, &doc.HeuristicScore, &links, &doc.ContentHash); err != nil {
			continue
		}
		doc.PublishDate = publishDate
		_ = json.Unmarshal(links, &doc.OutboundLinks)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// MarkVisited records a URL as visited, idempotently.
func (s *PostgresStore) MarkVisited(ctx context.Context, url string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO visited_urls (url) VALUES ($1) ON CONFLICT (url) DO NOTHING`, url)
	if err != nil {
		return fmt.Errorf("store: mark visited: %w", err)
	}
	return nil
}

// LoadVisited returns the full visited-URL set.
func (s *PostgresStore) LoadVisited(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT url FROM visited_urls`)
	if err != nil {
		return nil, fmt.Errorf("store: query visited: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			continue
		}
		out[u] = true
	}
	return out, rows.Err()
}
