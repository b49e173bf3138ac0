// SQLite-backed durable persistence, an alternative to the JSON snapshot
// files for deployments that want queryable state between runs. Grounded on
// go_job's jobs/tracker.go openTrackerDB/schema pattern: each SQLiteStore
// holds one *sql.DB opened once, MaxOpenConns(1) because SQLite allows a
// single writer.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/anatolykoptev/go_crawler/internal/model"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a durable Store backing keyed by a single SQLite file.
type SQLiteStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens (or creates) the crawl state database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id              TEXT PRIMARY KEY,
			url             TEXT NOT NULL UNIQUE,
			domain          TEXT NOT NULL,
			title           TEXT,
			body            TEXT NOT NULL,
			word_count      INTEGER NOT NULL,
			publish_date    TEXT,
			heuristic_score REAL NOT NULL,
			outbound_links  TEXT,
			content_hash    TEXT NOT NULL UNIQUE,
			inserted_at     TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS visited_urls (
			url TEXT PRIMARY KEY,
			visited_at TEXT NOT NULL
		);
	`)
	return err
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// SaveDocument inserts a document, ignoring the insert if its URL or content
// hash already exists (mirrors the in-memory store's dedup invariant).
func (s *SQLiteStore) SaveDocument(ctx context.Context, doc model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	links, err := json.Marshal(doc.OutboundLinks)
	if err != nil {
		return fmt.Errorf("store: marshal outbound links: %w", err)
	}

	var publishDate any
	if doc.PublishDate != nil {
		publishDate = doc.PublishDate.Format(time.RFC3339)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO documents
			(id, url, domain, title, body, word_count, publish_date, heuristic_score, outbound_links, content_hash, inserted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.URL, doc.Domain, doc.Title, doc.Body, doc.WordCount,
		publishDate, doc.HeuristicScore, string(links), doc.ContentHash,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store: insert document: %w", err)
	}
	return nil
}

// LoadAll returns every document in insertion order.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, domain, title, body, word_count, publish_date, heuristic_score, outbound_links, content_hash
		FROM documents ORDER BY inserted_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: query documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		var publishDate sql.NullString
		var links string
		if err := rows.Scan(&doc.ID, &doc.URL, &doc.Domain, &doc.Title, &doc.Body,
			&doc.WordCount, &publishDate, &doc.HeuristicScore, &links, &doc.ContentHash); err != nil {
			continue
		}
		if publishDate.Valid {
			if t, err := time.Parse(time.RFC3339, publishDate.String); err == nil {
				doc.PublishDate = &t
			}
		}
		_ = json.Unmarshal([]byte(links), &doc.OutboundLinks)
		docs = append(docs, doc)
	}
	return docs, nil
}

// MarkVisited records a URL as visited, idempotently.
func (s *SQLiteStore) MarkVisited(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO visited_urls (url, visited_at) VALUES (?, ?)`,
		url, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store: mark visited: %w", err)
	}
	return nil
}

// LoadVisited returns the full visited-URL set.
func (s *SQLiteStore) LoadVisited(ctx context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT url FROM visited_urls`)
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
	return out, nil
}
