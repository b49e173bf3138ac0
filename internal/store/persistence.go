// Persistence: snapshot/restore of {visited set, content-hash set, content
// store} to disk. Writes are write-to-temp-then-rename per file; a partial load
// failure starts with empty state rather than leaving stale partial state in
// memory.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/anatolykoptev/go_crawler/internal/model"
	"github.com/rs/zerolog"
)

// Backend abstracts a durable content-store backing beyond the default JSON
// snapshot files — SQLiteStore and PostgresStore both satisfy this shape.
type Backend interface {
	SaveDocument(ctx context.Context, doc model.Document) error
	LoadAll(ctx context.Context) ([]model.Document, error)
	MarkVisited(ctx context.Context, url string) error
	LoadVisited(ctx context.Context) (map[string]bool, error)
}

const (
	visitedFile = "visited_urls.json"
	hashesFile  = "content_hashes.json"
	storeFile   = "content_store.json"
)

// Snapshot is the full on-disk state for one persistence root.
type Snapshot struct {
	Visited   []string         `json:"visited_urls"`
	Hashes    []string         `json:"content_hashes"`
	Documents []model.Document `json:"content_store"`
}

// Save atomically writes the three files under dir. A failure on any one
// file is logged and does not prevent the others from being attempted —
// matching the "log and continue" policy for persistence failures.
func Save(dir string, snap Snapshot, log zerolog.Logger) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("store: could not create state dir")
		return
	}
	writeJSONAtomic(filepath.Join(dir, visitedFile), snap.Visited, log)
	writeJSONAtomic(filepath.Join(dir, hashesFile), snap.Hashes, log)
	writeJSONAtomic(filepath.Join(dir, storeFile), snap.Documents, log)
}

// Load restores a Snapshot from dir. A missing file leaves its field empty.
// On a read/decode failure of any file, the whole Snapshot starts empty
// rather than partially populated; the failure is logged but does not fail
// the overall load.
func Load(dir string, log zerolog.Logger) Snapshot {
	var snap Snapshot
	ok := readJSON(filepath.Join(dir, visitedFile), &snap.Visited, log)
	ok = readJSON(filepath.Join(dir, hashesFile), &snap.Hashes, log) && ok
	ok = readJSON(filepath.Join(dir, storeFile), &snap.Documents, log) && ok
	if !ok {
		return Snapshot{}
	}
	return snap
}

func writeJSONAtomic(path string, v any, log zerolog.Logger) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("store: marshal failed")
		return
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("store: write failed")
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("store: rename failed")
		_ = os.Remove(tmp)
	}
}

func readJSON(path string, v any, log zerolog.Logger) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true
		}
		log.Debug().Err(err).Str("path", path).Msg("store: read failed, starting fresh")
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("store: decode failed, starting fresh")
		return false
	}
	return true
}

// SnapshotFrom builds a Snapshot from live state for a Save call.
func SnapshotFrom(visited *VisitedSet, cs *ContentStore) Snapshot {
	visitedURLs := make([]string, 0, visited.Len())
	for u := range visited.All() {
		visitedURLs = append(visitedURLs, u)
	}
	hashSet := cs.ContentHashes()
	hashes := make([]string, 0, len(hashSet))
	for h := range hashSet {
		hashes = append(hashes, h)
	}
	return Snapshot{
		Visited:   visitedURLs,
		Hashes:    hashes,
		Documents: cs.Documents(),
	}
}

// Restore loads persisted state into a fresh VisitedSet and ContentStore.
func Restore(dir string, log zerolog.Logger) (*VisitedSet, *ContentStore) {
	snap := Load(dir, log)

	visited := NewVisitedSet()
	visitedMap := make(map[string]bool, len(snap.Visited))
	for _, u := range snap.Visited {
		visitedMap[u] = true
	}
	visited.Load(visitedMap)

	cs := NewContentStore(log)
	hashMap := make(map[string]bool, len(snap.Hashes))
	for _, h := range snap.Hashes {
		hashMap[h] = true
	}
	cs.LoadHashes(hashMap)
	cs.LoadDocuments(snap.Documents)

	return visited, cs
}

// LoadFromBackend overwrites visited/cs with whatever backend currently
// holds, for deployments using a SQLite/Postgres backing instead of (or in
// addition to) the JSON snapshot files. A read failure is logged and leaves
// visited/cs with whatever the JSON-based Restore already populated.
func LoadFromBackend(ctx context.Context, backend Backend, visited *VisitedSet, cs *ContentStore, log zerolog.Logger) {
	docs, err := backend.LoadAll(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("store: backend load-all failed, keeping JSON snapshot state")
		return
	}
	hashes := make(map[string]bool, len(docs))
	for _, d := range docs {
		if d.ContentHash != "" {
			hashes[d.ContentHash] = true
		}
	}
	cs.LoadDocuments(docs)
	cs.LoadHashes(hashes)

	urls, err := backend.LoadVisited(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("store: backend load-visited failed")
		return
	}
	visited.Load(urls)
}

// PersistAll writes the current {visited, content store} state to the JSON
// snapshot files and, when non-nil, mirrors it into backend (a SQLite or
// Postgres Backend) and redisCache (an L2 warm-start cache). Backend/Redis
// failures are logged and never block the JSON write, matching the
// log-and-continue persistence policy.
func PersistAll(ctx context.Context, dir string, visited *VisitedSet, cs *ContentStore, backend Backend, redisCache *RedisSnapshotCache, log zerolog.Logger) {
	snap := SnapshotFrom(visited, cs)
	Save(dir, snap, log)

	if backend != nil {
		for _, doc := range cs.Documents() {
			if err := backend.SaveDocument(ctx, doc); err != nil {
				log.Warn().Err(err).Str("url", doc.URL).Msg("store: backend save-document failed")
			}
		}
		for u := range visited.All() {
			if err := backend.MarkVisited(ctx, u); err != nil {
				log.Warn().Err(err).Str("url", u).Msg("store: backend mark-visited failed")
				break
			}
		}
	}

	if redisCache != nil {
		if err := redisCache.Save(ctx, dir, snap); err != nil {
			log.Warn().Err(err).Msg("store: redis snapshot save failed")
		}
	}
}
