// Package store holds the durable, per-request crawl state: the ordered
// content store, the visited-URL set, and the
// content-hash dedup set. All three are mutated only by the scheduler-owned
// goroutine after each batch's workers join — never concurrently.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go_crawler/internal/model"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// ulidEntropySource returns a fresh, independently seeded entropy source for
// ulid.Monotonic — one per store so concurrent stores (e.g. in tests) don't
// share a PRNG.
func ulidEntropySource() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// ContentStore is the ordered, append-only sequence of Documents.
// Not indexed by URL — linear rank passes are acceptable at this scale.
type ContentStore struct {
	mu       sync.Mutex // guards entropy source only; document mutation is single-goroutine by convention
	entropy  *ulid.MonotonicEntropy
	docs     []model.Document
	hashes   map[string]bool
	log      zerolog.Logger
}

// NewContentStore returns an empty store.
func NewContentStore(log zerolog.Logger) *ContentStore {
	return &ContentStore{
		entropy: ulid.Monotonic(ulidEntropySource(), 0),
		hashes:  make(map[string]bool),
		log:     log,
	}
}

// Admit hashes doc.Body, rejects empty bodies and duplicate hashes, and
// otherwise assigns an ID and appends the document. Returns true if
// the document was stored.
func (s *ContentStore) Admit(doc model.Document) bool {
	if strings.TrimSpace(doc.Body) == "" {
		return false
	}

	hash, err := hashBody(doc.Body)
	if err != nil {
		s.log.Debug().Err(err).Str("url", doc.URL).Msg("store: hashing failed, rejecting")
		return false
	}
	if s.hashes[hash] {
		return false
	}

	doc.ContentHash = hash
	if doc.ID == "" {
		doc.ID = s.newID()
	}
	s.hashes[hash] = true
	s.docs = append(s.docs, doc)
	return true
}

// Len returns the number of documents currently stored.
func (s *ContentStore) Len() int { return len(s.docs) }

// Documents returns the store's documents in insertion order. Callers must
// not mutate the returned slice's elements' shared fields.
func (s *ContentStore) Documents() []model.Document {
	out := make([]model.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// ContentHashes returns a copy of the dedup witness set, for persistence.
func (s *ContentStore) ContentHashes() map[string]bool {
	out := make(map[string]bool, len(s.hashes))
	for h := range s.hashes {
		out[h] = true
	}
	return out
}

// LoadHashes seeds the dedup set from persisted state.
func (s *ContentStore) LoadHashes(hashes map[string]bool) {
	s.hashes = make(map[string]bool, len(hashes))
	for h := range hashes {
		s.hashes[h] = true
	}
}

// LoadDocuments seeds the store from persisted state, recomputing nothing —
// documents are trusted as already-scored and already-hashed.
func (s *ContentStore) LoadDocuments(docs []model.Document) {
	s.docs = append(s.docs[:0], docs...)
}

// DomainHint returns the most recently admitted document's title for a given
// domain, a lightweight hook an external Extractor can consult about a
// domain it has seen before. No selector or extraction-strategy data is
// stored. Returns "" if no document from domain is present.
func (s *ContentStore) DomainHint(domain string) string {
	for i := len(s.docs) - 1; i >= 0; i-- {
		if s.docs[i].Domain == domain {
			return s.docs[i].Title
		}
	}
	return ""
}

func (s *ContentStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Now(), s.entropy).String()
}

func hashBody(body string) (string, error) {
	h := sha256.New()
	if _, err := h.Write([]byte(body)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VisitedSet tracks URLs dispatched to the per-URL pipeline. A URL is
// added on dispatch completion (success or failure), never on submission.
type VisitedSet struct {
	urls map[string]bool
}

// NewVisitedSet returns an empty VisitedSet.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{urls: make(map[string]bool)}
}

// Mark records u as visited.
func (v *VisitedSet) Mark(u string) { v.urls[u] = true }

// Has reports whether u has been visited.
func (v *VisitedSet) Has(u string) bool { return v.urls[u] }

// Len returns the number of visited URLs.
func (v *VisitedSet) Len() int { return len(v.urls) }

// All returns a copy of the visited URL set, for persistence.
func (v *VisitedSet) All() map[string]bool {
	out := make(map[string]bool, len(v.urls))
	for u := range v.urls {
		out[u] = true
	}
	return out
}

// Load seeds the set from persisted state.
func (v *VisitedSet) Load(urls map[string]bool) {
	v.urls = make(map[string]bool, len(urls))
	for u := range urls {
		v.urls[u] = true
	}
}
