package store

import (
	"os"
	"testing"

	"github.com/anatolykoptev/go_crawler/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

func TestAdmitRejectsEmptyBody(t *testing.T) {
	cs := NewContentStore(testLogger())
	assert.False(t, cs.Admit(model.Document{URL: "https://a.com", Body: "   "}))
	assert.Equal(t, 0, cs.Len())
}

func TestAdmitRejectsDuplicateHash(t *testing.T) {
	cs := NewContentStore(testLogger())
	doc := model.Document{URL: "https://a.com", Body: "same content"}
	assert.True(t, cs.Admit(doc))
	dup := model.Document{URL: "https://b.com", Body: "same content"}
	assert.False(t, cs.Admit(dup))
	assert.Equal(t, 1, cs.Len())
}

func TestAdmitAssignsIDAndPreservesOrder(t *testing.T) {
	cs := NewContentStore(testLogger())
	cs.Admit(model.Document{URL: "https://a.com", Body: "first"})
	cs.Admit(model.Document{URL: "https://b.com", Body: "second"})
	docs := cs.Documents()
	require.Len(t, docs, 2)
	assert.NotEmpty(t, docs[0].ID)
	assert.NotEmpty(t, docs[1].ID)
	assert.Equal(t, "https://a.com", docs[0].URL)
	assert.Equal(t, "https://b.com", docs[1].URL)
}

func TestDomainHintReturnsMostRecentMatch(t *testing.T) {
	cs := NewContentStore(testLogger())
	cs.Admit(model.Document{URL: "https://a.com/1", Domain: "a.com", Title: "Old Page", Body: "one"})
	cs.Admit(model.Document{URL: "https://a.com/2", Domain: "a.com", Title: "New Page", Body: "two"})
	assert.Equal(t, "New Page", cs.DomainHint("a.com"))
	assert.Equal(t, "", cs.DomainHint("missing.com"))
}

func TestVisitedSetMarkHasLoad(t *testing.T) {
	v := NewVisitedSet()
	assert.False(t, v.Has("https://a.com"))
	v.Mark("https://a.com")
	assert.True(t, v.Has("https://a.com"))
	assert.Equal(t, 1, v.Len())

	v2 := NewVisitedSet()
	v2.Load(v.All())
	assert.True(t, v2.Has("https://a.com"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	log := testLogger()

	visited := NewVisitedSet()
	visited.Mark("https://a.com")
	visited.Mark("https://b.com")

	cs := NewContentStore(log)
	cs.Admit(model.Document{URL: "https://a.com", Domain: "a.com", Title: "A", Body: "alpha content"})
	cs.Admit(model.Document{URL: "https://b.com", Domain: "b.com", Title: "B", Body: "beta content"})

	Save(dir, SnapshotFrom(visited, cs), log)

	restoredVisited, restoredStore := Restore(dir, log)
	assert.Equal(t, 2, restoredVisited.Len())
	assert.True(t, restoredVisited.Has("https://a.com"))
	assert.True(t, restoredVisited.Has("https://b.com"))

	docs := restoredStore.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, "https://a.com", docs[0].URL)
	assert.Equal(t, "https://b.com", docs[1].URL)

	dup := model.Document{URL: "https://c.com", Body: "alpha content"}
	assert.False(t, restoredStore.Admit(dup), "hash set should have been restored")
}

func TestLoadMissingDirStartsFresh(t *testing.T) {
	dir := t.TempDir()
	missing := dir + "/does-not-exist"
	log := testLogger()

	visited, cs := Restore(missing, log)
	assert.Equal(t, 0, visited.Len())
	assert.Equal(t, 0, cs.Len())
}

func TestLoadCorruptFileStartsFreshForThatField(t *testing.T) {
	dir := t.TempDir()
	log := testLogger()

	require.NoError(t, os.WriteFile(dir+"/"+visitedFile, []byte("not json"), 0o644))
	snap := Load(dir, log)
	assert.Empty(t, snap.Visited)
}
