package index

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipsnap/pkg/logger"
	"shipsnap/pkg/storage"
)

const indexKey = "index/vessels.json"

func TestLoadMissingIndexStartsEmpty(t *testing.T) {
	store := storage.NewMemoryStore()
	mgr := NewManager(store, indexKey, logger.NewTestLogger())

	require.NoError(t, mgr.Load(context.Background()))
	assert.False(t, mgr.Contains("9876543"))
}

func TestLoadCorruptIndexStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Put(ctx, indexKey, []byte("{not json"), "application/json"))

	log := logger.NewTestLogger()
	mgr := NewManager(store, indexKey, log)

	require.NoError(t, mgr.Load(ctx))
	assert.False(t, mgr.Contains("9876543"))
	assert.True(t, log.HasMessage("index document is corrupt, starting empty"))
}

func TestContainsAndMarkPending(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	doc, _ := json.Marshal(Document{IDs: []string{"1111111"}})
	require.NoError(t, store.Put(ctx, indexKey, doc, "application/json"))

	mgr := NewManager(store, indexKey, logger.NewTestLogger())
	require.NoError(t, mgr.Load(ctx))

	assert.True(t, mgr.Contains("1111111"))
	assert.False(t, mgr.Contains("2222222"))

	mgr.MarkPending("2222222")
	assert.True(t, mgr.Contains("2222222"))
	assert.Equal(t, 1, mgr.PendingCount())
}

func TestFlushUnionsWithStoredDocument(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	mgr := NewManager(store, indexKey, logger.NewTestLogger())
	require.NoError(t, mgr.Load(ctx))
	mgr.MarkPending("1111111")

	// Another writer persists between our load and flush
	other, _ := json.Marshal(Document{IDs: []string{"2222222"}})
	require.NoError(t, store.Put(ctx, indexKey, other, "application/json"))

	require.NoError(t, mgr.Flush(ctx))

	obj, err := store.Get(ctx, indexKey)
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(obj.Data, &doc))
	assert.Equal(t, []string{"1111111", "2222222"}, doc.IDs)
	assert.False(t, doc.LastUpdated.IsZero())

	assert.Equal(t, 0, mgr.PendingCount())
	assert.True(t, mgr.Contains("2222222"))
}

func TestRebuildFromStorageLayout(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "photos/IMO_1111111/1.jpg", nil, "image/jpeg"))
	require.NoError(t, store.Put(ctx, "photos/2222222/2.jpg", nil, "image/jpeg"))
	require.NoError(t, store.Put(ctx, "photos/notavessel/3.jpg", nil, "image/jpeg"))
	require.NoError(t, store.Put(ctx, "photos/IMO_123/4.jpg", nil, "image/jpeg"))

	mgr := NewManager(store, indexKey, logger.NewTestLogger())
	ids, err := mgr.Rebuild(ctx, "photos")
	require.NoError(t, err)

	assert.Equal(t, []string{"1111111", "2222222"}, ids)
	assert.True(t, mgr.Contains("1111111"))
	assert.False(t, mgr.Contains("123"))

	obj, err := store.Get(ctx, indexKey)
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(obj.Data, &doc))
	assert.Equal(t, []string{"1111111", "2222222"}, doc.IDs)
}
