package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-bot/pkg/models"
)

func newTestRepo(t *testing.T) (*FileSubscriberRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subscribers.json")
	return NewFileSubscriberRepository(path), path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileRepo_MissingFileIsEmpty(t *testing.T) {
	repo, path := newTestRepo(t)

	subs, err := repo.All()
	require.NoError(t, err)
	assert.Empty(t, subs)

	// reading must not create the file
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileRepo_EmptyFileIsEmpty(t *testing.T) {
	repo, path := newTestRepo(t)
	writeFile(t, path, "")

	subs, err := repo.All()
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestFileRepo_LegacyListUpgrade(t *testing.T) {
	repo, path := newTestRepo(t)
	writeFile(t, path, "[1, 1410681826]")

	subs, err := repo.All()
	require.NoError(t, err)
	require.Len(t, subs, 2)

	for _, chatID := range []int64{1, 1410681826} {
		sub, ok := subs[chatID]
		require.True(t, ok, "chat %d missing after migration", chatID)
		assert.Nil(t, sub.FirstName)
		assert.Nil(t, sub.LastName)
		assert.Nil(t, sub.Username)
		require.NotNil(t, sub.SubscribedAt)
		assert.WithinDuration(t, time.Now().UTC(), *sub.SubscribedAt, time.Minute)
	}

	// upgraded shape is persisted back to disk
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var wire map[string]models.Subscriber
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Contains(t, wire, "1")
	assert.Contains(t, wire, "1410681826")
}

func TestFileRepo_MapMissingKeysNormalized(t *testing.T) {
	repo, path := newTestRepo(t)
	writeFile(t, path, `{"1410681826": {"first_name": "Yusup", "username": "uwcup46", "subscribed_at": "2025-11-18T03:46:45.489811+00:00"}}`)

	subs, err := repo.All()
	require.NoError(t, err)
	sub, ok := subs[1410681826]
	require.True(t, ok)
	require.NotNil(t, sub.FirstName)
	assert.Equal(t, "Yusup", *sub.FirstName)
	assert.Nil(t, sub.LastName)

	// file on disk now carries the full record shape
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "last_name")
	assert.Contains(t, string(raw), "nip")
}

func TestFileRepo_InvalidFileBackedUp(t *testing.T) {
	repo, path := newTestRepo(t)
	writeFile(t, path, "not-a-json")

	subs, err := repo.All()
	require.NoError(t, err)
	assert.Empty(t, subs)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "not-a-json")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	var foundBackup bool
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".bak-") {
			foundBackup = true
		}
	}
	assert.True(t, foundBackup, "expected a backup of the invalid file")
}

func TestFileRepo_UpsertCreatesThenRefreshes(t *testing.T) {
	repo, _ := newTestRepo(t)

	first := "Alice"
	require.NoError(t, repo.Upsert(models.Subscriber{ChatID: 42, FirstName: &first}))

	sub, err := repo.Get(42)
	require.NoError(t, err)
	require.NotNil(t, sub.FirstName)
	assert.Equal(t, "Alice", *sub.FirstName)
	require.NotNil(t, sub.SubscribedAt)
	subscribedAt := *sub.SubscribedAt

	// a later message from the same chat refreshes fields in place
	username := "alice_a"
	renamed := "Alicia"
	require.NoError(t, repo.Upsert(models.Subscriber{ChatID: 42, FirstName: &renamed, Username: &username}))

	subs, err := repo.All()
	require.NoError(t, err)
	require.Len(t, subs, 1, "repeated upserts must not create duplicates")

	sub = subs[42]
	assert.Equal(t, "Alicia", *sub.FirstName)
	assert.Equal(t, "alice_a", *sub.Username)
	require.NotNil(t, sub.SubscribedAt)
	assert.Equal(t, subscribedAt.Unix(), sub.SubscribedAt.Unix(), "subscribed_at is set once")
	require.NotNil(t, sub.UpdatedAt)
}

func TestFileRepo_UpsertKeepsUnsetFields(t *testing.T) {
	repo, _ := newTestRepo(t)

	first, last := "Bob", "Barker"
	require.NoError(t, repo.Upsert(models.Subscriber{ChatID: 7, FirstName: &first, LastName: &last}))

	// nil fields leave the stored values alone
	nip := "NIP123"
	require.NoError(t, repo.Upsert(models.Subscriber{ChatID: 7, NIP: &nip}))

	sub, err := repo.Get(7)
	require.NoError(t, err)
	assert.Equal(t, "Bob", *sub.FirstName)
	assert.Equal(t, "Barker", *sub.LastName)
	assert.Equal(t, "NIP123", *sub.NIP)
}

func TestFileRepo_NIPTruncated(t *testing.T) {
	repo, _ := newTestRepo(t)

	long := strings.Repeat("X", 30)
	require.NoError(t, repo.Upsert(models.Subscriber{ChatID: 9, NIP: &long}))

	sub, err := repo.Get(9)
	require.NoError(t, err)
	require.NotNil(t, sub.NIP)
	assert.Len(t, *sub.NIP, models.NIPMaxLen)
}

func TestFileRepo_GetUnknown(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Get(404)
	assert.ErrorIs(t, err, ErrSubscriberNotFound)
}

func TestFileRepo_Delete(t *testing.T) {
	repo, _ := newTestRepo(t)

	require.NoError(t, repo.Upsert(models.Subscriber{ChatID: 1}))
	require.NoError(t, repo.Delete(1))
	require.NoError(t, repo.Delete(1)) // idempotent

	_, err := repo.Get(1)
	assert.ErrorIs(t, err, ErrSubscriberNotFound)
}

func TestFileRepo_SaveAllRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)

	now := time.Now().UTC()
	name := "Carol"
	subs := map[int64]models.Subscriber{
		100: {FirstName: &name, SubscribedAt: &now},
		200: {},
	}
	require.NoError(t, repo.SaveAll(subs))

	loaded, err := repo.All()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "Carol", *loaded[100].FirstName)
	assert.Equal(t, int64(200), loaded[200].ChatID)
}
