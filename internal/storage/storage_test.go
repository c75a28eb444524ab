//nolint:testpackage // White-box tests require access to unexported identifiers in this package.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/matrix-installer/internal/events"
	"github.com/ensigniasec/matrix-installer/internal/link"
)

func TestStorage_HostUUIDPersistence(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "history.json")

	s, err := NewOrExistingStorage(path)
	require.NoError(t, err)

	// Initially set (generated on creation)
	require.NotEmpty(t, s.Data.HostUUID)

	s2, err := NewStorage(path)
	require.NoError(t, err)
	require.Equal(t, s.Data.HostUUID, s2.Data.HostUUID)
}

func TestStorage_RecordAndHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")

	s, err := NewStorage(path)
	require.NoError(t, err)

	older := NewRecord(link.Request{Entity: "tool:a@1", Alias: "a"})
	older.Finish(events.Completion{OK: false, Code: 2, Alias: "a"})
	older.FinishedAt = time.Now().Add(-time.Hour).UTC()
	require.NoError(t, s.Record(older))

	newer := NewRecord(link.Request{Entity: "tool:b@1", Alias: "b", Hub: "https://hub.example.com"})
	newer.Finish(events.Completion{OK: true, Alias: "b"})
	require.NoError(t, s.Record(newer))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := NewStorage(path)
	require.NoError(t, err)
	hist := reopened.History()
	require.Len(t, hist, 2)
	assert.Equal(t, "b", hist[0].Alias)
	assert.True(t, hist[0].OK)
	assert.Equal(t, "a", hist[1].Alias)
	assert.Equal(t, 2, hist[1].Code)
	assert.NotEqual(t, hist[0].SessionID, hist[1].SessionID)
}

func TestStorage_RecordReplacesSameAlias(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	first := NewRecord(link.Request{Entity: "tool:a@1", Alias: "a"})
	first.Finish(events.Completion{OK: false, Code: 1, Alias: "a"})
	require.NoError(t, s.Record(first))

	second := NewRecord(link.Request{Entity: "tool:a@2", Alias: "a"})
	second.Finish(events.Completion{OK: true, Alias: "a"})
	require.NoError(t, s.Record(second))

	hist := s.History()
	require.Len(t, hist, 1)
	assert.Equal(t, "tool:a@2", hist[0].Entity)
}

func TestStorage_RecordRejectsInvalid(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	assert.Error(t, s.Record(InstallRecord{Alias: "a"}))
	assert.Empty(t, s.History())
}

func TestStorage_LoadSelfHeals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	raw := map[string]any{
		"host_uuid": "not-a-uuid",
		"installs": map[string]any{
			"bad": map[string]any{"session_id": "x", "entity": "e", "alias": "bad"},
		},
	}
	b, err := json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))

	s, err := NewStorage(path)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", s.Data.HostUUID)
	assert.Empty(t, s.Data.Installs)
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandTilde("~/x/history.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "history.json"), got)

	got, err = expandTilde("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)
}
