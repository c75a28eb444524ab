package allowlist

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_AddViewReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	v, err := NewVerifier(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	v.ViewAllowlist(&buf)
	assert.Equal(t, "Allowlist is empty.\n", buf.String())
	assert.False(t, v.Allowed("tool:hello@1.0.0"))

	require.NoError(t, v.AddToAllowlist("tool:hello@1.0.0"))
	require.NoError(t, v.AddToAllowlist("tool:hello@1.0.0"))

	// Reload from disk to make sure the entry was persisted once.
	v2, err := NewVerifier(path)
	require.NoError(t, err)
	assert.True(t, v2.Allowed("tool:hello@1.0.0"))
	assert.Len(t, v2.Storage.Data.Allowlist, 1)

	buf.Reset()
	v2.ViewAllowlist(&buf)
	assert.Contains(t, buf.String(), "  - tool:hello@1.0.0")

	require.NoError(t, v2.ResetAllowlist())
	v3, err := NewVerifier(path)
	require.NoError(t, err)
	assert.False(t, v3.Allowed("tool:hello@1.0.0"))
	assert.Empty(t, v3.Storage.Data.Allowlist)
}
