package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	for range 1000 {
		id, err := Generate("sse")
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}
	assert.Len(t, ids, 1000)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{"sse", "req", "custom"} {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(id, prefix+"-"))
			assert.Len(t, id, len(prefix)+1+21)
		})
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.True(t, strings.HasPrefix(MustGenerate("sse"), "sse-"))
	})
}

func TestNewResourceID(t *testing.T) {
	first, err := NewResourceID()
	require.NoError(t, err)
	second, err := NewResourceID()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, IsResourceID(first))

	parsed, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.True(t, IsResourceID(MustResourceID()))
}

func TestIsResourceID(t *testing.T) {
	assert.False(t, IsResourceID("invalid"))
	assert.False(t, IsResourceID(""))
	assert.True(t, IsResourceID("0190b3c6-7d4e-7c1a-9a5e-3f2b1c0d9e8f"))
}
