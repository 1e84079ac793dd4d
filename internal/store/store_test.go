package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginationParams_Validate(t *testing.T) {
	p := PaginationParams{}
	p.Validate()
	assert.Equal(t, 30, p.Limit)

	p = PaginationParams{Limit: 1000}
	p.Validate()
	assert.Equal(t, 100, p.Limit)

	p = PaginationParams{Limit: 10}
	p.Validate()
	assert.Equal(t, 10, p.Limit)
}

func TestCursor_RoundTrip(t *testing.T) {
	assert.Empty(t, EncodeCursor(""))

	key, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Empty(t, key)

	key, err = DecodeCursor(EncodeCursor("0190a5c4-7b1e-7000-8000-000000000001"))
	require.NoError(t, err)
	assert.Equal(t, "0190a5c4-7b1e-7000-8000-000000000001", key)

	_, err = DecodeCursor("!!not base64!!")
	assert.Error(t, err)
}

func TestGranularity_Truncate(t *testing.T) {
	at := time.Date(2024, 1, 2, 23, 30, 0, 0, time.FixedZone("CET", 3600))

	assert.Equal(t, "2024-01-02", Day.Truncate(at))
	assert.Equal(t, "2024-01", Month.Truncate(at))
}

func TestError_IsMatchesWrapped(t *testing.T) {
	err := fmt.Errorf("create bookmark: %w", ErrAlreadyExists.WithCause(fmt.Errorf("UNIQUE constraint failed")))

	assert.True(t, IsAlreadyExists(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, 409, ErrAlreadyExists.HTTPCode())
	assert.Equal(t, "not here", ErrNotFound.WithMessage("not here").Error())
}
