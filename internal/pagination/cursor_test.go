package pagination

import (
	"encoding/base64"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_EncodeDecode(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 0, 123456000, time.FixedZone("CET", 3600))

	encoded := EncodeCursor("0b7c2f4e-2d0a-4f7e-9c1b-5a6d7e8f9a0b", ts)
	assert.Equal(t, encoded, url.QueryEscape(encoded), "cursor must survive a query string")

	got, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "0b7c2f4e-2d0a-4f7e-9c1b-5a6d7e8f9a0b", got.LastID)
	assert.True(t, ts.Equal(got.Timestamp))
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor(t *testing.T) {
	got, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, got)

	invalid := []string{
		"not base64!",
		base64.RawURLEncoding.EncodeToString([]byte("no separator")),
		base64.RawURLEncoding.EncodeToString([]byte("yesterday|id")),
		base64.RawURLEncoding.EncodeToString([]byte("2026-03-01T12:00:00Z|")),
	}
	for _, c := range invalid {
		_, err := DecodeCursor(c)
		assert.ErrorIs(t, err, ErrInvalidCursor, c)
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, ClampLimit(0, 20, 100))
	assert.Equal(t, 20, ClampLimit(-5, 20, 100))
	assert.Equal(t, 7, ClampLimit(7, 20, 100))
	assert.Equal(t, 100, ClampLimit(500, 20, 100))
}
