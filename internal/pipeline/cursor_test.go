package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calegray/codedock/internal/domain"
)

func TestCursor_RoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.UTC)
	c := Cursor{At: at, ID: "01HZXY3V5J8Q4R6T9W2E7N0MKP"}

	decoded, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, decoded.At.Equal(at))
	assert.Equal(t, c.ID, decoded.ID)
}

func TestDecodeCursor_Empty(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.True(t, c.At.IsZero())
	assert.Empty(t, c.ID)
}

func TestDecodeCursor_Malformed(t *testing.T) {
	for _, encoded := range []string{"!!!not-base64!!!", "bm8tc2VwYXJhdG9y", "bm90YW51bWJlcjppZA"} {
		_, err := DecodeCursor(encoded)
		require.Error(t, err, "cursor %q", encoded)

		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, ClampLimit(0, 50, 200))
	assert.Equal(t, 50, ClampLimit(-3, 50, 200))
	assert.Equal(t, 25, ClampLimit(25, 50, 200))
	assert.Equal(t, 200, ClampLimit(5000, 50, 200))
}
