package pipeline

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/calegray/codedock/internal/domain"
)

// Cursor is an opaque, stable position in an ordered result set. It
// encodes the (created_at, id) sort key of the last row seen, not a row
// offset, so concurrent inserts during paging neither skip nor
// duplicate rows.
type Cursor struct {
	At time.Time
	ID string
}

// Encode serializes the cursor for transport.
func (c Cursor) Encode() string {
	raw := strconv.FormatInt(c.At.UnixMicro(), 10) + ":" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a client-supplied cursor. An empty string is the
// zero cursor (start of the result set).
func DecodeCursor(encoded string) (Cursor, error) {
	if encoded == "" {
		return Cursor{}, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Cursor{}, domain.NewValidationError("cursor", "malformed encoding")
	}

	tsPart, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Cursor{}, domain.NewValidationError("cursor", "malformed contents")
	}

	micros, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return Cursor{}, domain.NewValidationError("cursor", "malformed timestamp")
	}

	return Cursor{At: time.UnixMicro(micros).UTC(), ID: id}, nil
}

// EventCursor returns the cursor positioned at an event.
func EventCursor(e domain.Event) Cursor {
	return Cursor{At: e.CreatedAt, ID: e.ID}
}

// SessionCursor returns the cursor positioned at a session row.
func SessionCursor(s domain.Session) Cursor {
	return Cursor{At: s.CreatedAt, ID: s.ID.String()}
}

// ClampLimit bounds a client-requested page size to [1, max].
func ClampLimit(requested, def, max int) int {
	if requested <= 0 {
		return def
	}
	if requested > max {
		return max
	}
	return requested
}

// String implements fmt.Stringer for log output.
func (c Cursor) String() string {
	return fmt.Sprintf("cursor(%s, %s)", c.At.Format(time.RFC3339Nano), c.ID)
}
