package pagination

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 10: 10, MaxLimit + 50: MaxLimit}
	for in, want := range cases {
		if got := (Params{Limit: in}).Size(); got != want {
			t.Fatalf("Size(%d)=%d want %d", in, got, want)
		}
	}
}

func TestCursorRoundTrip(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 30, 0, 123, time.FixedZone("IST", 19800))
	id := uuid.New()

	parsed, err := ParseCursor(EncodeCursor(Cursor{CreatedAt: now, ID: id}))
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if !parsed.CreatedAt.Equal(now) || parsed.ID != id {
		t.Fatalf("unexpected cursor %+v", parsed)
	}
	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("empty cursor should be nil, got %v %v", c, err)
	}
}

func TestCursorsAreNotInterchangeable(t *testing.T) {
	if _, err := ParseIDCursor(EncodeCursor(Cursor{CreatedAt: time.Now(), ID: uuid.New()})); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("order cursor must not parse as an id cursor, got %v", err)
	}
	if _, err := ParseCursor(EncodeIDCursor(7)); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("id cursor must not parse as an order cursor, got %v", err)
	}
}

func TestParseRejectsTamperedCursors(t *testing.T) {
	bad := []string{
		"!!!",
		base64.RawURLEncoding.EncodeToString([]byte("42")),
		base64.RawURLEncoding.EncodeToString([]byte(`{"after":-1}`)),
		base64.RawURLEncoding.EncodeToString([]byte(`{"after":0}`)),
	}
	for _, value := range bad {
		if _, err := ParseIDCursor(value); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("expected invalid cursor for %q, got %v", value, err)
		}
	}

	id, err := ParseIDCursor(EncodeIDCursor(42))
	if err != nil || id != 42 {
		t.Fatalf("unexpected id cursor %d %v", id, err)
	}
	if id, err := ParseIDCursor(""); err != nil || id != 0 {
		t.Fatalf("empty cursor should be zero, got %d %v", id, err)
	}
}

func TestTrim(t *testing.T) {
	cursorOf := func(v int) string { return EncodeIDCursor(int64(v)) }

	page, next := Trim([]int{1, 2, 3}, 2, cursorOf)
	if len(page) != 2 || next != EncodeIDCursor(2) {
		t.Fatalf("unexpected page %v next %q", page, next)
	}

	page, next = Trim([]int{1, 2}, 2, cursorOf)
	if len(page) != 2 || next != "" {
		t.Fatalf("last page should have no cursor, got %v %q", page, next)
	}

	page, next = Trim[int](nil, 5, cursorOf)
	if page == nil || len(page) != 0 || next != "" {
		t.Fatalf("nil rows should become an empty page, got %#v %q", page, next)
	}
}
