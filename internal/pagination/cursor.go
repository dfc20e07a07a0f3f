package pagination

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedCursor is returned when a cursor cannot be decoded into the
// ordering key a listing expects.
var ErrMalformedCursor = errors.New("malformed cursor")

// Key is an ordering key that can be carried inside a cursor
type Key interface {
	Valid() bool
}

// CatalogKey positions a cursor after a word entry in id order
type CatalogKey struct {
	ID string `json:"id"`
}

// Valid implements Key
func (k CatalogKey) Valid() bool {
	return k.ID != ""
}

// TimelineKey positions a cursor in a (timestamp DESC, id ASC) ordering.
// Two rows may share At, so ID breaks the tie.
type TimelineKey struct {
	At time.Time `json:"at"`
	ID string    `json:"id"`
}

// Valid implements Key
func (k TimelineKey) Valid() bool {
	return !k.At.IsZero() && k.ID != ""
}

// EncodeCursor serializes key into an opaque, URL-safe cursor
func EncodeCursor[K Key](key K) (string, error) {
	if !key.Valid() {
		return "", fmt.Errorf("encode cursor: invalid key %+v", key)
	}
	if tk, ok := any(key).(TimelineKey); ok {
		tk.At = tk.At.UTC()
		key = any(tk).(K)
	}

	b, err := json.Marshal(key)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// DecodeCursor parses a cursor produced by EncodeCursor
func DecodeCursor[K Key](cursor string) (K, error) {
	var key K

	b, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return key, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&key); err != nil {
		return key, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}
	if dec.More() {
		return key, fmt.Errorf("%w: trailing data", ErrMalformedCursor)
	}

	if !key.Valid() {
		return key, fmt.Errorf("%w: missing ordering key", ErrMalformedCursor)
	}
	if tk, ok := any(key).(TimelineKey); ok {
		tk.At = tk.At.UTC()
		key = any(tk).(K)
	}
	return key, nil
}
