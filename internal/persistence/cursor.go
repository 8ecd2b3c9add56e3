// Package persistence contains helpers shared by store implementations.
package persistence

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"example.com/smartfit/internal/domain"
)

// EncodeCursor serialises the cursor to a string token.
func EncodeCursor(c *domain.Cursor) string {
	if c == nil {
		return ""
	}
	raw := fmt.Sprintf("%d|%d", domain.ToMillis(c.Timestamp), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses the encoded cursor token.
func DecodeCursor(token string) (*domain.Cursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}
	ms, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, err
	}
	return &domain.Cursor{Timestamp: domain.FromMillis(ms), ID: id}, nil
}

// Paginate slices a newest-first list after the cursor position. The returned
// cursor is nil when no further items remain.
func Paginate[T any](items []T, key func(T) domain.Cursor, after *domain.Cursor, limit int) ([]T, *domain.Cursor) {
	start := 0
	if after != nil {
		start = len(items)
		for i, item := range items {
			if olderThan(key(item), *after) {
				start = i
				break
			}
		}
	}
	rest := items[start:]
	if limit <= 0 || len(rest) <= limit {
		return rest, nil
	}
	page := rest[:limit]
	next := key(page[len(page)-1])
	return page, &next
}

func olderThan(a, b domain.Cursor) bool {
	am, bm := domain.ToMillis(a.Timestamp), domain.ToMillis(b.Timestamp)
	if am != bm {
		return am < bm
	}
	return a.ID < b.ID
}
