package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Pagination struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit,default=10"`
}

// Normalize clamps Limit into [1, MaxLimit], using DefaultLimit when unset.
func (p Pagination) Normalize() Pagination {
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}

type Cursor struct {
	CreatedAt string `json:"created_at,omitempty"`
	ID        string `json:"id,omitempty"`
}

func NewCursor(createdAt time.Time, id string) Cursor {
	return Cursor{CreatedAt: createdAt.UTC().Format(time.RFC3339Nano), ID: id}
}

type PageInfo struct {
	NextCursor     string `json:"next_cursor"`
	PreviousCursor string `json:"previous_cursor"`
	HasMore        bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// BuildCursorPageInfo trims data to limit and reports whether more rows exist.
// data is expected to hold up to limit+1 rows.
func BuildCursorPageInfo[T any](data []*T, limit int, extractCursor func(*T) Cursor) ([]*T, *PageInfo) {
	if len(data) == 0 {
		return data, &PageInfo{HasMore: false}
	}

	hasMore := false
	if len(data) > limit {
		hasMore = true
		data = data[:limit] // potong data supaya sesuai limit
	}

	pageInfo := &PageInfo{HasMore: hasMore}
	if hasMore {
		next, err := EncodeCursor(extractCursor(data[len(data)-1]))
		if err == nil {
			pageInfo.NextCursor = next
		}
	}

	return data, pageInfo
}
