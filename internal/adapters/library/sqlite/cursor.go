package sqlite

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/bnema/keepster-cli/internal/domain"
)

// itemCursor is a keyset position in (created_at DESC, id DESC) order.
type itemCursor struct {
	createdAt int64
	id        domain.ItemID
}

func (c itemCursor) encode() string {
	raw := strconv.FormatInt(c.createdAt, 10) + ":" + string(c.id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeItemCursor(cursor string) (itemCursor, bool, error) {
	if cursor == "" {
		return itemCursor{}, false, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return itemCursor{}, false, fmt.Errorf("decode cursor: %w", err)
	}
	created, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return itemCursor{}, false, fmt.Errorf("decode cursor: malformed position %q", raw)
	}
	createdAt, err := strconv.ParseInt(created, 10, 64)
	if err != nil {
		return itemCursor{}, false, fmt.Errorf("decode cursor: %w", err)
	}
	return itemCursor{createdAt: createdAt, id: domain.ItemID(id)}, true, nil
}

func encodeIDCursor(id domain.ItemID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

func decodeIDCursor(cursor string) (domain.ItemID, error) {
	if cursor == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("decode cursor: %w", err)
	}
	return domain.ItemID(raw), nil
}
