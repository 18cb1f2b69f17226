package domain

import (
	"strings"
	"time"
)

type ItemID string

// Item is immutable once fetched. Dimensions and filename only feed
// best-effort annotations such as duplicate grouping.
type Item struct {
	ID        ItemID
	CreatedAt time.Time
	Width     int
	Height    int
	Filename  string
	Path      string
	SizeBytes int64
}

func (i Item) Valid() bool {
	return strings.TrimSpace(string(i.ID)) != ""
}

type IDSet map[ItemID]struct{}

func NewIDSet(ids ...ItemID) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s IDSet) Has(id ItemID) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Add(id ItemID) {
	s[id] = struct{}{}
}

func (s IDSet) Len() int {
	return len(s)
}

func ItemIDs(items []Item) []ItemID {
	ids := make([]ItemID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}
