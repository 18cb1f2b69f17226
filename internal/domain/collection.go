package domain

import (
	"fmt"
	"strings"
	"time"
)

type CollectionID string

const DefaultRecentCollectionLimit = 8

type Collection struct {
	ID        CollectionID
	Title     string
	ItemCount int
	CreatedAt time.Time
}

func (c Collection) DisplayTitle() string {
	title := strings.TrimSpace(c.Title)
	if title != "" && strings.Trim(title, "?\uFFFD") != "" {
		return title
	}

	id := string(c.ID)
	if len(id) > 4 {
		id = id[len(id)-4:]
	}
	return fmt.Sprintf("Collection %s", id)
}

// RecordRecent moves id to the front of the MRU list and truncates it to max.
func RecordRecent(current []CollectionID, id CollectionID, max int) []CollectionID {
	if max <= 0 {
		max = DefaultRecentCollectionLimit
	}

	next := make([]CollectionID, 0, len(current)+1)
	next = append(next, id)
	for _, existing := range current {
		if existing == id || strings.TrimSpace(string(existing)) == "" {
			continue
		}
		next = append(next, existing)
	}

	if len(next) > max {
		next = next[:max]
	}
	return next
}

// PinRecent orders collections so recently used ones come first in MRU order;
// the rest keep their source order. Unknown recent ids are ignored.
func PinRecent(collections []Collection, recent []CollectionID) []Collection {
	if len(recent) == 0 {
		return collections
	}

	byID := make(map[CollectionID]Collection, len(collections))
	for _, collection := range collections {
		byID[collection.ID] = collection
	}

	ordered := make([]Collection, 0, len(collections))
	pinned := make(map[CollectionID]struct{}, len(recent))
	for _, id := range recent {
		collection, ok := byID[id]
		if !ok {
			continue
		}
		if _, seen := pinned[id]; seen {
			continue
		}
		pinned[id] = struct{}{}
		ordered = append(ordered, collection)
	}

	for _, collection := range collections {
		if _, ok := pinned[collection.ID]; ok {
			continue
		}
		ordered = append(ordered, collection)
	}

	return ordered
}
