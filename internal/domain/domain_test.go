package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want string
	}{
		{name: "zero", in: 0, want: "0m 0s"},
		{name: "floors partial seconds", in: 61*time.Second + 900*time.Millisecond, want: "1m 1s"},
		{name: "long session", in: 75 * time.Minute, want: "75m 0s"},
		{name: "negative clamps to zero", in: -5 * time.Second, want: "0m 0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.in))
		})
	}
}

func TestRecordRecentMovesToFrontAndTruncates(t *testing.T) {
	current := []CollectionID{"a", "b", "c"}

	assert.Equal(t, []CollectionID{"b", "a", "c"}, RecordRecent(current, "b", 8))
	assert.Equal(t, []CollectionID{"z", "a"}, RecordRecent(current, "z", 2))
	assert.Equal(t, []CollectionID{"a", "b", "c"}, current, "input must not be mutated")
}

func TestRecordRecentDefaultsLimit(t *testing.T) {
	var current []CollectionID
	for _, id := range []CollectionID{"1", "2", "3", "4", "5", "6", "7", "8", "9"} {
		current = RecordRecent(current, id, 0)
	}

	require.Len(t, current, DefaultRecentCollectionLimit)
	assert.Equal(t, CollectionID("9"), current[0])
}

func TestPinRecentOrdersRecentFirst(t *testing.T) {
	collections := []Collection{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}

	ordered := PinRecent(collections, []CollectionID{"c", "missing", "a", "c"})

	ids := make([]CollectionID, 0, len(ordered))
	for _, collection := range ordered {
		ids = append(ids, collection.ID)
	}
	assert.Equal(t, []CollectionID{"c", "a", "b", "d"}, ids)
}

func TestCollectionDisplayTitleFallsBackForGarbledTitles(t *testing.T) {
	assert.Equal(t, "Trips", Collection{ID: "abcdef", Title: " Trips "}.DisplayTitle())
	assert.Equal(t, "Collection cdef", Collection{ID: "abcdef", Title: "??"}.DisplayTitle())
	assert.Equal(t, "Collection ab", Collection{ID: "ab"}.DisplayTitle())
}

func TestSessionStateCloneIsIndependent(t *testing.T) {
	state := SessionState{
		Queue:          []Item{{ID: "1"}},
		PendingCommits: []ItemID{"x"},
		LastAction:     &LastAction{Kind: ActionDelete, Item: Item{ID: "2"}},
	}

	clone := state.Clone()
	clone.Queue[0].ID = "changed"
	clone.PendingCommits[0] = "changed"
	clone.LastAction.Item.ID = "changed"

	assert.Equal(t, ItemID("1"), state.Queue[0].ID)
	assert.Equal(t, ItemID("x"), state.PendingCommits[0])
	assert.Equal(t, ItemID("2"), state.LastAction.Item.ID)
}

func TestSessionStateElapsed(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	state := SessionState{StartedAt: start}

	assert.Equal(t, 90*time.Second, state.Elapsed(start.Add(90*time.Second)))

	state.EndedAt = start.Add(30 * time.Second)
	assert.Equal(t, 30*time.Second, state.Elapsed(start.Add(time.Hour)))
	assert.Equal(t, time.Duration(0), SessionState{}.Elapsed(start))
}

func TestLastActionRemaining(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	action := LastAction{ExpiresAt: now.Add(10 * time.Second)}

	assert.Equal(t, 10*time.Second, action.Remaining(now))
	assert.Equal(t, time.Duration(0), action.Remaining(now.Add(time.Minute)))
}

func TestDetectDuplicateGroups(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	items := []Item{
		{ID: "1", CreatedAt: created, Width: 10, Height: 20, Filename: "a.jpg"},
		{ID: "2", CreatedAt: created, Width: 10, Height: 20, Filename: "b.jpg"},
		{ID: "3", CreatedAt: created, Width: 10, Height: 20, Filename: "b.jpg"},
		{ID: "4", CreatedAt: created, Width: 10, Height: 20, Filename: "a.jpg"},
		{ID: "5", CreatedAt: created.Add(time.Second), Width: 10, Height: 20, Filename: "a.jpg"},
	}

	groups := DetectDuplicateGroups(items)

	require.Len(t, groups, 2)
	assert.Equal(t, []ItemID{"1", "4"}, ItemIDs(groups[0].Items))
	assert.Equal(t, []ItemID{"2", "3"}, ItemIDs(groups[1].Items))
}

func TestDetectBlurryItemsReportsUnknown(t *testing.T) {
	results := DetectBlurryItems([]Item{{ID: "1"}, {ID: "2"}})

	require.Len(t, results, 2)
	assert.Nil(t, results[0].Score)
	assert.Nil(t, results[1].Blurry)
}

func TestIDSet(t *testing.T) {
	set := NewIDSet("a")
	set.Add("b")

	assert.True(t, set.Has("a"))
	assert.True(t, set.Has("b"))
	assert.False(t, set.Has("c"))
	assert.Equal(t, 2, set.Len())
}
