package domain

import (
	"fmt"
	"sort"
)

type DuplicateGroup struct {
	Key   string
	Items []Item
}

func DuplicateKey(item Item) string {
	return fmt.Sprintf("%d-%d-%d-%s", item.CreatedAt.UnixMilli(), item.Width, item.Height, item.Filename)
}

// DetectDuplicateGroups groups items sharing creation time, dimensions and
// filename. Only groups with more than one member are returned, ordered by
// first appearance.
func DetectDuplicateGroups(items []Item) []DuplicateGroup {
	groups := make(map[string][]Item)
	firstSeen := make(map[string]int)
	for i, item := range items {
		key := DuplicateKey(item)
		if _, ok := firstSeen[key]; !ok {
			firstSeen[key] = i
		}
		groups[key] = append(groups[key], item)
	}

	result := make([]DuplicateGroup, 0)
	for key, members := range groups {
		if len(members) < 2 {
			continue
		}
		result = append(result, DuplicateGroup{Key: key, Items: members})
	}

	sort.Slice(result, func(i, j int) bool {
		return firstSeen[result[i].Key] < firstSeen[result[j].Key]
	})

	return result
}

type BlurResult struct {
	ItemID ItemID
	Score  *float64
	Blurry *bool
}

// DetectBlurryItems reports an unknown score for every item; real blur
// detection needs pixel access.
func DetectBlurryItems(items []Item) []BlurResult {
	results := make([]BlurResult, 0, len(items))
	for _, item := range items {
		results = append(results, BlurResult{ItemID: item.ID})
	}
	return results
}
