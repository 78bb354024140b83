// Package itinerary implements the day-keyed activity scheduler. All
// operations are pure: they clone the trip, apply the change and return
// the copy.
package itinerary

import (
	"fmt"
	"sort"

	"tripledger/internal/core"
)

// Add appends the activity to the date's bucket, creating the bucket if
// absent, then re-sorts the bucket by start time. The caller assigns the
// activity id beforehand.
func Add(t core.Trip, date string, a core.Activity) (core.Trip, error) {
	if err := a.Validate(); err != nil {
		return t, fmt.Errorf("add activity: %w", err)
	}
	a.Icon = core.NormalizeIcon(string(a.Icon))

	out := t.Clone()
	out.Itinerary[date] = append(out.Itinerary[date], a)
	sortBucket(out.Itinerary[date])
	return out, nil
}

// Edit replaces every field of the activity except its id, then re-sorts
// the bucket. An unknown id leaves the trip unchanged.
func Edit(t core.Trip, date, id string, a core.Activity) (core.Trip, error) {
	if err := a.Validate(); err != nil {
		return t, fmt.Errorf("edit activity: %w", err)
	}
	a.Icon = core.NormalizeIcon(string(a.Icon))

	out := t.Clone()
	bucket := out.Itinerary[date]
	found := false
	for i := range bucket {
		if bucket[i].ID == id {
			a.ID = id
			bucket[i] = a
			found = true
			break
		}
	}
	if !found {
		return t, nil
	}
	sortBucket(bucket)
	return out, nil
}

// Delete removes the activity from the date's bucket. No re-sort is
// needed; removal preserves relative order.
func Delete(t core.Trip, date, id string) core.Trip {
	out := t.Clone()
	bucket := out.Itinerary[date]
	filtered := bucket[:0]
	for _, a := range bucket {
		if a.ID != id {
			filtered = append(filtered, a)
		}
	}
	if len(filtered) == len(bucket) {
		return t
	}
	out.Itinerary[date] = filtered
	return out
}

// Reorder replaces the bucket verbatim with the caller-supplied order.
// This is the one write that skips sort-on-write: the user has expressed
// explicit intent, and the manual order stays authoritative until the
// next Add or Edit re-sorts the bucket.
func Reorder(t core.Trip, date string, ordered []core.Activity) core.Trip {
	out := t.Clone()
	bucket := make([]core.Activity, len(ordered))
	copy(bucket, ordered)
	out.Itinerary[date] = bucket
	return out
}

// ReorderByIDs rearranges the existing bucket to the given id order. Ids
// that do not match any activity are skipped; activities missing from the
// list keep their relative order at the end.
func ReorderByIDs(t core.Trip, date string, ids []string) core.Trip {
	bucket := t.Itinerary[date]
	byID := make(map[string]core.Activity, len(bucket))
	for _, a := range bucket {
		byID[a.ID] = a
	}

	ordered := make([]core.Activity, 0, len(bucket))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if a, ok := byID[id]; ok && !seen[id] {
			ordered = append(ordered, a)
			seen[id] = true
		}
	}
	for _, a := range bucket {
		if !seen[a.ID] {
			ordered = append(ordered, a)
		}
	}
	return Reorder(t, date, ordered)
}

// sortBucket sorts ascending by start time. Times are zero-padded 24h
// strings, so lexicographic comparison is chronological. The sort is
// stable: equal start times keep insertion order.
func sortBucket(bucket []core.Activity) {
	sort.SliceStable(bucket, func(i, j int) bool {
		return bucket[i].StartTime < bucket[j].StartTime
	})
}
