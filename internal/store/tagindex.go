package store

import (
	"slices"
	"time"
)

// TagIndex maps a tag to the ordered slugs of documents carrying it.
// Like the Store, it has a single owner per build and no internal locking.
type TagIndex struct {
	tags map[string][]tagEntry
}

// tagEntry keeps the timestamp next to the slug so insertion can find the
// ordered position without consulting the store.
type tagEntry struct {
	slug        string
	publishedAt time.Time
}

// NewTagIndex creates an empty TagIndex.
func NewTagIndex() *TagIndex {
	return &TagIndex{tags: make(map[string][]tagEntry)}
}

// Add records slug under each given tag, inserting at the position that
// keeps the list ordered by publishedAt descending, slug ascending.
func (ti *TagIndex) Add(slug string, publishedAt time.Time, tags []string) {
	entry := tagEntry{slug: slug, publishedAt: publishedAt}

	for _, tag := range tags {
		list := ti.tags[tag]

		pos, _ := slices.BinarySearchFunc(list, entry, compareEntries)

		ti.tags[tag] = slices.Insert(list, pos, entry)
	}
}

// Remove deletes slug from every tag list it appears under. Tags left with
// no documents are pruned.
func (ti *TagIndex) Remove(slug string) {
	for tag, list := range ti.tags {
		filtered := slices.DeleteFunc(list, func(e tagEntry) bool {
			return e.slug == slug
		})

		if len(filtered) == 0 {
			delete(ti.tags, tag)

			continue
		}

		ti.tags[tag] = filtered
	}
}

// Query returns the ordered slugs for tag. An unknown tag is a valid, empty
// result, never an error.
func (ti *TagIndex) Query(tag string) []string {
	list, ok := ti.tags[tag]
	if !ok {
		return []string{}
	}

	out := make([]string, 0, len(list))
	for _, entry := range list {
		out = append(out, entry.slug)
	}

	return out
}

// Tags returns all known tags in ascending order.
func (ti *TagIndex) Tags() []string {
	out := make([]string, 0, len(ti.tags))
	for tag := range ti.tags {
		out = append(out, tag)
	}

	slices.Sort(out)

	return out
}

// Snapshot returns the full tag -> ordered slugs mapping for manifest
// generation.
func (ti *TagIndex) Snapshot() map[string][]string {
	out := make(map[string][]string, len(ti.tags))
	for tag := range ti.tags {
		out[tag] = ti.Query(tag)
	}

	return out
}

func compareEntries(a, b tagEntry) int {
	if a.publishedAt.After(b.publishedAt) {
		return -1
	}

	if a.publishedAt.Before(b.publishedAt) {
		return 1
	}

	if a.slug < b.slug {
		return -1
	}

	if a.slug > b.slug {
		return 1
	}

	return 0
}
