// Package store holds the authoritative in-memory set of parsed documents
// keyed by slug, plus the derived tag index.
//
// A Store is owned by a single build for its duration and mutated only by
// that build's apply step, which processes parse results in source-path
// order. That single-owner discipline is the synchronization model; the
// store itself carries no locks. After the build completes it is exposed
// read-only.
package store

import (
	"fmt"
	"slices"

	"inkwell/internal/content"
)

// CollisionError reports a second document resolving to an already-occupied
// slug. The store keeps the prior document untouched (first-write-wins).
type CollisionError struct {
	Slug         string
	ExistingPath string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("slug %q already taken by %s", e.Slug, e.ExistingPath)
}

// Store maps slugs to documents. Only fully validated documents enter the
// store; documents are never mutated after insertion (updates are modeled as
// Remove followed by Insert).
type Store struct {
	docs map[string]content.Document
}

// New creates an empty Store.
func New() *Store {
	return &Store{docs: make(map[string]content.Document)}
}

// Insert adds doc under its slug. If the slug is already present the prior
// document is left untouched and a *CollisionError identifies it.
func (s *Store) Insert(doc content.Document) error {
	existing, ok := s.docs[doc.Slug]
	if ok {
		return &CollisionError{Slug: doc.Slug, ExistingPath: existing.SourcePath}
	}

	s.docs[doc.Slug] = doc

	return nil
}

// Remove deletes the document stored under slug. Removing an absent slug is
// a no-op, not an error.
func (s *Store) Remove(slug string) {
	delete(s.docs, slug)
}

// Get returns the document stored under slug.
func (s *Store) Get(slug string) (content.Document, bool) {
	doc, ok := s.docs[slug]

	return doc, ok
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	return len(s.docs)
}

// All returns every stored document ordered by publishedAt descending, slug
// ascending. The order is independent of insertion order.
func (s *Store) All() []content.Document {
	out := make([]content.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc)
	}

	slices.SortFunc(out, compareDocs)

	return out
}

// compareDocs orders documents for manifests and tag lists: publishedAt
// descending, ties broken by slug ascending.
func compareDocs(a, b content.Document) int {
	if a.PublishedAt.After(b.PublishedAt) {
		return -1
	}

	if a.PublishedAt.Before(b.PublishedAt) {
		return 1
	}

	if a.Slug < b.Slug {
		return -1
	}

	if a.Slug > b.Slug {
		return 1
	}

	return 0
}
