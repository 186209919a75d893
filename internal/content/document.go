// Package content defines the document model for the ingestion pipeline:
// parsing a raw source file into a validated Document, deriving its slug
// from the source path, and fingerprinting its raw bytes.
package content

import (
	"fmt"
	"strings"
	"time"

	"inkwell/internal/frontmatter"
)

// Document is the unit of content after a successful parse. Documents are
// immutable: a changed source file produces a new Document, never a mutation
// of an existing one.
type Document struct {
	// Slug is the canonical identifier, derived from SourcePath.
	Slug string

	// SourcePath is the file path relative to the content root.
	SourcePath string

	// Title is the human-readable title from the metadata block.
	Title string

	// PublishedAt is the publication timestamp, normalized to UTC.
	PublishedAt time.Time

	// Tags holds the document's category labels. Never nil, may be empty.
	Tags []string

	// Body is the remainder of the file after the metadata block, with one
	// leading run of blank lines trimmed and nothing else touched.
	Body string

	// Fingerprint is the sha256 hex digest of the raw file bytes, used to
	// detect unchanged content between builds.
	Fingerprint string

	// Extra carries unrecognized metadata keys opaquely.
	Extra frontmatter.Frontmatter
}

// FromSource parses raw file bytes into a Document. relPath must be the
// file's path relative to the content root; it determines the slug.
//
// Errors are *frontmatter.BlockError for a structurally broken metadata
// block and *ValidationError for missing or invalid required fields. The
// function is pure: no I/O, no shared state.
func FromSource(relPath string, raw []byte) (Document, error) {
	fm, tail, err := frontmatter.Parse(raw)
	if err != nil {
		return Document{}, err
	}

	meta, err := DecodeMetadata(fm)
	if err != nil {
		return Document{}, err
	}

	return Document{
		Slug:        SlugFromPath(relPath),
		SourcePath:  relPath,
		Title:       meta.Title,
		PublishedAt: meta.PublishedAt,
		Tags:        meta.Tags,
		Body:        string(tail),
		Fingerprint: Fingerprint(raw),
		Extra:       meta.Extra,
	}, nil
}

// Encode serializes a Document back into source file form: metadata block
// first, then a blank line, then the body. Encode(FromSource(p, raw)) and
// FromSource(p, Encode(doc)) agree on slug, title, timestamp, and tag set.
func Encode(doc Document) (string, error) {
	fm := frontmatter.Frontmatter{
		keyTitle: frontmatter.String(doc.Title),
		keyDate:  frontmatter.String(doc.PublishedAt.UTC().Format(time.RFC3339)),
	}

	if len(doc.Tags) > 0 {
		fm[keyTags] = frontmatter.StringList(doc.Tags)
	}

	for key, value := range doc.Extra {
		fm[key] = value
	}

	block, err := fm.Marshal()
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	var builder strings.Builder

	builder.WriteString(block)

	if doc.Body != "" {
		builder.WriteString("\n")
		builder.WriteString(doc.Body)
	}

	return builder.String(), nil
}
