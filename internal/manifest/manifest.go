// Package manifest defines the pipeline's output artifacts: the validated,
// ordered document set plus tag index (the manifest) and the per-file
// failure listing (the report).
//
// The manifest is the interchange surface consumed by an external renderer.
// Its encoding is deterministic: documents arrive pre-ordered, map keys are
// marshaled sorted, and timestamps are RFC3339 UTC, so rebuilding an
// unchanged tree yields byte-identical output.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"inkwell/internal/content"
)

// SchemaVersion identifies the manifest layout. Bump on breaking changes to
// the document record or the tag mapping.
const SchemaVersion = 1

// ErrSchemaVersion indicates a manifest written by an incompatible version.
var ErrSchemaVersion = errors.New("unsupported manifest schema version")

// Document is the manifest form of a stored document.
type Document struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
	Tags        []string  `json:"tags"`
	Body        string    `json:"body"`
	Fingerprint string    `json:"content_fingerprint"`
	SourcePath  string    `json:"source_path"`
}

// Manifest is the pipeline's final output: documents ordered by publishedAt
// descending then slug ascending, plus the tag -> ordered slugs mapping.
type Manifest struct {
	SchemaVersion int                 `json:"schema_version"`
	Documents     []Document          `json:"documents"`
	Tags          map[string][]string `json:"tags"`
}

// Failure kinds recorded in the report, one per error taxonomy entry.
const (
	KindMalformedBlock = "malformed_block"
	KindValidation     = "validation"
	KindCollision      = "collision"
	KindIO             = "io"
)

// Failure records one file that did not produce a stored document.
type Failure struct {
	SourcePath string `json:"source_path"`
	Kind       string `json:"kind"`
	Detail     string `json:"detail"`
}

// Report lists every validation/collision failure of a build, in source-path
// order. BuildID and FinishedAt live here rather than in the manifest so
// manifest idempotence is preserved.
type Report struct {
	BuildID    string    `json:"build_id"`
	FinishedAt string    `json:"finished_at"`
	Failures   []Failure `json:"failures"`
}

// FromContent converts a parsed document into its manifest form.
func FromContent(doc content.Document) Document {
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}

	return Document{
		Slug:        doc.Slug,
		Title:       doc.Title,
		PublishedAt: doc.PublishedAt.UTC(),
		Tags:        tags,
		Body:        doc.Body,
		Fingerprint: doc.Fingerprint,
		SourcePath:  doc.SourcePath,
	}
}

// ToContent converts a manifest document back into the pipeline's document
// model. Used when an unchanged file is reused from a prior manifest
// instead of being reparsed.
func (d Document) ToContent() content.Document {
	return content.Document{
		Slug:        d.Slug,
		SourcePath:  d.SourcePath,
		Title:       d.Title,
		PublishedAt: d.PublishedAt.UTC(),
		Tags:        d.Tags,
		Body:        d.Body,
		Fingerprint: d.Fingerprint,
	}
}

// New assembles a Manifest from ordered documents and a tag snapshot.
func New(docs []content.Document, tags map[string][]string) *Manifest {
	out := &Manifest{
		SchemaVersion: SchemaVersion,
		Documents:     make([]Document, 0, len(docs)),
		Tags:          tags,
	}

	if out.Tags == nil {
		out.Tags = map[string][]string{}
	}

	for _, doc := range docs {
		out.Documents = append(out.Documents, FromContent(doc))
	}

	return out
}

// Encode renders the manifest as indented JSON with a trailing newline.
// encoding/json sorts map keys, so the output is deterministic.
func (m *Manifest) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}

	return append(data, '\n'), nil
}

// ByPath returns the manifest's documents keyed by source path, for
// fingerprint comparison during incremental builds.
func (m *Manifest) ByPath() map[string]Document {
	out := make(map[string]Document, len(m.Documents))
	for _, doc := range m.Documents {
		out[doc.SourcePath] = doc
	}

	return out
}

// Write encodes the manifest and writes it atomically, creating parent
// directories as needed.
func Write(path string, m *Manifest) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}

	return writeAtomic(path, data)
}

// WriteReport encodes the report and writes it atomically.
func WriteReport(path string, r *Report) error {
	if r.Failures == nil {
		r.Failures = []Failure{}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	return writeAtomic(path, append(data, '\n'))
}

// Load reads a manifest written by a prior build. A missing file is the
// caller's concern: check with os.IsNotExist.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config/flags
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}

		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest

	err = json.Unmarshal(data, &m)
	if err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}

	if m.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrSchemaVersion, m.SchemaVersion, SchemaVersion)
	}

	return &m, nil
}

func writeAtomic(path string, data []byte) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	err = atomic.WriteFile(path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
