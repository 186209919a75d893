package content

import (
	"fmt"
	"strings"
	"time"

	"inkwell/internal/frontmatter"
)

// Metadata is the closed, validated record decoded from a document's
// metadata block. Unrecognized keys survive in Extra for forward
// compatibility but are ignored by validation.
type Metadata struct {
	Title       string
	PublishedAt time.Time // normalized to UTC
	Tags        []string  // deduplicated, authored order
	Extra       frontmatter.Frontmatter
}

// ValidationError reports a missing or invalid required metadata field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid metadata: field %q: %s", e.Field, e.Reason)
}

// Recognized metadata keys. Everything else is carried opaquely.
const (
	keyTitle = "title"
	keyDate  = "date"
	keyTags  = "tags"
)

// DecodeMetadata validates the open key/value block against the closed
// Metadata schema. Failures are *ValidationError naming the offending field.
func DecodeMetadata(fm frontmatter.Frontmatter) (Metadata, error) {
	title, err := decodeTitle(fm)
	if err != nil {
		return Metadata{}, err
	}

	publishedAt, err := decodeDate(fm)
	if err != nil {
		return Metadata{}, err
	}

	tags, err := decodeTags(fm)
	if err != nil {
		return Metadata{}, err
	}

	extra := make(frontmatter.Frontmatter)

	for key, value := range fm {
		switch key {
		case keyTitle, keyDate, keyTags:
			continue
		}

		extra[key] = value
	}

	return Metadata{
		Title:       title,
		PublishedAt: publishedAt,
		Tags:        tags,
		Extra:       extra,
	}, nil
}

func decodeTitle(fm frontmatter.Frontmatter) (string, error) {
	if _, ok := fm[keyTitle]; !ok {
		return "", &ValidationError{Field: keyTitle, Reason: "missing required field"}
	}

	title, ok := fm.GetString(keyTitle)
	if !ok {
		return "", &ValidationError{Field: keyTitle, Reason: "must be a string"}
	}

	if strings.TrimSpace(title) == "" {
		return "", &ValidationError{Field: keyTitle, Reason: "cannot be empty"}
	}

	return title, nil
}

func decodeDate(fm frontmatter.Frontmatter) (time.Time, error) {
	if _, ok := fm[keyDate]; !ok {
		return time.Time{}, &ValidationError{Field: keyDate, Reason: "missing required field"}
	}

	raw, ok := fm.GetString(keyDate)
	if !ok {
		return time.Time{}, &ValidationError{Field: keyDate, Reason: "must be a string timestamp"}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &ValidationError{Field: keyDate, Reason: fmt.Sprintf("timestamp %q is not RFC3339", raw)}
	}

	return parsed.UTC(), nil
}

func decodeTags(fm frontmatter.Frontmatter) ([]string, error) {
	if _, ok := fm[keyTags]; !ok {
		return []string{}, nil
	}

	list, ok := fm.GetList(keyTags)
	if !ok {
		return nil, &ValidationError{Field: keyTags, Reason: "must be a list of strings"}
	}

	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))

	for _, tag := range list {
		if strings.TrimSpace(tag) == "" {
			return nil, &ValidationError{Field: keyTags, Reason: "contains an empty tag"}
		}

		if _, exists := seen[tag]; exists {
			continue
		}

		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	return out, nil
}
