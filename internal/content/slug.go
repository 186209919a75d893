package content

import "strings"

// SlugFromPath derives the canonical document identifier from a source path
// relative to the content root.
//
// The derivation is total and deterministic: strip the ".md" suffix,
// lowercase, collapse every run of non-alphanumeric bytes (path separators
// included) into a single "-", and drop leading/trailing separators.
//
//	posts/2023/Exploring Actix.md -> posts-2023-exploring-actix
//
// Two different paths may derive the same slug; detecting that collision is
// the store's job, not the deriver's.
func SlugFromPath(relPath string) string {
	name := strings.TrimSuffix(relPath, ".md")
	name = strings.ToLower(name)

	var builder strings.Builder

	builder.Grow(len(name))

	pendingSep := false

	for i := 0; i < len(name); i++ {
		c := name[i]

		isAlnum := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
		if !isAlnum {
			pendingSep = builder.Len() > 0

			continue
		}

		if pendingSep {
			builder.WriteByte('-')

			pendingSep = false
		}

		builder.WriteByte(c)
	}

	return builder.String()
}
