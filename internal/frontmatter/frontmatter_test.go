package frontmatter_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/frontmatter"
)

func Test_Parse_Decodes_Scalars_Lists_And_Body(t *testing.T) {
	t.Parallel()

	src := []byte(`---
title: Exploring Actix
date: 2023-06-24T12:02:53Z
draft: false
weight: 42
tags:
  - rust
  - apis
aliases: [actix, actix-web]
---

Body starts here.
`)

	fm, tail, err := frontmatter.Parse(src)
	require.NoError(t, err)

	want := frontmatter.Frontmatter{
		"title":   frontmatter.String("Exploring Actix"),
		"date":    frontmatter.String("2023-06-24T12:02:53Z"),
		"draft":   frontmatter.Bool(false),
		"weight":  frontmatter.Int(42),
		"tags":    frontmatter.StringList([]string{"rust", "apis"}),
		"aliases": frontmatter.StringList([]string{"actix", "actix-web"}),
	}

	if diff := cmp.Diff(want, fm); diff != "" {
		t.Errorf("frontmatter mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "Body starts here.\n", string(tail))
}

func Test_Parse_Returns_Empty_Map_When_Block_Is_Empty(t *testing.T) {
	t.Parallel()

	fm, tail, err := frontmatter.Parse([]byte("---\n---\nbody"))
	require.NoError(t, err)
	assert.Empty(t, fm)
	assert.Equal(t, "body", string(tail))
}

func Test_Parse_Fails_When_Delimiters_Are_Missing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		src        string
		wantReason string
	}{
		{
			name:       "no opening delimiter",
			src:        "title: Hello\n---\n",
			wantReason: "missing opening delimiter",
		},
		{
			name:       "empty input",
			src:        "",
			wantReason: "missing opening delimiter",
		},
		{
			name:       "no closing delimiter",
			src:        "---\ntitle: Hello\n",
			wantReason: "missing closing delimiter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := frontmatter.Parse([]byte(tt.src))

			var blockErr *frontmatter.BlockError

			require.ErrorAs(t, err, &blockErr)
			assert.Equal(t, 0, blockErr.Line)
			assert.Equal(t, tt.wantReason, blockErr.Reason)
		})
	}
}

func Test_Parse_Reports_Offending_Line_When_Block_Is_Unparseable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		src        string
		wantLine   int
		wantReason string
	}{
		{
			name:       "line without colon",
			src:        "---\ntitle: ok\nnot a mapping line\n---\n",
			wantLine:   3,
			wantReason: "missing ':'",
		},
		{
			name:       "duplicate key",
			src:        "---\ntitle: a\ntitle: b\n---\n",
			wantLine:   3,
			wantReason: "duplicate key",
		},
		{
			name:       "unexpected indentation",
			src:        "---\n  title: a\n---\n",
			wantLine:   2,
			wantReason: "unexpected indentation",
		},
		{
			name:       "empty key",
			src:        "---\n: value\n---\n",
			wantLine:   2,
			wantReason: "empty key",
		},
		{
			name:       "nested mapping",
			src:        "---\nauthor:\n  name: jane\n---\n",
			wantLine:   3,
			wantReason: "nested mappings are not supported",
		},
		{
			name:       "unterminated inline list",
			src:        "---\ntags: [a, b\n---\n",
			wantLine:   2,
			wantReason: "unterminated list",
		},
		{
			name:       "tab indentation in block list",
			src:        "---\ntags:\n\t- a\n---\n",
			wantLine:   3,
			wantReason: "expected indented block",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := frontmatter.Parse([]byte(tt.src))

			var blockErr *frontmatter.BlockError

			require.ErrorAs(t, err, &blockErr)
			assert.Equal(t, tt.wantLine, blockErr.Line)
			assert.Equal(t, tt.wantReason, blockErr.Reason)
		})
	}
}

func Test_Parse_Decodes_Quoted_Strings(t *testing.T) {
	t.Parallel()

	src := []byte("---\ntitle: \"Rust: a retrospective\"\nnote: 'single, quoted'\n---\n")

	fm, _, err := frontmatter.Parse(src)
	require.NoError(t, err)

	title, ok := fm.GetString("title")
	require.True(t, ok)
	assert.Equal(t, "Rust: a retrospective", title)

	note, ok := fm.GetString("note")
	require.True(t, ok)
	assert.Equal(t, "single, quoted", note)
}

func Test_Parse_Enforces_Line_Limit(t *testing.T) {
	t.Parallel()

	var builder strings.Builder

	builder.WriteString("---\n")

	for _, key := range []string{"a", "b", "c", "d", "e"} {
		builder.WriteString(key)
		builder.WriteString(": v\n")
	}

	builder.WriteString("---\n")

	_, _, err := frontmatter.Parse([]byte(builder.String()), frontmatter.WithLineLimit(3))

	var blockErr *frontmatter.BlockError

	require.ErrorAs(t, err, &blockErr)
	assert.Equal(t, "exceeds maximum line limit", blockErr.Reason)

	_, _, err = frontmatter.Parse([]byte(builder.String()), frontmatter.WithLineLimit(0))
	require.NoError(t, err, "limit 0 disables the cap")
}

func Test_Parse_Keeps_Leading_Blank_Lines_When_Trimming_Disabled(t *testing.T) {
	t.Parallel()

	src := []byte("---\ntitle: t\n---\n\n\nbody\n")

	_, tail, err := frontmatter.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "body\n", string(tail))

	_, tail, err = frontmatter.Parse(src, frontmatter.WithTrimLeadingBlankTail(false))
	require.NoError(t, err)
	assert.Equal(t, "\n\nbody\n", string(tail))
}

func Test_Marshal_Output_Reparses_To_Equal_Frontmatter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fm   frontmatter.Frontmatter
	}{
		{
			name: "plain scalars and list",
			fm: frontmatter.Frontmatter{
				"title": frontmatter.String("Exploring Actix"),
				"date":  frontmatter.String("2023-06-24T12:02:53Z"),
				"draft": frontmatter.Bool(true),
				"tags":  frontmatter.StringList([]string{"rust", "apis"}),
			},
		},
		{
			name: "strings that would re-parse as other types",
			fm: frontmatter.Frontmatter{
				"title":   frontmatter.String("true"),
				"version": frontmatter.String("42"),
				"colon":   frontmatter.String("key: value"),
				"tags":    frontmatter.StringList([]string{"a, b", "c#d"}),
			},
		},
		{
			name: "empty list stays a list",
			fm: frontmatter.Frontmatter{
				"title": frontmatter.String("t"),
				"tags":  frontmatter.StringList([]string{}),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := tt.fm.Marshal()
			require.NoError(t, err)

			reparsed, tail, err := frontmatter.Parse([]byte(out))
			require.NoError(t, err)
			assert.Empty(t, tail)

			if diff := cmp.Diff(tt.fm, reparsed); diff != "" {
				t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_Marshal_Orders_Title_And_Date_First(t *testing.T) {
	t.Parallel()

	fm := frontmatter.Frontmatter{
		"zeta":  frontmatter.String("z"),
		"date":  frontmatter.String("2023-06-24T12:02:53Z"),
		"alpha": frontmatter.String("a"),
		"title": frontmatter.String("t"),
	}

	out, err := fm.Marshal()
	require.NoError(t, err)

	want := `---
title: t
date: 2023-06-24T12:02:53Z
alpha: a
zeta: z
---
`
	assert.Equal(t, want, out)
}

func Test_Marshal_Fails_When_KeyOrder_Names_Missing_Key(t *testing.T) {
	t.Parallel()

	fm := frontmatter.Frontmatter{"title": frontmatter.String("t")}

	_, err := fm.Marshal(frontmatter.WithKeyOrder([]string{"title", "missing"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
