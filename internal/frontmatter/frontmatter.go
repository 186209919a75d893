// Package frontmatter parses and serializes the metadata block that opens a
// content document.
//
// The accepted grammar is a restricted YAML subset chosen to keep parsing
// deterministic and avoid the complexity of full YAML:
//
//	---
//	title: Exploring Actix
//	date: 2023-06-24T12:02:53Z
//	draft: false
//	tags:
//	  - rust
//	  - apis
//	aliases: [actix, actix-web]
//	---
//
// Scalar values may be unquoted strings, integers, or booleans (true/false).
// Lists contain only strings, written inline or as an indented block. Quoted
// strings using single or double quotes are supported for values containing
// special characters.
//
// Features explicitly not supported: nested mappings, multi-line strings,
// anchors, aliases, tags, floats, and null values.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ScalarKind distinguishes the scalar value types inside a metadata block.
type ScalarKind uint8

// ScalarKind values enumerate the YAML scalar subset we accept.
const (
	ScalarString ScalarKind = iota
	ScalarInt
	ScalarBool
)

// Scalar keeps the restricted YAML scalar types explicit for downstream validation.
type Scalar struct {
	Kind   ScalarKind // Kind describes which scalar value is populated.
	String string     // String holds the value when Kind == ScalarString.
	Int    int64      // Int holds the value when Kind == ScalarInt.
	Bool   bool       // Bool holds the value when Kind == ScalarBool.
}

// ValueKind describes the supported metadata value shapes.
type ValueKind uint8

// ValueKind values enumerate the supported top-level shapes.
const (
	ValueScalar ValueKind = iota
	ValueList
)

// Value represents a validated metadata value in the supported subset.
type Value struct {
	Kind   ValueKind // Kind describes which Value shape is populated.
	Scalar Scalar    // Scalar holds the value when Kind == ValueScalar.
	List   []string  // List holds the value when Kind == ValueList.
}

// String creates a Value with a string scalar.
func String(s string) Value {
	return Value{Kind: ValueScalar, Scalar: Scalar{Kind: ScalarString, String: s}}
}

// Int creates a Value with an integer scalar.
func Int(i int64) Value {
	return Value{Kind: ValueScalar, Scalar: Scalar{Kind: ScalarInt, Int: i}}
}

// Bool creates a Value with a boolean scalar.
func Bool(b bool) Value {
	return Value{Kind: ValueScalar, Scalar: Scalar{Kind: ScalarBool, Bool: b}}
}

// StringList creates a Value with a string list.
func StringList(items []string) Value {
	return Value{Kind: ValueList, List: items}
}

// Frontmatter maps top-level metadata keys to validated values.
type Frontmatter map[string]Value

// GetString returns the string value for key.
// Returns ("", false) if key is missing or not a string scalar.
func (fm Frontmatter) GetString(key string) (string, bool) {
	v, ok := fm[key]
	if !ok || v.Kind != ValueScalar || v.Scalar.Kind != ScalarString {
		return "", false
	}

	return v.Scalar.String, true
}

// GetInt returns the int64 value for key.
// Returns (0, false) if key is missing or not an int scalar.
func (fm Frontmatter) GetInt(key string) (int64, bool) {
	v, ok := fm[key]
	if !ok || v.Kind != ValueScalar || v.Scalar.Kind != ScalarInt {
		return 0, false
	}

	return v.Scalar.Int, true
}

// GetBool returns the bool value for key.
// Returns (false, false) if key is missing or not a bool scalar.
func (fm Frontmatter) GetBool(key string) (bool, bool) {
	v, ok := fm[key]
	if !ok || v.Kind != ValueScalar || v.Scalar.Kind != ScalarBool {
		return false, false
	}

	return v.Scalar.Bool, true
}

// GetList returns the string slice for key.
// Returns (nil, false) if key is missing or not a list.
func (fm Frontmatter) GetList(key string) ([]string, bool) {
	v, ok := fm[key]
	if !ok || v.Kind != ValueList {
		return nil, false
	}

	return v.List, true
}

// BlockError reports a structurally broken metadata block.
//
// Line is 1-based within the source document; 0 when the failure is not tied
// to a specific line (for example a missing delimiter).
type BlockError struct {
	Line   int
	Reason string
}

func (e *BlockError) Error() string {
	if e.Line == 0 {
		return "metadata block: " + e.Reason
	}

	return fmt.Sprintf("metadata block line %d: %s", e.Line, e.Reason)
}

const (
	delimiter = "---"

	// maxLines bounds the block scan so a missing closing delimiter cannot
	// drag the whole file through the parser. Override with WithLineLimit.
	maxLines = 200
)

var (
	delimiterBytes = []byte(delimiter)
	trueBytes      = []byte("true")
	falseBytes     = []byte("false")
)

// ParseOptions configures metadata block parsing.
type ParseOptions struct {
	// LineLimit is the maximum number of block lines allowed. A value of 0
	// disables the limit entirely.
	LineLimit int
	// TrimLeadingBlankTail removes leading blank line(s) from the body after
	// the closing delimiter.
	TrimLeadingBlankTail bool
}

// ParseOption mutates ParseOptions.
type ParseOption func(*ParseOptions)

// WithLineLimit sets the maximum number of block lines. Use 0 to disable the
// limit entirely.
func WithLineLimit(limit int) ParseOption {
	return func(opts *ParseOptions) {
		if limit < 0 {
			limit = 0
		}

		opts.LineLimit = limit
	}
}

// WithTrimLeadingBlankTail controls whether leading blank line(s) are removed
// from the body after the closing delimiter. The default is true.
func WithTrimLeadingBlankTail(trim bool) ParseOption {
	return func(opts *ParseOptions) {
		opts.TrimLeadingBlankTail = trim
	}
}

// Parse splits a raw document into its metadata block and body. The block
// must open on the first line with "---" and close with a matching "---"; an
// empty block ("---\n---\n") is valid and returns an empty map. The body
// starts immediately after the closing delimiter; by default one run of
// leading blank lines is trimmed.
//
// Structural failures return a *BlockError. Parse has no side effects and is
// a pure function of src.
func Parse(src []byte, opts ...ParseOption) (Frontmatter, []byte, error) {
	options := applyParseOptions(opts)

	source := newLineSource(src)

	first, ok := source.next()
	if !ok || !bytes.Equal(first.data, delimiterBytes) {
		return nil, nil, &BlockError{Reason: "missing opening delimiter"}
	}

	parser := &blockParser{source: source, lineLimit: options.LineLimit}

	fm, sawDelimiter, err := parser.parse()
	if err != nil {
		return nil, nil, err
	}

	if !sawDelimiter {
		return nil, nil, &BlockError{Reason: "missing closing delimiter"}
	}

	tail := source.remainder()
	if options.TrimLeadingBlankTail {
		tail = trimLeadingBlankLines(tail)
	}

	return fm, tail, nil
}

type lineToken struct {
	data []byte
	num  int
}

type blockParser struct {
	source    *lineSource
	linesSeen int
	lineLimit int
}

func (p *blockParser) parse() (Frontmatter, bool, error) {
	out := make(Frontmatter)

	for {
		tok, ok := p.source.next()
		if !ok {
			return out, false, nil
		}

		if bytes.Equal(tok.data, delimiterBytes) {
			return out, true, nil
		}

		err := p.bumpLineCount(tok.num)
		if err != nil {
			return nil, false, err
		}

		if len(bytes.TrimSpace(tok.data)) == 0 {
			continue
		}

		if tok.data[0] == ' ' || tok.data[0] == '\t' {
			return nil, false, &BlockError{Line: tok.num, Reason: "unexpected indentation"}
		}

		keyRaw, restRaw, cut := bytes.Cut(tok.data, []byte{':'})
		if !cut {
			return nil, false, &BlockError{Line: tok.num, Reason: "missing ':'"}
		}

		keyBytes := bytes.TrimSpace(keyRaw)
		if len(keyBytes) == 0 {
			return nil, false, &BlockError{Line: tok.num, Reason: "empty key"}
		}

		if bytes.ContainsAny(keyBytes, " \t") {
			return nil, false, &BlockError{Line: tok.num, Reason: "whitespace in key"}
		}

		key := string(keyBytes)

		if _, exists := out[key]; exists {
			return nil, false, &BlockError{Line: tok.num, Reason: "duplicate key"}
		}

		value := bytes.TrimSpace(restRaw)
		if len(value) != 0 {
			if value[0] == '[' {
				if value[len(value)-1] != ']' {
					return nil, false, &BlockError{Line: tok.num, Reason: "unterminated list"}
				}

				list, listErr := parseInlineList(value)
				if listErr != nil {
					return nil, false, &BlockError{Line: tok.num, Reason: listErr.Error()}
				}

				out[key] = Value{Kind: ValueList, List: list}

				continue
			}

			scalar, scalarErr := parseScalar(value)
			if scalarErr != nil {
				return nil, false, &BlockError{Line: tok.num, Reason: scalarErr.Error()}
			}

			out[key] = Value{Kind: ValueScalar, Scalar: scalar}

			continue
		}

		// Bare "key:" introduces an indented block list.
		blockLine, ok, err := p.nextNonEmpty()
		if err != nil {
			return nil, false, err
		}

		if !ok {
			return nil, false, &BlockError{Line: tok.num, Reason: "missing block value"}
		}

		indent, hasTab := leadingSpaces(blockLine.data)
		if hasTab || indent == 0 {
			return nil, false, &BlockError{Line: blockLine.num, Reason: "expected indented block"}
		}

		trimmed := blockLine.data[indent:]
		if len(trimmed) < 2 || trimmed[0] != '-' || trimmed[1] != ' ' {
			return nil, false, &BlockError{Line: blockLine.num, Reason: "nested mappings are not supported"}
		}

		list, err := p.parseBlockList(blockLine, indent)
		if err != nil {
			return nil, false, err
		}

		out[key] = Value{Kind: ValueList, List: list}
	}
}

func (p *blockParser) nextNonEmpty() (lineToken, bool, error) {
	for {
		tok, ok := p.source.next()
		if !ok {
			return lineToken{}, false, nil
		}

		if bytes.Equal(tok.data, delimiterBytes) {
			p.source.unread(tok)

			return lineToken{}, false, nil
		}

		err := p.bumpLineCount(tok.num)
		if err != nil {
			return lineToken{}, false, err
		}

		if len(bytes.TrimSpace(tok.data)) == 0 {
			continue
		}

		return tok, true, nil
	}
}

func (p *blockParser) parseBlockList(first lineToken, indent int) ([]string, error) {
	items := []string{}
	current := first

	for {
		item, err := parseListItem(current, indent)
		if err != nil {
			return nil, err
		}

		items = append(items, item)

		for {
			next, ok := p.source.next()
			if !ok {
				return items, nil
			}

			if bytes.Equal(next.data, delimiterBytes) {
				p.source.unread(next)

				return items, nil
			}

			if len(bytes.TrimSpace(next.data)) == 0 {
				err = p.bumpLineCount(next.num)
				if err != nil {
					return nil, err
				}

				continue
			}

			lineIndent, hasTab := leadingSpaces(next.data)
			if hasTab {
				return nil, &BlockError{Line: next.num, Reason: "tabs are not allowed"}
			}

			if lineIndent < indent {
				p.source.unread(next)

				return items, nil
			}

			if lineIndent != indent {
				return nil, &BlockError{Line: next.num, Reason: "inconsistent indentation"}
			}

			err = p.bumpLineCount(next.num)
			if err != nil {
				return nil, err
			}

			current = next

			break
		}
	}
}

func (p *blockParser) bumpLineCount(line int) error {
	p.linesSeen++
	if p.lineLimit == 0 {
		return nil
	}

	if p.linesSeen > p.lineLimit {
		return &BlockError{Line: line, Reason: "exceeds maximum line limit"}
	}

	return nil
}

func parseInlineList(value []byte) ([]string, error) {
	inner := bytes.TrimSpace(value[1 : len(value)-1])
	if len(inner) == 0 {
		return []string{}, nil
	}

	parts := bytes.Split(inner, []byte{','})

	items := make([]string, 0, len(parts))
	for _, part := range parts {
		item := bytes.TrimSpace(part)
		if len(item) == 0 {
			return nil, errors.New("empty list item")
		}

		parsed, err := parseString(item)
		if err != nil {
			return nil, err
		}

		items = append(items, parsed)
	}

	return items, nil
}

func parseListItem(tok lineToken, indent int) (string, error) {
	lineIndent, hasTab := leadingSpaces(tok.data)
	if hasTab {
		return "", &BlockError{Line: tok.num, Reason: "tabs are not allowed"}
	}

	if lineIndent != indent {
		return "", &BlockError{Line: tok.num, Reason: "inconsistent indentation"}
	}

	trimmed := tok.data[indent:]
	if len(trimmed) < 2 || trimmed[0] != '-' || trimmed[1] != ' ' {
		return "", &BlockError{Line: tok.num, Reason: "expected list item"}
	}

	item := bytes.TrimSpace(trimmed[2:])
	if len(item) == 0 {
		return "", &BlockError{Line: tok.num, Reason: "empty list item"}
	}

	parsed, err := parseString(item)
	if err != nil {
		return "", &BlockError{Line: tok.num, Reason: err.Error()}
	}

	return parsed, nil
}

func parseScalar(value []byte) (Scalar, error) {
	if len(value) == 0 {
		return Scalar{}, errors.New("empty scalar")
	}

	if hasUnsupportedPrefix(value) {
		return Scalar{}, errors.New("unsupported value")
	}

	if bytes.Equal(value, trueBytes) || bytes.Equal(value, falseBytes) {
		return Scalar{Kind: ScalarBool, Bool: value[0] == 't'}, nil
	}

	if parsed, ok := parseInt(value); ok {
		return Scalar{Kind: ScalarInt, Int: parsed}, nil
	}

	parsed, err := parseString(value)
	if err != nil {
		return Scalar{}, err
	}

	return Scalar{Kind: ScalarString, String: parsed}, nil
}

func hasUnsupportedPrefix(value []byte) bool {
	if len(value) == 0 {
		return false
	}

	switch value[0] {
	case '[', '{', '}', ']', '|', '>', '&', '*', '!', '%', '@', '`':
		return true
	}

	return len(value) >= 2 && value[0] == '-' && value[1] == ' '
}

func parseInt(value []byte) (int64, bool) {
	if len(value) == 0 {
		return 0, false
	}

	neg := false
	idx := 0

	if value[0] == '-' {
		neg = true

		idx++
		if idx == len(value) {
			return 0, false
		}
	}

	var n int64

	for ; idx < len(value); idx++ {
		r := value[idx]
		if r < '0' || r > '9' {
			return 0, false
		}

		digit := int64(r - '0')
		if n > (int64(^uint64(0)>>1)-digit)/10 {
			return 0, false
		}

		n = n*10 + digit
	}

	if neg {
		n = -n
	}

	return n, true
}

func parseString(value []byte) (string, error) {
	if len(value) > 0 && value[0] == '"' {
		if len(value) < 2 || value[len(value)-1] != '"' {
			return "", errors.New("unterminated quoted string")
		}

		parsed, err := strconv.Unquote(string(value))
		if err != nil {
			return "", errors.New("invalid quoted string")
		}

		return parsed, nil
	}

	if len(value) > 0 && value[0] == '\'' {
		if len(value) < 2 || value[len(value)-1] != '\'' {
			return "", errors.New("unterminated quoted string")
		}

		return string(value[1 : len(value)-1]), nil
	}

	return string(value), nil
}

func leadingSpaces(line []byte) (int, bool) {
	count := 0

	for _, r := range line {
		if r == ' ' {
			count++

			continue
		}

		if r == '\t' {
			return 0, true
		}

		break
	}

	return count, false
}

func trimLeadingBlankLines(tail []byte) []byte {
	for len(tail) > 0 {
		if tail[0] == '\n' {
			tail = tail[1:]

			continue
		}

		if tail[0] == '\r' && len(tail) >= 2 && tail[1] == '\n' {
			tail = tail[2:]

			continue
		}

		break
	}

	return tail
}

func applyParseOptions(opts []ParseOption) ParseOptions {
	options := ParseOptions{
		LineLimit:            maxLines,
		TrimLeadingBlankTail: true,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	return options
}

type lineSource struct {
	data    []byte
	idx     int
	lineNum int
	pending *lineToken
}

func newLineSource(data []byte) *lineSource {
	return &lineSource{data: data}
}

func (s *lineSource) next() (lineToken, bool) {
	if s.pending != nil {
		out := *s.pending
		s.pending = nil

		return out, true
	}

	if s.idx >= len(s.data) {
		return lineToken{}, false
	}

	start := s.idx
	for s.idx < len(s.data) && s.data[s.idx] != '\n' {
		s.idx++
	}

	end := s.idx
	if s.idx < len(s.data) {
		s.idx++
	}

	s.lineNum++
	line := s.data[start:end]

	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	return lineToken{data: line, num: s.lineNum}, true
}

func (s *lineSource) unread(tok lineToken) {
	s.pending = &lineToken{data: tok.data, num: tok.num}
}

func (s *lineSource) remainder() []byte {
	if s.idx >= len(s.data) {
		return nil
	}

	return s.data[s.idx:]
}

// MarshalOptions configures metadata serialization.
type MarshalOptions struct {
	IncludeDelimiters bool     // IncludeDelimiters writes --- fence lines before and after.
	KeyOrder          []string // KeyOrder specifies the output key order; keys not listed are omitted.
}

// MarshalOption mutates MarshalOptions.
type MarshalOption func(*MarshalOptions)

// WithDelimiters toggles whether Marshal includes --- delimiters.
// The default is true to match the on-disk document format.
func WithDelimiters(include bool) MarshalOption {
	return func(opts *MarshalOptions) {
		opts.IncludeDelimiters = include
	}
}

// WithKeyOrder specifies the exact key order for output.
// Keys not in this list are omitted. If nil (default), keys are sorted
// alphabetically with "title" and "date" first when present.
func WithKeyOrder(keys []string) MarshalOption {
	return func(opts *MarshalOptions) {
		opts.KeyOrder = keys
	}
}

// Marshal serializes the metadata block deterministically. Output re-parses
// to an equal Frontmatter: string scalars that would be misread as another
// type are quoted.
func (fm Frontmatter) Marshal(opts ...MarshalOption) (string, error) {
	options := MarshalOptions{IncludeDelimiters: true}

	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	if fm == nil {
		return "", errors.New("nil map")
	}

	var ordered []string
	if options.KeyOrder != nil {
		ordered = options.KeyOrder
	} else {
		ordered = defaultKeyOrder(fm)
	}

	var builder strings.Builder
	if options.IncludeDelimiters {
		builder.WriteString(delimiter + "\n")
	}

	for _, key := range ordered {
		value, ok := fm[key]
		if !ok {
			return "", fmt.Errorf("missing %s", key)
		}

		builder.WriteString(key)
		builder.WriteString(":")

		switch value.Kind {
		case ValueScalar:
			builder.WriteString(" ")

			switch value.Scalar.Kind {
			case ScalarString:
				builder.WriteString(quoteIfNeeded(value.Scalar.String))
			case ScalarInt:
				builder.WriteString(strconv.FormatInt(value.Scalar.Int, 10))
			case ScalarBool:
				if value.Scalar.Bool {
					builder.WriteString("true")
				} else {
					builder.WriteString("false")
				}
			default:
				return "", fmt.Errorf("%s: unsupported scalar kind %d", key, value.Scalar.Kind)
			}

			builder.WriteString("\n")
		case ValueList:
			if len(value.List) == 0 {
				builder.WriteString(" []\n")

				break
			}

			builder.WriteString("\n")

			for _, item := range value.List {
				if item == "" {
					return "", fmt.Errorf("%s: empty list item", key)
				}

				builder.WriteString("  - ")
				builder.WriteString(quoteIfNeeded(item))
				builder.WriteString("\n")
			}
		default:
			return "", fmt.Errorf("%s: unsupported value kind %d", key, value.Kind)
		}
	}

	if options.IncludeDelimiters {
		builder.WriteString(delimiter + "\n")
	}

	return builder.String(), nil
}

func defaultKeyOrder(fm Frontmatter) []string {
	keys := make([]string, 0, len(fm))
	for key := range fm {
		if key == "title" || key == "date" {
			continue
		}

		keys = append(keys, key)
	}

	slices.Sort(keys)

	ordered := make([]string, 0, len(fm))

	if _, ok := fm["title"]; ok {
		ordered = append(ordered, "title")
	}

	if _, ok := fm["date"]; ok {
		ordered = append(ordered, "date")
	}

	return append(ordered, keys...)
}

// quoteIfNeeded quotes a string scalar that would not re-parse as itself.
func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}

	if s == "true" || s == "false" {
		return strconv.Quote(s)
	}

	if _, ok := parseInt([]byte(s)); ok {
		return strconv.Quote(s)
	}

	if hasUnsupportedPrefix([]byte(s)) {
		return strconv.Quote(s)
	}

	if s[0] == ' ' || s[0] == '\'' || s[0] == '"' || s[len(s)-1] == ' ' {
		return strconv.Quote(s)
	}

	if strings.ContainsAny(s, ",#\n\r\t") || strings.Contains(s, ": ") || strings.HasSuffix(s, ":") {
		return strconv.Quote(s)
	}

	return s
}
