package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"inkwell/internal/index"
)

const defaultQueryLimit = 100

// queryOptions holds parsed query command options.
type queryOptions struct {
	tag     string
	limit   int
	offset  int
	asJSON  bool
	allDocs bool
}

func cmdQuery(ctx context.Context, o *IO, errOut io.Writer, cfg Config, workDir string, args []string) int {
	if hasHelpFlag(args) {
		printQueryHelp(o)

		return 0
	}

	opts, parseCode := parseQueryFlags(errOut, args)
	if parseCode != 0 {
		return parseCode
	}

	p := resolvePaths(workDir, cfg)

	_, statErr := os.Stat(p.Index)
	if statErr != nil {
		fprintln(errOut, "error: no index found (run inkwell build first)")

		return 1
	}

	ix, err := index.Open(ctx, p.Index)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	defer func() { _ = ix.Close() }()

	var entries []index.Entry

	if opts.allDocs {
		entries, err = ix.All(ctx, opts.limit, opts.offset)
	} else {
		entries, err = ix.QueryTag(ctx, opts.tag, opts.limit, opts.offset)
	}

	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	if opts.asJSON {
		return outputEntriesJSON(o, errOut, entries)
	}

	for _, entry := range entries {
		o.Printf("%s\t%s\t%s\n", entry.Slug, entry.PublishedAt.Format(time.RFC3339), entry.Title)
	}

	o.Finish()

	return 0
}

func outputEntriesJSON(o *IO, errOut io.Writer, entries []index.Entry) int {
	type jsonEntry struct {
		Slug        string `json:"slug"`
		Title       string `json:"title"`
		PublishedAt string `json:"published_at"`
		SourcePath  string `json:"source_path"`
	}

	out := make([]jsonEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, jsonEntry{
			Slug:        entry.Slug,
			Title:       entry.Title,
			PublishedAt: entry.PublishedAt.Format(time.RFC3339),
			SourcePath:  entry.SourcePath,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	o.Println(string(data))
	o.Finish()

	return 0
}

func parseQueryFlags(errOut io.Writer, args []string) (queryOptions, int) {
	flagSet := flag.NewFlagSet("query", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	tag := flagSet.String("tag", "", "Tag to query")
	all := flagSet.Bool("all", false, "List all documents")
	limit := flagSet.Int("limit", defaultQueryLimit, "Maximum documents to show")
	offset := flagSet.Int("offset", 0, "Skip first N documents")
	asJSON := flagSet.Bool("json", false, "Output JSON")

	parseErr := flagSet.Parse(args)
	if parseErr != nil {
		fprintln(errOut, "error:", parseErr)

		return queryOptions{}, 1
	}

	if *tag == "" && !*all {
		fprintln(errOut, "error: --tag or --all is required")

		return queryOptions{}, 1
	}

	if *tag != "" && *all {
		fprintln(errOut, "error: --tag and --all are mutually exclusive")

		return queryOptions{}, 1
	}

	if *limit < 0 {
		fprintln(errOut, "error: --limit must be non-negative")

		return queryOptions{}, 1
	}

	if *offset < 0 {
		fprintln(errOut, "error: --offset must be non-negative")

		return queryOptions{}, 1
	}

	return queryOptions{
		tag:     *tag,
		limit:   *limit,
		offset:  *offset,
		asJSON:  *asJSON,
		allDocs: *all,
	}, 0
}

func printQueryHelp(o *IO) {
	o.Println("Usage: inkwell query [options]")
	o.Println("")
	o.Println("Query the derived index. Documents are ordered newest first, slug")
	o.Println("ascending on ties. An unknown tag yields no rows, not an error.")
	o.Println("")
	o.Println("Options:")
	o.Println("  --tag=<tag>          Tag to query")
	o.Println("  --all                List all documents instead of one tag")
	o.Println("  --limit=N            Max documents to show [default: 100]")
	o.Println("  --offset=N           Skip first N documents [default: 0]")
	o.Println("  --json               Output JSON")
}
