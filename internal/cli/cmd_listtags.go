package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	flag "github.com/spf13/pflag"

	"inkwell/internal/manifest"
)

// listTagsOptions holds parsed list-tags command options.
type listTagsOptions struct {
	counts       bool
	slugs        bool
	manifestPath string
}

func cmdListTags(o *IO, errOut io.Writer, cfg Config, workDir string, args []string) int {
	if hasHelpFlag(args) {
		printListTagsHelp(o)

		return 0
	}

	opts, parseCode := parseListTagsFlags(errOut, args)
	if parseCode != 0 {
		return parseCode
	}

	p := resolvePaths(workDir, cfg)

	manifestPath := p.Manifest
	if opts.manifestPath != "" {
		manifestPath = opts.manifestPath
		if !filepath.IsAbs(manifestPath) {
			manifestPath = filepath.Join(workDir, manifestPath)
		}
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			fprintln(errOut, "error: no manifest found (run inkwell build first)")

			return 1
		}

		fprintln(errOut, "error:", err)

		return 1
	}

	tags := make([]string, 0, len(m.Tags))
	for tag := range m.Tags {
		tags = append(tags, tag)
	}

	sort.Strings(tags)

	for _, tag := range tags {
		switch {
		case opts.slugs:
			o.Printf("%s: %s\n", tag, strings.Join(m.Tags[tag], ", "))
		case opts.counts:
			o.Printf("%s\t%d\n", tag, len(m.Tags[tag]))
		default:
			o.Println(tag)
		}
	}

	o.Finish()

	return 0
}

func parseListTagsFlags(errOut io.Writer, args []string) (listTagsOptions, int) {
	flagSet := flag.NewFlagSet("list-tags", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	counts := flagSet.Bool("counts", false, "Show document counts per tag")
	slugs := flagSet.Bool("slugs", false, "Show ordered slugs per tag")
	manifestPath := flagSet.String("manifest", "", "Manifest file to read")

	parseErr := flagSet.Parse(args)
	if parseErr != nil {
		fprintln(errOut, "error:", parseErr)

		return listTagsOptions{}, 1
	}

	if flagSet.NArg() > 0 {
		fprintln(errOut, fmt.Sprintf("error: unexpected argument: %s", flagSet.Arg(0)))

		return listTagsOptions{}, 1
	}

	return listTagsOptions{
		counts:       *counts,
		slugs:        *slugs,
		manifestPath: *manifestPath,
	}, 0
}

func printListTagsHelp(o *IO) {
	o.Println("Usage: inkwell list-tags [options]")
	o.Println("")
	o.Println("List tags from the manifest, alphabetically. Slugs within a tag are")
	o.Println("ordered newest first, slug ascending on ties.")
	o.Println("")
	o.Println("Options:")
	o.Println("  --counts             Show document counts per tag")
	o.Println("  --slugs              Show ordered slugs per tag")
	o.Println("  --manifest=<file>    Manifest file to read [default: content/.inkwell/manifest.json]")
}
