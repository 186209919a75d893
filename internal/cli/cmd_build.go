package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"inkwell/internal/build"
	"inkwell/internal/index"
	"inkwell/internal/manifest"
)

// buildOptions holds parsed build command options.
type buildOptions struct {
	strict  bool
	workers int
	full    bool
	out     string
	report  string
}

func cmdBuild(ctx context.Context, o *IO, errOut io.Writer, cfg Config, workDir string, args []string) int {
	if hasHelpFlag(args) {
		printBuildHelp(o)

		return 0
	}

	opts, parseCode := parseBuildFlags(errOut, cfg, args)
	if parseCode != 0 {
		return parseCode
	}

	p := resolvePaths(workDir, cfg)

	if opts.out != "" {
		p.Manifest = opts.out
		if !filepath.IsAbs(p.Manifest) {
			p.Manifest = filepath.Join(workDir, p.Manifest)
		}
	}

	if opts.report != "" {
		p.Report = opts.report
		if !filepath.IsAbs(p.Report) {
			p.Report = filepath.Join(workDir, p.Report)
		}
	}

	var prior *manifest.Manifest

	if !opts.full {
		loaded, loadErr := manifest.Load(p.Manifest)

		switch {
		case loadErr == nil:
			prior = loaded
		case os.IsNotExist(loadErr):
			// First build against this root.
		default:
			// Unreadable or incompatible prior manifest forces a full rebuild.
			o.Warn(fmt.Sprintf("ignoring prior manifest: %v", loadErr))
		}
	}

	result, err := build.Run(ctx, build.Options{
		ContentDir: p.ContentDir,
		Workers:    opts.workers,
		Prior:      prior,
		LockPath:   p.Lock,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fprintln(errOut, "error: build canceled")

			return 1
		}

		fprintln(errOut, "error:", err)

		return 1
	}

	err = manifest.Write(p.Manifest, result.Manifest)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	err = manifest.WriteReport(p.Report, result.Report)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	err = rebuildIndex(ctx, p.Index, result.Manifest)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	for _, failure := range result.Report.Failures {
		o.Warn(fmt.Sprintf("%s: %s: %s", failure.SourcePath, failure.Kind, failure.Detail))
	}

	o.Printf("indexed %d documents (%d parsed, %d reused), %d failed\n",
		len(result.Manifest.Documents), result.Stats.Parsed, result.Stats.Reused, result.Stats.Failed)
	o.Println("manifest:", p.Manifest)
	o.Println("report:", p.Report)

	o.Finish()

	// Strict keys off the report, not the warning count: advisory warnings
	// (like an ignored prior manifest) never fail a clean build.
	if opts.strict && len(result.Report.Failures) > 0 {
		return 1
	}

	return 0
}

func rebuildIndex(ctx context.Context, path string, m *manifest.Manifest) error {
	idx, err := index.Open(ctx, path)
	if err != nil {
		return err
	}

	defer func() { _ = idx.Close() }()

	_, err = idx.Rebuild(ctx, m)

	return err
}

func parseBuildFlags(errOut io.Writer, cfg Config, args []string) (buildOptions, int) {
	flagSet := flag.NewFlagSet("build", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	strict := flagSet.Bool("strict", cfg.Strict, "Exit non-zero when any file fails")
	workers := flagSet.Int("workers", cfg.Workers, "Concurrent parse workers (0 = NumCPU)")
	full := flagSet.Bool("full", false, "Ignore the prior manifest and reparse everything")
	out := flagSet.String("out", "", "Manifest output path")
	report := flagSet.String("report", "", "Report output path")

	parseErr := flagSet.Parse(args)
	if parseErr != nil {
		fprintln(errOut, "error:", parseErr)

		return buildOptions{}, 1
	}

	if *workers < 0 {
		fprintln(errOut, "error: --workers must be non-negative")

		return buildOptions{}, 1
	}

	if flagSet.NArg() > 0 {
		fprintln(errOut, "error: build takes no positional arguments")

		return buildOptions{}, 1
	}

	return buildOptions{
		strict:  *strict,
		workers: *workers,
		full:    *full,
		out:     *out,
		report:  *report,
	}, 0
}

func printBuildHelp(o *IO) {
	o.Println("Usage: inkwell build [options]")
	o.Println("")
	o.Println("Scan the content directory, validate every markdown file, and write")
	o.Println("the manifest, the failure report, and the derived query index.")
	o.Println("Unchanged files (by content fingerprint) are reused from the prior")
	o.Println("manifest without reparsing.")
	o.Println("")
	o.Println("Options:")
	o.Println("  --strict             Exit 1 when any file fails validation")
	o.Println("  --workers=N          Concurrent parse workers [default: NumCPU]")
	o.Println("  --full               Ignore the prior manifest, reparse everything")
	o.Println("  --out=<file>         Manifest output path")
	o.Println("  --report=<file>      Report output path")
}
