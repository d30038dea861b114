package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/artic-browser/pkg/export"
	"github.com/Sternrassler/artic-browser/pkg/pagination"
)

func exportCommand(env map[string]string) *Command {
	cmd := newCommand("export", env)
	fs := cmd.Flags
	start := fs.Int("start", 1, "first page to export (1-based)")
	pages := fs.Int("pages", 1, "number of pages to export")
	format := fs.String("format", "", "output format json or csv (default from --out extension)")
	out := fs.StringP("out", "o", "", "output `file` (required)")
	concurrency := fs.Int("concurrency", pagination.DefaultConfig().MaxConcurrency, "parallel page requests")

	var f export.Format

	cmd.Usage = "export --out <file> [flags]"
	cmd.Short = "Export a range of pages to JSON or CSV"
	cmd.Long = `Export a range of pages to JSON or CSV.

Pages are fetched in parallel and written in page order. If some pages
fail, the pages that did load are still written and the command exits
with an error.`
	cmd.Check = func() error {
		if *out == "" {
			return errors.New("--out is required")
		}
		if *start < 1 {
			return errors.New("--start must be at least 1")
		}
		if *pages < 1 {
			return errors.New("--pages must be at least 1")
		}

		f = export.FormatFromPath(*out)
		if fs.Changed("format") {
			var err error
			if f, err = export.ParseFormat(*format); err != nil {
				return err
			}
		}
		return nil
	}
	cmd.Exec = func(ctx context.Context, inv *invocation, _ []string) error {
		cfg := inv.cfg

		b, err := newBackend(ctx, cfg, inv.logger)
		if err != nil {
			return err
		}
		defer b.Close()

		bcfg := pagination.DefaultConfig()
		bcfg.MaxConcurrency = *concurrency
		bf := pagination.NewBatchFetcher(b.api, bcfg)

		res, fetchErr := bf.FetchRange(ctx, *start-1, *pages, cfg.PageSize)
		if fetchErr != nil && len(res.Items) == 0 {
			return fetchErr
		}

		if err := export.WriteFile(*out, f, res.Items); err != nil {
			return err
		}

		inv.Printf("wrote %d artworks from %d pages to %s (%d in collection)\n",
			len(res.Items), res.Fetched, *out, res.Total)

		if fetchErr != nil {
			pagesOneBased := make([]int, len(res.Failed))
			for i, p := range res.Failed {
				pagesOneBased[i] = p + 1
			}
			return fmt.Errorf("pages %v missing from %s: %w", pagesOneBased, *out, fetchErr)
		}
		return nil
	}
	return cmd
}
