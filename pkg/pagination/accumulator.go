package pagination

import (
	"context"
	"time"

	"github.com/Sternrassler/artic-browser/pkg/artwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	accumulationRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_accumulation_runs_total",
		Help: "Selection accumulation runs by stop reason",
	}, []string{"stop"})

	accumulatedItems = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_accumulated_items",
		Help: "Total items appended to selections by accumulation runs",
	})
)

// StopReason says why an accumulation run ended.
type StopReason string

const (
	// StopSatisfied means the target count was reached (or already met).
	StopSatisfied StopReason = "satisfied"

	// StopExhausted means a page past the end of the collection was reached.
	StopExhausted StopReason = "exhausted"

	// StopFailed means a page fetch failed.
	StopFailed StopReason = "failed"

	// StopCancelled means the context was cancelled between or during fetches.
	StopCancelled StopReason = "cancelled"
)

// Options tune an Accumulator.
type Options struct {
	// DedupByID skips fetched items whose ID is already selected.
	// Skipped items do not count toward the target.
	DedupByID bool
}

// Run describes one accumulation.
type Run struct {
	// Selection is the resulting selection. It aliases the initial
	// selection only when nothing was fetched.
	Selection artwork.Selection `json:"-"`

	// Pages lists the zero-based page indices fetched, in order.
	Pages []int `json:"pages"`

	// Added is the number of items appended.
	Added int `json:"added"`

	Stop StopReason `json:"stop"`

	// Err is the fetch error when Stop is StopFailed, or the context error
	// when Stop is StopCancelled.
	Err error `json:"-"`
}

// Accumulator grows a selection to a target size by walking pages forward.
type Accumulator struct {
	fetcher Fetcher
	opts    Options
	logger  zerolog.Logger
}

// NewAccumulator creates an accumulator over f.
func NewAccumulator(f Fetcher, opts Options) *Accumulator {
	return &Accumulator{
		fetcher: f,
		opts:    opts,
		logger:  log.With().Str("component", "pagination").Logger(),
	}
}

// Accumulate appends items from startPage onward to a copy of initial until
// it holds targetCount items, a page comes back empty, or a fetch fails.
// Pages are fetched one at a time in increasing order. initial is never
// modified. A short result is not an error.
func (a *Accumulator) Accumulate(ctx context.Context, initial artwork.Selection, targetCount, startPage, pageSize int) Run {
	remaining := targetCount - len(initial)
	if remaining <= 0 {
		accumulationRunsTotal.WithLabelValues(string(StopSatisfied)).Inc()
		return Run{Selection: initial, Pages: []int{}, Stop: StopSatisfied}
	}

	start := time.Now()
	run := Run{Selection: initial.Clone(), Pages: []int{}}

	var seen map[int64]struct{}
	if a.opts.DedupByID {
		seen = make(map[int64]struct{}, len(initial))
		for _, item := range initial {
			seen[item.ID] = struct{}{}
		}
	}

	for page := startPage; ; page++ {
		if err := ctx.Err(); err != nil {
			run.Stop = StopCancelled
			run.Err = err
			break
		}

		res := Fetch(ctx, a.fetcher, page, pageSize)
		run.Pages = append(run.Pages, page)

		if res.Status == StatusFailed {
			if err := ctx.Err(); err != nil {
				run.Stop = StopCancelled
				run.Err = err
			} else {
				run.Stop = StopFailed
				run.Err = res.Err
			}
			break
		}
		if res.Status == StatusExhausted {
			run.Stop = StopExhausted
			break
		}

		for _, item := range res.Page.Items {
			if remaining == 0 {
				break
			}
			if seen != nil {
				if _, dup := seen[item.ID]; dup {
					continue
				}
				seen[item.ID] = struct{}{}
			}
			run.Selection = append(run.Selection, item)
			run.Added++
			remaining--
		}

		if remaining == 0 {
			run.Stop = StopSatisfied
			break
		}
	}

	accumulationRunsTotal.WithLabelValues(string(run.Stop)).Inc()
	accumulatedItems.Add(float64(run.Added))

	a.logger.Info().
		Int("target", targetCount).
		Int("start_page", startPage).
		Int("page_size", pageSize).
		Int("added", run.Added).
		Int("pages_fetched", len(run.Pages)).
		Str("stop", string(run.Stop)).
		Dur("duration", time.Since(start)).
		Msg("Accumulation complete")

	return run
}
