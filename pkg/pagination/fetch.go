package pagination

import (
	"context"

	"github.com/Sternrassler/artic-browser/pkg/artwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var pageFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "artic_page_fetches_total",
	Help: "Page fetches by outcome (ok, exhausted, failed)",
}, []string{"outcome"})

// Fetcher loads one page of artworks. pageIndex is zero-based.
// *client.Client satisfies it.
type Fetcher interface {
	FetchPage(ctx context.Context, pageIndex, pageSize int) (artwork.Page, error)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context, pageIndex, pageSize int) (artwork.Page, error)

// FetchPage calls f.
func (f FetcherFunc) FetchPage(ctx context.Context, pageIndex, pageSize int) (artwork.Page, error) {
	return f(ctx, pageIndex, pageSize)
}

// Status tags the outcome of a page fetch.
type Status string

const (
	// StatusOK means the page held at least one item.
	StatusOK Status = "ok"

	// StatusExhausted means the page lies past the end of the collection.
	StatusExhausted Status = "exhausted"

	// StatusFailed means the request or its decoding failed.
	StatusFailed Status = "failed"
)

// Result is the tagged outcome of one page fetch.
// Page is the zero value unless Status is StatusOK or StatusExhausted.
type Result struct {
	Status Status
	Page   artwork.Page
	Err    error
}

// Items returns the fetched items, empty for a failed fetch.
func (r Result) Items() []artwork.Artwork {
	if r.Status != StatusOK {
		return []artwork.Artwork{}
	}
	return r.Page.Items
}

// Fetch performs one fetch and folds its error into a tagged Result.
// Failures are logged and counted here and never returned as errors.
func Fetch(ctx context.Context, f Fetcher, pageIndex, pageSize int) Result {
	page, err := f.FetchPage(ctx, pageIndex, pageSize)
	if err != nil {
		log.Warn().
			Str("component", "pagination").
			Err(err).
			Int("page", pageIndex).
			Int("page_size", pageSize).
			Msg("Page fetch failed")
		pageFetchesTotal.WithLabelValues(string(StatusFailed)).Inc()
		return Result{Status: StatusFailed, Page: artwork.Page{Items: []artwork.Artwork{}}, Err: err}
	}

	if page.Items == nil {
		page.Items = []artwork.Artwork{}
	}

	status := StatusOK
	if page.Empty() {
		status = StatusExhausted
	}
	pageFetchesTotal.WithLabelValues(string(status)).Inc()

	return Result{Status: status, Page: page}
}
