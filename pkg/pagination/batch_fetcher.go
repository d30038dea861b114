package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/artic-browser/pkg/artwork"
	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests.
	// Keep it small: the public API allows 60 requests per minute.
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// Buffer size for channels
	BufferSize int
}

// DefaultConfig returns safe default configuration for the public API
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		BufferSize:     64,
	}
}

// PageResult represents the result of fetching a single page
type PageResult struct {
	PageIndex int
	Result    Result
}

// RangeResult is the outcome of FetchRange.
type RangeResult struct {
	// Items holds the artworks of every successful page, in page order.
	Items []artwork.Artwork
	// Total is the collection size reported by the last successful page.
	Total int
	// Fetched counts pages that returned (including empty ones).
	Fetched int
	// Failed lists the zero-based indices of pages that failed, ascending.
	Failed []int
}

// BatchFetcher handles parallel fetching of a contiguous page range
type BatchFetcher struct {
	fetcher Fetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher Fetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 64
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchRange fetches pageCount pages starting at startPage using a worker pool.
// Successful pages are returned even when others fail; the error then
// reports how many pages are missing.
func (bf *BatchFetcher) FetchRange(ctx context.Context, startPage, pageCount, pageSize int) (RangeResult, error) {
	start := time.Now()

	if startPage < 0 || pageCount < 1 || pageSize < 1 {
		return RangeResult{}, fmt.Errorf("invalid page range: start %d, count %d, size %d", startPage, pageCount, pageSize)
	}

	log.Info().
		Str("component", "pagination").
		Int("start_page", startPage).
		Int("pages", pageCount).
		Int("page_size", pageSize).
		Msg("Starting parallel page fetch")

	pages := make([]Result, pageCount)
	done := make([]bool, pageCount)

	// Create channels
	pageQueue := make(chan int, min(bf.config.BufferSize, pageCount))
	pageResults := make(chan PageResult, min(bf.config.BufferSize, pageCount))

	// Fill page queue
	go func() {
		defer close(pageQueue)
		for page := startPage; page < startPage+pageCount; page++ {
			select {
			case pageQueue <- page:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Start worker pool
	workers := min(bf.config.MaxConcurrency, pageCount)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, pageSize, pageQueue, pageResults, &wg, i)
	}

	// Close results channel when all workers done
	go func() {
		wg.Wait()
		close(pageResults)
	}()

	// Collect results
	fetchedPages := 0
	for result := range pageResults {
		slot := result.PageIndex - startPage
		pages[slot] = result.Result
		done[slot] = true
		if result.Result.Status != StatusFailed {
			fetchedPages++
		}

		// Progress logging every 10 pages
		if fetchedPages > 0 && fetchedPages%10 == 0 {
			log.Info().
				Int("fetched", fetchedPages).
				Int("total", pageCount).
				Float64("progress_pct", float64(fetchedPages)/float64(pageCount)*100).
				Msg("Fetch progress")
		}
	}

	out := RangeResult{Items: []artwork.Artwork{}, Fetched: fetchedPages}
	for i, res := range pages {
		if !done[i] || res.Status == StatusFailed {
			out.Failed = append(out.Failed, startPage+i)
			continue
		}
		out.Items = append(out.Items, res.Page.Items...)
		if res.Status == StatusOK {
			out.Total = res.Page.Total
		}
	}

	if len(out.Failed) > 0 {
		log.Warn().
			Ints("failed_pages", out.Failed).
			Int("fetched_pages", fetchedPages).
			Int("total_pages", pageCount).
			Msg("Returning partial results")
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("fetch range cancelled (partial data: %d/%d pages): %w", fetchedPages, pageCount, err)
		}
		return out, fmt.Errorf("fetch range (partial data: %d/%d pages): %d pages failed", fetchedPages, pageCount, len(out.Failed))
	}

	log.Info().
		Int("pages", fetchedPages).
		Int("items", len(out.Items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return out, nil
}

// worker processes pages from the queue
func (bf *BatchFetcher) worker(ctx context.Context, pageSize int, pageQueue <-chan int, results chan<- PageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageIndex := range pageQueue {
		// Check context cancellation
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		// Fetch page with timeout
		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		res := Fetch(pageCtx, bf.fetcher, pageIndex, pageSize)
		cancel()

		// Results are always drained by FetchRange, so this send cannot block forever
		results <- PageResult{PageIndex: pageIndex, Result: res}
		pagesProcessed++
	}

	if pagesProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}
