// Package pagination walks the paged artworks collection.
//
// Fetch wraps a single page request in a tagged Result so callers can tell
// an exhausted collection (an empty page) from a failed request without
// handling errors themselves.
//
// Accumulator grows a selection to a target count by fetching pages one
// after another, starting at a given page:
//
//	acc := pagination.NewAccumulator(apiClient, pagination.Options{})
//	run := acc.Accumulate(ctx, current, 25, pageIndex, 12)
//	// run.Selection holds at most 25 items, run.Stop says why it ended
//
// The run:
//   - Fetches nothing when the selection already meets the target
//   - Takes items from the front of each page in source order
//   - Stops on the first empty page, failed fetch or cancelled context
//   - Never modifies the selection it was given
//
// BatchFetcher fetches a fixed page range with a small worker pool. It is
// meant for bulk export, not for accumulation.
package pagination
