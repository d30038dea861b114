// Package session holds the state of one artwork browsing view: the current
// page and row count, the selection and the pending auto-select count.
//
// A Session is an explicit value owned by its caller. Reset replaces the
// implicit "clear on load" behaviour of a freshly opened view.
//
// # Stores
//
// Sessions are kept in a Store keyed by session ID:
//
//	// In-process, bounded and expiring
//	store := session.NewMemoryStore(1024, 30*time.Minute)
//
//	// Shared between server instances
//	store := session.NewRedisStore(redisClient, 30*time.Minute)
//
//	s := session.New(12)
//	if err := store.Save(ctx, s); err != nil {
//		return err
//	}
//	s, err := store.Get(ctx, s.ID)
//	if errors.Is(err, session.ErrNotFound) {
//		// expired or never created
//	}
//
// Every Save refreshes the TTL. Get returns a copy, so changes must be saved.
//
// # Metrics
//
//   - artic_session_store_hits_total{store}
//   - artic_session_store_misses_total{store}
//   - artic_session_store_errors_total{store,operation}
package session
