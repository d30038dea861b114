package session

import "strings"

// KeyPrefix namespaces session keys in Redis.
const KeyPrefix = "artic:session:"

// Key returns the Redis key of a session.
//
// Example:
//
//	artic:session:4f0c2a7e-58c1-4b35-9d3b-0e2f9b1c6a10
func Key(id string) string {
	return KeyPrefix + strings.TrimSpace(id)
}
