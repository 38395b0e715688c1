// Package cache memoizes expensive query and rendering results.
//
// NAMESPACES AND KEYS:
// Every entry lives in a namespace ("pastes.list", "tags.cloud", ...) under a
// key. A namespace can be cleared as a whole when a write makes all of it
// stale, and single entries can be removed when only one is affected.
//
// Keys are built with Key(parts...), which joins the parts with the ASCII unit
// separator. Remove(ns, subkey) evicts the entry named subkey and every entry
// whose key starts with subkey followed by the separator, so
//
//	Key("golang", "1", "20")
//	Key("golang", "2", "20")
//
// are both evicted by Remove(ns, "golang").
//
// TWO BACKENDS:
//   - MemoryStore keeps entries in the process (one server instance).
//   - RedisStore shares entries between server instances.
//
// Both implement Store, so the rest of the code never knows which one it has.
package cache

import (
	"context"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// NeverExpires is the ttl for entries that stay until they are evicted.
const NeverExpires time.Duration = 0

// Separator joins the parts of a composite key.
const Separator = "\x1f"

// StaticKey is the key of namespaces that only ever hold one entry.
const StaticKey = "_"

// Store is a namespaced key/value store with per-entry expiry.
//
// Implementations must be safe for concurrent use. Get reports a miss with
// found == false and a nil error; errors mean the store itself failed.
type Store interface {
	Get(ctx context.Context, namespace, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	// Remove evicts key and every key that starts with key+Separator.
	Remove(ctx context.Context, namespace, key string) error
	// Clear evicts every entry of namespace.
	Clear(ctx context.Context, namespace string) error
}

// Key joins parts into a composite key.
func Key(parts ...string) string {
	return strings.Join(parts, Separator)
}

// ArgsKey derives a fixed-length key from a full set of query arguments.
// url.Values.Encode sorts by name, so argument order does not matter.
func ArgsKey(args url.Values) string {
	sum := blake2b.Sum256([]byte(args.Encode()))
	return hex.EncodeToString(sum[:16])
}

// matchesSubkey reports whether key is subkey itself or one of its extensions.
func matchesSubkey(key, subkey string) bool {
	return key == subkey || strings.HasPrefix(key, subkey+Separator)
}
