// Package redistest backs the Redis client with an in-process miniredis.
package redistest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/angelmondragon/giftbox-backend/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
)

// New starts a miniredis server for the test and returns a client bound to it.
func New(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return redis.NewFromRaw(raw), mr
}
