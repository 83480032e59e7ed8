package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// VersionTTL bounds how long a list stamp lives. It is well above any list
// page TTL, and an expired stamp is simply regenerated.
const VersionTTL = 24 * time.Hour

// Store is a best-effort JSON cache. Every failure is logged and reported
// as a miss or a false result; callers always fall back to the database.
type Store struct {
	backend    Backend
	log        *slog.Logger
	versionTTL time.Duration
}

func NewStore(backend Backend, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{backend: backend, log: log, versionTTL: VersionTTL}
}

// Get decodes the cached value into dest and reports whether it was found.
func (s *Store) Get(ctx context.Context, key string, dest any) bool {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			s.warn("get", key, err)
		}
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		s.warn("decode", key, err)
		return false
	}

	return true
}

func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		s.warn("encode", key, err)
		return false
	}

	if err := s.backend.Set(ctx, key, raw, ttl); err != nil {
		s.warn("set", key, err)
		return false
	}

	return true
}

func (s *Store) Delete(ctx context.Context, keys ...string) bool {
	if len(keys) == 0 {
		return true
	}

	if err := s.backend.Del(ctx, keys...); err != nil {
		s.warn("delete", keys[0], err)
		return false
	}

	return true
}

func (s *Store) Exists(ctx context.Context, key string) bool {
	ok, err := s.backend.Exists(ctx, key)
	if err != nil {
		s.warn("exists", key, err)
		return false
	}
	return ok
}

// Version returns the current stamp for a list namespace, creating one when
// none exists yet. An empty string means the cache is unreachable.
func (s *Store) Version(ctx context.Context, namespace string) string {
	key := VersionKey(namespace)

	var stamp string
	if s.Get(ctx, key, &stamp) && stamp != "" {
		return stamp
	}

	stamp = newStamp()
	if !s.Set(ctx, key, stamp, s.versionTTL) {
		return ""
	}
	return stamp
}

// BumpVersion orphans every list page cached under the old stamp.
func (s *Store) BumpVersion(ctx context.Context, namespace string) bool {
	return s.Set(ctx, VersionKey(namespace), newStamp(), s.versionTTL)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) warn(op string, key string, err error) {
	s.log.Warn("cache operation failed", "cache_op", op, "key", key, "error", err)
}

func newStamp() string {
	return uuid.NewString()[:8]
}
