package middlewareinternal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Evgen-Mutagen/paymybuddy/internal/util/logger"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	// IdempotencyCacheTTL is how long a successful response is replayed.
	IdempotencyCacheTTL = 24 * time.Hour

	// LockTimeout releases the key if the handling request dies.
	LockTimeout = 30 * time.Second

	maxIdempotencyKeyLength = 255

	cacheKeyPrefix = "paymybuddy:idempotency:"
	lockKeyPrefix  = "paymybuddy:idempotency-lock:"
)

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Idempotency replays the stored 2xx response of a request that carried the
// same Idempotency-Key for the same authenticated caller. It must run after
// JWTAuthMiddleware. A nil client disables it.
func Idempotency(rdb redis.Cmdable) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rdb == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLength {
				http.Error(w, "Idempotency-Key too long", http.StatusBadRequest)
				return
			}

			email, ok := GetEmailFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := r.Context()
			scope := email + ":" + r.Method + ":" + r.URL.Path + ":" + key
			cacheKey := cacheKeyPrefix + scope
			lockKey := lockKeyPrefix + scope

			replayed, err := replay(ctx, rdb, w, cacheKey, key)
			if err != nil {
				logger.Log.Error("Idempotency cache lookup failed", zap.Error(err))
				unavailable(w)
				return
			}
			if replayed {
				return
			}

			acquired, err := rdb.SetNX(ctx, lockKey, "processing", LockTimeout).Result()
			if err != nil {
				logger.Log.Error("Idempotency lock failed", zap.Error(err))
				unavailable(w)
				return
			}
			if !acquired {
				http.Error(w, "A request with this Idempotency-Key is being processed", http.StatusConflict)
				return
			}
			defer func() {
				if err := rdb.Del(context.Background(), lockKey).Err(); err != nil {
					logger.Log.Warn("Failed to release idempotency lock", zap.Error(err))
				}
			}()

			// A same-key request may have cached its response and released the
			// lock between the lookup above and SetNX.
			replayed, err = replay(ctx, rdb, w, cacheKey, key)
			if err != nil {
				logger.Log.Error("Idempotency cache lookup failed", zap.Error(err))
				unavailable(w)
				return
			}
			if replayed {
				return
			}

			rec := &recordingWriter{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status < 200 || rec.status >= 300 {
				return
			}
			payload, err := json.Marshal(cachedResponse{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				return
			}
			if err := rdb.Set(context.Background(), cacheKey, payload, IdempotencyCacheTTL).Err(); err != nil {
				logger.Log.Warn("Failed to cache idempotent response", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

// replay writes the cached response for cacheKey, if any. A missing or
// unreadable entry reports false.
func replay(ctx context.Context, rdb redis.Cmdable, w http.ResponseWriter, cacheKey, key string) (bool, error) {
	raw, err := rdb.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var cached cachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		logger.Log.Warn("Discarding unreadable idempotency entry", zap.String("key", key))
		return false, nil
	}

	logger.Log.Debug("Idempotent replay", zap.String("key", key))
	if cached.ContentType != "" {
		w.Header().Set("Content-Type", cached.ContentType)
	}
	w.Header().Set("X-Idempotency-Hit", "true")
	w.WriteHeader(cached.Status)
	_, _ = w.Write(cached.Body)
	return true, nil
}

func unavailable(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "1")
	http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
}
