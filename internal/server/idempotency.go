package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/afes-website/manage-back/internal/auth"
)

const (
	idempotencyHeader    = "Idempotency-Key"
	idempotencyKeyPrefix = "idempotency:"
	processingTTL        = 30 * time.Second
)

// RedisClient is the subset of *redis.Client the idempotency middleware uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type idempotencyStatus string

const (
	statusProcessing idempotencyStatus = "processing"
	statusCompleted  idempotencyStatus = "completed"
)

type idempotencyRecord struct {
	Status       idempotencyStatus `json:"status"`
	RequestHash  string            `json:"request_hash"`
	ResponseCode int               `json:"response_code,omitempty"`
	ResponseBody []byte            `json:"response_body,omitempty"`
}

// idempotencyMiddleware replays the stored response of a completed request
// carrying the same Idempotency-Key. Requests without the header pass
// through, and redis failures fail open.
func idempotencyMiddleware(logger *slog.Logger, rdb RedisClient, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if key == "" || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "unreadable request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := r.Context()
			hash := requestHash(r, body)
			redisKey := idempotencyKeyPrefix + key

			existing, err := loadRecord(ctx, rdb, redisKey)
			if err != nil && !errors.Is(err, redis.Nil) {
				logger.Warn("idempotency lookup failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if existing == nil {
				claimed, err := claimRecord(ctx, rdb, redisKey, hash)
				if err != nil {
					logger.Warn("idempotency claim failed", "error", err)
					next.ServeHTTP(w, r)
					return
				}
				if !claimed {
					if existing, err = loadRecord(ctx, rdb, redisKey); err != nil {
						writeError(w, http.StatusConflict, "REQUEST_IN_PROGRESS", "a request with this idempotency key is in progress")
						return
					}
				}
			}

			if existing != nil {
				replay(w, existing, hash)
				return
			}

			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Server errors are not replayed; the client may retry them.
			if rec.status >= http.StatusInternalServerError {
				rdb.Del(context.WithoutCancel(ctx), redisKey)
				return
			}
			done := idempotencyRecord{
				Status:       statusCompleted,
				RequestHash:  hash,
				ResponseCode: rec.status,
				ResponseBody: rec.body.Bytes(),
			}
			data, _ := json.Marshal(done)
			if err := rdb.Set(context.WithoutCancel(ctx), redisKey, data, ttl).Err(); err != nil {
				logger.Warn("idempotency store failed", "error", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, rec *idempotencyRecord, hash string) {
	if rec.RequestHash != hash {
		writeError(w, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "idempotency key already used with a different request")
		return
	}
	if rec.Status == statusProcessing {
		writeError(w, http.StatusConflict, "REQUEST_IN_PROGRESS", "a request with this idempotency key is in progress")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(rec.ResponseCode)
	_, _ = w.Write(rec.ResponseBody)
}

// requestHash binds a key to the caller, route and body it was first used
// with.
func requestHash(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte(r.URL.Path))
	if id, ok := auth.FromContext(r.Context()); ok {
		h.Write([]byte(id.ID))
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func loadRecord(ctx context.Context, rdb RedisClient, key string) (*idempotencyRecord, error) {
	raw, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var rec idempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func claimRecord(ctx context.Context, rdb RedisClient, key, hash string) (bool, error) {
	data, err := json.Marshal(idempotencyRecord{Status: statusProcessing, RequestHash: hash})
	if err != nil {
		return false, err
	}
	return rdb.SetNX(ctx, key, data, processingTTL).Result()
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
