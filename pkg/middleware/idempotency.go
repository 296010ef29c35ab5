package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/railops/train-reservation/pkg/response"
)

const (
	// IdempotencyKeyHeader is the header carrying the client's idempotency key
	IdempotencyKeyHeader = "X-Idempotency-Key"
	// idempotencyKeyPrefix namespaces idempotency records in Redis
	idempotencyKeyPrefix = "idempotency:"
)

// IdempotencyStatus marks the phase of an idempotency record
type IdempotencyStatus string

const (
	statusProcessing IdempotencyStatus = "processing"
	statusCompleted  IdempotencyStatus = "completed"
)

// idempotencyRecord stores the outcome of an idempotent request
type idempotencyRecord struct {
	Status       IdempotencyStatus `json:"status"`
	ResponseCode int               `json:"response_code"`
	ResponseBody string            `json:"response_body"`
	CreatedAt    time.Time         `json:"created_at"`
}

// RedisClient is the subset of redis operations the middleware needs
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Redis RedisClient
	// TTL for completed records (default: 24h)
	TTL time.Duration
	// ProcessingTTL bounds how long an in-flight record blocks retries (default: 60s)
	ProcessingTTL time.Duration
}

// DefaultIdempotencyConfig returns default configuration
func DefaultIdempotencyConfig(client RedisClient) *IdempotencyConfig {
	return &IdempotencyConfig{
		Redis:         client,
		TTL:           24 * time.Hour,
		ProcessingTTL: 60 * time.Second,
	}
}

// bodyRecorder captures the response for replay on duplicate requests
type bodyRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for a repeated X-Idempotency-Key.
// Requests without the header pass through untouched.
func Idempotency(cfg *IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.ProcessingTTL <= 0 {
		cfg.ProcessingTTL = 60 * time.Second
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		redisKey := idempotencyKeyPrefix + key

		processing, _ := json.Marshal(idempotencyRecord{
			Status:    statusProcessing,
			CreatedAt: time.Now(),
		})

		// First writer wins; everyone else sees the stored record.
		ok, err := cfg.Redis.SetNX(ctx, redisKey, processing, cfg.ProcessingTTL).Result()
		if err != nil {
			// Redis down: idempotency is best-effort, let the request through
			c.Next()
			return
		}

		if !ok {
			raw, err := cfg.Redis.Get(ctx, redisKey).Result()
			if err != nil {
				c.Next()
				return
			}

			var record idempotencyRecord
			if err := json.Unmarshal([]byte(raw), &record); err == nil && record.Status == statusCompleted {
				c.Data(record.ResponseCode, "application/json", []byte(record.ResponseBody))
				c.Abort()
				return
			}

			response.Conflict(c, "REQUEST_IN_PROGRESS", "a request with this idempotency key is still processing")
			c.Abort()
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = recorder
		c.Next()

		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			// Server-side failure: drop the record so the client may retry
			_ = cfg.Redis.Del(ctx, redisKey).Err()
			return
		}

		completed, _ := json.Marshal(idempotencyRecord{
			Status:       statusCompleted,
			ResponseCode: status,
			ResponseBody: recorder.body.String(),
			CreatedAt:    time.Now(),
		})
		_ = cfg.Redis.Set(ctx, redisKey, completed, cfg.TTL).Err()
	}
}
