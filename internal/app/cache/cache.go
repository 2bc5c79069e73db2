// Package cache provides a redis-backed response cache for read-only
// endpoints.
package cache

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/R3E-Network/explorer_api/internal/app/metrics"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

// DefaultTTL is used when a non-positive TTL is configured.
const DefaultTTL = 30 * time.Second

// Config describes the redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// ResponseCache stores successful GET response bodies in redis keyed by the
// request URI.
type ResponseCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

// New connects a response cache. The connection is lazy; Ping checks it.
func New(cfg Config, log *logger.Logger) *ResponseCache {
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg.TTL, cfg.Prefix, log)
}

// NewWithClient wraps an existing redis client.
func NewWithClient(client *redis.Client, ttl time.Duration, prefix string, log *logger.Logger) *ResponseCache {
	if log == nil {
		log = logger.NewDefault("cache")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = "explorer:"
	}
	return &ResponseCache{client: client, ttl: ttl, prefix: prefix, log: log}
}

// Ping verifies the redis connection.
func (c *ResponseCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the redis connection pool.
func (c *ResponseCache) Close() error {
	return c.client.Close()
}

func (c *ResponseCache) key(r *http.Request) string {
	return c.prefix + r.URL.RequestURI()
}

// Middleware serves cached bodies for GET requests and stores 200 responses.
// Redis failures degrade to serving uncached responses.
func (c *ResponseCache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := c.key(r)

		body, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			metrics.RecordCacheLookup(true)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		case errors.Is(err, redis.Nil):
			metrics.RecordCacheLookup(false)
		default:
			metrics.RecordCacheLookup(false)
			c.log.WithError(err).WithField("key", key).Warn("cache lookup failed")
		}

		rec := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set("X-Cache", "MISS")
		next.ServeHTTP(rec, r)

		if rec.status != http.StatusOK {
			return
		}
		if err := c.client.Set(ctx, key, rec.buf.Bytes(), c.ttl).Err(); err != nil {
			c.log.WithError(err).WithField("key", key).Warn("cache store failed")
		}
	})
}

type bodyRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	buf         bytes.Buffer
}

func (r *bodyRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}
