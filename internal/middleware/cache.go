package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/emprestaae/empresta-api/internal/config"
)

// bodyRecorder tees the response body into a bounded buffer.
type bodyRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
	over   bool
}

func (w *bodyRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	if !w.over {
		if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
			w.over = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// cacheScope is the first resource segment of a route, skipping the API
// version: "/v1/items/:id" gives "items".
func cacheScope(route string) string {
	segs := strings.Split(strings.Trim(route, "/"), "/")
	if len(segs) > 1 && len(segs[0]) > 1 && segs[0][0] == 'v' {
		if _, err := strconv.Atoi(segs[0][1:]); err == nil {
			segs = segs[1:]
		}
	}
	if segs[0] == "" || segs[0][0] == ':' {
		return "root"
	}
	return segs[0]
}

func scopePattern(cfg config.CacheConfig, scope string) string {
	return fmt.Sprintf("%s:http:%s:*", cfg.Prefix, scope)
}

// responseKey hashes the request parts selected by cfg.KeyStrategy.  Keys
// are grouped by cacheScope so writes can drop a whole resource.
func responseKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", c.Path()}
	case "method_route":
		parts = []string{"method", r.Method, "route", c.Path()}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", c.Path(), "params", strings.Join(c.ParamValues(), "/"), "q", r.URL.RawQuery}
	default:
		parts = []string{"route", c.Path(), "params", strings.Join(c.ParamValues(), "/"), "q", r.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:http:%s:%x", cfg.Prefix, cacheScope(c.Path()), sum[:])
}

// Cached entries are laid out as
// [status uint32][header length uint32][header JSON][body].
func packResponse(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	out = append(out, hdr...)
	return append(out, body...), nil
}

func unpackResponse(bs []byte) (int, http.Header, []byte, bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status := int(binary.BigEndian.Uint32(bs[0:4]))
	n := int(binary.BigEndian.Uint32(bs[4:8]))
	if n < 0 || 8+n > len(bs) {
		return 0, nil, nil, false
	}
	hdr := make(http.Header)
	if n > 0 {
		if err := json.Unmarshal(bs[8:8+n], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, bs[8+n:], true
}

// NewRedisCache caches successful anonymous responses of the configured
// methods in Redis.  Requests carrying an Authorization header bypass the
// cache because their bodies depend on the caller.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, l *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if l == nil {
		l = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !cfg.Methods[req.Method] || req.Header.Get(echo.HeaderAuthorization) != "" {
				return next(c)
			}
			ctx := req.Context()
			key := responseKey(cfg, c)
			res := c.Response()

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := unpackResponse(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							res.Header().Add(k, v)
						}
					}
					res.Header().Set("X-Cache", "HIT")
					return c.Blob(status, hdr.Get(echo.HeaderContentType), body)
				}
			} else if err != redis.Nil {
				l.Debug("response cache read failed", zap.String("key", key), zap.Error(err))
			}

			rec := &bodyRecorder{ResponseWriter: res.Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			res.Writer = rec
			res.Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.over {
				return nil
			}
			hdr := res.Header().Clone()
			hdr.Del("X-Cache")
			hdr.Del(echo.HeaderXRequestID)
			payload, err := packResponse(rec.status, hdr, rec.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := rdb.Set(context.WithoutCancel(ctx), key, payload, cfg.TTL).Err(); err != nil {
				l.Debug("response cache write failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}

// NewCacheInvalidator drops every cached response of a route's scope after
// a successful write to it, so listings do not outlive the change by a TTL.
// Cached methods and failed requests leave the cache alone.
func NewCacheInvalidator(cfg config.CacheConfig, rdb *redis.Client, l *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if l == nil {
		l = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if cfg.Methods[c.Request().Method] || c.Response().Status >= http.StatusBadRequest {
				return nil
			}
			ctx := context.WithoutCancel(c.Request().Context())
			pattern := scopePattern(cfg, cacheScope(c.Path()))
			n, err := deleteMatching(ctx, rdb, pattern)
			if err != nil {
				l.Warn("response cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
				return nil
			}
			l.Debug("response cache invalidated", zap.String("pattern", pattern), zap.Int("keys", n))
			return nil
		}
	}
}

func deleteMatching(ctx context.Context, rdb *redis.Client, pattern string) (int, error) {
	var (
		cursor uint64
		n      int
	)
	for {
		keys, next, err := rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return n, err
		}
		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				return n, err
			}
			n += len(keys)
		}
		if next == 0 {
			return n, nil
		}
		cursor = next
	}
}
