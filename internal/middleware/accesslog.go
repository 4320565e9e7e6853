package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var sensitiveKeys = map[string]struct{}{
	"password": {}, "token": {}, "refresh_token": {}, "refreshtoken": {},
	"authorization": {}, "secret": {}, "access_token": {},
}

func maskQuery(kv map[string][]string) map[string][]string {
	out := make(map[string][]string, len(kv))
	for k, v := range kv {
		if _, ok := sensitiveKeys[strings.ToLower(k)]; ok {
			out[k] = []string{"****"}
			continue
		}
		out[k] = v
	}
	return out
}

// AccessLog writes one structured line per request.  It runs after the
// error handler so the logged status is the one the client saw.
func AccessLog(l *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req, res := c.Request(), c.Response()
			fields := []zap.Field{
				zap.String("rid", res.Header().Get(echo.HeaderXRequestID)),
				zap.String("method", req.Method),
				zap.String("path", c.Path()),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
				zap.Any("query", maskQuery(req.URL.Query())),
				zap.Int64("size", res.Size),
			}
			if uid := UserID(c); uid != "" {
				fields = append(fields, zap.String("user", uid))
			}
			switch {
			case res.Status >= 500:
				l.Error("http", fields...)
			case res.Status >= 400:
				l.Warn("http", fields...)
			default:
				l.Info("http", fields...)
			}
			return nil
		}
	}
}
