package core

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const requestLogMessage = "http_request"

var logType = slog.String("type", "request")

// cutStr limits string length by adding ellipsis if needed
func cutStr(str string, max int) string {
	if max > 0 && len(str) > max {
		return str[:max] + "..."
	}
	return str
}

// RequestLog logs one line per request when log.request.activated is set.
// String attributes are cut to the configured limits.
func (a *App) RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		cfg := a.Config().Log.Request
		if !cfg.Activated {
			next.ServeHTTP(w, req)
			return
		}

		start := time.Now()
		rec := newResponseRecorder(w)
		next.ServeHTTP(rec, req)
		duration := time.Since(start)

		limits := cfg.Limits
		a.Logger().Info(requestLogMessage,
			logType,
			slog.String("method", strings.ToUpper(req.Method)),
			slog.String("uri", cutStr(req.URL.RequestURI(), limits.URILength)),
			slog.Int("status", rec.status),
			slog.String("duration", duration.String()),
			slog.String("remote_ip", cutStr(a.clientIP(req), limits.RemoteIPLength)),
			slog.String("user_agent", cutStr(req.UserAgent(), limits.UserAgentLength)),
			slog.String("referer", cutStr(req.Referer(), limits.RefererLength)),
			slog.String("proto", req.Proto),
			slog.Int64("content_length", req.ContentLength),
			slog.Int64("bytes_written", rec.bytesWritten),
		)
	})
}
