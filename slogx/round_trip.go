package slogx

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const redactionText = "**[REDACTED]**"

// sensitiveHeaders are never written to the logs.
var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
}

func RedactHeaders(headers http.Header) slog.Attr {
	headerMap := make(map[string][]string, len(headers))
	for key, values := range headers {
		if sensitiveHeaders[strings.ToLower(key)] {
			headerMap[key] = []string{redactionText}
		} else {
			headerMap[key] = values
		}
	}

	return slog.Any("headers", headerMap)
}

// RoundTripAttrs describes an outgoing HTTP call as a single "http_round_trip" group.
// The query string is kept since it carries versioning parameters, not credentials.
func RoundTripAttrs(req *http.Request, res *http.Response, err error, start time.Time, dur time.Duration) slog.Attr {
	attrs := []slog.Attr{
		slog.String("method", req.Method),
		slog.String("path", req.URL.EscapedPath()),
		slog.Time("start", start),
		slog.Duration("duration", dur),
		RedactHeaders(req.Header),
	}

	if len(req.URL.RawQuery) > 0 {
		attrs = append(attrs, slog.String("query", req.URL.RawQuery))
	}

	if res != nil {
		attrs = append(attrs, slog.Int("status", res.StatusCode))
	}

	if err != nil {
		attrs = append(attrs, ErrorAttr(err))
	}

	return slog.GroupAttrs("http_round_trip", attrs...)
}
