package elasticx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/clinia/searchx/loggerx"
	"github.com/clinia/searchx/slogx"
	"github.com/elastic/elastic-transport-go/v8/elastictransport"
)

// roundTripLogger logs engine round trips. Headers carrying credentials are redacted.
type roundTripLogger struct {
	l *loggerx.Logger
}

var _ elastictransport.Logger = (*roundTripLogger)(nil)

func (r *roundTripLogger) LogRoundTrip(req *http.Request, res *http.Response, err error, start time.Time, dur time.Duration) error {
	level := slog.LevelDebug
	if err != nil || (res != nil && res.StatusCode >= http.StatusInternalServerError) {
		level = slog.LevelWarn
	}

	ctx := req.Context()
	r.l.Logger.LogAttrs(ctx, level, "elastic round trip", slogx.RoundTripAttrs(req, res, err, start, dur))
	return nil
}

func (r *roundTripLogger) RequestBodyEnabled() bool { return false }

func (r *roundTripLogger) ResponseBodyEnabled() bool { return false }
