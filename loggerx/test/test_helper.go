package loggerxtest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/clinia/searchx/loggerx"
	"github.com/stretchr/testify/require"
)

func NewTestLogger(t testing.TB) *loggerx.Logger {
	t.Helper()
	return loggerx.NewNoop()
}

func NewTestLoggerWithJSONBuffer(t testing.TB) (*loggerx.Logger, *bytes.Buffer) {
	t.Helper()
	buf := new(bytes.Buffer)
	return loggerx.NewJSON(buf, slog.LevelDebug), buf
}

// DecodeJSONLines decodes every record written by a JSON buffer logger.
func DecodeJSONLines(t testing.TB, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	records := []map[string]any{}
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, sc.Err())
	return records
}
