package elasticx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteResponse(t *testing.T) {
	decode := func(t *testing.T, raw string) writeResponse {
		t.Helper()
		var r writeResponse
		require.NoError(t, json.Unmarshal([]byte(raw), &r))
		return r
	}

	t.Run("should tell whether a document was deleted", func(t *testing.T) {
		for _, tc := range []struct {
			name    string
			body    string
			deleted bool
		}{
			{name: "result", body: `{"result":"deleted","_version":3}`, deleted: true},
			{name: "found without result", body: `{"found":true,"_version":3}`, deleted: true},
			{name: "not found without result", body: `{"found":false,"_version":1}`},
			{name: "not found result", body: `{"result":"not_found","found":false}`},
		} {
			t.Run(tc.name, func(t *testing.T) {
				assert.Equal(t, tc.deleted, decode(t, tc.body).deleted())
			})
		}
	})

	t.Run("should tell whether a document was created", func(t *testing.T) {
		for _, tc := range []struct {
			name   string
			body   string
			result result.Result
		}{
			{name: "created", body: `{"_id":"w1","_version":1,"created":true}`, result: result.Created},
			{name: "updated", body: `{"_id":"w1","_version":2,"created":false}`, result: result.Updated},
			{name: "result", body: `{"_id":"w1","_version":2,"result":"created"}`, result: result.Created},
		} {
			t.Run(tc.name, func(t *testing.T) {
				meta := decode(t, tc.body).saved()
				assert.Equal(t, tc.result, meta.Result)
				assert.Equal(t, "w1", meta.ID)
			})
		}
	})
}

func TestDeleteDocumentFoundResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"_index":"widgets","_type":"widget","_id":"w1","_version":3,"found":true}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	config := DefaultConfig()
	config.Host = u.Hostname()
	config.Port = port
	c := newTestClientWithConfig(t, config)

	assert.NoError(t, c.Index("widgets").Documents("widget").DeleteDocument(context.Background(), "w1"))
}
