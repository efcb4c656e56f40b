package elasticx

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/clinia/searchx/elasticx/elasticxtest"
	"github.com/clinia/searchx/errorx"
	"github.com/clinia/searchx/otelx"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/refresh"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type documentsTestSuite struct {
	suite.Suite

	ctx    context.Context
	engine *elasticxtest.Engine
	client Client
	docs   IndexDocuments
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
}

var _ suite.SetupTestSuite = (*documentsTestSuite)(nil)

func TestDocumentsTestSuite(t *testing.T) {
	suite.Run(t, new(documentsTestSuite))
}

func (ts *documentsTestSuite) SetupTest() {
	ts.ctx = context.Background()
	ts.engine = elasticxtest.NewEngine(ts.T())
	ts.spans = tracetest.NewSpanRecorder()
	ts.reader = sdkmetric.NewManualReader()

	ts.client = newTestClient(ts.T(), ts.engine,
		WithTracer(otelx.NewTracer("test", sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(ts.spans)))),
		WithMeter(otelx.NewMeter("test", sdkmetric.NewMeterProvider(sdkmetric.WithReader(ts.reader)))),
	)

	idx := ts.client.Index("widgets")
	_, err := idx.Reconcile(ts.ctx, nil, readableWidgetMapping())
	ts.Require().NoError(err)
	ts.docs = idx.Documents("widget")
	ts.engine.ResetRequests()
}

func (ts *documentsTestSuite) storedVersion(id string) int64 {
	doc, ok := ts.engine.Document("widgets", "widget", id)
	ts.Require().True(ok)
	return doc.Version
}

func (ts *documentsTestSuite) TestSaveDocumentVersions() {
	ts.Run("should create a document with the given version", func() {
		meta, err := ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "sprocket"}, 5)
		ts.Require().NoError(err)
		ts.Equal("w1", meta.ID)
		ts.Equal("widgets", meta.Index)
		ts.Equal(int64(5), meta.Version)
		ts.Equal(result.Created, meta.Result)
		ts.Equal(int64(5), ts.storedVersion("w1"))
	})

	ts.Run("should reject the same version when strict", func() {
		_, err := ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "cog"}, 5, WithStrictVersion())
		ts.Require().Error(err)
		ts.True(IsWriteConflict(err))

		doc, ok := ts.engine.Document("widgets", "widget", "w1")
		ts.Require().True(ok)
		ts.JSONEq(`{"name":"sprocket"}`, string(doc.Source))
	})

	ts.Run("should leave the document when strict and ignoring conflicts", func() {
		meta, err := ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "cog"}, 5, WithStrictVersion(), WithIgnoreConflict())
		ts.Require().NoError(err)
		ts.Equal(ResultConflictIgnored, meta.Result)

		doc, ok := ts.engine.Document("widgets", "widget", "w1")
		ts.Require().True(ok)
		ts.Equal(int64(5), doc.Version)
		ts.JSONEq(`{"name":"sprocket"}`, string(doc.Source))
	})

	ts.Run("should accept the same version by default", func() {
		meta, err := ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "sprocket", Count: 2}, 5)
		ts.Require().NoError(err)
		ts.Equal(result.Updated, meta.Result)
		ts.Equal(int64(5), meta.Version)
	})

	ts.Run("should reject a lower version", func() {
		_, err := ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "cog"}, 4)
		ts.Require().Error(err)
		ts.True(IsWriteConflict(err))
		ts.True(errorx.IsAbortedError(err))

		engineErr, ok := AsEngineError(err)
		ts.Require().True(ok)
		ts.Equal(http.StatusConflict, engineErr.Status)
		ts.Equal(VersionConflictEngineException, engineErr.Type)

		ts.Equal(int64(5), ts.storedVersion("w1"))
	})

	ts.Run("should ignore a lower version when asked to", func() {
		meta, err := ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "cog"}, 4, WithIgnoreConflict())
		ts.Require().NoError(err)
		ts.Equal(ResultConflictIgnored, meta.Result)
		ts.Equal(int64(0), meta.Version)
		ts.Equal("w1", meta.ID)

		doc, ok := ts.engine.Document("widgets", "widget", "w1")
		ts.Require().True(ok)
		ts.Equal(int64(5), doc.Version)
		ts.JSONEq(`{"name":"sprocket","count":2}`, string(doc.Source))
	})

	ts.Run("should accept a higher version", func() {
		meta, err := ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "cog"}, 7, WithIgnoreConflict())
		ts.Require().NoError(err)
		ts.Equal(result.Updated, meta.Result)
		ts.Equal(int64(7), meta.Version)
	})
}

func (ts *documentsTestSuite) TestSaveDocumentParameters() {
	ts.Run("should send an external_gte version without refresh", func() {
		_, err := ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "sprocket"}, 3)
		ts.Require().NoError(err)

		reqs := ts.engine.Requests()
		ts.Require().Len(reqs, 1)
		ts.Equal("PUT /widgets/widget/w1", reqs[0].String())
		ts.Equal("3", reqs[0].Query.Get("version"))
		ts.Equal("external_gte", reqs[0].Query.Get("version_type"))
		ts.False(reqs[0].Query.Has("refresh"))
		ts.False(reqs[0].Query.Has("ttl"))
		ts.JSONEq(`{"name":"sprocket"}`, string(reqs[0].Body))
	})

	ts.Run("should send an external version when strict", func() {
		ts.engine.ResetRequests()

		_, err := ts.docs.SaveDocument(ts.ctx, "w3", widget{Name: "sprocket"}, 1, WithStrictVersion())
		ts.Require().NoError(err)

		reqs := ts.engine.Requests()
		ts.Require().Len(reqs, 1)
		ts.Equal("external", reqs[0].Query.Get("version_type"))
	})

	ts.Run("should send the time to live and the refresh policy", func() {
		ts.engine.ResetRequests()

		_, err := ts.docs.SaveDocument(ts.ctx, "w2", widget{Name: "sprocket"}, 1,
			WithTTL(time.Minute),
			WithRefresh(refresh.True),
		)
		ts.Require().NoError(err)

		reqs := ts.engine.Requests()
		ts.Require().Len(reqs, 1)
		ts.Equal("60000ms", reqs[0].Query.Get("ttl"))
		ts.Equal("true", reqs[0].Query.Get("refresh"))

		doc, ok := ts.engine.Document("widgets", "widget", "w2")
		ts.Require().True(ok)
		ts.Equal("60000ms", doc.TTL)
	})
}

func (ts *documentsTestSuite) TestSaveDocumentFailures() {
	ts.Run("should refuse an empty id", func() {
		_, err := ts.docs.SaveDocument(ts.ctx, "", widget{Name: "sprocket"}, 1)
		ts.Require().Error(err)
		ts.True(errorx.IsInvalidArgumentError(err))
	})

	ts.Run("should refuse a negative version", func() {
		_, err := ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "sprocket"}, -1)
		ts.Require().Error(err)
		ts.True(errorx.IsInvalidArgumentError(err))
	})

	ts.Empty(ts.engine.Requests())

	ts.Run("should report fields outside the strict mapping", func() {
		_, err := ts.docs.SaveDocument(ts.ctx, "w1", map[string]any{"name": "sprocket", "color": "red"}, 1)
		ts.Require().Error(err)
		ts.True(IsTransportFailure(err))
		ts.False(IsWriteConflict(err))

		engineErr, ok := AsEngineError(err)
		ts.Require().True(ok)
		ts.Equal(StrictDynamicMappingException, engineErr.Type)
	})

	ts.Run("should report a missing index", func() {
		_, err := ts.client.Index("gizmos").Documents("gizmo").SaveDocument(ts.ctx, "g1", widget{Name: "sprocket"}, 1)
		ts.Require().Error(err)
		ts.True(errorx.IsNotFoundError(err))
	})

	ts.Run("should report an engine failure", func() {
		ts.engine.FailNext(http.MethodPut, "/widgets/widget/w1", http.StatusInternalServerError, "ElasticsearchException", "disk full")

		_, err := ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "sprocket"}, 1)
		ts.Require().Error(err)
		ts.True(IsTransportFailure(err))
		ts.Contains(err.Error(), "disk full")

		_, ok := ts.engine.Document("widgets", "widget", "w1")
		ts.False(ok)
	})
}

func (ts *documentsTestSuite) TestReadDocument() {
	_, err := ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "sprocket", Count: 3}, 2)
	ts.Require().NoError(err)

	ts.Run("should read the source and the version", func() {
		var w widget
		meta, err := ts.docs.ReadDocument(ts.ctx, "w1", &w)
		ts.Require().NoError(err)
		ts.Equal(widget{Name: "sprocket", Count: 3}, w)
		ts.Equal(int64(2), meta.Version)
		ts.Equal("w1", meta.ID)
	})

	ts.Run("should report a missing document", func() {
		var w widget
		_, err := ts.docs.ReadDocument(ts.ctx, "w2", &w)
		ts.Require().Error(err)
		ts.True(errorx.IsNotFoundError(err))
	})

	ts.Run("should only return metadata when the source is disabled", func() {
		idx := ts.client.Index("secrets")
		_, err := idx.Reconcile(ts.ctx, nil, widgetMapping())
		ts.Require().NoError(err)
		docs := idx.Documents("widget")

		_, err = docs.SaveDocument(ts.ctx, "s1", widget{Name: "hidden"}, 9)
		ts.Require().NoError(err)

		var w widget
		meta, err := docs.ReadDocument(ts.ctx, "s1", &w)
		ts.Require().NoError(err)
		ts.Equal(int64(9), meta.Version)
		ts.Zero(w)
	})
}

func (ts *documentsTestSuite) TestDocumentExists() {
	exists, err := ts.docs.DocumentExists(ts.ctx, "w1")
	ts.Require().NoError(err)
	ts.False(exists)

	_, err = ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "sprocket"}, 1)
	ts.Require().NoError(err)

	exists, err = ts.docs.DocumentExists(ts.ctx, "w1")
	ts.Require().NoError(err)
	ts.True(exists)
}

func (ts *documentsTestSuite) TestDeleteDocument() {
	_, err := ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "sprocket"}, 1)
	ts.Require().NoError(err)

	ts.Run("should delete an existing document", func() {
		ts.Require().NoError(ts.docs.DeleteDocument(ts.ctx, "w1", WithRefresh(refresh.True)))

		_, ok := ts.engine.Document("widgets", "widget", "w1")
		ts.False(ok)

		reqs := ts.engine.Requests()
		last := reqs[len(reqs)-1]
		ts.Equal("DELETE /widgets/widget/w1", last.String())
		ts.Equal("true", last.Query.Get("refresh"))
	})

	ts.Run("should report a missing document", func() {
		err := ts.docs.DeleteDocument(ts.ctx, "w1")
		ts.Require().Error(err)
		ts.True(errorx.IsNotFoundError(err))
		ts.Contains(err.Error(), "document with id 'w1' does not exist")
	})
}

func (ts *documentsTestSuite) TestRefreshVisibility() {
	lastRefresh := WithRealtime(false)

	ts.Run("should not show a save until a refresh", func() {
		_, err := ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "sprocket"}, 1)
		ts.Require().NoError(err)

		var w widget
		_, err = ts.docs.ReadDocument(ts.ctx, "w1", &w, lastRefresh)
		ts.True(errorx.IsNotFoundError(err))

		exists, err := ts.docs.DocumentExists(ts.ctx, "w1")
		ts.Require().NoError(err)
		ts.True(exists)

		ts.Require().NoError(ts.client.Index("widgets").Refresh(ts.ctx))
		_, err = ts.docs.ReadDocument(ts.ctx, "w1", &w, lastRefresh)
		ts.Require().NoError(err)
		ts.Equal("sprocket", w.Name)

		reqs := ts.engine.Requests()
		last := reqs[len(reqs)-1]
		ts.Equal("GET /widgets/widget/w1", last.String())
		ts.Equal("false", last.Query.Get("realtime"))
	})

	ts.Run("should show a deletion made with a refresh at once", func() {
		ts.Require().NoError(ts.docs.DeleteDocument(ts.ctx, "w1", WithRefresh(refresh.True)))

		var w widget
		_, err := ts.docs.ReadDocument(ts.ctx, "w1", &w, lastRefresh)
		ts.Require().Error(err)
		ts.True(errorx.IsNotFoundError(err))

		exists, err := ts.docs.DocumentExists(ts.ctx, "w1", lastRefresh)
		ts.Require().NoError(err)
		ts.False(exists)
	})

	ts.Run("should show a deletion without a refresh only to realtime reads", func() {
		_, err := ts.docs.SaveDocument(ts.ctx, "w2", widget{Name: "cog"}, 1, WithRefresh(refresh.True))
		ts.Require().NoError(err)
		ts.Require().NoError(ts.docs.DeleteDocument(ts.ctx, "w2"))

		var w widget
		_, err = ts.docs.ReadDocument(ts.ctx, "w2", &w)
		ts.True(errorx.IsNotFoundError(err))

		_, err = ts.docs.ReadDocument(ts.ctx, "w2", &w, lastRefresh)
		ts.Require().NoError(err)
		ts.Equal("cog", w.Name)

		ts.Require().NoError(ts.client.Index("widgets").Refresh(ts.ctx))
		_, err = ts.docs.ReadDocument(ts.ctx, "w2", &w, lastRefresh)
		ts.True(errorx.IsNotFoundError(err))
	})
}

func (ts *documentsTestSuite) TestDeleteByQuery() {
	for id, name := range map[string]string{"w1": "sprocket", "w2": "sprocket", "w3": "cog"} {
		_, err := ts.docs.SaveDocument(ts.ctx, id, widget{Name: name}, 1)
		ts.Require().NoError(err)
	}
	ts.Require().NoError(ts.client.Index("widgets").Refresh(ts.ctx))
	ts.engine.ResetRequests()

	ts.Run("should delete the matching documents", func() {
		res, err := ts.docs.DeleteByQuery(ts.ctx, map[string]any{"term": map[string]any{"name": "sprocket"}})
		ts.Require().NoError(err)
		ts.Zero(res.FailedShards())
		ts.Equal(1, res.Indices["widgets"].Shards.Successful)

		reqs := ts.engine.Requests()
		ts.Require().Len(reqs, 1)
		ts.Equal("DELETE /widgets/widget/_query", reqs[0].String())
		ts.JSONEq(`{"query":{"term":{"name":"sprocket"}}}`, string(reqs[0].Body))

		for id, kept := range map[string]bool{"w1": false, "w2": false, "w3": true} {
			_, ok := ts.engine.Document("widgets", "widget", id)
			ts.Equal(kept, ok, id)
		}
	})

	ts.Run("should only match refreshed documents", func() {
		_, err := ts.docs.SaveDocument(ts.ctx, "w4", widget{Name: "cog"}, 1)
		ts.Require().NoError(err)
		ts.engine.ResetRequests()

		_, err = ts.docs.DeleteByQuery(ts.ctx, map[string]any{"term": map[string]any{"name": "cog"}}, WithRefresh(refresh.True))
		ts.Require().NoError(err)

		_, ok := ts.engine.Document("widgets", "widget", "w3")
		ts.False(ok)
		_, ok = ts.engine.Document("widgets", "widget", "w4")
		ts.True(ok)

		ts.Equal([]string{"DELETE /widgets/widget/_query", "POST /widgets/_refresh"}, ts.engine.RequestLines())
	})

	ts.Run("should refuse an unknown query", func() {
		_, err := ts.docs.DeleteByQuery(ts.ctx, map[string]any{"fuzzy": map[string]any{"name": "cog"}})
		ts.Require().Error(err)
		ts.True(IsTransportFailure(err))
	})

	ts.Run("should report a missing index", func() {
		_, err := ts.client.Index("gizmos").Documents("gizmo").DeleteByQuery(ts.ctx, map[string]any{"match_all": map[string]any{}})
		ts.Require().Error(err)
		ts.True(errorx.IsNotFoundError(err))
	})
}

func (ts *documentsTestSuite) TestMetrics() {
	_, err := ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "sprocket"}, 2)
	ts.Require().NoError(err)
	_, err = ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "sprocket"}, 1)
	ts.Require().Error(err)
	_, err = ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "sprocket"}, 1, WithIgnoreConflict())
	ts.Require().NoError(err)
	ts.Require().NoError(ts.docs.DeleteDocument(ts.ctx, "w1"))

	var rm metricdata.ResourceMetrics
	ts.Require().NoError(ts.reader.Collect(ts.ctx, &rm))

	writes := ts.sumByAttribute(rm, documentWritesMetric, "elastic.result")
	ts.Equal(map[string]int64{"created": 1, "deleted": 1}, writes)

	conflicts := ts.sumByAttribute(rm, documentConflictsMetric, "elastic.conflict.ignored")
	ts.Equal(map[string]int64{"false": 1, "true": 1}, conflicts)
}

func (ts *documentsTestSuite) sumByAttribute(rm metricdata.ResourceMetrics, name string, key attribute.Key) map[string]int64 {
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			ts.Require().True(ok)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(key)
				out[v.Emit()] += dp.Value
			}
		}
	}
	return out
}

func (ts *documentsTestSuite) TestSpans() {
	_, err := ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "sprocket"}, 2)
	ts.Require().NoError(err)
	_, err = ts.docs.SaveDocument(ts.ctx, "w1", widget{Name: "sprocket"}, 1)
	ts.Require().Error(err)

	var saves []sdktrace.ReadOnlySpan
	for _, s := range ts.spans.Ended() {
		if s.Name() == "elasticx.documents.SaveDocument" {
			saves = append(saves, s)
		}
	}
	ts.Require().Len(saves, 2)
	ts.Empty(saves[0].Events())
	ts.Len(saves[1].Events(), 1)
	ts.Contains(saves[1].Attributes(), attribute.String("elastic.document.id", "w1"))
	ts.Contains(saves[1].Attributes(), attribute.Int64("elastic.document.version", 1))
}

// TestWidgetsScenario walks a document through its whole life on a fresh index.
func TestWidgetsScenario(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []DocumentOption
		// sameVersionErr reports whether saving {name:bar} again at version 1 fails.
		sameVersionErr bool
	}{
		{name: "greater or equal versions"},
		{name: "strictly greater versions", opts: []DocumentOption{WithStrictVersion()}, sameVersionErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			e := elasticxtest.NewEngine(t)
			e.SetStatus("yellow")
			c := newTestClient(t, e)

			assert.True(t, c.Health(ctx).Healthy())

			idx := c.Index("widgets")
			res, err := idx.Reconcile(ctx, nil, readableWidgetMapping())
			require.NoError(t, err)
			assert.Equal(t, ReconcileCreated, res)

			docs := idx.Documents("widget")
			meta, err := docs.SaveDocument(ctx, "w1", widget{Name: "foo"}, 1, tc.opts...)
			require.NoError(t, err)
			assert.Equal(t, result.Created, meta.Result)

			meta, err = docs.SaveDocument(ctx, "w1", widget{Name: "bar"}, 1, tc.opts...)
			if tc.sameVersionErr {
				assert.True(t, IsWriteConflict(err))
				doc, ok := e.Document("widgets", "widget", "w1")
				require.True(t, ok)
				assert.JSONEq(t, `{"name":"foo"}`, string(doc.Source))
			} else {
				require.NoError(t, err)
				assert.Equal(t, result.Updated, meta.Result)
				assert.Equal(t, int64(1), meta.Version)
			}

			meta, err = docs.SaveDocument(ctx, "w1", widget{Name: "bar"}, 2, tc.opts...)
			require.NoError(t, err)
			assert.Equal(t, result.Updated, meta.Result)

			_, err = docs.SaveDocument(ctx, "w1", widget{Name: "stale"}, 1, tc.opts...)
			assert.True(t, IsWriteConflict(err))

			var w widget
			meta, err = docs.ReadDocument(ctx, "w1", &w)
			require.NoError(t, err)
			assert.Equal(t, widget{Name: "bar"}, w)
			assert.Equal(t, int64(2), meta.Version)

			require.NoError(t, docs.DeleteDocument(ctx, "w1", WithRefresh(refresh.True)))
			_, err = docs.ReadDocument(ctx, "w1", &w, WithRealtime(false))
			assert.True(t, errorx.IsNotFoundError(err))
			exists, err := docs.DocumentExists(ctx, "w1")
			require.NoError(t, err)
			assert.False(t, exists)

			require.NoError(t, idx.Remove(ctx))
			assert.False(t, e.IndexExists("widgets"))
		})
	}
}
