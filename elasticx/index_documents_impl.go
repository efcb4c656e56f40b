package elasticx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/clinia/searchx/errorx"
	"github.com/clinia/searchx/loggerx"
	"github.com/clinia/searchx/tracex"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/refresh"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/result"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	documentsComponentName = "elasticx.documents"

	versionTypeExternal    = "external"
	versionTypeExternalGTE = "external_gte"
)

type documents struct {
	i        *index
	typeName string
}

var _ IndexDocuments = (*documents)(nil)

func (d *documents) instrument(ctx context.Context, name string, id string) (context.Context, trace.Span, *loggerx.Logger) {
	attrs := []attribute.KeyValue{
		attribute.String("elastic.index", d.i.name),
		attribute.String("elastic.type", d.typeName),
	}
	if id != "" {
		attrs = append(attrs, attribute.String("elastic.document.id", id))
	}
	return tracex.Instrument(ctx, d.i.c.Logger, d.i.c.Tracer, documentsComponentName, name, trace.WithAttributes(attrs...))
}

func (d *documents) path(elem ...string) []string {
	return append([]string{d.i.name, d.typeName}, elem...)
}

func (d *documents) SaveDocument(ctx context.Context, id string, document interface{}, version int64, opts ...DocumentOption) (*DocumentMeta, error) {
	ctx, span, l := d.instrument(ctx, "SaveDocument", id)
	defer span.End()
	span.SetAttributes(attribute.Int64("elastic.document.version", version))

	if id == "" {
		return nil, tracex.RecordError(span, errorx.InvalidArgumentErrorf("document id must not be empty"))
	}
	if version < 0 {
		return nil, tracex.RecordError(span, errorx.InvalidArgumentErrorf("document version must not be negative, got %d", version))
	}

	o := newDocumentOptions(opts...)

	params := url.Values{}
	params.Set("version", strconv.FormatInt(version, 10))
	params.Set("version_type", o.versionType)
	if o.ttl > 0 {
		params.Set("ttl", fmt.Sprintf("%dms", o.ttl.Milliseconds()))
	}
	if o.refresh.Name != "" {
		params.Set("refresh", o.refresh.String())
	}

	res, err := request{
		Method: http.MethodPut,
		Path:   d.path(id),
		Params: params,
		Body:   esutil.NewJSONReader(document),
	}.Do(ctx, d.i.c.es)
	if err != nil {
		return nil, tracex.RecordError(span, transportFailure(err, "unable to save document %q", id))
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusConflict {
		engineErr := newEngineError(res)
		d.i.c.metrics.conflict(ctx, d.i.name, d.typeName, o.ignoreConflict)

		if o.ignoreConflict {
			l.Warn(ctx, "ignoring version conflict",
				attribute.String("id", id),
				attribute.Int64("version", version),
				attribute.String("reason", engineErr.Reason),
			)
			return &DocumentMeta{ID: id, Index: d.i.name, Type: d.typeName, Result: ResultConflictIgnored}, nil
		}

		err := errorx.AbortedErrorf("version %d of document %q conflicts with the stored version", version, id).WithOriginalError(engineErr)
		return nil, tracex.RecordError(span, err)
	}

	if res.IsError() {
		engineErr := newEngineError(res)
		if engineErr.Type == IndexNotFoundException {
			return nil, tracex.RecordError(span, notFound(engineErr, "index %q does not exist", d.i.name))
		}
		return nil, tracex.RecordError(span, transportFailure(engineErr, "unable to save document %q", id))
	}

	var body writeResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, tracex.RecordError(span, transportFailure(err, "unable to decode the saved document %q", id))
	}
	meta := body.saved()
	d.i.c.metrics.write(ctx, d.i.name, d.typeName, meta.Result.String())

	return &meta, nil
}

func readParams(o *documentOptions) url.Values {
	params := url.Values{}
	if !o.realtime {
		params.Set("realtime", "false")
	}
	return params
}

func (d *documents) ReadDocument(ctx context.Context, id string, out interface{}, opts ...DocumentOption) (*DocumentMeta, error) {
	ctx, span, _ := d.instrument(ctx, "ReadDocument", id)
	defer span.End()

	res, err := request{
		Method: http.MethodGet,
		Path:   d.path(id),
		Params: readParams(newDocumentOptions(opts...)),
	}.Do(ctx, d.i.c.es)
	if err != nil {
		return nil, tracex.RecordError(span, transportFailure(err, "unable to read document %q", id))
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, tracex.RecordError(span, notFound(newEngineError(res), "document %q does not exist", id))
	}
	if res.IsError() {
		return nil, tracex.RecordError(span, transportFailure(newEngineError(res), "unable to read document %q", id))
	}

	var body getResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, tracex.RecordError(span, transportFailure(err, "unable to decode document %q", id))
	}
	if !body.Found {
		return nil, tracex.RecordError(span, errorx.NotFoundErrorf("document %q does not exist", id))
	}

	if out != nil && len(body.Source) > 0 {
		if err := json.Unmarshal(body.Source, out); err != nil {
			return nil, tracex.RecordError(span, errorx.InvalidArgumentErrorf("unable to decode document %q into %T", id, out).WithOriginalError(err))
		}
	}

	return &DocumentMeta{
		ID:      body.ID,
		Index:   body.Index,
		Type:    body.Type,
		Version: body.Version,
	}, nil
}

func (d *documents) DocumentExists(ctx context.Context, id string, opts ...DocumentOption) (bool, error) {
	ctx, span, _ := d.instrument(ctx, "DocumentExists", id)
	defer span.End()

	res, err := request{
		Method: http.MethodHead,
		Path:   d.path(id),
		Params: readParams(newDocumentOptions(opts...)),
	}.Do(ctx, d.i.c.es)
	if err != nil {
		return false, tracex.RecordError(span, transportFailure(err, "unable to check if document %q exists", id))
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, tracex.RecordError(span, transportFailure(newEngineError(res), "unable to check if document %q exists", id))
	}
}

func (d *documents) DeleteDocument(ctx context.Context, id string, opts ...DocumentOption) error {
	ctx, span, _ := d.instrument(ctx, "DeleteDocument", id)
	defer span.End()

	o := newDocumentOptions(opts...)

	params := url.Values{}
	if o.refresh.Name != "" {
		params.Set("refresh", o.refresh.String())
	}

	res, err := request{
		Method: http.MethodDelete,
		Path:   d.path(id),
		Params: params,
	}.Do(ctx, d.i.c.es)
	if err != nil {
		return tracex.RecordError(span, transportFailure(err, "unable to delete document %q", id))
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return tracex.RecordError(span, notFound(newEngineError(res), "document with id '%s' does not exist", id))
	}
	if res.IsError() {
		return tracex.RecordError(span, transportFailure(newEngineError(res), "unable to delete document %q", id))
	}

	var body writeResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return tracex.RecordError(span, transportFailure(err, "unable to decode the deletion of document %q", id))
	}
	if !body.deleted() {
		return tracex.RecordError(span, errorx.NotFoundErrorf("document with id '%s' does not exist", id))
	}
	d.i.c.metrics.write(ctx, d.i.name, d.typeName, result.Deleted.String())

	return nil
}

type deleteByQueryRequest struct {
	Query interface{} `json:"query"`
}

// DeleteByQuery matches the documents visible at the last refresh. The endpoint takes
// no refresh parameter, so WithRefresh refreshes the index once the deletion is done.
func (d *documents) DeleteByQuery(ctx context.Context, query interface{}, opts ...DocumentOption) (*DeleteByQueryResponse, error) {
	ctx, span, l := d.instrument(ctx, "DeleteByQuery", "")
	defer span.End()

	o := newDocumentOptions(opts...)

	res, err := request{
		Method: http.MethodDelete,
		Path:   d.path("_query"),
		Body:   esutil.NewJSONReader(deleteByQueryRequest{Query: query}),
	}.Do(ctx, d.i.c.es)
	if err != nil {
		return nil, tracex.RecordError(span, transportFailure(err, "unable to delete documents by query"))
	}
	defer res.Body.Close()

	if res.IsError() {
		engineErr := newEngineError(res)
		if engineErr.Type == IndexNotFoundException {
			return nil, tracex.RecordError(span, notFound(engineErr, "index %q does not exist", d.i.name))
		}
		return nil, tracex.RecordError(span, transportFailure(engineErr, "unable to delete documents by query"))
	}

	var out DeleteByQueryResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, tracex.RecordError(span, transportFailure(err, "unable to decode the delete by query response"))
	}

	if failed := out.FailedShards(); failed > 0 {
		span.SetAttributes(attribute.Int("elastic.shards.failed", failed))
		l.Warn(ctx, "delete by query failed on some shards", attribute.Int("failed_shards", failed))
	}

	if o.refresh.Name != "" && o.refresh != refresh.False {
		if err := d.i.refresh(ctx); err != nil {
			return nil, tracex.RecordError(span, err)
		}
	}

	return &out, nil
}
