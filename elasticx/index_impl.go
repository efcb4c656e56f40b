package elasticx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/clinia/searchx/errorx"
	"github.com/clinia/searchx/loggerx"
	"github.com/clinia/searchx/mappingx"
	"github.com/clinia/searchx/retryx"
	"github.com/clinia/searchx/tracex"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	indexComponentName = "elasticx.index"

	healthWaitInterval    = 100 * time.Millisecond
	healthWaitMaxInterval = 5 * time.Second
)

type index struct {
	name string
	c    *client
}

var _ Index = (*index)(nil)

func (i *index) instrument(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span, *loggerx.Logger) {
	opts = append(opts, trace.WithAttributes(attribute.String("elastic.index", i.name)))
	return tracex.Instrument(ctx, i.c.Logger, i.c.Tracer, indexComponentName, name, opts...)
}

func (i *index) Name() string {
	return i.name
}

func (i *index) Exists(ctx context.Context) (bool, error) {
	ctx, span, _ := i.instrument(ctx, "Exists")
	defer span.End()

	exists, err := i.exists(ctx)
	return exists, tracex.RecordError(span, err)
}

func (i *index) exists(ctx context.Context) (bool, error) {
	res, err := esapi.IndicesExistsRequest{
		Index: []string{i.name},
	}.Do(ctx, i.c.es)
	if err != nil {
		return false, transportFailure(err, "unable to check if index %q exists", i.name)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, transportFailure(newEngineError(res), "unable to check if index %q exists", i.name)
	}
}

func (i *index) Reconcile(ctx context.Context, settings map[string]any, mapping mappingx.IndexMapping) (ReconcileResult, error) {
	ctx, span, l := i.instrument(ctx, "Reconcile", trace.WithAttributes(attribute.String("elastic.type", mapping.TypeName())))
	defer span.End()

	result, err := i.reconcile(ctx, l, settings, mapping)
	if err != nil {
		return "", tracex.RecordError(span, err)
	}

	span.SetAttributes(attribute.String("elastic.reconcile.result", result.String()))
	return result, nil
}

func (i *index) reconcile(ctx context.Context, l *loggerx.Logger, settings map[string]any, mapping mappingx.IndexMapping) (ReconcileResult, error) {
	if err := mapping.Validate(); err != nil {
		return "", err
	}

	exists, err := i.exists(ctx)
	if err != nil {
		return "", err
	}

	var result ReconcileResult
	if !exists {
		if err := i.create(ctx, settings, mapping); err != nil {
			return "", err
		}
		l.Info(ctx, "index created", attribute.String("type", mapping.TypeName()))

		if err := i.c.waitForHealthy(ctx); err != nil {
			return "", err
		}
		result = ReconcileCreated
	} else {
		if err := i.putMapping(ctx, mapping); err != nil {
			return "", err
		}
		l.Info(ctx, "index mapping updated", attribute.String("type", mapping.TypeName()))
		result = ReconcileUpdated
	}

	if err := i.refresh(ctx); err != nil {
		return "", err
	}

	return result, nil
}

func (i *index) create(ctx context.Context, settings map[string]any, mapping mappingx.IndexMapping) error {
	body := map[string]any{"mappings": mapping.Document()}
	if len(settings) > 0 {
		body["settings"] = settings
	}

	res, err := esapi.IndicesCreateRequest{
		Index: i.name,
		Body:  esutil.NewJSONReader(body),
	}.Do(ctx, i.c.es)
	if err != nil {
		return transportFailure(err, "unable to create index %q", i.name)
	}
	defer res.Body.Close()

	if res.IsError() {
		engineErr := newEngineError(res)
		if engineErr.Type == ResourceAlreadyExistsException {
			return errorx.AlreadyExistsErrorf("index %q already exists", i.name).WithOriginalError(engineErr)
		}
		return transportFailure(engineErr, "unable to create index %q", i.name)
	}

	return nil
}

func (i *index) putMapping(ctx context.Context, mapping mappingx.IndexMapping) error {
	params := url.Values{}
	params.Set("ignore_conflicts", "false")

	res, err := request{
		Method: http.MethodPut,
		Path:   []string{i.name, "_mapping", mapping.TypeName()},
		Params: params,
		Body:   esutil.NewJSONReader(mapping.Document()),
	}.Do(ctx, i.c.es)
	if err != nil {
		return transportFailure(err, "unable to update the mapping of index %q", i.name)
	}
	defer res.Body.Close()

	if res.IsError() {
		engineErr := newEngineError(res)
		if engineErr.Type == IndexNotFoundException {
			return notFound(engineErr, "index %q does not exist", i.name)
		}
		return mappingUpdateRejected(engineErr, i.name, mapping.TypeName())
	}

	body, err := readBody(res)
	if err != nil {
		return transportFailure(err, "unable to read the mapping update response of index %q", i.name)
	}
	if !acknowledgedBody(body) {
		return mappingUpdateRejected(&EngineError{Status: res.StatusCode, Body: string(body)}, i.name, mapping.TypeName())
	}

	return nil
}

func mappingUpdateRejected(engineErr *EngineError, indexName, typeName string) error {
	return transportFailure(
		fmt.Errorf("%w: %w", ErrMappingUpdateRejected, engineErr),
		"the engine rejected the mapping of type %q in index %q", typeName, indexName,
	)
}

// waitForHealthy blocks until the cluster is healthy or ctx is done.
func (c *client) waitForHealthy(ctx context.Context) error {
	ctx, span, l := c.instrument(ctx, "WaitForHealthy")
	defer span.End()

	err := retryx.ExponentialRetryContext(ctx, func(ctx context.Context) error {
		h := c.Health(ctx)
		if !h.Healthy() {
			l.Debug(ctx, "waiting for the cluster to be healthy", attribute.String("health", h.String()))
			return errors.New(h.String())
		}
		return nil
	},
		retryx.WithoutRetryLimit(),
		retryx.WithMaxElapsedTime(-1),
		retryx.WithInterval(healthWaitInterval),
		retryx.WithMaxInterval(healthWaitMaxInterval),
	)
	if err != nil {
		return tracex.RecordError(span, errorx.UnavailableErrorf("cluster did not become healthy").WithOriginalError(err))
	}

	return nil
}

func (i *index) DropAndRecreate(ctx context.Context, settings map[string]any, mapping mappingx.IndexMapping) (ReconcileResult, error) {
	ctx, span, l := i.instrument(ctx, "DropAndRecreate")
	defer span.End()

	exists, err := i.exists(ctx)
	if err != nil {
		return "", tracex.RecordError(span, err)
	}

	if exists {
		if err := i.remove(ctx); err != nil {
			return "", tracex.RecordError(span, err)
		}
		l.Warn(ctx, "index dropped")
	}

	result, err := i.reconcile(ctx, l, settings, mapping)
	if err != nil {
		return "", tracex.RecordError(span, err)
	}

	return result, nil
}

func (i *index) Refresh(ctx context.Context) error {
	ctx, span, _ := i.instrument(ctx, "Refresh")
	defer span.End()

	return tracex.RecordError(span, i.refresh(ctx))
}

func (i *index) refresh(ctx context.Context) error {
	res, err := esapi.IndicesRefreshRequest{
		Index: []string{i.name},
	}.Do(ctx, i.c.es)
	if err != nil {
		return transportFailure(err, "unable to refresh index %q", i.name)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return notFound(newEngineError(res), "index %q does not exist", i.name)
	}
	if res.IsError() {
		return transportFailure(newEngineError(res), "unable to refresh index %q", i.name)
	}

	return nil
}

func (i *index) Remove(ctx context.Context) error {
	ctx, span, l := i.instrument(ctx, "Remove")
	defer span.End()

	if err := i.remove(ctx); err != nil {
		return tracex.RecordError(span, err)
	}

	l.Info(ctx, "index removed")
	return nil
}

func (i *index) remove(ctx context.Context) error {
	res, err := esapi.IndicesDeleteRequest{
		Index: []string{i.name},
	}.Do(ctx, i.c.es)
	if err != nil {
		return transportFailure(err, "unable to remove index %q", i.name)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return notFound(newEngineError(res), "index %q does not exist", i.name)
	}
	if res.IsError() {
		return transportFailure(newEngineError(res), "unable to remove index %q", i.name)
	}

	return nil
}

func (i *index) Documents(typeName string) IndexDocuments {
	return &documents{i: i, typeName: typeName}
}
