package elasticx

import (
	"context"
	"net/http"
	"net/url"

	"github.com/clinia/searchx/loggerx"
	"github.com/clinia/searchx/otelx"
	"github.com/clinia/searchx/tracex"
	"github.com/elastic/elastic-transport-go/v8/elastictransport"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	instrumentationName = "github.com/clinia/searchx/elasticx"
	clientComponentName = "elasticx.client"
)

type client struct {
	config    Config
	es        *elastictransport.Client
	transport *pooledTransport
	metrics   *metrics
	health    singleflight.Group

	logger *loggerx.Logger
	tracer *otelx.Tracer
	meter  *otelx.Meter
}

var _ Client = (*client)(nil)

// Connect builds a pooled client bound to the configured endpoint and pings it once.
// Any failure is returned as a connection failure and is not retried.
func Connect(ctx context.Context, config Config, opts ...ClientOption) (Client, error) {
	c := &client{
		config: config,
		logger: loggerx.NewNoop(),
		tracer: otelx.NewNoopTracer(instrumentationName),
		meter:  otelx.NewNoopMeter(),
	}
	for _, opt := range opts {
		opt(c)
	}

	ctx, span, l := c.instrument(ctx, "Connect", trace.WithAttributes(attribute.String("elastic.address", config.Address())))
	defer span.End()

	if err := config.Validate(); err != nil {
		return nil, tracex.RecordError(span, connectionFailure(err, "invalid connection configuration"))
	}

	m, err := newMetrics(c.meter)
	if err != nil {
		return nil, tracex.RecordError(span, connectionFailure(err, "unable to register metrics"))
	}
	c.metrics = m

	u, err := url.Parse(config.Address())
	if err != nil {
		return nil, tracex.RecordError(span, connectionFailure(err, "invalid engine address %s", config.Address()))
	}

	c.transport = newPooledTransport(config)

	// The bare transport does not require the product header, which older engines never send.
	esConfig := elastictransport.Config{
		URLs:      []*url.URL{u},
		Username:  config.Username,
		Password:  config.Password,
		Transport: c.transport,
	}
	applyRetryPolicy(&esConfig, config)
	if config.LogRoundTrips {
		esConfig.Logger = &roundTripLogger{l: c.logger}
	}

	es, err := elastictransport.New(esConfig)
	if err != nil {
		c.Close()
		return nil, tracex.RecordError(span, connectionFailure(err, "unable to create a client for %s", config.Address()))
	}
	c.es = es

	res, err := esapi.PingRequest{}.Do(ctx, c.es)
	if err != nil {
		c.Close()
		l.WithError(err).Error(ctx, "unable to reach the engine")
		return nil, tracex.RecordError(span, connectionFailure(err, "unable to reach %s", config.Address()))
	}
	defer res.Body.Close()

	if res.IsError() {
		engineErr := newEngineError(res)
		c.Close()
		l.WithError(engineErr).Error(ctx, "the engine refused the connection")
		return nil, tracex.RecordError(span, connectionFailure(engineErr, "unable to connect to %s", config.Address()))
	}

	l.Info(ctx, "connected to the engine")

	return c, nil
}

func applyRetryPolicy(esConfig *elastictransport.Config, config Config) {
	p := config.RetryPolicy
	if p == nil || p.MaxRetries() <= 0 {
		esConfig.DisableRetry = true
		return
	}

	esConfig.MaxRetries = p.MaxRetries()
	esConfig.RetryOnStatus = p.RetryOnStatus()
	esConfig.RetryBackoff = p.Backoff
}

func (c *client) Logger() *loggerx.Logger {
	return c.logger
}

func (c *client) Tracer(_ context.Context) *otelx.Tracer {
	return c.tracer
}

func (c *client) instrument(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span, *loggerx.Logger) {
	return tracex.Instrument(ctx, c.Logger, c.Tracer, clientComponentName, name, opts...)
}

func (c *client) Index(name string) Index {
	return &index{name: name, c: c}
}

func (c *client) Close() {
	if c.es != nil {
		_ = c.es.Close(context.Background())
	}
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
}

type aliasAction struct {
	Index string `json:"index"`
	Alias string `json:"alias"`
}

type aliasActions struct {
	Actions []map[string]aliasAction `json:"actions"`
}

func (c *client) CreateAlias(ctx context.Context, index string, alias string) error {
	ctx, span, l := c.instrument(ctx, "CreateAlias", trace.WithAttributes(
		attribute.String("elastic.index", index),
		attribute.String("elastic.alias", alias),
	))
	defer span.End()

	err := c.updateAliases(ctx, aliasActions{Actions: []map[string]aliasAction{
		{"add": {Index: index, Alias: alias}},
	}})
	if err != nil {
		return tracex.RecordError(span, err)
	}

	l.Info(ctx, "alias created")
	return nil
}

func (c *client) SwapAlias(ctx context.Context, alias string, from string, to string) error {
	ctx, span, l := c.instrument(ctx, "SwapAlias", trace.WithAttributes(
		attribute.String("elastic.alias", alias),
		attribute.String("elastic.index.from", from),
		attribute.String("elastic.index.to", to),
	))
	defer span.End()

	err := c.updateAliases(ctx, aliasActions{Actions: []map[string]aliasAction{
		{"remove": {Index: from, Alias: alias}},
		{"add": {Index: to, Alias: alias}},
	}})
	if err != nil {
		return tracex.RecordError(span, err)
	}

	l.Info(ctx, "alias swapped")
	return nil
}

func (c *client) updateAliases(ctx context.Context, actions aliasActions) error {
	res, err := esapi.IndicesUpdateAliasesRequest{
		Body: esutil.NewJSONReader(actions),
	}.Do(ctx, c.es)
	if err != nil {
		return transportFailure(err, "unable to update aliases")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		engineErr := newEngineError(res)
		return notFound(engineErr, "alias target does not exist: %s", engineErr.Reason)
	}

	if res.IsError() {
		return transportFailure(newEngineError(res), "unable to update aliases")
	}

	if !acknowledged(res) {
		return transportFailure(nil, "alias update was not acknowledged")
	}

	return nil
}

// acknowledged reads the acknowledgement of an admin response.
func acknowledged(res *esapi.Response) bool {
	body, err := readBody(res)
	if err != nil {
		return false
	}
	return acknowledgedBody(body)
}

func acknowledgedBody(body []byte) bool {
	return gjson.GetBytes(body, "acknowledged").Bool()
}
