package elasticx

import (
	"context"
	"testing"
	"time"

	"github.com/clinia/searchx/elasticx/elasticxtest"
	"github.com/clinia/searchx/mappingx"
	"github.com/stretchr/testify/require"
)

func newTestConfig(e *elasticxtest.Engine) Config {
	c := DefaultConfig()
	c.Host = e.Host()
	c.Port = e.Port()
	c.Health.ServerWait = 50 * time.Millisecond
	c.Health.Deadline = time.Second
	return c
}

func newTestClient(t *testing.T, e *elasticxtest.Engine, opts ...ClientOption) Client {
	t.Helper()
	return newTestClientWithConfig(t, newTestConfig(e), opts...)
}

func newTestClientWithConfig(t *testing.T, config Config, opts ...ClientOption) Client {
	t.Helper()

	c, err := Connect(context.Background(), config, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return c
}

func widgetMapping() mappingx.IndexMapping {
	return mappingx.DefineMapping("widget", nil, mappingx.Fields{
		"name": mappingx.ExactString(),
	})
}

// readableWidgetMapping keeps the source so documents can be read back.
func readableWidgetMapping() mappingx.IndexMapping {
	return mappingx.DefineMapping("widget", mappingx.Settings{
		"_source": map[string]any{"enabled": true},
	}, mappingx.Fields{
		"name":  mappingx.ExactString(),
		"count": mappingx.Integer(),
	})
}

type widget struct {
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
}
