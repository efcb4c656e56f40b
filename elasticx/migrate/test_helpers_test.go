package migrate

import (
	"context"
	"testing"
	"time"

	"github.com/clinia/searchx/elasticx"
	"github.com/clinia/searchx/elasticx/elasticxtest"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	ctx    context.Context
	engine *elasticxtest.Engine
	client elasticx.Client
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	ctx := context.Background()
	engine := elasticxtest.NewEngine(t)

	config := elasticx.DefaultConfig()
	config.Host = engine.Host()
	config.Port = engine.Port()
	config.Health.ServerWait = 50 * time.Millisecond
	config.Health.Deadline = time.Second

	client, err := elasticx.Connect(ctx, config)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return &testFixture{
		ctx:    ctx,
		engine: engine,
		client: client,
	}
}

// recorder keeps the order in which migration steps ran.
type recorder struct {
	steps []string
}

func (r *recorder) step(name string) MigrationFunc {
	return func(context.Context, elasticx.Client) error {
		r.steps = append(r.steps, name)
		return nil
	}
}
