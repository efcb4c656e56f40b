package elasticx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/clinia/searchx/timerx"
	"github.com/clinia/searchx/tracex"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/healthstatus"
	"go.opentelemetry.io/otel/attribute"
)

const healthCheckKey = "cluster_health"

// StatusInaccessible is the status of a cluster whose health could not be read.
var StatusInaccessible = healthstatus.HealthStatus{Name: "inaccessible"}

// Health is the outcome of a cluster health check.
type Health struct {
	ClusterName string                    `json:"cluster_name,omitempty"`
	Status      healthstatus.HealthStatus `json:"status"`
	// Problem describes why the cluster is unhealthy.
	Problem string `json:"problem,omitempty"`
	// TimedOut is set when the client side deadline elapsed.
	TimedOut bool `json:"timed_out,omitempty"`
}

// Inaccessible returns an unhealthy record carrying the problem.
func Inaccessible(problem string) Health {
	return Health{Status: StatusInaccessible, Problem: problem}
}

// Healthy reports whether the cluster is green or yellow.
func (h Health) Healthy() bool {
	return h.Problem == "" && (h.Status == healthstatus.Green || h.Status == healthstatus.Yellow)
}

func (h Health) String() string {
	if h.Problem == "" {
		return h.Status.String()
	}
	return fmt.Sprintf("%s: %s", h.Status, h.Problem)
}

type clusterHealthResponse struct {
	ClusterName string                    `json:"cluster_name"`
	Status      healthstatus.HealthStatus `json:"status"`
	TimedOut    bool                      `json:"timed_out"`
}

func (c *client) CheckHealth(ctx context.Context) Health {
	ctx, span, l := c.instrument(ctx, "CheckHealth")
	defer span.End()

	h := c.checkHealth(ctx)
	span.SetAttributes(attribute.String("elastic.health.status", h.Status.String()))
	if !h.Healthy() {
		l.Warn(ctx, "cluster is unhealthy", attribute.String("status", h.Status.String()), attribute.String("problem", h.Problem))
	}

	return h
}

func (c *client) checkHealth(ctx context.Context) Health {
	res, err := esapi.ClusterHealthRequest{
		WaitForStatus: healthstatus.Yellow.String(),
		Timeout:       c.config.Health.ServerWait,
	}.Do(ctx, c.es)
	if err != nil {
		return Inaccessible(fmt.Sprintf("unable to request cluster health: %s", err))
	}
	defer res.Body.Close()

	// The engine answers 408 when the cluster did not reach the awaited status in time.
	if res.IsError() && res.StatusCode != http.StatusRequestTimeout {
		return Inaccessible(fmt.Sprintf("cluster health request failed: %s", newEngineError(res)))
	}

	var body clusterHealthResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return Inaccessible(fmt.Sprintf("unable to decode cluster health: %s", err))
	}

	h := Health{ClusterName: body.ClusterName, Status: body.Status}
	switch h.Status {
	case healthstatus.Green, healthstatus.Yellow:
	default:
		h.Problem = fmt.Sprintf("cluster status is %s", h.Status)
	}

	return h
}

func (c *client) Health(ctx context.Context) Health {
	ctx, span, l := c.instrument(ctx, "Health")
	defer span.End()

	// The check is not cancelled when the deadline elapses: it completes or fails on its own.
	// Until then later calls wait on it instead of starting another one.
	checkCtx := context.WithoutCancel(ctx)
	results := c.health.DoChan(healthCheckKey, func() (h interface{}, _ error) {
		defer func() {
			if r := recover(); r != nil {
				l.Error(checkCtx, "cluster health check panicked", tracex.StackTraceAttrs(r)...)
				h = Inaccessible(fmt.Sprintf("cluster health check panicked: %s", tracex.PanicMessage(r)))
			}
		}()
		return c.CheckHealth(checkCtx), nil
	})

	deadline := timerx.NewDeadline(c.config.Health.Deadline)
	defer deadline.Stop()

	var h Health
	select {
	case res := <-results:
		h = res.Val.(Health)
		if res.Shared {
			span.SetAttributes(attribute.Bool("elastic.health.shared", true))
		}
	case <-deadline.C():
		h = Inaccessible(fmt.Sprintf("cluster health did not answer within %s", deadline.Duration()))
		h.TimedOut = true
		l.Warn(ctx, "cluster health check timed out", attribute.String("deadline", deadline.Duration().String()))
	case <-ctx.Done():
		h = Inaccessible(fmt.Sprintf("stopped waiting for cluster health: %s", ctx.Err()))
	}

	span.SetAttributes(
		attribute.String("elastic.health.status", h.Status.String()),
		attribute.Bool("elastic.health.healthy", h.Healthy()),
	)
	return h
}
