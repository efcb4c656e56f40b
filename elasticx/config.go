package elasticx

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/clinia/searchx/configx"
	"github.com/clinia/searchx/errorx"
	"github.com/clinia/searchx/retryx"
)

const (
	DefaultHost                   = "localhost"
	DefaultPort                   = 9200
	DefaultScheme                 = "http"
	DefaultMaxConnections         = 100
	DefaultMaxConnectionsPerRoute = 10
	DefaultIdleTimeout            = 120 * time.Second
	DefaultConnectTimeout         = 5 * time.Minute
	DefaultSocketTimeout          = 5 * time.Minute
	DefaultHealthServerWait       = 10 * time.Second
	DefaultHealthDeadline         = 12 * time.Second
)

// Config describes the connection to one engine endpoint.
type Config struct {
	Host     string
	Port     int
	Scheme   string
	Username string
	Password string

	Pool     PoolConfig
	Timeouts TimeoutConfig
	Health   HealthConfig

	// RetryPolicy is applied by the transport to failed round trips. Nil disables retries.
	RetryPolicy retryx.Policy

	// LogRoundTrips logs every round trip at debug level, failures at warn level.
	LogRoundTrips bool
}

type PoolConfig struct {
	// MaxConnections bounds the requests in flight at once. Set it to the
	// request handling concurrency of the application.
	MaxConnections         int
	MaxConnectionsPerRoute int
	IdleTimeout            time.Duration
}

type TimeoutConfig struct {
	Connect time.Duration
	Socket  time.Duration
}

type HealthConfig struct {
	// ServerWait is how long the engine waits for the cluster to turn yellow.
	ServerWait time.Duration
	// Deadline is how long a caller waits for a health answer.
	Deadline time.Duration
}

func DefaultConfig() Config {
	return Config{
		Host:   DefaultHost,
		Port:   DefaultPort,
		Scheme: DefaultScheme,
		Pool: PoolConfig{
			MaxConnections:         DefaultMaxConnections,
			MaxConnectionsPerRoute: DefaultMaxConnectionsPerRoute,
			IdleTimeout:            DefaultIdleTimeout,
		},
		Timeouts: TimeoutConfig{
			Connect: DefaultConnectTimeout,
			Socket:  DefaultSocketTimeout,
		},
		Health: HealthConfig{
			ServerWait: DefaultHealthServerWait,
			Deadline:   DefaultHealthDeadline,
		},
	}
}

// Address returns the base URL of the engine.
func (c Config) Address() string {
	return fmt.Sprintf("%s://%s", c.Scheme, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)))
}

func (c Config) Validate() error {
	switch {
	case c.Host == "":
		return errorx.InvalidArgumentErrorf("host must not be empty")
	case c.Port <= 0 || c.Port > 65535:
		return errorx.InvalidArgumentErrorf("port %d is out of range", c.Port)
	case c.Scheme != "http" && c.Scheme != "https":
		return errorx.InvalidArgumentErrorf("scheme %q is not supported", c.Scheme)
	case c.Pool.MaxConnections <= 0:
		return errorx.InvalidArgumentErrorf("pool max connections must be positive")
	case c.Pool.MaxConnectionsPerRoute <= 0:
		return errorx.InvalidArgumentErrorf("pool max connections per route must be positive")
	case c.Pool.IdleTimeout <= 0:
		return errorx.InvalidArgumentErrorf("pool idle timeout must be positive")
	case c.Timeouts.Connect <= 0 || c.Timeouts.Socket <= 0:
		return errorx.InvalidArgumentErrorf("connect and socket timeouts must be positive")
	case c.Health.ServerWait <= 0 || c.Health.Deadline <= 0:
		return errorx.InvalidArgumentErrorf("health server wait and deadline must be positive")
	}
	return nil
}

// ConfigFromProvider reads the connection settings found under prefix.
// Keys missing from the provider keep their default value.
func ConfigFromProvider(p *configx.Provider, prefix string) Config {
	key := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + configx.Delimiter + k
	}

	d := DefaultConfig()
	c := Config{
		Host:     p.StringF(key("host"), d.Host),
		Port:     p.IntF(key("port"), d.Port),
		Scheme:   p.StringF(key("scheme"), d.Scheme),
		Username: p.StringF(key("username"), ""),
		Password: p.StringF(key("password"), ""),
		Pool: PoolConfig{
			MaxConnections:         p.IntF(key("pool.max_connections"), d.Pool.MaxConnections),
			MaxConnectionsPerRoute: p.IntF(key("pool.max_connections_per_route"), d.Pool.MaxConnectionsPerRoute),
			IdleTimeout:            p.DurationF(key("pool.idle_timeout"), d.Pool.IdleTimeout),
		},
		Timeouts: TimeoutConfig{
			Connect: p.DurationF(key("timeouts.connect"), d.Timeouts.Connect),
			Socket:  p.DurationF(key("timeouts.socket"), d.Timeouts.Socket),
		},
		Health: HealthConfig{
			ServerWait: p.DurationF(key("health.server_wait"), d.Health.ServerWait),
			Deadline:   p.DurationF(key("health.deadline"), d.Health.Deadline),
		},
		LogRoundTrips: p.BoolF(key("log_round_trips"), false),
	}

	if retries := p.IntF(key("retry.max_retries"), 0); retries > 0 {
		c.RetryPolicy = retryx.ExponentialPolicy(retries,
			retryx.WithInterval(p.DurationF(key("retry.initial_interval"), retryx.DefaultInterval)),
			retryx.WithMaxInterval(p.DurationF(key("retry.max_interval"), retryx.DefaultMaxInterval)),
		)
	}

	return c
}
