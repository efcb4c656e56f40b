package elasticx

import "context"

// Client is a pooled connection to a single engine endpoint, shared by every index handle.
type Client interface {
	// Health checks the cluster health, giving up after the configured deadline.
	// It never fails: problems are reported in the returned record. Calls made
	// while a check is in flight, including one abandoned at an earlier
	// deadline, wait on that check instead of sending another request.
	Health(ctx context.Context) Health

	// CheckHealth checks the cluster health without a client side deadline.
	CheckHealth(ctx context.Context) Health

	// Index returns a handle on the named index. No call is made to the engine.
	Index(name string) Index

	// CreateAlias points alias at index.
	CreateAlias(ctx context.Context, index string, alias string) error

	// SwapAlias moves alias from one index to another in a single atomic update.
	SwapAlias(ctx context.Context, alias string, from string, to string) error

	// Close releases the idle pooled connections. Later requests fail.
	Close()
}
