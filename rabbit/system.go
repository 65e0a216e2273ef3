package rabbit

import (
	"context"

	"github.com/makasim/amqpextra"

	"github.com/circleci/testdriver/system"
)

type Config struct {
	Broker         Descriptor
	ConnectionName string
	// Name labels the pool's gauges.
	Name string
}

// Load builds a dialer and a publisher pool on it, both closed by sys.Cleanup with
// the pool going first.
func Load(ctx context.Context, cfg Config, sys *system.System) (*amqpextra.Dialer, *PublisherPool, error) {
	dialer, err := NewDialer(ctx, cfg.Broker, cfg.ConnectionName)
	if err != nil {
		return nil, nil, err
	}
	sys.AddCleanup(func(ctx context.Context) error {
		dialer.Close()
		return nil
	})

	pool := NewPublisherPool(ctx, cfg.Name, dialer)
	sys.AddCleanup(pool.Close)
	sys.AddMetrics(pool)

	return dialer, pool, nil
}
