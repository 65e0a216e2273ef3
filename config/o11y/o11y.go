// Package o11y sets up the o11y provider for binaries and tests.
package o11y

import (
	"context"
	"os"

	"github.com/DataDog/datadog-go/statsd"

	"github.com/circleci/testdriver/config/secret"
	"github.com/circleci/testdriver/o11y"
	"github.com/circleci/testdriver/o11y/honeycomb"
)

// Config is usually embedded in a kong CLI struct, so the tags double as flags.
type Config struct {
	Statsd           string        `name:"statsd" env:"STATSD_HOST" help:"statsd host:port, metrics are dropped when empty"`
	HoneycombEnabled bool          `name:"honeycomb-enabled" env:"HONEYCOMB_ENABLED" help:"send traces to honeycomb"`
	HoneycombDataset string        `name:"honeycomb-dataset" env:"HONEYCOMB_DATASET" default:"testdriver"`
	HoneycombKey     secret.String `name:"honeycomb-key" env:"HONEYCOMB_KEY"`
	Format           string        `name:"o11y-format" env:"O11Y_FORMAT" default:"text" enum:"json,text,color,colour,none" help:"format of the events written to stderr"`
	Version          string        `kong:"-"`
	Service          string        `kong:"-"`
	StatsNamespace   string        `kong:"-"`

	Debug bool `name:"o11y-debug" env:"O11Y_DEBUG"`
}

// Setup is the primary entrypoint to initialise the o11y system. The returned func
// flushes and closes the provider.
func Setup(ctx context.Context, o Config) (context.Context, func(context.Context), error) {
	honeyConfig := honeycomb.Config{
		Dataset:     o.HoneycombDataset,
		Key:         o.HoneycombKey.Raw(),
		Format:      o.Format,
		SendTraces:  o.HoneycombEnabled,
		ServiceName: o.Service,
		Debug:       o.Debug,
	}
	if err := honeyConfig.Validate(); err != nil {
		return nil, nil, err
	}

	if o.Statsd == "" {
		honeyConfig.Metrics = &statsd.NoOpClient{}
	} else {
		hostname, _ := os.Hostname()
		stats, err := statsd.New(o.Statsd,
			statsd.WithNamespace(o.StatsNamespace),
			statsd.WithTags([]string{
				"service:" + o.Service,
				"version:" + o.Version,
				"hostname:" + hostname,
			}),
		)
		if err != nil {
			return nil, nil, err
		}
		honeyConfig.Metrics = stats
	}

	provider := honeycomb.New(honeyConfig)
	provider.AddGlobalField("service", o.Service)
	provider.AddGlobalField("version", o.Version)

	return o11y.WithProvider(ctx, provider), provider.Close, nil
}
