package rabbit

import (
	"context"
	"fmt"

	"github.com/makasim/amqpextra"
	"github.com/makasim/amqpextra/publisher"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/circleci/testdriver/o11y"
	"github.com/circleci/testdriver/system"
)

// TestPublisher is the publishing side of a test: it declares the queues a consumer
// under test listens on and drops messages onto them through the default exchange.
type TestPublisher struct {
	descriptor Descriptor
	sys        *system.System
	dialer     *amqpextra.Dialer
	pool       *PublisherPool
}

func NewTestPublisher(ctx context.Context, d Descriptor) (*TestPublisher, error) {
	sys := system.New(ctx)
	dialer, pool, err := Load(ctx, Config{
		Broker:         d,
		ConnectionName: "test-publisher",
		Name:           "test-publisher",
	}, sys)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialer for %s: %w", d, err)
	}
	return &TestPublisher{
		descriptor: d,
		sys:        sys,
		dialer:     dialer,
		pool:       pool,
	}, nil
}

func (p *TestPublisher) Descriptor() Descriptor {
	return p.descriptor
}

// DeclareQueue creates a durable queue, waiting for the connection if it is not up yet.
func (p *TestPublisher) DeclareQueue(ctx context.Context, name string) (err error) {
	ctx, span := o11y.StartSpan(ctx, "test-publisher: declare queue")
	defer o11y.End(span, &err)
	span.AddField("queue", name)
	span.AddField("vhost", p.descriptor.VHost)

	conn, err := p.dialer.Connection(ctx)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() {
		_ = ch.Close()
	}()

	_, err = ch.QueueDeclare(name, true, false, false, false, nil)
	return err
}

func (p *TestPublisher) Publish(ctx context.Context, queue, contentType string, body []byte) error {
	return p.pool.Publish(ctx, publisher.Message{
		Key: queue,
		Publishing: amqp.Publishing{
			ContentType: contentType,
			Body:        body,
		},
	})
}

func (p *TestPublisher) PublishJSON(ctx context.Context, queue string, v interface{}) error {
	return p.pool.PublishJSON(ctx, publisher.Message{Key: queue}, v)
}

// Gauges reports the publisher pool usage.
func (p *TestPublisher) Gauges(ctx context.Context) map[string]float64 {
	return p.pool.Gauges(ctx)
}

// Close closes the pool and then the dialer.
func (p *TestPublisher) Close(ctx context.Context) error {
	p.sys.Cleanup(ctx)
	return nil
}
