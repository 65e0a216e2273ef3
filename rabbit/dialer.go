package rabbit

import (
	"context"

	"github.com/makasim/amqpextra"
	amqp "github.com/rabbitmq/amqp091-go"
)

// NewDialer returns a reconnecting dialer for the broker. It connects in the
// background, so a broker that is not up yet is not an error here.
func NewDialer(ctx context.Context, d Descriptor, connectionName string) (*amqpextra.Dialer, error) {
	return amqpextra.NewDialer(
		amqpextra.WithContext(ctx),
		amqpextra.WithURL(d.URL().Raw()),
		amqpextra.WithConnectionProperties(amqp.Table{
			"connection_name": connectionName,
		}),
	)
}
