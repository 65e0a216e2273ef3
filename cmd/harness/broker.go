package main

import (
	"fmt"

	"github.com/circleci/testdriver/closer"
	"github.com/circleci/testdriver/o11y"
	"github.com/circleci/testdriver/termination"
	"github.com/circleci/testdriver/testing/broker"
)

type brokerCmd struct {
	Image string `name:"image" env:"BROKER_IMAGE" help:"Broker image to run instead of the default RabbitMQ one."`
	VHost string `name:"vhost" env:"BROKER_VHOST" default:"/" help:"Virtual host for the printed AMQP URL."`
}

func (b *brokerCmd) Run(e *env) (err error) {
	ctx, span := o11y.StartSpan(e.ctx, "harness: broker")
	defer o11y.End(span, &err)

	rt, err := broker.NewDocker()
	if err != nil {
		return err
	}
	defer closer.ErrorHandler(rt, &err)
	if err := rt.Ping(ctx); err != nil {
		return fmt.Errorf("docker is not reachable: %w", err)
	}

	cfg := broker.RabbitMQ()
	if b.Image != "" {
		cfg.Image = b.Image
	}
	cfg.VHost = b.VHost

	d := broker.New(rt, cfg)
	err = d.Start(ctx)
	if err != nil {
		return err
	}
	defer func() {
		res := d.Kill(e.ctx)
		fmt.Fprintf(e.out, "broker %s\n", res.Outcome)
	}()

	desc, ok := d.Publisher(ctx, "")
	if !ok {
		return fmt.Errorf("broker container started but has no address")
	}
	fmt.Fprintf(e.out, "ready: %t after %d attempt(s)\n", d.Readiness().Ready, d.Readiness().Attempts)
	fmt.Fprintf(e.out, "%s:%d\n", desc.Host, desc.Port)
	fmt.Fprintf(e.out, "%s\n", desc)

	err = termination.Handle(ctx, 0)
	if o11y.IsWarning(err) {
		return nil
	}
	return err
}
