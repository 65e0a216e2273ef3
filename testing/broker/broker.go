package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/circleci/testdriver/o11y"
	"github.com/circleci/testdriver/rabbit"
	"github.com/circleci/testdriver/testing/poll"
)

var (
	// ErrAlreadyRunning is returned by Start while the driver holds a container.
	ErrAlreadyRunning = errors.New("broker container already running")
	// ErrNoContainer is returned when an operation needs a running container.
	ErrNoContainer = errors.New("no broker container")
)

// Config describes the broker container: what to run, where its port is published
// and how to tell it is ready.
type Config struct {
	Image        string
	Env          []string
	InternalPort int
	// Host is the loopback address the port is bound on, and reported by Address.
	Host string
	// Marker is the log line that shows the broker accepts connections.
	Marker string
	Probe  poll.Policy
	// VHost is used by Publisher when no virtual host is given.
	VHost string
}

// RabbitMQ is the broker the AMQP consumer under test talks to.
func RabbitMQ() Config {
	return Config{
		Image:        "quay.io/blueshoe/rabbitmq3.8-alpine",
		InternalPort: 5672,
		Host:         "127.0.0.1",
		Marker:       "Ready to start client connection listeners",
		Probe:        poll.ContainerPolicy(),
		VHost:        "/",
	}
}

// Outcome classifies how a kill went.
type Outcome int

const (
	// Killed means the runtime killed the container.
	Killed Outcome = iota
	// AlreadyStopped means there was nothing to kill: no container, or the runtime
	// no longer knew it or it had already stopped.
	AlreadyStopped
	// RuntimeFailure means the runtime could not be asked. The container may still be running.
	RuntimeFailure
)

func (o Outcome) String() string {
	switch o {
	case Killed:
		return "killed"
	case AlreadyStopped:
		return "already stopped"
	case RuntimeFailure:
		return "runtime failure"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// KillResult is what Kill and Pause report. Once the runtime has been asked to kill,
// the driver forgets the container whatever the outcome.
type KillResult struct {
	Outcome Outcome
	Err     error
}

type containerRef struct {
	id string
}

// Driver owns at most one broker container. It is not safe for concurrent use.
type Driver struct {
	cfg     Config
	runtime Runtime

	container *containerRef
	// rememberedPort is the host port to reuse on the next Start, 0 for none.
	rememberedPort int
	readiness      poll.Outcome
}

// New returns a driver with no container. Zero fields of cfg take the RabbitMQ defaults
// for host, probe policy and vhost.
func New(runtime Runtime, cfg Config) *Driver {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Probe.Attempts == 0 && cfg.Probe.Delay == 0 {
		cfg.Probe = poll.ContainerPolicy()
	}
	if cfg.VHost == "" {
		cfg.VHost = "/"
	}
	cfg.Env = append([]string(nil), cfg.Env...)
	return &Driver{
		cfg:     cfg,
		runtime: runtime,
	}
}

// Start runs the container, on the remembered host port after a Pause or an ephemeral
// one otherwise, and waits for the ready line in its log. Like process readiness, not
// seeing it is not an error.
func (d *Driver) Start(ctx context.Context) (err error) {
	ctx, span := o11y.StartSpan(ctx, "broker: start")
	defer o11y.End(span, &err)
	span.AddField("image", d.cfg.Image)
	span.AddField("remembered_port", d.rememberedPort)
	span.RecordMetric(o11y.Timing("broker.start", "ready", "result"))

	if d.container != nil {
		return ErrAlreadyRunning
	}

	id, err := d.runtime.Run(ctx, RunSpec{
		Image:        d.cfg.Image,
		Env:          d.cfg.Env,
		InternalPort: d.cfg.InternalPort,
		HostIP:       d.cfg.Host,
		HostPort:     d.rememberedPort,
	})
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", d.cfg.Image, err)
	}
	d.container = &containerRef{id: id}
	span.AddField("container_id", id)

	d.readiness = poll.Probe(ctx, d.cfg.Probe, func(ctx context.Context) (string, error) {
		b, err := d.runtime.Logs(ctx, id)
		return string(b), err
	}, d.cfg.Marker)
	span.AddField("ready", d.readiness.Ready)
	return nil
}

// Address asks the runtime which host port the broker is bound to. ok is false when
// the driver holds no container or the runtime cannot say.
func (d *Driver) Address(ctx context.Context) (host string, port int, ok bool) {
	if d.container == nil {
		return "", 0, false
	}
	port, err := d.runtime.HostPort(ctx, d.container.id, d.cfg.InternalPort)
	if err != nil {
		o11y.LogError(ctx, "broker: address", err, o11y.Field("container_id", d.container.id))
		return "", 0, false
	}
	return d.cfg.Host, port, true
}

// Kill removes the container and forgets its port, so the next Start gets a new one.
func (d *Driver) Kill(ctx context.Context) KillResult {
	ctx, span := o11y.StartSpan(ctx, "broker: kill")
	defer span.End()

	d.rememberedPort = 0
	res := d.kill(ctx)
	recordKill(span, res)
	return res
}

// Pause remembers the current host port and then kills the container, so the next
// Start comes back on the same port. When the runtime cannot say which port that is,
// Pause reports RuntimeFailure and leaves the container running rather than lose it.
func (d *Driver) Pause(ctx context.Context) KillResult {
	ctx, span := o11y.StartSpan(ctx, "broker: pause")
	defer span.End()

	if d.container != nil {
		port, err := d.runtime.HostPort(ctx, d.container.id, d.cfg.InternalPort)
		switch {
		case err == nil:
			d.rememberedPort = port
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotRunning):
			span.AddField("port_lookup", err.Error())
		default:
			res := KillResult{Outcome: RuntimeFailure, Err: fmt.Errorf("failed to look up host port: %w", err)}
			recordKill(span, res)
			return res
		}
	}
	span.AddField("remembered_port", d.rememberedPort)

	res := d.kill(ctx)
	recordKill(span, res)
	return res
}

func (d *Driver) kill(ctx context.Context) KillResult {
	if d.container == nil {
		return KillResult{Outcome: AlreadyStopped}
	}
	id := d.container.id
	// forgotten whatever the runtime says, the harness cannot do better
	d.container = nil

	err := d.runtime.Kill(ctx, id)
	switch {
	case err == nil:
		return KillResult{Outcome: Killed}
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotRunning):
		return KillResult{Outcome: AlreadyStopped, Err: err}
	default:
		o11y.LogError(ctx, "broker: kill failed", err, o11y.Field("container_id", id))
		return KillResult{Outcome: RuntimeFailure, Err: err}
	}
}

func recordKill(span o11y.Span, res KillResult) {
	span.AddField("outcome", res.Outcome.String())
	err := res.Err
	if res.Outcome == AlreadyStopped && err != nil {
		err = o11y.NewWarning(err.Error())
	}
	o11y.AddResultToSpan(span, err)
}

// Publisher describes how to reach the running broker on vhost, or the configured
// default vhost when empty.
func (d *Driver) Publisher(ctx context.Context, vhost string) (rabbit.Descriptor, bool) {
	host, port, ok := d.Address(ctx)
	if !ok {
		return rabbit.Descriptor{}, false
	}
	if vhost == "" {
		vhost = d.cfg.VHost
	}
	return rabbit.NewDescriptor(host, port, vhost), true
}

// TestPublisher connects a publisher to the running broker on vhost.
func (d *Driver) TestPublisher(ctx context.Context, vhost string) (*rabbit.TestPublisher, error) {
	desc, ok := d.Publisher(ctx, vhost)
	if !ok {
		return nil, ErrNoContainer
	}
	return rabbit.NewTestPublisher(ctx, desc)
}

// Readiness is the outcome of the last readiness probe.
func (d *Driver) Readiness() poll.Outcome {
	return d.readiness
}

// ContainerID returns the id of the container the driver holds.
func (d *Driver) ContainerID() (string, bool) {
	if d.container == nil {
		return "", false
	}
	return d.container.id, true
}

// RememberedPort is the host port the next Start will bind, 0 for an ephemeral one.
func (d *Driver) RememberedPort() int {
	return d.rememberedPort
}
