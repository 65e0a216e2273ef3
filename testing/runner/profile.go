package runner

import (
	"time"

	"github.com/circleci/testdriver/testing/compiler"
	"github.com/circleci/testdriver/testing/poll"
)

// Profile describes one kind of process a Driver can run. Built-in profiles are
// returned by functions so that every driver owns its own copy.
type Profile struct {
	// Name is used in o11y and error messages.
	Name string
	// Ports must all be free when the driver is created.
	Ports []int

	// Command is the argv launched by Start. Start parameters are appended to it.
	Command []string
	// CoverageCommand replaces Command when Start is asked for coverage.
	// If empty, Command is used.
	CoverageCommand []string
	// CoverageEnv is added to the environment of coverage runs.
	CoverageEnv []string
	// Env is added to the environment inherited from this process.
	Env []string
	// Dir is the working directory of the process.
	Dir string

	// Marker is the substring of the process output that signals readiness.
	Marker string
	Probe  poll.Policy

	// ReadTimeout bounds a single line read.
	ReadTimeout time.Duration
	// QuietPeriod is how long a full read waits without output before returning.
	QuietPeriod time.Duration
	// StopTimeout is how long Stop waits after SIGTERM before killing the process.
	StopTimeout time.Duration

	// DefaultPort and DefaultProbePort apply when Start is not given --port or --probe-port.
	DefaultPort      int
	DefaultProbePort int
}

func (p Profile) withDefaults() Profile {
	if p.Probe.Attempts == 0 && p.Probe.Delay == 0 {
		p.Probe = poll.LocalPolicy()
	}
	if p.ReadTimeout == 0 {
		p.ReadTimeout = time.Second
	}
	if p.QuietPeriod == 0 {
		p.QuietPeriod = 500 * time.Millisecond
	}
	if p.StopTimeout == 0 {
		p.StopTimeout = 10 * time.Second
	}
	if p.DefaultPort == 0 {
		p.DefaultPort = 8000
	}
	if p.DefaultProbePort == 0 {
		p.DefaultProbePort = 8001
	}

	p.Ports = append([]int(nil), p.Ports...)
	p.Command = append([]string(nil), p.Command...)
	p.CoverageCommand = append([]string(nil), p.CoverageCommand...)
	p.CoverageEnv = append([]string(nil), p.CoverageEnv...)
	p.Env = append([]string(nil), p.Env...)
	return p
}

const manageFile = "manage.py"

// Server runs the web server under test.
func Server() Profile {
	return Profile{
		Name:            "server",
		Ports:           []int{8000, 8001},
		Command:         []string{"python", manageFile, "serve"},
		CoverageCommand: []string{"coverage", "run", "--source=hurricane/", manageFile, "serve"},
		Marker:          "Tornado-powered Django web server",
		Probe:           poll.LocalPolicy(),
	}
}

// WebhookReceiver runs the stub that records webhooks sent by the server under test.
func WebhookReceiver() Profile {
	return Profile{
		Name:    "webhook",
		Ports:   []int{8040, 8041},
		Command: []string{"python", "-m", "hurricane.testing.start_webhook_receiver"},
		CoverageCommand: []string{
			"coverage", "run", "-m", "--source=hurricane", "hurricane.testing.start_webhook_receiver",
		},
		Marker: "Started webhook receiver server",
		Probe:  poll.LocalPolicy(),
	}
}

// AMQPConsumer runs the server's AMQP consumer. Port 5672 is checked as well, since
// the consumer expects the broker there.
func AMQPConsumer() Profile {
	return Profile{
		Name:            "amqp",
		Ports:           []int{5672, 8000, 8001},
		Command:         []string{"python", manageFile, "consume"},
		CoverageCommand: []string{"coverage", "run", "--source=hurricane/", manageFile, "consume"},
		Marker:          "Starting a Tornado-powered Django AMQP consumer",
		Probe:           poll.LocalPolicy(),
	}
}

// K8sMarker is printed by the receiver stub when it runs as a fake Kubernetes API.
const K8sMarker = "Started K8s server"

// K8sReceiver runs cmd/receiver as a fake Kubernetes API on port 8072.
// The receiver binary must be on the PATH.
func K8sReceiver() Profile {
	return Profile{
		Name:             "k8s",
		Ports:            []int{8072},
		Command:          []string{"receiver", "--port", "8072", "--banner", K8sMarker},
		Marker:           K8sMarker,
		Probe:            poll.LocalPolicy(),
		DefaultPort:      8072,
		DefaultProbePort: 8073,
	}
}

// GoService runs a Go binary built by testing/compiler. When coverage is requested the
// binary must have been compiled WithCoverage, and the profile is written to coverReport.
func GoService(name, binary, marker, coverReport string, ports ...int) Profile {
	return Profile{
		Name:            name,
		Ports:           ports,
		Command:         []string{binary},
		CoverageCommand: append([]string{binary}, compiler.CoverageArgs(coverReport)...),
		Marker:          marker,
		Probe:           poll.LocalPolicy(),
	}
}

// ProfileByName returns one of the built-in profiles.
func ProfileByName(name string) (Profile, bool) {
	switch name {
	case "server":
		return Server(), true
	case "webhook":
		return WebhookReceiver(), true
	case "amqp":
		return AMQPConsumer(), true
	case "k8s":
		return K8sReceiver(), true
	}
	return Profile{}, false
}
