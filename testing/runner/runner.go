package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/circleci/testdriver/internal/linequeue"
	"github.com/circleci/testdriver/o11y"
	"github.com/circleci/testdriver/testing/poll"
	"github.com/circleci/testdriver/testing/ports"
)

var (
	// ErrAlreadyStarted is returned by Start on a driver that has been started before.
	// Drivers are one-shot, build a new one to run the process again.
	ErrAlreadyStarted = errors.New("driver already started")
	// ErrInvalidParameter is returned by Start when --port or --probe-port is malformed.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Host is the host reported by Address.
const Host = "localhost"

// State is where a Driver is in its lifecycle.
type State int

const (
	// Unstarted is a new driver, or one whose Start failed before launching.
	Unstarted State = iota
	// Running means the process was launched and Stop has not been called.
	Running
	// Stopped means Stop has run. A stopped driver is not restarted.
	Stopped
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Driver owns one process. Its methods are meant to be called from the goroutine
// running the test; only the output queue is shared with background goroutines.
type Driver struct {
	profile Profile
	state   State

	cmd       *exec.Cmd
	port      int
	probePort int

	queue     *linequeue.Queue
	pump      *pump
	logs      []string
	readiness poll.Outcome

	exited  chan struct{}
	exitMu  sync.Mutex
	exitErr error
}

// New checks that every port in the profile is free and returns an unstarted driver.
// A busy port fails with an error matching ports.ErrPortUnavailable.
func New(ctx context.Context, profile Profile) (d *Driver, err error) {
	_, span := o11y.StartSpan(ctx, "runner: new")
	defer o11y.End(span, &err)
	span.AddField("profile", profile.Name)
	span.AddField("ports", fmt.Sprint(profile.Ports))

	err = ports.CheckFree(profile.Ports...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", profile.Name, err)
	}

	return &Driver{
		profile: profile.withDefaults(),
		exited:  make(chan struct{}),
	}, nil
}

// Start launches the process with params appended to the profile command, drains its
// output and waits for the readiness marker. Not seeing the marker is not an error,
// check Readiness or the output when it matters.
func (d *Driver) Start(ctx context.Context, params []string, coverage bool) (err error) {
	ctx, span := o11y.StartSpan(ctx, "runner: start")
	defer o11y.End(span, &err)
	span.AddField("profile", d.profile.Name)
	span.AddField("coverage", coverage)
	span.RecordMetric(o11y.Timing("runner.start", "profile", "ready", "result"))

	if d.state != Unstarted {
		return ErrAlreadyStarted
	}

	port, probePort, err := parsePorts(params, d.profile.DefaultPort, d.profile.DefaultProbePort)
	if err != nil {
		return err
	}

	base := d.profile.Command
	env := d.profile.Env
	if coverage {
		if len(d.profile.CoverageCommand) > 0 {
			base = d.profile.CoverageCommand
		} else {
			span.AddRawField("warning", "profile has no coverage command")
		}
		env = append(append([]string(nil), env...), d.profile.CoverageEnv...)
	}
	argv := append(append([]string(nil), base...), params...)
	if len(argv) == 0 {
		return fmt.Errorf("%s: profile has no command", d.profile.Name)
	}
	span.AddField("command", strings.Join(argv, " "))
	span.AddField("port", port)
	span.AddField("probe_port", probePort)

	d.logs = nil
	d.queue = linequeue.New()

	err = d.spawn(argv, env)
	if err != nil {
		return err
	}
	d.port = port
	d.probePort = probePort
	d.state = Running
	span.AddField("pid", d.cmd.Process.Pid)

	d.readiness = poll.Probe(ctx, d.profile.Probe, d.accumulated, d.profile.Marker)
	span.AddField("ready", d.readiness.Ready)
	span.AddField("probe_attempts", d.readiness.Attempts)
	return nil
}

func (d *Driver) spawn(argv, env []string) error {
	// The driver owns both ends of each pipe, so reaping the process never closes a
	// pipe a drain goroutine is still reading.
	outR, outW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		_ = outR.Close()
		_ = outW.Close()
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	//#nosec:G204 // this is intentionally running a command for tests
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = d.profile.Dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = outW
	cmd.Stderr = errW

	err = cmd.Start()
	// the child has its own copies now
	_ = outW.Close()
	_ = errW.Close()
	if err != nil {
		_ = outR.Close()
		_ = errR.Close()
		return fmt.Errorf("failed to start %q: %w", argv[0], err)
	}

	d.cmd = cmd
	d.pump = startPump(d.queue, outR, errR)
	go func() {
		err := cmd.Wait()
		d.exitMu.Lock()
		d.exitErr = err
		d.exitMu.Unlock()
		close(d.exited)
	}()
	return nil
}

// accumulated moves whatever the pump has queued into the log and returns all of it.
func (d *Driver) accumulated(context.Context) (string, error) {
	d.logs = append(d.logs, d.queue.Drain()...)
	return strings.Join(d.logs, ""), nil
}

// Stop asks the process to terminate with SIGTERM and waits for it to exit, killing
// it after the profile's StopTimeout or when ctx is done. Stopping a driver that is
// not running does nothing.
func (d *Driver) Stop(ctx context.Context) (err error) {
	if d.state != Running {
		return nil
	}
	d.state = Stopped

	ctx, span := o11y.StartSpan(ctx, "runner: stop")
	defer o11y.End(span, &err)
	span.AddField("profile", d.profile.Name)
	span.AddField("pid", d.cmd.Process.Pid)
	span.RecordMetric(o11y.Timing("runner.stop", "profile", "killed", "result"))

	killed := false
	defer func() {
		span.AddField("killed", killed)
	}()

	select {
	case <-d.exited:
		span.AddField("already_exited", true)
		return nil
	default:
	}

	err = d.cmd.Process.Signal(syscall.SIGTERM)
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to SIGTERM: %w", err)
	}

	timer := time.NewTimer(d.profile.StopTimeout)
	defer timer.Stop()
	select {
	case <-d.exited:
	case <-timer.C:
		killed = true
	case <-ctx.Done():
		killed = true
	}
	if killed {
		_ = d.cmd.Process.Kill()
		<-d.exited
	}

	// Give the pump a moment to deliver the last lines. A grandchild holding the
	// pipes open would keep it running, so don't wait on it forever.
	select {
	case <-d.pump.Done():
	case <-time.After(d.profile.QuietPeriod):
	}
	return nil
}

// Address returns the host and the primary or probe port while the process is
// running. ok is false before Start and after Stop.
func (d *Driver) Address(probe bool) (host string, port int, ok bool) {
	if d.state != Running {
		return "", 0, false
	}
	if probe {
		return Host, d.probePort, true
	}
	return Host, d.port, true
}

// ReadOutput returns the next line of output, waiting up to the profile's ReadTimeout,
// or "" if none arrived. With all set it instead keeps reading until no output has
// arrived for the QuietPeriod and returns everything captured since Start.
func (d *Driver) ReadOutput(all bool) string {
	if d.queue == nil {
		return ""
	}

	if !all {
		line, ok := d.queue.Get(d.profile.ReadTimeout)
		if !ok {
			return ""
		}
		d.logs = append(d.logs, line)
		return line
	}

	for {
		line, ok := d.queue.Get(d.profile.QuietPeriod)
		if !ok {
			break
		}
		d.logs = append(d.logs, line)
		d.logs = append(d.logs, d.queue.Drain()...)
	}
	return strings.Join(d.logs, "")
}

// Logs returns a copy of every line read out of the process so far.
func (d *Driver) Logs() []string {
	return append([]string(nil), d.logs...)
}

// Readiness reports how the readiness probe in Start went.
func (d *Driver) Readiness() poll.Outcome {
	return d.readiness
}

func (d *Driver) State() State {
	return d.state
}

func (d *Driver) Profile() Profile {
	return d.profile
}

// Exited is closed once the process has exited and been reaped.
func (d *Driver) Exited() <-chan struct{} {
	return d.exited
}

// ExitErr is the result of waiting for the process. It is nil while the process is
// still running and for a clean exit.
func (d *Driver) ExitErr() error {
	d.exitMu.Lock()
	defer d.exitMu.Unlock()
	return d.exitErr
}
