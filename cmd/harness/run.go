package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/circleci/testdriver/o11y"
	"github.com/circleci/testdriver/termination"
	"github.com/circleci/testdriver/testing/runner"
)

var errExited = errors.New("process exited")

type runCmd struct {
	Profile  string   `name:"profile" enum:"server,webhook,amqp,k8s" default:"server" help:"Built-in profile to run (${enum})."`
	Coverage bool     `name:"coverage" help:"Run the profile's coverage command."`
	Command  string   `name:"command" help:"Replace the profile's command, split on spaces."`
	Ports    []int    `name:"ports" help:"Replace the ports checked before starting."`
	Params   []string `arg:"" optional:"" passthrough:"" help:"Parameters appended to the command, after --."`
}

func (r *runCmd) Run(e *env) (err error) {
	ctx, span := o11y.StartSpan(e.ctx, "harness: run")
	defer o11y.End(span, &err)
	span.AddField("profile", r.Profile)
	span.AddField("coverage", r.Coverage)

	profile, err := r.profile()
	if err != nil {
		return err
	}

	d, err := runner.New(ctx, profile)
	if err != nil {
		return err
	}
	err = d.Start(ctx, r.params(), r.Coverage)
	if err != nil {
		return err
	}
	defer func() {
		stopErr := d.Stop(e.ctx)
		if err == nil {
			err = stopErr
		}
	}()

	rd := d.Readiness()
	fmt.Fprintf(e.out, "ready: %t after %d attempt(s)\n", rd.Ready, rd.Attempts)
	host, port, _ := d.Address(false)
	_, probePort, _ := d.Address(true)
	fmt.Fprintf(e.out, "address: %s:%d probe: %s:%d\n", host, port, host, probePort)
	// lines read while probing for readiness are not handed out again
	for _, line := range d.Logs() {
		fmt.Fprint(e.out, line)
	}

	err = stream(ctx, d, e)
	switch {
	case errors.Is(err, errExited):
		if exitErr := d.ExitErr(); exitErr != nil {
			return fmt.Errorf("%s: %w", profile.Name, exitErr)
		}
		return nil
	case o11y.IsWarning(err):
		return nil
	}
	return err
}

// stream copies output lines to e.out until the process exits or the harness is
// signalled.
func stream(ctx context.Context, d *runner.Driver, e *env) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return termination.Handle(ctx, 0)
	})
	g.Go(func() error {
		for ctx.Err() == nil {
			line := d.ReadOutput(false)
			if line != "" {
				fmt.Fprint(e.out, line)
				continue
			}
			select {
			case <-d.Exited():
				return errExited
			default:
			}
		}
		return nil
	})
	return g.Wait()
}

func (r *runCmd) profile() (runner.Profile, error) {
	p, ok := runner.ProfileByName(r.Profile)
	if !ok {
		return runner.Profile{}, fmt.Errorf("unknown profile %q", r.Profile)
	}
	if r.Command != "" {
		p.Command = strings.Fields(r.Command)
		p.CoverageCommand = nil
	}
	if len(r.Ports) > 0 {
		p.Ports = r.Ports
	}
	return p, nil
}

func (r *runCmd) params() []string {
	params := r.Params
	if len(params) > 0 && params[0] == "--" {
		params = params[1:]
	}
	return params
}
