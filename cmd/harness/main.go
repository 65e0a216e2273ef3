// Command harness drives the test dependencies by hand: it can run the broker
// container, or start a service profile and stream its output, until interrupted.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	o11yconf "github.com/circleci/testdriver/config/o11y"
)

type cli struct {
	O11y o11yconf.Config `embed:""`

	Broker brokerCmd `cmd:"" help:"Run the broker container until interrupted."`
	Run    runCmd    `cmd:"" help:"Start a service profile and stream its output until interrupted."`
}

// env is bound into the command Run methods.
type env struct {
	ctx context.Context
	out io.Writer
}

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr, os.Exit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer, exit func(int)) error {
	c := &cli{}
	parser, err := newParser(c, stdout, stderr, exit)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	c.O11y.Service = "harness"
	ctx, cleanup, err := o11yconf.Setup(context.Background(), c.O11y)
	if err != nil {
		return err
	}
	defer cleanup(ctx)

	return kctx.Run(&env{ctx: ctx, out: stdout})
}

func newParser(c *cli, stdout, stderr io.Writer, exit func(int)) (*kong.Kong, error) {
	return kong.New(c,
		kong.Name("harness"),
		kong.Description("Drive test dependencies by hand."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(exit),
	)
}
