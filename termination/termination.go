// Package termination turns SIGINT and SIGTERM into an error a service group can return.
package termination

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/circleci/testdriver/o11y"
)

// ErrTerminated is a warning, so spans ended with it are not reported as failures.
var ErrTerminated = o11y.NewWarning("terminated")

// Handle blocks until the process is signalled or ctx is done. After a signal it waits
// delay before returning ErrTerminated, giving load balancers time to drain.
func Handle(ctx context.Context, delay time.Duration) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		o11y.Log(ctx, "termination: signal received", o11y.Field("signal", sig.String()))
	case <-ctx.Done():
		return nil
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
	return ErrTerminated
}
