package healthcheck

import (
	"context"
	"fmt"

	"github.com/circleci/testdriver/httpserver"
	"github.com/circleci/testdriver/system"
)

// Load registers the probe server on addr with sys, using every health check
// already added to sys.
func Load(ctx context.Context, addr string, sys *system.System) (*httpserver.HTTPServer, error) {
	healthAPI, err := New(ctx, sys.HealthChecks())
	if err != nil {
		return nil, fmt.Errorf("error creating health check API: %w", err)
	}

	return httpserver.Load(ctx, httpserver.Config{
		Name:    "probe",
		Addr:    addr,
		Handler: healthAPI.Handler(),
	}, sys)
}
