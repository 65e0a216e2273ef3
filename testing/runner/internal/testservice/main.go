// Command testservice is a small HTTP service used to exercise the process driver
// against a real server.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"

	o11yconf "github.com/circleci/testdriver/config/o11y"
	"github.com/circleci/testdriver/httpserver"
	"github.com/circleci/testdriver/httpserver/ginrouter"
	"github.com/circleci/testdriver/httpserver/healthcheck"
	"github.com/circleci/testdriver/o11y"
	"github.com/circleci/testdriver/system"
)

type cli struct {
	Port      int    `name:"port" env:"PORT" default:"8000" help:"Port for the API server"`
	ProbePort int    `name:"probe-port" env:"PROBE_PORT" default:"8001" help:"Port for the liveness and readiness probes"`
	Marker    string `name:"marker" env:"MARKER" default:"test service listening" help:"Line printed once the servers are listening"`

	O11y o11yconf.Config `embed:""`
}

func main() {
	c := &cli{}
	kong.Parse(c, kong.Name("testservice"))

	err := run(c)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli) (err error) {
	c.O11y.Service = "testservice"
	ctx, cleanup, err := o11yconf.Setup(context.Background(), c.O11y)
	if err != nil {
		return err
	}
	defer cleanup(ctx)

	sys := system.New(ctx)
	defer sys.Cleanup(ctx)

	r := ginrouter.Default(ctx, "api")
	r.GET("/api/env", func(c *gin.Context) {
		c.JSON(http.StatusOK, os.Environ())
	})

	api, err := httpserver.Load(ctx, httpserver.Config{
		Name:    "api",
		Addr:    fmt.Sprintf("127.0.0.1:%d", c.Port),
		Handler: r,
	}, sys)
	if err != nil {
		return err
	}

	sys.AddHealthCheck(listening{addr: api.Addr()})
	_, err = healthcheck.Load(ctx, fmt.Sprintf("127.0.0.1:%d", c.ProbePort), sys)
	if err != nil {
		return err
	}

	// both listeners are bound, so the marker is only printed once requests will succeed
	fmt.Printf("%s on %s\n", c.Marker, api.Addr())

	err = sys.Run(0)
	switch {
	case o11y.IsWarning(err):
		return nil
	case err != nil:
		return err
	}
	return nil
}

type listening struct {
	addr string
}

func (l listening) HealthChecks() (name string, ready, live func(ctx context.Context) error) {
	ready = func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", l.addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}
	return "api", ready, nil
}
