// Command receiver is a stub HTTP endpoint for services under test to call. It
// records every request it is sent, webhooks and fake Kubernetes API calls alike,
// and serves the recordings on /_recorded.
package main

import (
	"context"
	"fmt"
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
	"github.com/circleci/testdriver/testing/httprecorder"
	"github.com/circleci/testdriver/testing/httprecorder/ginrecorder"
)

type cli struct {
	Host      string `name:"host" env:"RECEIVER_HOST" default:"127.0.0.1" help:"Address to listen on"`
	Port      int    `name:"port" env:"RECEIVER_PORT" default:"8040" help:"Port for recorded requests"`
	ProbePort int    `name:"probe-port" env:"RECEIVER_PROBE_PORT" default:"0" help:"Port for the liveness and readiness probes, none when 0"`
	Banner    string `name:"banner" env:"RECEIVER_BANNER" default:"Started webhook receiver server" help:"Line printed once the receiver is listening"`

	O11y o11yconf.Config `embed:""`
}

func main() {
	c := &cli{}
	kong.Parse(c,
		kong.Name("receiver"),
		kong.Description("Records the HTTP requests a service under test sends."),
	)

	err := run(c)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli) (err error) {
	c.O11y.Service = "receiver"
	ctx, cleanup, err := o11yconf.Setup(context.Background(), c.O11y)
	if err != nil {
		return err
	}
	defer cleanup(ctx)

	sys := system.New(ctx)
	defer sys.Cleanup(ctx)

	rec := httprecorder.New()
	srv, err := httpserver.Load(ctx, httpserver.Config{
		Name:    "receiver",
		Addr:    fmt.Sprintf("%s:%d", c.Host, c.Port),
		Handler: newRouter(ctx, rec),
	}, sys)
	if err != nil {
		return err
	}

	if c.ProbePort != 0 {
		_, err = healthcheck.Load(ctx, fmt.Sprintf("%s:%d", c.Host, c.ProbePort), sys)
		if err != nil {
			return err
		}
	}

	fmt.Printf("%s on %s\n", c.Banner, srv.Addr())

	err = sys.Run(0)
	if o11y.IsWarning(err) {
		return nil
	}
	return err
}

func newRouter(ctx context.Context, rec *httprecorder.RequestRecorder) *gin.Engine {
	r := ginrouter.Default(ctx, "receiver")
	r.Use(ginrecorder.Middleware(ctx, rec))

	r.GET(ginrecorder.RecordedRoute, ginrecorder.Handler(rec))
	r.DELETE(ginrecorder.RecordedRoute, ginrecorder.Handler(rec))

	r.POST("/webhook", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"received": rec.Len()})
	})
	// anything else is answered like an accepting Kubernetes API
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})
	return r
}
