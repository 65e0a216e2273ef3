// Package testcontext gives tests a context carrying a working o11y provider, so
// driver spans show up in the test output.
package testcontext

import (
	"context"

	"github.com/circleci/testdriver/config/o11y"
)

// ctx is a package level singleton since the beeline underneath is global state.
var ctx = newContext()

// Background returns a context for use in tests which contains a working o11y, so you get logs.
func Background() context.Context {
	return ctx
}

func newContext() context.Context {
	cx, _, err := o11y.Setup(context.Background(), o11y.Config{
		Format:  "text",
		Service: "test-service",
		Version: "dev",
	})
	if err != nil {
		panic(err)
	}
	return cx
}
