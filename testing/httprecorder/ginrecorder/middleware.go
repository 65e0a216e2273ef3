/*
Package ginrecorder wires a httprecorder into Gin routers used in test stubs, and
serves the recordings so a test in another process can read them back.
*/
package ginrecorder

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/circleci/testdriver/httpclient"
	"github.com/circleci/testdriver/o11y"
	"github.com/circleci/testdriver/testing/httprecorder"
)

// RecordedRoute is where Handler is mounted by the receiver stub.
const RecordedRoute = "/_recorded"

// Middleware records every request except those for RecordedRoute.
func Middleware(ctx context.Context, rec *httprecorder.RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path != RecordedRoute {
			err := rec.Record(c.Request)
			if err != nil {
				o11y.LogError(ctx, "problem recording HTTP request", err)
			}
		}
		c.Next()
	}
}

// Handler serves all recorded requests as JSON. DELETE resets the recorder.
func Handler(rec *httprecorder.RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodDelete {
			rec.Reset()
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, rec.AllRequests())
	}
}

// Fetch reads the recordings of a stub through client, whose base URL points at it.
func Fetch(ctx context.Context, client *httpclient.Client) ([]httprecorder.Request, error) {
	var requests []httprecorder.Request
	req := httpclient.NewRequest(http.MethodGet, RecordedRoute)
	req.Decoder = httpclient.NewJSONDecoder(&requests)
	err := client.Call(ctx, req)
	return requests, err
}

// Reset clears the recordings of a stub.
func Reset(ctx context.Context, client *httpclient.Client) error {
	return client.Call(ctx, httpclient.NewRequest(http.MethodDelete, RecordedRoute))
}
