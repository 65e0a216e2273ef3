package ginrouter

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/testdriver/o11y"
	"github.com/circleci/testdriver/o11y/honeycomb"
	"github.com/circleci/testdriver/testing/fakemetrics"
)

func TestMiddleware(t *testing.T) {
	buf := &bytes.Buffer{}
	metrics := &fakemetrics.Provider{}
	p := honeycomb.New(honeycomb.Config{
		Format:  "json",
		Writer:  buf,
		Metrics: metrics,
	})
	ctx := o11y.WithProvider(context.Background(), p)

	r := Default(ctx, "test server")
	r.GET("/foo/:id", func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	t.Run("Requests are traced with their route", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/foo/42", nil))
		p.Close(ctx)

		assert.Check(t, cmp.Equal(rec.Code, http.StatusAccepted))
		assert.Check(t, cmp.Equal(rec.Header().Get("X-Route"), "/foo/:id"))
		assert.Check(t, cmp.Contains(buf.String(), `"name":"GET /foo/:id"`))
		assert.Check(t, cmp.Contains(buf.String(), `"http.status_code":202`))

		handled := metrics.Named("handler")
		assert.Assert(t, cmp.Len(handled, 1))
		assert.Check(t, cmp.Equal(handled[0].Metric, "timer"))
		assert.Check(t, cmp.DeepEqual(handled[0].Tags, []string{
			"http.server_name:test server",
			"http.method:GET",
			"http.route:/foo/:id",
			"http.status_code:202",
		}))
	})

	t.Run("Unknown routes are named not-found", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		p.Close(ctx)

		assert.Check(t, cmp.Equal(rec.Code, http.StatusNotFound))
		assert.Check(t, cmp.Contains(buf.String(), `"name":"GET not-found"`))
	})

	t.Run("Panics are recovered as a 500", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
		assert.Check(t, cmp.Equal(rec.Code, http.StatusInternalServerError))
	})
}
