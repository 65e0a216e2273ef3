package ginrecorder

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/testdriver/httpclient"
	"github.com/circleci/testdriver/testing/httprecorder"
	"github.com/circleci/testdriver/testing/testcontext"
)

func TestRecordAndFetch(t *testing.T) {
	ctx := testcontext.Background()
	gin.SetMode(gin.TestMode)

	rec := httprecorder.New()
	r := gin.New()
	r.Use(Middleware(ctx, rec))
	r.GET(RecordedRoute, Handler(rec))
	r.DELETE(RecordedRoute, Handler(rec))
	r.NoRoute(func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	res, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(`{"event":"push"}`))
	assert.Assert(t, err)
	_ = res.Body.Close()
	assert.Check(t, cmp.Equal(res.StatusCode, http.StatusAccepted))

	client := httpclient.New(httpclient.Config{Name: "recorder", BaseURL: srv.URL})

	t.Run("Fetch returns the webhook but not itself", func(t *testing.T) {
		got, err := Fetch(ctx, client)
		assert.Assert(t, err)
		assert.Assert(t, cmp.Len(got, 1))
		assert.Check(t, cmp.Equal(got[0].Method, http.MethodPost))
		assert.Check(t, cmp.Equal(got[0].URL.Path, "/webhook"))
		assert.Check(t, cmp.Equal(got[0].StringBody(), `{"event":"push"}`))

		var body map[string]string
		assert.Assert(t, got[0].Decode(&body))
		assert.Check(t, cmp.DeepEqual(body, map[string]string{"event": "push"}))
	})

	t.Run("Reset clears the recordings", func(t *testing.T) {
		assert.Assert(t, Reset(ctx, client))
		assert.Check(t, cmp.Equal(rec.Len(), 0))

		got, err := Fetch(ctx, client)
		assert.Assert(t, err)
		assert.Check(t, cmp.Len(got, 0))
	})
}
