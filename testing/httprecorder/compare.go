package httprecorder

import (
	"net/http"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// TransportHeaders are set by the Go HTTP client rather than the caller, so they
// rarely belong in an expected request.
var TransportHeaders = []string{"Accept-Encoding", "Content-Length", "User-Agent"}

// IgnoreHeaders compares recorded headers without the named ones. Names are
// matched in canonical form.
func IgnoreHeaders(headers ...string) gocmp.Option {
	return headerFilter(true, headers)
}

// OnlyHeaders compares recorded headers on the named ones alone.
func OnlyHeaders(headers ...string) gocmp.Option {
	return headerFilter(false, headers)
}

func headerFilter(drop bool, headers []string) gocmp.Option {
	named := make(map[string]bool, len(headers))
	for _, h := range headers {
		named[http.CanonicalHeaderKey(h)] = true
	}
	return cmpopts.IgnoreMapEntries(func(h string, _ []string) bool {
		return named[http.CanonicalHeaderKey(h)] == drop
	})
}

// CompareRequests compares recorded requests on method, path, query, headers
// and body. Other URL parts depend on how the server saw the request and are
// left out. Header options such as IgnoreHeaders narrow the header comparison.
func CompareRequests(opts ...gocmp.Option) gocmp.Option {
	return gocmp.Options{
		gocmp.Transformer("request", func(r Request) comparableRequest {
			return comparableRequest{
				Method: r.Method,
				Path:   r.URL.Path,
				Query:  r.URL.RawQuery,
				Header: r.Header,
				Body:   string(r.Body),
			}
		}),
		cmpopts.EquateEmpty(),
		gocmp.Options(opts),
	}
}

type comparableRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}
