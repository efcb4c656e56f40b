package elasticx

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// request is an engine call addressing a document type, which esapi no longer models.
type request struct {
	Method string
	Path   []string
	Params url.Values
	Body   io.Reader
}

// Do executes the request with the given transport.
func (r request) Do(ctx context.Context, transport esapi.Transport) (*esapi.Response, error) {
	var path strings.Builder
	for _, segment := range r.Path {
		path.WriteByte('/')
		path.WriteString(url.PathEscape(segment))
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, path.String(), r.Body)
	if err != nil {
		return nil, err
	}

	if len(r.Params) > 0 {
		req.URL.RawQuery = r.Params.Encode()
	}

	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := transport.Perform(req)
	if err != nil {
		return nil, err
	}

	return &esapi.Response{
		StatusCode: res.StatusCode,
		Body:       res.Body,
		Header:     res.Header,
	}, nil
}
