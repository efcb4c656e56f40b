package elasticx

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// pooledTransport bounds the round trips in flight across every route.
// A slot is held until the response body is closed.
type pooledTransport struct {
	base *http.Transport
	sem  *semaphore.Weighted
}

var _ http.RoundTripper = (*pooledTransport)(nil)

func newPooledTransport(c Config) *pooledTransport {
	dialer := &net.Dialer{
		Timeout:   c.Timeouts.Connect,
		KeepAlive: 30 * time.Second,
	}

	return &pooledTransport{
		base: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			MaxIdleConns:          c.Pool.MaxConnections,
			MaxIdleConnsPerHost:   c.Pool.MaxConnectionsPerRoute,
			MaxConnsPerHost:       c.Pool.MaxConnectionsPerRoute,
			IdleConnTimeout:       c.Pool.IdleTimeout,
			TLSHandshakeTimeout:   c.Timeouts.Connect,
			ResponseHeaderTimeout: c.Timeouts.Socket,
			ExpectContinueTimeout: time.Second,
		},
		sem: semaphore.NewWeighted(int64(c.Pool.MaxConnections)),
	}
}

func (t *pooledTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.sem.Acquire(req.Context(), 1); err != nil {
		return nil, err
	}
	release := sync.OnceFunc(func() { t.sem.Release(1) })

	res, err := t.base.RoundTrip(req)
	if err != nil {
		release()
		return nil, err
	}

	if res.Body == nil || res.Body == http.NoBody {
		release()
		return res, nil
	}
	res.Body = &releasingBody{ReadCloser: res.Body, release: release}

	return res, nil
}

// CloseIdleConnections closes the pooled connections not in use.
func (t *pooledTransport) CloseIdleConnections() {
	t.base.CloseIdleConnections()
}

type releasingBody struct {
	io.ReadCloser
	release func()
}

func (b *releasingBody) Close() error {
	defer b.release()
	return b.ReadCloser.Close()
}
