// Package elasticxtest provides an in-memory engine speaking the subset of the
// Elasticsearch 1.x REST protocol used by elasticx. Indices are never created
// implicitly, as with action.auto_create_index disabled.
package elasticxtest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const (
	DefaultClusterName = "searchx-test"
	Version            = "1.7.6"

	productHeader = "X-Elastic-Product"
	productName   = "Elasticsearch"
)

// Request is a request received by the engine.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

func (r Request) String() string {
	return r.Method + " " + r.Path
}

// Document is a stored document.
type Document struct {
	Version int64
	Source  json.RawMessage
	TTL     string
}

type failure struct {
	method  string
	path    string
	status  int
	errType string
	reason  string
}

type index struct {
	settings map[string]any
	mappings map[string]map[string]any
	// docs is what realtime gets see, visible what searches and non realtime gets see.
	docs    map[string]map[string]*Document
	visible map[string]map[string]*Document
}

func newIndex(settings map[string]any) *index {
	return &index{
		settings: settings,
		mappings: map[string]map[string]any{},
		docs:     map[string]map[string]*Document{},
		visible:  map[string]map[string]*Document{},
	}
}

// refresh makes every write so far visible. Stored documents are never mutated in place.
func (idx *index) refresh() {
	idx.visible = make(map[string]map[string]*Document, len(idx.docs))
	for typeName, docs := range idx.docs {
		snapshot := make(map[string]*Document, len(docs))
		for id, doc := range docs {
			snapshot[id] = doc
		}
		idx.visible[typeName] = snapshot
	}
}

// Engine is the fake engine. Every method is safe for concurrent use.
type Engine struct {
	srv       *httptest.Server
	closeOnce sync.Once

	mu             sync.Mutex
	clusterName    string
	status         string
	healthDelay    time.Duration
	latency        time.Duration
	rejectMappings bool
	advertise      bool
	failures       []failure
	requests       []Request
	indices        map[string]*index
	aliases        map[string]map[string]struct{}

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

// NewEngine starts an engine closed at the end of the test.
func NewEngine(t testing.TB) *Engine {
	t.Helper()

	e := &Engine{
		clusterName: DefaultClusterName,
		status:      "green",
		indices:     map[string]*index{},
		aliases:     map[string]map[string]struct{}{},
	}
	e.srv = httptest.NewServer(e.routes())
	t.Cleanup(e.Close)

	return e
}

func (e *Engine) Close() {
	e.closeOnce.Do(e.srv.Close)
}

func (e *Engine) URL() string {
	return e.srv.URL
}

func (e *Engine) Host() string {
	host, _, _ := net.SplitHostPort(e.srv.Listener.Addr().String())
	return host
}

func (e *Engine) Port() int {
	_, port, _ := net.SplitHostPort(e.srv.Listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

// SetStatus sets the cluster health status: green, yellow or red.
func (e *Engine) SetStatus(status string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = status
}

func (e *Engine) SetClusterName(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clusterName = name
}

// SetHealthDelay delays every cluster health response.
func (e *Engine) SetHealthDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.healthDelay = d
}

// SetLatency delays every response other than cluster health.
func (e *Engine) SetLatency(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latency = d
}

// RejectMappingUpdates makes mapping updates answer without acknowledgement.
func (e *Engine) RejectMappingUpdates(reject bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rejectMappings = reject
}

// AdvertiseProduct makes every response carry the product header sent by engines since 7.14.
func (e *Engine) AdvertiseProduct() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advertise = true
}

// FailNext makes the next request matching method and path fail with the given
// exception, named the way the engine names it, e.g. ClusterBlockException.
func (e *Engine) FailNext(method, path string, status int, errType, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = append(e.failures, failure{method: method, path: path, status: status, errType: errType, reason: reason})
}

// Requests returns the received requests in order.
func (e *Engine) Requests() []Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Request, len(e.requests))
	copy(out, e.requests)
	return out
}

// RequestLines returns the method and path of every received request.
func (e *Engine) RequestLines() []string {
	reqs := e.Requests()
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.String()
	}
	return out
}

func (e *Engine) ResetRequests() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = nil
}

// MaxInFlight returns the highest number of requests served at once.
func (e *Engine) MaxInFlight() int {
	return int(e.maxInFlight.Load())
}

func (e *Engine) IndexExists(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.indices[name]
	return ok
}

// Mapping returns the mapping of a document type as JSON.
func (e *Engine) Mapping(indexName, typeName string) (json.RawMessage, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx, ok := e.indices[indexName]
	if !ok {
		return nil, false
	}
	m, ok := idx.mappings[typeName]
	if !ok {
		return nil, false
	}
	raw, _ := json.Marshal(m)
	return raw, true
}

func (e *Engine) Settings(indexName string) (json.RawMessage, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx, ok := e.indices[indexName]
	if !ok {
		return nil, false
	}
	raw, _ := json.Marshal(idx.settings)
	return raw, true
}

func (e *Engine) Document(indexName, typeName, id string) (Document, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc := e.document(indexName, typeName, id)
	if doc == nil {
		return Document{}, false
	}
	return *doc, true
}

// AliasIndices returns the indices an alias points to.
func (e *Engine) AliasIndices(alias string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := []string{}
	for name := range e.aliases[alias] {
		out = append(out, name)
	}
	return out
}

func (e *Engine) document(indexName, typeName, id string) *Document {
	idx, ok := e.indices[indexName]
	if !ok {
		return nil
	}
	return idx.docs[typeName][id]
}

func (e *Engine) routes() http.Handler {
	mux := http.NewServeMux()
	e.handle(mux, "HEAD /{$}", e.ping)
	e.handle(mux, "GET /{$}", e.ping)
	e.handle(mux, "GET /_cluster/health", e.clusterHealth)
	e.handle(mux, "POST /_aliases", e.updateAliases)
	e.handle(mux, "HEAD /{index}", e.indexExists)
	e.handle(mux, "PUT /{index}", e.createIndex)
	e.handle(mux, "DELETE /{index}", e.deleteIndex)
	e.handle(mux, "POST /{index}/_refresh", e.refreshIndex)
	e.handle(mux, "PUT /{index}/_mapping/{type}", e.putMapping)
	e.handle(mux, "PUT /{index}/{type}/{id}", e.saveDocument)
	e.handle(mux, "GET /{index}/{type}/{id}", e.getDocument)
	e.handle(mux, "HEAD /{index}/{type}/{id}", e.documentExists)
	e.handle(mux, "DELETE /{index}/{type}/{id}", e.deleteDocument)
	e.handle(mux, "DELETE /{index}/{type}/_query", e.deleteByQuery)
	return mux
}

func (e *Engine) handle(mux *http.ServeMux, pattern string, h func(w http.ResponseWriter, r *http.Request, body []byte)) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		current := e.inFlight.Add(1)
		defer e.inFlight.Add(-1)
		for {
			highest := e.maxInFlight.Load()
			if current <= highest || e.maxInFlight.CompareAndSwap(highest, current) {
				break
			}
		}

		e.mu.Lock()
		e.requests = append(e.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: body})
		latency, advertise := e.latency, e.advertise
		f, failed := e.takeFailure(r)
		e.mu.Unlock()

		if advertise {
			w.Header().Set(productHeader, productName)
		}

		if latency > 0 && r.URL.Path != "/_cluster/health" {
			sleep(r.Context(), latency)
		}

		if failed {
			writeError(w, f.status, f.errType, f.reason)
			return
		}

		h(w, r, body)
	})
}

// takeFailure must be called with e.mu held.
func (e *Engine) takeFailure(r *http.Request) (failure, bool) {
	for i, f := range e.failures {
		if f.method == r.Method && f.path == r.URL.Path {
			e.failures = append(e.failures[:i], e.failures[i+1:]...)
			return f, true
		}
	}
	return failure{}, false
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, exception, reason string) {
	writeJSON(w, status, map[string]any{
		"error":  fmt.Sprintf("%s[%s]", exception, reason),
		"status": status,
	})
}

func indexNotFound(w http.ResponseWriter, name string) {
	writeError(w, http.StatusNotFound, "IndexMissingException", fmt.Sprintf("[%s] missing", name))
}

func (e *Engine) ping(w http.ResponseWriter, r *http.Request, _ []byte) {
	e.mu.Lock()
	name := e.clusterName
	e.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       http.StatusOK,
		"name":         "fake-node",
		"cluster_name": name,
		"version":      map[string]any{"number": Version, "lucene_version": "4.10.4"},
		"tagline":      "You Know, for Search",
	})
}
