package elasticx

import (
	"context"
	"time"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/refresh"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/result"
)

// IndexDocuments gives access to the documents of one type in an index.
type IndexDocuments interface {
	// SaveDocument stores the document under id with an external version.
	// The engine keeps the write only if version is greater than or equal to the
	// stored version, or strictly greater with WithStrictVersion. A rejected write
	// is reported as a write conflict unless WithIgnoreConflict is given, in which
	// case the stored document is left untouched.
	SaveDocument(ctx context.Context, id string, document interface{}, version int64, opts ...DocumentOption) (*DocumentMeta, error)

	// ReadDocument reads a single document with given id.
	// The document data is stored into result when the type keeps its source, the document metadata is returned.
	// If no document exists with given id, a NotFoundError is returned.
	ReadDocument(ctx context.Context, id string, result interface{}, opts ...DocumentOption) (*DocumentMeta, error)

	// DocumentExists checks if a document with given id exists.
	DocumentExists(ctx context.Context, id string, opts ...DocumentOption) (bool, error)

	// DeleteDocument deletes a single document with given id.
	// If no document exists with given id, a NotFoundError is returned.
	DeleteDocument(ctx context.Context, id string, opts ...DocumentOption) error

	// DeleteByQuery deletes every document matching the query. Deletions are
	// applied as the engine processes them and are never rolled back.
	DeleteByQuery(ctx context.Context, query interface{}, opts ...DocumentOption) (*DeleteByQueryResponse, error)
}

// ResultConflictIgnored is the result of a write whose conflict was ignored.
var ResultConflictIgnored = result.Result{Name: "conflict_ignored"}

type DocumentMeta struct {
	ID      string        `json:"_id"`
	Index   string        `json:"_index"`
	Type    string        `json:"_type,omitempty"`
	Version int64         `json:"_version"`
	Result  result.Result `json:"result"`
}

type documentOptions struct {
	refresh        refresh.Refresh
	ttl            time.Duration
	ignoreConflict bool
	versionType    string
	realtime       bool
}

type DocumentOption func(*documentOptions)

func newDocumentOptions(opts ...DocumentOption) *documentOptions {
	o := &documentOptions{versionType: versionTypeExternalGTE, realtime: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithRefresh sets the refresh option of the document operation.
// Writes are not refreshed by default.
func WithRefresh(refresh refresh.Refresh) DocumentOption {
	return func(opts *documentOptions) {
		opts.refresh = refresh
	}
}

// WithTTL expires the saved document after d.
func WithTTL(d time.Duration) DocumentOption {
	return func(opts *documentOptions) {
		opts.ttl = d
	}
}

// WithStrictVersion rejects a save whose version equals the stored one.
func WithStrictVersion() DocumentOption {
	return func(opts *documentOptions) {
		opts.versionType = versionTypeExternal
	}
}

// WithRealtime(false) reads from the last refresh of the index, where saves and
// deletions only show once refreshed. Reads are realtime by default.
func WithRealtime(realtime bool) DocumentOption {
	return func(opts *documentOptions) {
		opts.realtime = realtime
	}
}

// WithIgnoreConflict turns a version conflict into a successful no-op.
func WithIgnoreConflict() DocumentOption {
	return func(opts *documentOptions) {
		opts.ignoreConflict = true
	}
}
