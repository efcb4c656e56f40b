package elasticx

import (
	"context"

	"github.com/clinia/searchx/mappingx"
)

// Index provides access to a single index.
type Index interface {
	// Name returns the name of the index.
	Name() string

	// Exists checks whether the index exists.
	Exists(ctx context.Context) (bool, error)

	// Reconcile makes the remote index match the mapping. An absent index is
	// created with the settings and the call blocks until the cluster is healthy.
	// The mapping of an existing index is updated instead, refusing changes to
	// existing fields. The index is refreshed in both cases.
	Reconcile(ctx context.Context, settings map[string]any, mapping mappingx.IndexMapping) (ReconcileResult, error)

	// DropAndRecreate removes the index if present, then reconciles it.
	// Every document of the index is lost.
	DropAndRecreate(ctx context.Context, settings map[string]any, mapping mappingx.IndexMapping) (ReconcileResult, error)

	// Refresh makes every write done so far visible to reads.
	Refresh(ctx context.Context) error

	// Remove removes the entire index.
	// If the index does not exist, a NotFoundError is returned.
	Remove(ctx context.Context) error

	// Documents gives access to the documents of the given type.
	Documents(typeName string) IndexDocuments
}

type ReconcileResult string

const (
	ReconcileCreated ReconcileResult = "created"
	ReconcileUpdated ReconcileResult = "updated"
)

func (r ReconcileResult) String() string {
	return string(r)
}

func (r ReconcileResult) Created() bool {
	return r == ReconcileCreated
}

func (r ReconcileResult) Updated() bool {
	return r == ReconcileUpdated
}
