package elasticx

import (
	"encoding/json"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/result"
)

type getResponse struct {
	Index   string          `json:"_index"`
	Type    string          `json:"_type"`
	ID      string          `json:"_id"`
	Version int64           `json:"_version"`
	Found   bool            `json:"found"`
	Source  json.RawMessage `json:"_source"`
}

// writeResponse answers a document write or delete. Engines before 5.0 report
// created or found instead of a result.
type writeResponse struct {
	Index   string        `json:"_index"`
	Type    string        `json:"_type"`
	ID      string        `json:"_id"`
	Version int64         `json:"_version"`
	Result  result.Result `json:"result"`
	Created *bool         `json:"created"`
	Found   *bool         `json:"found"`
}

func (r writeResponse) saved() DocumentMeta {
	meta := DocumentMeta{ID: r.ID, Index: r.Index, Type: r.Type, Version: r.Version, Result: r.Result}
	if meta.Result.Name == "" {
		meta.Result = result.Updated
		if r.Created != nil && *r.Created {
			meta.Result = result.Created
		}
	}
	return meta
}

func (r writeResponse) deleted() bool {
	if r.Result == result.Notfound {
		return false
	}
	return r.Found == nil || *r.Found
}

// DeleteByQueryResponse reports, per index, the shards the deletion ran on.
type DeleteByQueryResponse struct {
	Indices map[string]DeleteByQueryIndex `json:"_indices"`
}

type DeleteByQueryIndex struct {
	Shards ShardsInfo `json:"_shards"`
}

type ShardsInfo struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// FailedShards returns the number of shards the deletion failed on. Deletions
// applied on the other shards are kept.
func (r DeleteByQueryResponse) FailedShards() int {
	failed := 0
	for _, idx := range r.Indices {
		failed += idx.Shards.Failed
	}
	return failed
}
