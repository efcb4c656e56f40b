package elasticxtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

func (e *Engine) clusterHealth(w http.ResponseWriter, r *http.Request, _ []byte) {
	e.mu.Lock()
	delay, status, name := e.healthDelay, e.status, e.clusterName
	e.mu.Unlock()

	if delay > 0 {
		sleep(r.Context(), delay)
	}

	wait := r.URL.Query().Get("wait_for_status")
	timedOut := wait != "" && rank(status) < rank(wait)

	code := http.StatusOK
	if timedOut {
		code = http.StatusRequestTimeout
	}

	writeJSON(w, code, map[string]any{
		"cluster_name":          name,
		"status":                status,
		"timed_out":             timedOut,
		"number_of_nodes":       1,
		"number_of_data_nodes":  1,
		"active_primary_shards": len(e.snapshotIndexNames()),
	})
}

func rank(status string) int {
	switch status {
	case "green":
		return 2
	case "yellow":
		return 1
	default:
		return 0
	}
}

func (e *Engine) snapshotIndexNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.indices))
	for name := range e.indices {
		out = append(out, name)
	}
	return out
}

func (e *Engine) indexExists(w http.ResponseWriter, r *http.Request, _ []byte) {
	if e.IndexExists(r.PathValue("index")) {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (e *Engine) createIndex(w http.ResponseWriter, r *http.Request, body []byte) {
	name := r.PathValue("index")

	var req struct {
		Settings map[string]any            `json:"settings"`
		Mappings map[string]map[string]any `json:"mappings"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "mapper_parsing_exception", err.Error())
			return
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.indices[name]; ok {
		writeError(w, http.StatusBadRequest, "IndexAlreadyExistsException", fmt.Sprintf("[%s] already exists", name))
		return
	}

	idx := newIndex(req.Settings)
	for typeName, m := range req.Mappings {
		idx.mappings[typeName] = m
	}
	e.indices[name] = idx

	writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
}

func (e *Engine) deleteIndex(w http.ResponseWriter, r *http.Request, _ []byte) {
	name := r.PathValue("index")

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.indices[name]; !ok {
		indexNotFound(w, name)
		return
	}
	delete(e.indices, name)
	for _, indices := range e.aliases {
		delete(indices, name)
	}

	writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
}

func (e *Engine) refreshIndex(w http.ResponseWriter, r *http.Request, _ []byte) {
	name := r.PathValue("index")

	e.mu.Lock()
	idx, ok := e.indices[name]
	if ok {
		idx.refresh()
	}
	e.mu.Unlock()

	if !ok {
		indexNotFound(w, name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"_shards": map[string]any{"total": 1, "successful": 1, "failed": 0}})
}

func (e *Engine) putMapping(w http.ResponseWriter, r *http.Request, body []byte) {
	name, typeName := r.PathValue("index"), r.PathValue("type")

	var req map[string]map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "MapperParsingException", err.Error())
		return
	}
	update, ok := req[typeName]
	if !ok {
		writeError(w, http.StatusBadRequest, "MapperParsingException", fmt.Sprintf("Root type mapping not empty after parsing! Remaining fields: [%s]", typeName))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx, ok := e.indices[name]
	if !ok {
		indexNotFound(w, name)
		return
	}

	if e.rejectMappings {
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": false})
		return
	}

	current := idx.mappings[typeName]
	if current == nil {
		idx.mappings[typeName] = update
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
		return
	}

	currentProps, _ := current["properties"].(map[string]any)
	updateProps, _ := update["properties"].(map[string]any)
	if r.URL.Query().Get("ignore_conflicts") != "true" {
		for field, u := range updateProps {
			c, ok := currentProps[field]
			if !ok {
				continue
			}
			ct, ut := fieldType(c), fieldType(u)
			if ct != ut {
				writeError(w, http.StatusBadRequest, "MergeMappingException",
					fmt.Sprintf("Merge failed with failures {[mapper [%s] of different type, current_type [%s], merged_type [%s]]}", field, ct, ut))
				return
			}
		}
	}

	merged := map[string]any{}
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range update {
		merged[k] = v
	}
	props := map[string]any{}
	for k, v := range currentProps {
		props[k] = v
	}
	for k, v := range updateProps {
		props[k] = v
	}
	merged["properties"] = props
	idx.mappings[typeName] = merged

	writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
}

func fieldType(v any) string {
	m, _ := v.(map[string]any)
	t, _ := m["type"].(string)
	return t
}

func (e *Engine) updateAliases(w http.ResponseWriter, _ *http.Request, body []byte) {
	var req struct {
		Actions []map[string]struct {
			Index string `json:"index"`
			Alias string `json:"alias"`
		} `json:"actions"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "ElasticsearchParseException", err.Error())
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, action := range req.Actions {
		for _, a := range action {
			if _, ok := e.indices[a.Index]; !ok {
				indexNotFound(w, a.Index)
				return
			}
		}
	}

	for _, action := range req.Actions {
		for kind, a := range action {
			switch kind {
			case "add":
				if e.aliases[a.Alias] == nil {
					e.aliases[a.Alias] = map[string]struct{}{}
				}
				e.aliases[a.Alias][a.Index] = struct{}{}
			case "remove":
				delete(e.aliases[a.Alias], a.Index)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
}

func (e *Engine) saveDocument(w http.ResponseWriter, r *http.Request, body []byte) {
	name, typeName, id := r.PathValue("index"), r.PathValue("type"), r.PathValue("id")
	q := r.URL.Query()

	var source map[string]any
	if err := json.Unmarshal(body, &source); err != nil {
		writeError(w, http.StatusBadRequest, "MapperParsingException", "failed to parse")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx, ok := e.indices[name]
	if !ok {
		indexNotFound(w, name)
		return
	}

	if m := idx.mappings[typeName]; m != nil && m["dynamic"] == "strict" {
		props, _ := m["properties"].(map[string]any)
		for field := range source {
			if _, ok := props[field]; !ok {
				writeError(w, http.StatusBadRequest, "StrictDynamicMappingException",
					fmt.Sprintf("mapping set to strict, dynamic introduction of [%s] within [%s] is not allowed", field, typeName))
				return
			}
		}
	}

	current := idx.docs[typeName][id]

	version := int64(1)
	if current != nil {
		version = current.Version + 1
	}
	if vt := q.Get("version_type"); vt != "" {
		v, err := strconv.ParseInt(q.Get("version"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "ActionRequestValidationException", "Validation Failed: 1: illegal version value;")
			return
		}
		if current != nil && (v < current.Version || (vt == "external" && v == current.Version)) {
			writeError(w, http.StatusConflict, "VersionConflictEngineException",
				fmt.Sprintf("[%s][0] [%s][%s]: version conflict, current [%d], provided [%d]", name, typeName, id, current.Version, v))
			return
		}
		version = v
	}

	if idx.docs[typeName] == nil {
		idx.docs[typeName] = map[string]*Document{}
	}
	idx.docs[typeName][id] = &Document{Version: version, Source: json.RawMessage(body), TTL: q.Get("ttl")}
	if refreshRequested(q) {
		idx.refresh()
	}

	status := http.StatusCreated
	if current != nil {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"_index":   name,
		"_type":    typeName,
		"_id":      id,
		"_version": version,
		"created":  current == nil,
	})
}

func refreshRequested(q url.Values) bool {
	if !q.Has("refresh") {
		return false
	}
	return q.Get("refresh") != "false"
}

// lookup reads the live document, or the refreshed one when realtime is off.
func (idx *index) lookup(r *http.Request) *Document {
	docs := idx.docs
	if r.URL.Query().Get("realtime") == "false" {
		docs = idx.visible
	}
	return docs[r.PathValue("type")][r.PathValue("id")]
}

func (e *Engine) getDocument(w http.ResponseWriter, r *http.Request, _ []byte) {
	name, typeName, id := r.PathValue("index"), r.PathValue("type"), r.PathValue("id")

	e.mu.Lock()
	defer e.mu.Unlock()

	idx, ok := e.indices[name]
	if !ok {
		indexNotFound(w, name)
		return
	}

	doc := idx.lookup(r)
	if doc == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"_index": name, "_type": typeName, "_id": id, "found": false})
		return
	}

	res := map[string]any{"_index": name, "_type": typeName, "_id": id, "_version": doc.Version, "found": true}
	if sourceEnabled(idx.mappings[typeName]) {
		res["_source"] = doc.Source
	}
	writeJSON(w, http.StatusOK, res)
}

func sourceEnabled(m map[string]any) bool {
	src, ok := m["_source"].(map[string]any)
	if !ok {
		return true
	}
	enabled, ok := src["enabled"].(bool)
	return !ok || enabled
}

func (e *Engine) documentExists(w http.ResponseWriter, r *http.Request, _ []byte) {
	e.mu.Lock()
	var doc *Document
	if idx, ok := e.indices[r.PathValue("index")]; ok {
		doc = idx.lookup(r)
	}
	e.mu.Unlock()

	if doc == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (e *Engine) deleteDocument(w http.ResponseWriter, r *http.Request, _ []byte) {
	name, typeName, id := r.PathValue("index"), r.PathValue("type"), r.PathValue("id")

	e.mu.Lock()
	defer e.mu.Unlock()

	idx, ok := e.indices[name]
	if !ok {
		indexNotFound(w, name)
		return
	}

	doc := idx.docs[typeName][id]
	if doc == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"_index": name, "_type": typeName, "_id": id, "_version": 1, "found": false})
		return
	}
	delete(idx.docs[typeName], id)
	if refreshRequested(r.URL.Query()) {
		idx.refresh()
	}

	writeJSON(w, http.StatusOK, map[string]any{"_index": name, "_type": typeName, "_id": id, "_version": doc.Version + 1, "found": true})
}

// deleteByQuery deletes the refreshed documents matching the query.
func (e *Engine) deleteByQuery(w http.ResponseWriter, r *http.Request, body []byte) {
	name, typeName := r.PathValue("index"), r.PathValue("type")

	var req struct {
		Query map[string]json.RawMessage `json:"query"`
	}
	if err := json.Unmarshal(body, &req); err != nil || len(req.Query) != 1 {
		writeError(w, http.StatusBadRequest, "QueryParsingException", fmt.Sprintf("[%s] request does not support a query other than a single one", name))
		return
	}

	match, err := matcher(req.Query)
	if err != nil {
		writeError(w, http.StatusBadRequest, "QueryParsingException", fmt.Sprintf("[%s] %s", name, err))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx, ok := e.indices[name]
	if !ok {
		indexNotFound(w, name)
		return
	}

	for id, doc := range idx.visible[typeName] {
		var source map[string]any
		_ = json.Unmarshal(doc.Source, &source)
		if match(id, source) {
			delete(idx.docs[typeName], id)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"_indices": map[string]any{
			name: map[string]any{
				"_shards": map[string]any{"total": 1, "successful": 1, "failed": 0},
			},
		},
	})
}

// matcher supports match_all, term and ids queries.
func matcher(query map[string]json.RawMessage) (func(id string, source map[string]any) bool, error) {
	for kind, raw := range query {
		switch kind {
		case "match_all":
			return func(string, map[string]any) bool { return true }, nil
		case "ids":
			var ids struct {
				Values []string `json:"values"`
			}
			if err := json.Unmarshal(raw, &ids); err != nil {
				return nil, err
			}
			set := map[string]struct{}{}
			for _, id := range ids.Values {
				set[id] = struct{}{}
			}
			return func(id string, _ map[string]any) bool {
				_, ok := set[id]
				return ok
			}, nil
		case "term":
			var term map[string]any
			if err := json.Unmarshal(raw, &term); err != nil {
				return nil, err
			}
			for field, v := range term {
				if obj, ok := v.(map[string]any); ok {
					v = obj["value"]
				}
				want := fmt.Sprint(v)
				return func(_ string, source map[string]any) bool {
					got, ok := source[field]
					return ok && fmt.Sprint(got) == want
				}, nil
			}
			return nil, fmt.Errorf("[term] query requires a field")
		default:
			return nil, fmt.Errorf("No query registered for [%s]", kind)
		}
	}
	return nil, fmt.Errorf("empty query")
}
