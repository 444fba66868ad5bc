package harness

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/partio/partio-go/pkg/partio"
)

const testAdminKey = "partioadmin"

// fakePlatform is an in-memory Partio server for exercising the suite.
type fakePlatform struct {
	mu sync.Mutex

	// inactiveEndpoints reports every embedding endpoint as inactive.
	inactiveEndpoints bool

	// pageSize splits enumerate results into pages of this many records.
	pageSize int

	// foreignOnly lists collections whose enumerate returns only a record
	// created outside the run.
	foreignOnly map[string]bool

	// renameOnUpdate lists collections whose update responses report a new ID.
	renameOnUpdate map[string]bool

	seq     int
	records map[string]map[string]map[string]interface{}
	history []map[string]interface{}
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		records: map[string]map[string]map[string]interface{}{
			"tenants":              {},
			"users":                {},
			"credentials":          {},
			"endpoints":            {},
			"completion-endpoints": {},
		},
	}
}

// seed stores rec in collection as if created earlier by someone else.
func (p *fakePlatform) seed(collection string, rec map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[collection][rec["Id"].(string)] = rec
}

// count returns the number of stored records in collection.
func (p *fakePlatform) count(collection string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records[collection])
}

func (p *fakePlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, partio.APIVersionPrefix+"/"), "/")

	if len(parts) == 1 && parts[0] == "health" {
		p.write(w, http.StatusOK, map[string]interface{}{"Status": "Healthy", "Version": "test"})
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+testAdminKey {
		p.fail(w, http.StatusUnauthorized, "Authentication failed.")
		return
	}

	switch {
	case len(parts) == 1 && parts[0] == "whoami":
		p.write(w, http.StatusOK, map[string]interface{}{"Role": "Admin", "TenantName": "Default"})
	case len(parts) == 2 && parts[0] == "requests" && parts[1] == "enumerate":
		p.write(w, http.StatusOK, map[string]interface{}{"Data": p.history, "HasMore": false})
	case len(parts) == 2 && parts[0] == "requests":
		p.historyEntry(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "requests" && parts[2] == "detail":
		if p.findHistory(parts[1]) == nil {
			p.fail(w, http.StatusNotFound, "Request history not found.")
			return
		}
		p.write(w, http.StatusOK, map[string]interface{}{"RequestBody": "{}", "ResponseBody": "{}"})
	case len(parts) == 3 && parts[0] == "endpoints" && parts[2] == "process":
		p.process(w, r, parts[1], false)
	case len(parts) == 4 && parts[0] == "endpoints" && parts[2] == "process" && parts[3] == "batch":
		p.process(w, r, parts[1], true)
	case len(parts) == 3 && parts[2] == "health":
		if _, ok := p.records[parts[0]][parts[1]]; !ok {
			p.fail(w, http.StatusNotFound, "Endpoint not found.")
			return
		}
		p.write(w, http.StatusOK, map[string]interface{}{"EndpointId": parts[1], "IsHealthy": true})
	case len(parts) == 1:
		p.create(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "enumerate":
		p.enumerate(w, r, parts[0])
	case len(parts) == 2:
		p.item(w, r, parts[0], parts[1])
	default:
		p.fail(w, http.StatusNotFound, "Route not found.")
	}
}

func (p *fakePlatform) write(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (p *fakePlatform) fail(w http.ResponseWriter, status int, msg string) {
	p.write(w, status, map[string]interface{}{
		"Error":      http.StatusText(status),
		"Message":    msg,
		"StatusCode": status,
	})
}

func (p *fakePlatform) create(w http.ResponseWriter, r *http.Request, collection string) {
	store, ok := p.records[collection]
	if !ok || r.Method != http.MethodPut {
		p.fail(w, http.StatusNotFound, "Route not found.")
		return
	}
	rec := map[string]interface{}{}
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		p.fail(w, http.StatusBadRequest, err.Error())
		return
	}
	p.seq++
	rec["Id"] = fmt.Sprintf("%s_%d", collection, p.seq)
	rec["CreatedUtc"] = "2025-01-01T00:00:00Z"
	delete(rec, "Password")
	store[rec["Id"].(string)] = rec
	p.write(w, http.StatusOK, rec)
}

func (p *fakePlatform) enumerate(w http.ResponseWriter, r *http.Request, collection string) {
	store, ok := p.records[collection]
	if !ok {
		p.fail(w, http.StatusNotFound, "Route not found.")
		return
	}
	var req partio.EnumerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		p.fail(w, http.StatusBadRequest, err.Error())
		return
	}

	if p.foreignOnly[collection] {
		foreign := map[string]interface{}{"Id": "someone-elses-" + collection}
		p.write(w, http.StatusOK, map[string]interface{}{"Data": []interface{}{foreign}, "HasMore": false})
		return
	}

	ids := make([]string, 0, len(store))
	for id := range store {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start, end := 0, len(ids)
	if req.ContinuationToken != "" {
		start, _ = strconv.Atoi(req.ContinuationToken)
	}
	if start > len(ids) {
		start = len(ids)
	}
	if p.pageSize > 0 && start+p.pageSize < end {
		end = start + p.pageSize
	}

	data := make([]map[string]interface{}, 0, end-start)
	for _, id := range ids[start:end] {
		out := copyRecord(store[id])
		if collection == "endpoints" && p.inactiveEndpoints {
			out["Active"] = false
		}
		data = append(data, out)
	}

	page := map[string]interface{}{"Data": data, "TotalCount": len(ids), "HasMore": end < len(ids)}
	if end < len(ids) {
		page["ContinuationToken"] = strconv.Itoa(end)
	}
	p.write(w, http.StatusOK, page)
}

func (p *fakePlatform) item(w http.ResponseWriter, r *http.Request, collection, id string) {
	store, ok := p.records[collection]
	if !ok {
		p.fail(w, http.StatusNotFound, "Route not found.")
		return
	}
	rec, found := store[id]

	switch r.Method {
	case http.MethodHead:
		if !found {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet, http.MethodPut, http.MethodDelete:
		if !found {
			p.fail(w, http.StatusNotFound, "Record not found.")
			return
		}
	default:
		p.fail(w, http.StatusMethodNotAllowed, "Method not allowed.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		p.write(w, http.StatusOK, rec)
	case http.MethodPut:
		updated := map[string]interface{}{}
		if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
			p.fail(w, http.StatusBadRequest, err.Error())
			return
		}
		updated["Id"] = id
		updated["CreatedUtc"] = rec["CreatedUtc"]
		delete(updated, "Password")
		store[id] = updated
		if p.renameOnUpdate[collection] {
			renamed := copyRecord(updated)
			renamed["Id"] = id + "-renamed"
			p.write(w, http.StatusOK, renamed)
			return
		}
		p.write(w, http.StatusOK, updated)
	case http.MethodDelete:
		delete(store, id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (p *fakePlatform) historyEntry(w http.ResponseWriter, r *http.Request, id string) {
	entry := p.findHistory(id)
	if entry == nil {
		p.fail(w, http.StatusNotFound, "Request history not found.")
		return
	}
	p.write(w, http.StatusOK, entry)
}

func (p *fakePlatform) findHistory(id string) map[string]interface{} {
	for _, entry := range p.history {
		if entry["Id"] == id {
			return entry
		}
	}
	return nil
}

func (p *fakePlatform) process(w http.ResponseWriter, r *http.Request, endpointID string, batch bool) {
	if _, ok := p.records["endpoints"][endpointID]; !ok {
		p.fail(w, http.StatusNotFound, "Embedding endpoint not found.")
		return
	}

	var reqs []partio.ProcessRequest
	if batch {
		if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
			p.fail(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		var req partio.ProcessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			p.fail(w, http.StatusBadRequest, err.Error())
			return
		}
		reqs = append(reqs, req)
	}

	results := make([]partio.ProcessResult, 0, len(reqs))
	for _, req := range reqs {
		result, msg := fakeChunk(req)
		if msg != "" {
			p.fail(w, http.StatusBadRequest, msg)
			return
		}
		results = append(results, result)
	}

	p.seq++
	p.history = append(p.history, map[string]interface{}{
		"Id":         fmt.Sprintf("requests_%d", p.seq),
		"HttpMethod": r.Method,
		"HttpUrl":    r.URL.Path,
		"HttpStatus": http.StatusOK,
	})

	if batch {
		p.write(w, http.StatusOK, results)
		return
	}
	p.write(w, http.StatusOK, results[0])
}

// fakeChunk applies the platform's strategy rules and returns the chunked
// result, or a rejection message.
func fakeChunk(req partio.ProcessRequest) (partio.ProcessResult, string) {
	cfg := req.ChunkingConfiguration
	if !cfg.Strategy.Known() {
		return partio.ProcessResult{}, fmt.Sprintf("Unknown strategy %q.", cfg.Strategy)
	}
	if cfg.Strategy.AppliesTo() != req.Type {
		return partio.ProcessResult{}, fmt.Sprintf("Strategy %s cannot be used with %s input.", cfg.Strategy, req.Type)
	}
	if cfg.Strategy == partio.StrategyRegexBased && cfg.RegexPattern == "" {
		return partio.ProcessResult{}, "RegexPattern is required when using RegexBased strategy."
	}

	n := 1
	if want, ok := cfg.ExpectedChunks(req.Table); ok {
		n = want
	} else if cfg.Strategy == partio.StrategyRegexBased {
		n = 0
		for _, line := range strings.Split(req.Text, "\n") {
			if strings.HasPrefix(line, "#") {
				n++
			}
		}
		if n == 0 {
			n = 1
		}
	}

	result := partio.ProcessResult{
		GUID: req.GUID,
		Type: req.Type,
		Text: req.Text,
	}
	for i := 0; i < n; i++ {
		result.Chunks = append(result.Chunks, partio.Chunk{
			CellGUID:   req.GUID,
			Text:       fmt.Sprintf("chunk %d", i),
			Labels:     req.Labels,
			Tags:       req.Tags,
			Embeddings: partio.Embeddings{{0.1, 0.2, 0.3}},
		})
	}
	return result, ""
}

func copyRecord(rec map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
