package partio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Collection exposes the uniform create/read/update/delete/exists/enumerate
// pattern over one resource collection, e.g. /v1.0/tenants.
type Collection[T any] struct {
	client *Client
	path   string
}

func newCollection[T any](c *Client, name string) *Collection[T] {
	return &Collection[T]{
		client: c,
		path:   APIVersionPrefix + "/" + name,
	}
}

// Path returns the collection path, e.g. "/v1.0/tenants".
func (col *Collection[T]) Path() string {
	return col.path
}

func (col *Collection[T]) itemPath(id string) string {
	return col.path + "/" + url.PathEscape(id)
}

// Create stores a new record and returns it with its server-assigned ID.
func (col *Collection[T]) Create(ctx context.Context, data *T) (*T, error) {
	return col.send(ctx, http.MethodPut, col.path, data)
}

// Get reads the record with the given ID.
func (col *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	return col.send(ctx, http.MethodGet, col.itemPath(id), nil)
}

// Update replaces the record with the given ID and returns the stored record.
func (col *Collection[T]) Update(ctx context.Context, id string, data *T) (*T, error) {
	return col.send(ctx, http.MethodPut, col.itemPath(id), data)
}

// Delete removes the record with the given ID.
func (col *Collection[T]) Delete(ctx context.Context, id string) error {
	return col.client.Request(ctx, http.MethodDelete, col.itemPath(id), nil, nil)
}

// Exists checks the record with a HEAD request. It returns true only for a
// 200 response; every other status, including 404, is false and not an
// error. Transport failures are returned as errors.
func (col *Collection[T]) Exists(ctx context.Context, id string) (bool, error) {
	status, err := col.client.head(ctx, col.itemPath(id))
	if err != nil {
		return false, err
	}
	return status == http.StatusOK, nil
}

// Enumerate returns one page of records. A nil request is sent as {}.
func (col *Collection[T]) Enumerate(ctx context.Context, req *EnumerationRequest) (*EnumerationResult[T], error) {
	if req == nil {
		req = &EnumerationRequest{}
	}

	var page EnumerationResult[T]
	ok, err := col.client.request(ctx, http.MethodPost, col.path+"/enumerate", req, &page)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &EnumerationResult[T]{}, nil
	}
	return &page, nil
}

// EnumerateAll follows continuation tokens until the server reports no more
// pages and returns every record.
func (col *Collection[T]) EnumerateAll(ctx context.Context, req *EnumerationRequest) ([]T, error) {
	next := EnumerationRequest{}
	if req != nil {
		next = *req
	}

	var all []T
	for {
		page, err := col.Enumerate(ctx, &next)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Data...)

		if !page.HasMore || page.ContinuationToken == "" {
			return all, nil
		}
		if page.ContinuationToken == next.ContinuationToken {
			return nil, fmt.Errorf("enumerate %s: server repeated continuation token %q", col.path, page.ContinuationToken)
		}
		next.ContinuationToken = page.ContinuationToken
	}
}

func (col *Collection[T]) send(ctx context.Context, method, path string, body *T) (*T, error) {
	var in interface{}
	if body != nil {
		in = body
	}

	var out T
	ok, err := col.client.request(ctx, method, path, in, &out)
	if err != nil || !ok {
		return nil, err
	}
	return &out, nil
}

// Tenants returns the /v1.0/tenants collection.
func (c *Client) Tenants() *Collection[Tenant] {
	return newCollection[Tenant](c, "tenants")
}

// Users returns the /v1.0/users collection.
func (c *Client) Users() *Collection[User] {
	return newCollection[User](c, "users")
}

// Credentials returns the /v1.0/credentials collection.
func (c *Client) Credentials() *Collection[Credential] {
	return newCollection[Credential](c, "credentials")
}

// EndpointCollection is a collection of embedding or completion endpoints,
// which additionally report monitored health.
type EndpointCollection[T any] struct {
	*Collection[T]
}

// Health returns the monitored health of the endpoint with the given ID.
func (col *EndpointCollection[T]) Health(ctx context.Context, id string) (*EndpointHealthStatus, error) {
	var status EndpointHealthStatus
	ok, err := col.client.request(ctx, http.MethodGet, col.itemPath(id)+"/health", nil, &status)
	if err != nil || !ok {
		return nil, err
	}
	return &status, nil
}

// EmbeddingEndpoints returns the /v1.0/endpoints collection.
func (c *Client) EmbeddingEndpoints() *EndpointCollection[EmbeddingEndpoint] {
	return &EndpointCollection[EmbeddingEndpoint]{newCollection[EmbeddingEndpoint](c, "endpoints")}
}

// CompletionEndpoints returns the /v1.0/completion-endpoints collection.
func (c *Client) CompletionEndpoints() *EndpointCollection[CompletionEndpoint] {
	return &EndpointCollection[CompletionEndpoint]{newCollection[CompletionEndpoint](c, "completion-endpoints")}
}

// RequestHistory is the read-only audit collection at /v1.0/requests. Entries
// are written by the server; the client can read, enumerate and delete them.
type RequestHistory struct {
	col *Collection[RequestHistoryEntry]
}

// RequestHistory returns the /v1.0/requests collection.
func (c *Client) RequestHistory() *RequestHistory {
	return &RequestHistory{col: newCollection[RequestHistoryEntry](c, "requests")}
}

// Get reads one history entry.
func (h *RequestHistory) Get(ctx context.Context, id string) (*RequestHistoryEntry, error) {
	return h.col.Get(ctx, id)
}

// GetDetail reads the captured request/response bodies of one history entry.
func (h *RequestHistory) GetDetail(ctx context.Context, id string) (*RequestHistoryDetail, error) {
	var detail RequestHistoryDetail
	ok, err := h.col.client.request(ctx, http.MethodGet, h.col.itemPath(id)+"/detail", nil, &detail)
	if err != nil || !ok {
		return nil, err
	}
	return &detail, nil
}

// Delete removes one history entry.
func (h *RequestHistory) Delete(ctx context.Context, id string) error {
	return h.col.Delete(ctx, id)
}

// Enumerate returns one page of history entries.
func (h *RequestHistory) Enumerate(ctx context.Context, req *EnumerationRequest) (*EnumerationResult[RequestHistoryEntry], error) {
	return h.col.Enumerate(ctx, req)
}
