package partio

import (
	"time"
)

// Tenant is the top-level isolation boundary owning users, credentials and
// endpoints.
type Tenant struct {
	ID            string            `json:"Id,omitempty"`
	Name          string            `json:"Name,omitempty"`
	Active        *bool             `json:"Active,omitempty"`
	Labels        []string          `json:"Labels,omitempty"`
	Tags          map[string]string `json:"Tags,omitempty"`
	CreatedUtc    *time.Time        `json:"CreatedUtc,omitempty"`
	LastUpdateUtc *time.Time        `json:"LastUpdateUtc,omitempty"`

	Extra Extra `json:"-"`
}

func (t *Tenant) UnmarshalJSON(data []byte) error {
	type alias Tenant
	return unmarshalWithExtra(data, (*alias)(t), &t.Extra)
}

func (t Tenant) MarshalJSON() ([]byte, error) {
	type alias Tenant
	return marshalWithExtra(alias(t), t.Extra)
}

// User belongs to exactly one tenant. Password is write-only: the server
// never returns it.
type User struct {
	ID             string            `json:"Id,omitempty"`
	TenantID       string            `json:"TenantId,omitempty"`
	Email          string            `json:"Email,omitempty"`
	Password       string            `json:"Password,omitempty"`
	PasswordSha256 string            `json:"PasswordSha256,omitempty"`
	FirstName      string            `json:"FirstName,omitempty"`
	LastName       string            `json:"LastName,omitempty"`
	IsAdmin        bool              `json:"IsAdmin,omitempty"`
	Active         *bool             `json:"Active,omitempty"`
	Labels         []string          `json:"Labels,omitempty"`
	Tags           map[string]string `json:"Tags,omitempty"`
	CreatedUtc     *time.Time        `json:"CreatedUtc,omitempty"`
	LastUpdateUtc  *time.Time        `json:"LastUpdateUtc,omitempty"`

	Extra Extra `json:"-"`
}

func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	return unmarshalWithExtra(data, (*alias)(u), &u.Extra)
}

func (u User) MarshalJSON() ([]byte, error) {
	type alias User
	return marshalWithExtra(alias(u), u.Extra)
}

// Credential is a bearer token owned by a user within a tenant.
type Credential struct {
	ID            string            `json:"Id,omitempty"`
	TenantID      string            `json:"TenantId,omitempty"`
	UserID        string            `json:"UserId,omitempty"`
	Name          string            `json:"Name,omitempty"`
	BearerToken   string            `json:"BearerToken,omitempty"`
	Active        *bool             `json:"Active,omitempty"`
	Labels        []string          `json:"Labels,omitempty"`
	Tags          map[string]string `json:"Tags,omitempty"`
	CreatedUtc    *time.Time        `json:"CreatedUtc,omitempty"`
	LastUpdateUtc *time.Time        `json:"LastUpdateUtc,omitempty"`

	Extra Extra `json:"-"`
}

func (c *Credential) UnmarshalJSON(data []byte) error {
	type alias Credential
	return unmarshalWithExtra(data, (*alias)(c), &c.Extra)
}

func (c Credential) MarshalJSON() ([]byte, error) {
	type alias Credential
	return marshalWithExtra(alias(c), c.Extra)
}

// API formats understood by embedding and completion endpoints.
const (
	APIFormatOllama = "Ollama"
	APIFormatOpenAI = "OpenAI"
)

// HealthCheck holds the health check settings shared by embedding and
// completion endpoints.
type HealthCheck struct {
	HealthCheckEnabled            *bool  `json:"HealthCheckEnabled,omitempty"`
	HealthCheckURL                string `json:"HealthCheckUrl,omitempty"`
	HealthCheckMethod             string `json:"HealthCheckMethod,omitempty"`
	HealthCheckIntervalMs         int    `json:"HealthCheckIntervalMs,omitempty"`
	HealthCheckTimeoutMs          int    `json:"HealthCheckTimeoutMs,omitempty"`
	HealthCheckExpectedStatusCode int    `json:"HealthCheckExpectedStatusCode,omitempty"`
	HealthyThreshold              int    `json:"HealthyThreshold,omitempty"`
	UnhealthyThreshold            int    `json:"UnhealthyThreshold,omitempty"`
	HealthCheckUseAuth            *bool  `json:"HealthCheckUseAuth,omitempty"`
}

// EmbeddingEndpoint is a backend that produces vector embeddings, e.g. an
// Ollama server. Active defaults to true on the server when omitted.
type EmbeddingEndpoint struct {
	ID                   string            `json:"Id,omitempty"`
	TenantID             string            `json:"TenantId,omitempty"`
	Model                string            `json:"Model,omitempty"`
	Endpoint             string            `json:"Endpoint,omitempty"`
	APIFormat            string            `json:"ApiFormat,omitempty"`
	APIKey               string            `json:"ApiKey,omitempty"`
	Active               *bool             `json:"Active,omitempty"`
	EnableRequestHistory *bool             `json:"EnableRequestHistory,omitempty"`
	Labels               []string          `json:"Labels,omitempty"`
	Tags                 map[string]string `json:"Tags,omitempty"`
	CreatedUtc           *time.Time        `json:"CreatedUtc,omitempty"`
	LastUpdateUtc        *time.Time        `json:"LastUpdateUtc,omitempty"`

	HealthCheck

	Extra Extra `json:"-"`
}

// NewEmbeddingEndpoint returns an active endpoint record for tenantID.
func NewEmbeddingEndpoint(tenantID, model, endpoint, apiFormat string) *EmbeddingEndpoint {
	return &EmbeddingEndpoint{
		TenantID:  tenantID,
		Model:     model,
		Endpoint:  endpoint,
		APIFormat: apiFormat,
		Active:    Bool(true),
	}
}

// IsActive reports whether the endpoint is active. An unset flag means the
// server default, which is active.
func (e *EmbeddingEndpoint) IsActive() bool {
	return e.Active == nil || *e.Active
}

func (e *EmbeddingEndpoint) UnmarshalJSON(data []byte) error {
	type alias EmbeddingEndpoint
	return unmarshalWithExtra(data, (*alias)(e), &e.Extra)
}

func (e EmbeddingEndpoint) MarshalJSON() ([]byte, error) {
	type alias EmbeddingEndpoint
	return marshalWithExtra(alias(e), e.Extra)
}

// CompletionEndpoint is a backend for generative text completion.
type CompletionEndpoint struct {
	ID                   string            `json:"Id,omitempty"`
	TenantID             string            `json:"TenantId,omitempty"`
	Name                 string            `json:"Name,omitempty"`
	Model                string            `json:"Model,omitempty"`
	Endpoint             string            `json:"Endpoint,omitempty"`
	APIFormat            string            `json:"ApiFormat,omitempty"`
	APIKey               string            `json:"ApiKey,omitempty"`
	Active               *bool             `json:"Active,omitempty"`
	EnableRequestHistory *bool             `json:"EnableRequestHistory,omitempty"`
	Labels               []string          `json:"Labels,omitempty"`
	Tags                 map[string]string `json:"Tags,omitempty"`
	CreatedUtc           *time.Time        `json:"CreatedUtc,omitempty"`
	LastUpdateUtc        *time.Time        `json:"LastUpdateUtc,omitempty"`

	HealthCheck

	Extra Extra `json:"-"`
}

// IsActive reports whether the endpoint is active.
func (e *CompletionEndpoint) IsActive() bool {
	return e.Active == nil || *e.Active
}

func (e *CompletionEndpoint) UnmarshalJSON(data []byte) error {
	type alias CompletionEndpoint
	return unmarshalWithExtra(data, (*alias)(e), &e.Extra)
}

func (e CompletionEndpoint) MarshalJSON() ([]byte, error) {
	type alias CompletionEndpoint
	return marshalWithExtra(alias(e), e.Extra)
}

// EndpointHealthStatus is the monitored health of an embedding or completion
// endpoint.
type EndpointHealthStatus struct {
	EndpointID           string     `json:"EndpointId,omitempty"`
	EndpointName         string     `json:"EndpointName,omitempty"`
	TenantID             string     `json:"TenantId,omitempty"`
	IsHealthy            bool       `json:"IsHealthy"`
	FirstCheckUtc        *time.Time `json:"FirstCheckUtc,omitempty"`
	LastCheckUtc         *time.Time `json:"LastCheckUtc,omitempty"`
	LastHealthyUtc       *time.Time `json:"LastHealthyUtc,omitempty"`
	LastUnhealthyUtc     *time.Time `json:"LastUnhealthyUtc,omitempty"`
	TotalUptimeMs        int64      `json:"TotalUptimeMs,omitempty"`
	TotalDowntimeMs      int64      `json:"TotalDowntimeMs,omitempty"`
	UptimePercentage     float64    `json:"UptimePercentage,omitempty"`
	ConsecutiveSuccesses int        `json:"ConsecutiveSuccesses,omitempty"`
	ConsecutiveFailures  int        `json:"ConsecutiveFailures,omitempty"`
	LastError            string     `json:"LastError,omitempty"`

	Extra Extra `json:"-"`
}

func (h *EndpointHealthStatus) UnmarshalJSON(data []byte) error {
	type alias EndpointHealthStatus
	return unmarshalWithExtra(data, (*alias)(h), &h.Extra)
}

// RequestHistoryEntry is an append-only audit record of a past request. It
// is never created by the client.
type RequestHistoryEntry struct {
	ID                 string     `json:"Id,omitempty"`
	TenantID           string     `json:"TenantId,omitempty"`
	UserID             string     `json:"UserId,omitempty"`
	CredentialID       string     `json:"CredentialId,omitempty"`
	RequestorIP        string     `json:"RequestorIp,omitempty"`
	HTTPMethod         string     `json:"HttpMethod,omitempty"`
	HTTPURL            string     `json:"HttpUrl,omitempty"`
	RequestBodyLength  *int64     `json:"RequestBodyLength,omitempty"`
	ResponseBodyLength *int64     `json:"ResponseBodyLength,omitempty"`
	HTTPStatus         *int       `json:"HttpStatus,omitempty"`
	ResponseTimeMs     *int64     `json:"ResponseTimeMs,omitempty"`
	ObjectKey          string     `json:"ObjectKey,omitempty"`
	CreatedUtc         *time.Time `json:"CreatedUtc,omitempty"`
	CompletedUtc       *time.Time `json:"CompletedUtc,omitempty"`

	Extra Extra `json:"-"`
}

func (r *RequestHistoryEntry) UnmarshalJSON(data []byte) error {
	type alias RequestHistoryEntry
	return unmarshalWithExtra(data, (*alias)(r), &r.Extra)
}

func (r RequestHistoryEntry) MarshalJSON() ([]byte, error) {
	type alias RequestHistoryEntry
	return marshalWithExtra(alias(r), r.Extra)
}

// RequestHistoryDetail holds the captured bodies and upstream calls of a
// request history entry.
type RequestHistoryDetail struct {
	RequestHeaders  map[string]string `json:"RequestHeaders,omitempty"`
	RequestBody     string            `json:"RequestBody,omitempty"`
	ResponseHeaders map[string]string `json:"ResponseHeaders,omitempty"`
	ResponseBody    string            `json:"ResponseBody,omitempty"`
	EmbeddingCalls  []UpstreamCall    `json:"EmbeddingCalls,omitempty"`

	Extra Extra `json:"-"`
}

func (d *RequestHistoryDetail) UnmarshalJSON(data []byte) error {
	type alias RequestHistoryDetail
	return unmarshalWithExtra(data, (*alias)(d), &d.Extra)
}

// UpstreamCall describes one call the platform made to an embedding or
// completion backend while serving a request.
type UpstreamCall struct {
	URL             string            `json:"Url,omitempty"`
	Method          string            `json:"Method,omitempty"`
	RequestHeaders  map[string]string `json:"RequestHeaders,omitempty"`
	RequestBody     string            `json:"RequestBody,omitempty"`
	StatusCode      *int              `json:"StatusCode,omitempty"`
	ResponseHeaders map[string]string `json:"ResponseHeaders,omitempty"`
	ResponseBody    string            `json:"ResponseBody,omitempty"`
	ResponseTimeMs  *int64            `json:"ResponseTimeMs,omitempty"`
	Success         bool              `json:"Success"`
	Error           string            `json:"Error,omitempty"`
	TimestampUtc    *time.Time        `json:"TimestampUtc,omitempty"`
}

// HealthStatus is the liveness response of the server.
type HealthStatus struct {
	Status  string `json:"Status"`
	Version string `json:"Version,omitempty"`

	Extra Extra `json:"-"`
}

// Healthy reports whether the server declared itself healthy.
func (h *HealthStatus) Healthy() bool {
	return h != nil && h.Status == "Healthy"
}

func (h *HealthStatus) UnmarshalJSON(data []byte) error {
	type alias HealthStatus
	return unmarshalWithExtra(data, (*alias)(h), &h.Extra)
}

// WhoAmI describes the identity behind the credential in use.
type WhoAmI struct {
	Role       string `json:"Role"`
	TenantName string `json:"TenantName,omitempty"`

	Extra Extra `json:"-"`
}

func (w *WhoAmI) UnmarshalJSON(data []byte) error {
	type alias WhoAmI
	return unmarshalWithExtra(data, (*alias)(w), &w.Extra)
}

// Enumeration orderings.
const (
	OrderCreatedAscending  = "CreatedAscending"
	OrderCreatedDescending = "CreatedDescending"
	OrderNameAscending     = "NameAscending"
	OrderNameDescending    = "NameDescending"
)

// EnumerationRequest filters and paginates an enumerate call. The zero value
// is sent as an empty object, leaving every choice to the server.
type EnumerationRequest struct {
	MaxResults        int    `json:"MaxResults,omitempty"`
	ContinuationToken string `json:"ContinuationToken,omitempty"`
	Order             string `json:"Order,omitempty"`
	NameFilter        string `json:"NameFilter,omitempty"`
	LabelFilter       string `json:"LabelFilter,omitempty"`
	TagKeyFilter      string `json:"TagKeyFilter,omitempty"`
	TagValueFilter    string `json:"TagValueFilter,omitempty"`
	ActiveFilter      *bool  `json:"ActiveFilter,omitempty"`
}

// EnumerationResult is one page of an enumerate call.
type EnumerationResult[T any] struct {
	Data              []T    `json:"Data"`
	ContinuationToken string `json:"ContinuationToken,omitempty"`
	TotalCount        *int64 `json:"TotalCount,omitempty"`
	HasMore           bool   `json:"HasMore"`
}
