package partio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// ProcessRequest is one unit of content submitted for chunking and embedding.
type ProcessRequest struct {
	GUID                   string                 `json:"GUID,omitempty"`
	Type                   InputType              `json:"Type"`
	Text                   string                 `json:"Text,omitempty"`
	Table                  [][]string             `json:"Table,omitempty"`
	ChunkingConfiguration  ChunkingConfiguration  `json:"ChunkingConfiguration"`
	EmbeddingConfiguration EmbeddingConfiguration `json:"EmbeddingConfiguration"`
	Labels                 []string               `json:"Labels,omitempty"`
	Tags                   map[string]string      `json:"Tags,omitempty"`
}

// ChunkingConfiguration selects a strategy and its parameters. Zero-valued
// parameters are omitted so the platform applies its defaults.
type ChunkingConfiguration struct {
	Strategy          Strategy `json:"Strategy"`
	FixedTokenCount   int      `json:"FixedTokenCount,omitempty"`
	OverlapCount      int      `json:"OverlapCount,omitempty"`
	OverlapPercentage *float64 `json:"OverlapPercentage,omitempty"`
	OverlapStrategy   string   `json:"OverlapStrategy,omitempty"`
	RowGroupSize      int      `json:"RowGroupSize,omitempty"`
	RegexPattern      string   `json:"RegexPattern,omitempty"`
	ContextPrefix     string   `json:"ContextPrefix,omitempty"`
}

// EmbeddingConfiguration names the embedding endpoint that embeds each chunk.
type EmbeddingConfiguration struct {
	EmbeddingEndpointID string `json:"EmbeddingEndpointId,omitempty"`
	Model               string `json:"Model,omitempty"`
	L2Normalization     bool   `json:"L2Normalization"`
}

// ProcessResult is the platform's response to a process request.
type ProcessResult struct {
	GUID   string     `json:"GUID,omitempty"`
	Type   InputType  `json:"Type,omitempty"`
	Text   string     `json:"Text,omitempty"`
	Table  [][]string `json:"Table,omitempty"`
	Chunks []Chunk    `json:"Chunks"`
}

// Chunk is one embedded piece of a process unit.
type Chunk struct {
	CellGUID    string            `json:"CellGUID,omitempty"`
	Text        string            `json:"Text,omitempty"`
	ChunkedText string            `json:"ChunkedText,omitempty"`
	Labels      []string          `json:"Labels,omitempty"`
	Tags        map[string]string `json:"Tags,omitempty"`
	Embeddings  Embeddings        `json:"Embeddings,omitempty"`
}

// Embeddings holds one or more vectors. The platform sends either a single
// vector (number[]) or a list of vectors (number[][]); both decode here.
type Embeddings [][]float64

func (e *Embeddings) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*e = nil
		return nil
	}

	inner := bytes.TrimSpace(bytes.TrimPrefix(trimmed, []byte("[")))
	if len(inner) > 0 && inner[0] == '[' {
		var nested [][]float64
		if err := json.Unmarshal(trimmed, &nested); err != nil {
			return fmt.Errorf("decode embeddings: %w", err)
		}
		*e = nested
		return nil
	}

	var flat []float64
	if err := json.Unmarshal(trimmed, &flat); err != nil {
		return fmt.Errorf("decode embeddings: %w", err)
	}
	if len(flat) == 0 {
		*e = Embeddings{}
		return nil
	}
	*e = Embeddings{flat}
	return nil
}

// Dimensions returns the length of the first vector, or 0 when there is none.
func (e Embeddings) Dimensions() int {
	if len(e) == 0 {
		return 0
	}
	return len(e[0])
}

// MissingPropagation returns the indexes of chunks that do not carry every
// label in labels and every key/value pair in tags.
func (r *ProcessResult) MissingPropagation(labels []string, tags map[string]string) []int {
	var missing []int
	for i, chunk := range r.Chunks {
		if !chunk.inherits(labels, tags) {
			missing = append(missing, i)
		}
	}
	return missing
}

func (c *Chunk) inherits(labels []string, tags map[string]string) bool {
	have := make(map[string]struct{}, len(c.Labels))
	for _, l := range c.Labels {
		have[l] = struct{}{}
	}
	for _, l := range labels {
		if _, ok := have[l]; !ok {
			return false
		}
	}
	for k, v := range tags {
		if got, ok := c.Tags[k]; !ok || got != v {
			return false
		}
	}
	return true
}

// Validate applies the platform's rejection rules locally: unknown input type
// or strategy, a strategy applied to the wrong input type, missing payload and
// missing strategy parameters. Regex syntax is left to the platform, whose
// regex dialect supports constructs Go's regexp does not.
func (r *ProcessRequest) Validate() error {
	var result *multierror.Error

	err := validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required, validation.In(InputText, InputTable)),
		validation.Field(&r.Text, validation.When(r.Type == InputText, validation.Required)),
		validation.Field(&r.Table, validation.When(r.Type == InputTable, validation.Required)),
	)
	if err != nil {
		result = multierror.Append(result, err)
	}

	if err := r.ChunkingConfiguration.Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("ChunkingConfiguration: %w", err))
	}

	s := r.ChunkingConfiguration.Strategy
	if s.Known() && (r.Type == InputText || r.Type == InputTable) && s.AppliesTo() != r.Type {
		result = multierror.Append(result,
			fmt.Errorf("strategy %s applies to %s input, not %s", s, s.AppliesTo(), r.Type))
	}

	return result.ErrorOrNil()
}

// Validate checks the strategy and the parameters it requires.
func (c *ChunkingConfiguration) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Strategy,
			validation.Required,
			validation.In(
				StrategyFixedTokenCount,
				StrategyRegexBased,
				StrategyRow,
				StrategyRowWithHeaders,
				StrategyRowGroupWithHeaders,
				StrategyKeyValuePairs,
				StrategyWholeTable,
			),
		),
		validation.Field(&c.FixedTokenCount,
			validation.When(c.Strategy == StrategyFixedTokenCount, validation.Required),
			validation.Min(0),
		),
		validation.Field(&c.RegexPattern,
			validation.When(c.Strategy == StrategyRegexBased, validation.Required),
		),
		validation.Field(&c.RowGroupSize,
			validation.When(c.Strategy == StrategyRowGroupWithHeaders, validation.Required),
			validation.Min(0),
		),
		validation.Field(&c.OverlapCount, validation.Min(0)),
		validation.Field(&c.OverlapPercentage, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.OverlapStrategy,
			validation.In(OverlapSlidingWindow, OverlapSentenceBoundaryAware, OverlapSemanticBoundaryAware),
		),
	)
}

// Process sends one unit to the embedding endpoint endpointID for chunking
// and embedding. The request is not validated locally; the platform's
// verdict, including 400 for invalid strategy combinations, is returned as
// *Error. An empty GUID is filled with a fresh UUID, and an empty
// EmbeddingEndpointID defaults to endpointID.
func (c *Client) Process(ctx context.Context, endpointID string, req *ProcessRequest) (*ProcessResult, error) {
	if req == nil {
		return nil, fmt.Errorf("process request is required")
	}
	body := prepareProcessRequest(endpointID, *req)

	var result ProcessResult
	ok, err := c.request(ctx, http.MethodPost, processPath(endpointID), &body, &result)
	if err != nil || !ok {
		return nil, err
	}
	return &result, nil
}

// ProcessBatch sends many units to endpointID in one call. Results are
// returned in request order.
func (c *Client) ProcessBatch(ctx context.Context, endpointID string, reqs []ProcessRequest) ([]ProcessResult, error) {
	body := make([]ProcessRequest, len(reqs))
	for i, req := range reqs {
		body[i] = prepareProcessRequest(endpointID, req)
	}

	var results []ProcessResult
	if _, err := c.request(ctx, http.MethodPost, processPath(endpointID)+"/batch", body, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func processPath(endpointID string) string {
	return APIVersionPrefix + "/endpoints/" + url.PathEscape(endpointID) + "/process"
}

func prepareProcessRequest(endpointID string, req ProcessRequest) ProcessRequest {
	if req.GUID == "" {
		req.GUID = uuid.NewString()
	}
	if req.EmbeddingConfiguration.EmbeddingEndpointID == "" {
		req.EmbeddingConfiguration.EmbeddingEndpointID = endpointID
	}
	return req
}
