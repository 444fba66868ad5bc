package partio

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Process(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1.0/endpoints/ep_1/process", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		guid, _ := req["GUID"].(string)
		_, err := uuid.Parse(guid)
		assert.NoError(t, err, "GUID should be generated")
		assert.Equal(t, "Text", req["Type"])
		assert.Equal(t, map[string]interface{}{
			"Strategy":        "FixedTokenCount",
			"FixedTokenCount": float64(256),
		}, req["ChunkingConfiguration"])
		assert.Equal(t, map[string]interface{}{
			"EmbeddingEndpointId": "ep_1",
			"L2Normalization":     true,
		}, req["EmbeddingConfiguration"])
		assert.NotContains(t, req, "Table")

		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"GUID": guid,
			"Type": "Text",
			"Text": req["Text"],
			"Chunks": []map[string]interface{}{
				{
					"CellGUID":   guid,
					"Text":       "Partio is a multi-tenant embedding platform.",
					"Labels":     []string{"test"},
					"Tags":       map[string]string{"source": "sdk-test"},
					"Embeddings": []float64{0.1, 0.2, 0.3},
				},
			},
		})
	})

	req := &ProcessRequest{
		Type: InputText,
		Text: "Partio is a multi-tenant embedding platform.",
		ChunkingConfiguration: ChunkingConfiguration{
			Strategy:        StrategyFixedTokenCount,
			FixedTokenCount: 256,
		},
		EmbeddingConfiguration: EmbeddingConfiguration{L2Normalization: true},
		Labels:                 []string{"test"},
		Tags:                   map[string]string{"source": "sdk-test"},
	}

	result, err := client.Process(context.Background(), "ep_1", req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, 3, result.Chunks[0].Embeddings.Dimensions())
	assert.Empty(t, result.MissingPropagation(req.Labels, req.Tags))

	assert.Empty(t, req.GUID, "caller's request is not mutated")
	assert.Empty(t, req.EmbeddingConfiguration.EmbeddingEndpointID)
}

func TestClient_Process_KeepsExplicitIDs(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ProcessRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "fixed-guid", req.GUID)
		assert.Equal(t, "ep_other", req.EmbeddingConfiguration.EmbeddingEndpointID)
		writeJSON(t, w, http.StatusOK, map[string]interface{}{"Chunks": []interface{}{}})
	})

	_, err := client.Process(context.Background(), "ep_1", &ProcessRequest{
		GUID:                   "fixed-guid",
		Type:                   InputText,
		Text:                   "x",
		ChunkingConfiguration:  ChunkingConfiguration{Strategy: StrategyFixedTokenCount, FixedTokenCount: 16},
		EmbeddingConfiguration: EmbeddingConfiguration{EmbeddingEndpointID: "ep_other"},
	})
	require.NoError(t, err)
}

func TestClient_Process_PlatformRejects(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, map[string]interface{}{
			"Error":   "BadRequest",
			"Message": "RegexPattern is required when using RegexBased strategy.",
		})
	})

	req := &ProcessRequest{
		Type:                  InputText,
		Text:                  "# Intro\nSome text.",
		ChunkingConfiguration: ChunkingConfiguration{Strategy: StrategyRegexBased},
	}
	require.Error(t, req.Validate())

	result, err := client.Process(context.Background(), "ep_1", req)
	require.Error(t, err, "invalid requests still reach the platform")
	assert.Nil(t, result)
	assert.True(t, IsBadRequest(err))
	assert.Contains(t, err.Error(), "RegexPattern is required")
}

func TestClient_Process_NilRequest(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.Process(context.Background(), "ep_1", nil)
	require.Error(t, err)
}

func TestClient_ProcessBatch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/endpoints/ep_1/process/batch", r.URL.Path)

		var reqs []ProcessRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqs))
		require.Len(t, reqs, 2)

		results := make([]map[string]interface{}, len(reqs))
		for i, req := range reqs {
			assert.NotEmpty(t, req.GUID)
			assert.Equal(t, "ep_1", req.EmbeddingConfiguration.EmbeddingEndpointID)
			results[i] = map[string]interface{}{
				"GUID":   req.GUID,
				"Type":   req.Type,
				"Chunks": []map[string]interface{}{{"Text": req.Text, "Embeddings": [][]float64{{1, 0}}}},
			}
		}
		writeJSON(t, w, http.StatusOK, results)
	})

	reqs := []ProcessRequest{
		{Type: InputText, Text: "first", ChunkingConfiguration: ChunkingConfiguration{Strategy: StrategyFixedTokenCount, FixedTokenCount: 32}},
		{Type: InputText, Text: "second", ChunkingConfiguration: ChunkingConfiguration{Strategy: StrategyFixedTokenCount, FixedTokenCount: 32}},
	}

	results, err := client.ProcessBatch(context.Background(), "ep_1", reqs)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Chunks[0].Text)
	assert.Equal(t, "second", results[1].Chunks[0].Text)
	assert.Equal(t, 2, results[1].Chunks[0].Embeddings.Dimensions())
	assert.NotEqual(t, results[0].GUID, results[1].GUID)
}

func TestEmbeddings_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Embeddings
		wantErr bool
	}{
		{"flat", `[0.1, 0.2]`, Embeddings{{0.1, 0.2}}, false},
		{"nested", `[[0.1, 0.2], [0.3, 0.4]]`, Embeddings{{0.1, 0.2}, {0.3, 0.4}}, false},
		{"nested with whitespace", "[ \n [1]]", Embeddings{{1}}, false},
		{"empty", `[]`, Embeddings{}, false},
		{"null", `null`, nil, false},
		{"not an array", `"abc"`, nil, true},
		{"mixed", `[[1], 2]`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				Embeddings Embeddings `json:"Embeddings"`
			}
			err := json.Unmarshal([]byte(`{"Embeddings":`+tt.input+`}`), &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Embeddings)
		})
	}
}

func TestProcessResult_MissingPropagation(t *testing.T) {
	result := &ProcessResult{
		Chunks: []Chunk{
			{Labels: []string{"test", "extra"}, Tags: map[string]string{"source": "sdk-test", "k": "v"}},
			{Labels: []string{"test"}},
			{Labels: []string{"other"}, Tags: map[string]string{"source": "sdk-test"}},
			{Labels: []string{"test"}, Tags: map[string]string{"source": "elsewhere"}},
		},
	}

	missing := result.MissingPropagation([]string{"test"}, map[string]string{"source": "sdk-test"})
	assert.Equal(t, []int{1, 2, 3}, missing)

	assert.Empty(t, result.MissingPropagation(nil, nil))
}

func TestProcessRequest_Validate(t *testing.T) {
	table := [][]string{{"Name", "Age"}, {"Alice", "30"}}

	tests := []struct {
		name    string
		req     ProcessRequest
		wantErr []string
	}{
		{
			name: "valid text",
			req: ProcessRequest{
				Type:                  InputText,
				Text:                  "hello",
				ChunkingConfiguration: ChunkingConfiguration{Strategy: StrategyFixedTokenCount, FixedTokenCount: 512},
			},
		},
		{
			name: "valid regex with lookahead",
			req: ProcessRequest{
				Type:                  InputText,
				Text:                  "# Intro\nSome text.",
				ChunkingConfiguration: ChunkingConfiguration{Strategy: StrategyRegexBased, RegexPattern: `(?=^#{1,3}\s)`},
			},
		},
		{
			name: "valid table",
			req: ProcessRequest{
				Type:                  InputTable,
				Table:                 table,
				ChunkingConfiguration: ChunkingConfiguration{Strategy: StrategyRowGroupWithHeaders, RowGroupSize: 2},
			},
		},
		{
			name:    "missing type",
			req:     ProcessRequest{Text: "x", ChunkingConfiguration: ChunkingConfiguration{Strategy: StrategyFixedTokenCount, FixedTokenCount: 1}},
			wantErr: []string{"Type: cannot be blank"},
		},
		{
			name:    "unknown type",
			req:     ProcessRequest{Type: "List", ChunkingConfiguration: ChunkingConfiguration{Strategy: StrategyWholeTable}},
			wantErr: []string{"Type: must be a valid value"},
		},
		{
			name:    "unknown strategy",
			req:     ProcessRequest{Type: InputText, Text: "x", ChunkingConfiguration: ChunkingConfiguration{Strategy: "SentenceBased"}},
			wantErr: []string{"Strategy: must be a valid value"},
		},
		{
			name:    "regex without pattern",
			req:     ProcessRequest{Type: InputText, Text: "x", ChunkingConfiguration: ChunkingConfiguration{Strategy: StrategyRegexBased}},
			wantErr: []string{"RegexPattern: cannot be blank"},
		},
		{
			name:    "table strategy on text",
			req:     ProcessRequest{Type: InputText, Text: "x", ChunkingConfiguration: ChunkingConfiguration{Strategy: StrategyRow}},
			wantErr: []string{"strategy Row applies to Table input, not Text"},
		},
		{
			name: "text strategy on table",
			req: ProcessRequest{
				Type:                  InputTable,
				Table:                 table,
				ChunkingConfiguration: ChunkingConfiguration{Strategy: StrategyFixedTokenCount, FixedTokenCount: 10},
			},
			wantErr: []string{"strategy FixedTokenCount applies to Text input, not Table"},
		},
		{
			name:    "empty text payload",
			req:     ProcessRequest{Type: InputText, ChunkingConfiguration: ChunkingConfiguration{Strategy: StrategyFixedTokenCount, FixedTokenCount: 1}},
			wantErr: []string{"Text: cannot be blank"},
		},
		{
			name:    "missing table and group size",
			req:     ProcessRequest{Type: InputTable, ChunkingConfiguration: ChunkingConfiguration{Strategy: StrategyRowGroupWithHeaders}},
			wantErr: []string{"Table: cannot be blank", "RowGroupSize: cannot be blank"},
		},
		{
			name: "overlap out of range",
			req: ProcessRequest{
				Type: InputText,
				Text: "x",
				ChunkingConfiguration: ChunkingConfiguration{
					Strategy:          StrategyFixedTokenCount,
					FixedTokenCount:   64,
					OverlapCount:      -1,
					OverlapPercentage: func() *float64 { v := 1.5; return &v }(),
					OverlapStrategy:   "Random",
				},
			},
			wantErr: []string{"OverlapCount: must be no less than 0", "OverlapPercentage: must be no greater than 1", "OverlapStrategy: must be a valid value"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
