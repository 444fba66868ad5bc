package harness

import (
	"context"
	"fmt"
	"net/http"

	"github.com/partio/partio-go/pkg/partio"
)

// ProcessText is the single-cell fixture.
const ProcessText = "Partio is a multi-tenant embedding platform."

// RegexText is split at markdown headings by the RegexBased case.
const RegexText = "# Intro\nSome text.\n\n# Body\nMore text.\n\n# End\nFinal text."

// HeadingPattern splits before each level 1-3 markdown heading.
const HeadingPattern = `(?=^#{1,3}\s)`

var (
	processLabels = []string{"test"}
	processTags   = map[string]string{"source": "sdk-test"}

	// Header plus two data rows.
	twoRowTable = [][]string{
		{"id", "firstname", "lastname"},
		{"1", "george", "bush"},
		{"2", "barack", "obama"},
	}

	// Header plus three data rows.
	threeRowTable = [][]string{
		{"id", "firstname", "lastname"},
		{"1", "george", "bush"},
		{"2", "barack", "obama"},
		{"3", "donald", "trump"},
	}

	// Header plus one data row.
	oneRowTable = [][]string{
		{"id", "firstname", "lastname"},
		{"1", "george", "bush"},
	}
)

// ProcessCase is one process request together with the platform's expected
// verdict.
type ProcessCase struct {
	Name    string
	Request partio.ProcessRequest

	// WantStatus is the expected error status, or 0 when the request must
	// succeed.
	WantStatus int
}

// ProcessCases returns the process cases in execution order.
func ProcessCases() []ProcessCase {
	return []ProcessCase{
		{
			Name: "Process Single Cell",
			Request: partio.ProcessRequest{
				Type: partio.InputText,
				Text: ProcessText,
				ChunkingConfiguration: partio.ChunkingConfiguration{
					Strategy:        partio.StrategyFixedTokenCount,
					FixedTokenCount: 256,
				},
				Labels: processLabels,
				Tags:   processTags,
			},
		},
		tableCase(partio.StrategyRow, twoRowTable, 0),
		tableCase(partio.StrategyRowWithHeaders, twoRowTable, 0),
		tableCase(partio.StrategyRowGroupWithHeaders, threeRowTable, 2),
		tableCase(partio.StrategyKeyValuePairs, oneRowTable, 0),
		tableCase(partio.StrategyWholeTable, twoRowTable, 0),
		{
			Name: "Process Text (RegexBased)",
			Request: partio.ProcessRequest{
				Type: partio.InputText,
				Text: RegexText,
				ChunkingConfiguration: partio.ChunkingConfiguration{
					Strategy:        partio.StrategyRegexBased,
					RegexPattern:    HeadingPattern,
					FixedTokenCount: 512,
				},
			},
		},
		{
			Name: "Regex Strategy Missing Pattern (400)",
			Request: partio.ProcessRequest{
				Type:                  partio.InputText,
				Text:                  "Some text here.",
				ChunkingConfiguration: partio.ChunkingConfiguration{Strategy: partio.StrategyRegexBased},
			},
			WantStatus: http.StatusBadRequest,
		},
		{
			Name: "Table Strategy on Text (400)",
			Request: partio.ProcessRequest{
				Type:                  partio.InputText,
				Text:                  "This is text, not a table.",
				ChunkingConfiguration: partio.ChunkingConfiguration{Strategy: partio.StrategyRow},
			},
			WantStatus: http.StatusBadRequest,
		},
		{
			Name: "Text Strategy on Table (400)",
			Request: partio.ProcessRequest{
				Type:  partio.InputTable,
				Table: twoRowTable,
				ChunkingConfiguration: partio.ChunkingConfiguration{
					Strategy:        partio.StrategyFixedTokenCount,
					FixedTokenCount: 256,
				},
			},
			WantStatus: http.StatusBadRequest,
		},
	}
}

func tableCase(strategy partio.Strategy, table [][]string, groupSize int) ProcessCase {
	return ProcessCase{
		Name: fmt.Sprintf("Process Table (%s)", strategy),
		Request: partio.ProcessRequest{
			Type:  partio.InputTable,
			Table: table,
			ChunkingConfiguration: partio.ChunkingConfiguration{
				Strategy:     strategy,
				RowGroupSize: groupSize,
			},
		},
	}
}

// Check verifies result against the case: chunk count for table strategies,
// at least one chunk otherwise, embeddings on every chunk and propagation of
// the request's labels and tags.
func (pc ProcessCase) Check(result *partio.ProcessResult) error {
	if result == nil {
		return fmt.Errorf("no response")
	}

	req := pc.Request
	if want, ok := req.ChunkingConfiguration.ExpectedChunks(req.Table); ok && req.Type == partio.InputTable {
		if len(result.Chunks) != want {
			return fmt.Errorf("expected %d chunks, got %d", want, len(result.Chunks))
		}
	} else if len(result.Chunks) == 0 {
		return fmt.Errorf("no chunks")
	}

	for i, chunk := range result.Chunks {
		if chunk.Embeddings.Dimensions() == 0 {
			return fmt.Errorf("no embeddings on chunk %d", i)
		}
	}

	if missing := result.MissingPropagation(req.Labels, req.Tags); len(missing) > 0 {
		return fmt.Errorf("labels or tags not propagated to chunks %v", missing)
	}
	return nil
}

func (s *Suite) processSteps() []Step {
	var steps []Step
	for _, pc := range ProcessCases() {
		steps = append(steps, Step{pc.Name, func(ctx context.Context) error {
			return s.runProcessCase(ctx, pc)
		}})
	}
	steps = append(steps, Step{"Process Batch", s.processBatch})
	return steps
}

func (s *Suite) runProcessCase(ctx context.Context, pc ProcessCase) error {
	endpointID, err := s.activeEmbeddingEndpoint(ctx)
	if err != nil {
		return err
	}

	// Local validation must agree with the platform's verdict.
	localErr := pc.Request.Validate()
	if pc.WantStatus != 0 && localErr == nil {
		return fmt.Errorf("request unexpectedly passes local validation")
	}
	if pc.WantStatus == 0 && localErr != nil {
		return fmt.Errorf("request fails local validation: %w", localErr)
	}

	req := pc.Request
	result, err := s.client.Process(ctx, endpointID, &req)
	if pc.WantStatus != 0 {
		return expectStatus(err, pc.WantStatus)
	}
	if err != nil {
		return err
	}
	return pc.Check(result)
}

func (s *Suite) processBatch(ctx context.Context) error {
	endpointID, err := s.activeEmbeddingEndpoint(ctx)
	if err != nil {
		return err
	}

	cases := ProcessCases()
	batch := []ProcessCase{cases[0], tableCase(partio.StrategyWholeTable, twoRowTable, 0)}
	reqs := make([]partio.ProcessRequest, len(batch))
	for i, pc := range batch {
		reqs[i] = pc.Request
	}

	results, err := s.client.ProcessBatch(ctx, endpointID, reqs)
	if err != nil {
		return err
	}
	if len(results) != len(reqs) {
		return fmt.Errorf("expected %d results, got %d", len(reqs), len(results))
	}
	for i, pc := range batch {
		if err := pc.Check(&results[i]); err != nil {
			return fmt.Errorf("result %d: %w", i, err)
		}
	}
	return nil
}

// activeEmbeddingEndpoint returns the first active embedding endpoint, or a
// skip when the deployment has none.
func (s *Suite) activeEmbeddingEndpoint(ctx context.Context) (string, error) {
	eps, err := s.client.EmbeddingEndpoints().EnumerateAll(ctx, nil)
	if err != nil {
		return "", err
	}
	for _, ep := range eps {
		if ep.IsActive() {
			return ep.ID, nil
		}
	}
	return "", SkipStep("no active embedding endpoint")
}
