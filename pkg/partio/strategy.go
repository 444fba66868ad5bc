package partio

// InputType is the kind of content in a process unit.
type InputType string

const (
	InputText  InputType = "Text"
	InputTable InputType = "Table"
)

// Strategy selects how the platform splits a process unit into chunks.
type Strategy string

const (
	StrategyFixedTokenCount     Strategy = "FixedTokenCount"
	StrategyRegexBased          Strategy = "RegexBased"
	StrategyRow                 Strategy = "Row"
	StrategyRowWithHeaders      Strategy = "RowWithHeaders"
	StrategyRowGroupWithHeaders Strategy = "RowGroupWithHeaders"
	StrategyKeyValuePairs       Strategy = "KeyValuePairs"
	StrategyWholeTable          Strategy = "WholeTable"
)

// Overlap strategies for token-bounded text chunking.
const (
	OverlapSlidingWindow         = "SlidingWindow"
	OverlapSentenceBoundaryAware = "SentenceBoundaryAware"
	OverlapSemanticBoundaryAware = "SemanticBoundaryAware"
)

// DefaultRowGroupSize is the group size the platform applies when
// RowGroupSize is omitted.
const DefaultRowGroupSize = 5

// strategyTable is the closed set of strategies and the input each accepts.
var strategyTable = map[Strategy]InputType{
	StrategyFixedTokenCount:     InputText,
	StrategyRegexBased:          InputText,
	StrategyRow:                 InputTable,
	StrategyRowWithHeaders:      InputTable,
	StrategyRowGroupWithHeaders: InputTable,
	StrategyKeyValuePairs:       InputTable,
	StrategyWholeTable:          InputTable,
}

// Strategies returns every known strategy in a stable order.
func Strategies() []Strategy {
	return []Strategy{
		StrategyFixedTokenCount,
		StrategyRegexBased,
		StrategyRow,
		StrategyRowWithHeaders,
		StrategyRowGroupWithHeaders,
		StrategyKeyValuePairs,
		StrategyWholeTable,
	}
}

// Known reports whether s is one of the platform's strategies.
func (s Strategy) Known() bool {
	_, ok := strategyTable[s]
	return ok
}

// AppliesTo returns the input type s accepts, or "" for an unknown strategy.
func (s Strategy) AppliesTo() InputType {
	return strategyTable[s]
}

// ExpectedChunks returns the exact number of chunks the platform produces for
// table under this configuration. Row 0 is the header row. For text
// strategies only a lower bound of one chunk is known, so ok is false. An
// unset RowGroupSize counts as DefaultRowGroupSize.
func (c ChunkingConfiguration) ExpectedChunks(table [][]string) (n int, ok bool) {
	dataRows := len(table) - 1
	if dataRows < 0 {
		dataRows = 0
	}

	switch c.Strategy {
	case StrategyRow, StrategyRowWithHeaders:
		return dataRows, true
	case StrategyRowGroupWithHeaders:
		size := c.RowGroupSize
		if size <= 0 {
			size = DefaultRowGroupSize
		}
		return (dataRows + size - 1) / size, true
	case StrategyKeyValuePairs, StrategyWholeTable:
		return 1, true
	default:
		return 0, false
	}
}
