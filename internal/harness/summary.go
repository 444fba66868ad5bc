package harness

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Summary is the aggregate outcome of a run.
type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
	Runtime time.Duration

	FailedTests  []string
	SkippedTests []string
}

// OK reports whether no step failed. Skips do not count.
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Result returns "PASS" or "FAIL".
func (s Summary) Result() string {
	if s.OK() {
		return "PASS"
	}
	return "FAIL"
}

// ExitCode is 0 when no step failed and 1 otherwise.
func (s Summary) ExitCode() int {
	if s.OK() {
		return 0
	}
	return 1
}

// Render writes the summary block.
func (s Summary) Render(w io.Writer) error {
	_, err := io.WriteString(w, s.String())
	return err
}

func (s Summary) String() string {
	var b strings.Builder

	b.WriteString("=== SUMMARY ===\n")
	fmt.Fprintf(&b, "Total: %d  Passed: %d  Failed: %d", s.Total, s.Passed, s.Failed)
	if s.Skipped > 0 {
		fmt.Fprintf(&b, "  Skipped: %d", s.Skipped)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Runtime: %dms\n", s.Runtime.Milliseconds())
	fmt.Fprintf(&b, "Result: %s\n", s.Result())

	writeList(&b, "Failed tests:", s.FailedTests)
	writeList(&b, "Skipped tests:", s.SkippedTests)

	b.WriteString("================\n")
	return b.String()
}

func writeList(b *strings.Builder, title string, names []string) {
	if len(names) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(title)
	b.WriteString("\n")
	for _, name := range names {
		fmt.Fprintf(b, "  - %s\n", name)
	}
}
