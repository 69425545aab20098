package usecase

import (
	"fmt"
	"strings"
)

// FormatRunReport renders the operator message of a daily run. ingest may be nil.
func FormatRunReport(ingest *IngestReport, gen Report, genErr error) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Daily set %s", gen.Date)
	switch {
	case genErr != nil:
		fmt.Fprintf(&b, " FAILED: %v\n", genErr)
	case gen.Resumed:
		b.WriteString(" (resumed)\n")
	default:
		b.WriteString("\n")
	}

	for _, m := range gen.Modes {
		fmt.Fprintf(&b, "- %s: %s", m.ModeID, m.Status)
		switch m.Status {
		case ModeGenerated:
			fmt.Fprintf(&b, ", %d items (%s)", m.Selected, m.Strategy)
			if m.FellBack {
				b.WriteString(", repeats allowed")
			}
		case ModeInsufficient:
			fmt.Fprintf(&b, ", %d candidates", m.Candidates)
		case ModeFailed:
			fmt.Fprintf(&b, ": %v", m.Err)
		}
		b.WriteString("\n")
	}

	if ingest != nil {
		fmt.Fprintf(&b, "Ingested %d new items from %d sources\n", ingest.Inserted(), len(ingest.Sources))
		for _, s := range ingest.Failed() {
			fmt.Fprintf(&b, "- source %s: %v\n", s.SourceID, s.Err)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
