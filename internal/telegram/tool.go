package telegram

import (
	"fmt"
	"strings"
)

// FormatBatchReport renders a compact Markdown alert for one finished
// reconciliation run.
func FormatBatchReport(source string, total, matches, breaks, anomalies int) string {
	var sb strings.Builder
	sb.WriteString("*Reconciliation completed*\n")
	sb.WriteString(fmt.Sprintf("Source: `%s`\n", source))
	sb.WriteString(fmt.Sprintf("Records: %d\n", total))
	sb.WriteString(fmt.Sprintf("Matches: %d\n", matches))
	sb.WriteString(fmt.Sprintf("Breaks: %d\n", breaks))
	if anomalies > 0 {
		sb.WriteString(fmt.Sprintf("⚠️ Statistical anomalies: %d\n", anomalies))
	}
	return sb.String()
}

// FormatBatchFailure renders a Markdown alert for an aborted run.
func FormatBatchFailure(source, stage, cause string) string {
	return fmt.Sprintf("*Reconciliation failed*\nSource: `%s`\nStage: %s\nCause: %s", source, stage, cause)
}
