package service

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/quantrail/reckon/internal/models"
	"github.com/valyala/fasttemplate"
)

//go:embed templates/break_comment.txt
var breakCommentTemplate string

//go:embed templates/executive_summary.txt
var executiveSummaryTemplate string

const systemInstructions = "You are a financial reconciliation analyst. " +
	"You explain balance discrepancies between a general ledger feed and an IHUB feed " +
	"in plain, specific language. Never invent numbers that are not in the prompt."

// BatchStats are the aggregate counts of one reconciliation run, consumed by
// the executive summary and by reporting collaborators.
type BatchStats struct {
	Total                int
	Matches              int
	Breaks               int
	Anomalies            int
	ClassificationCounts map[string]int
}

// PromptService renders the narrative prompts for the insight collaborator.
type PromptService struct{}

func NewPromptService() *PromptService {
	return &PromptService{}
}

func (s *PromptService) SystemInstructions() string {
	return systemInstructions
}

// BreakCommentPrompt renders the per-break analysis prompt.
func (s *PromptService) BreakCommentPrompt(r *models.ReconRecord) string {
	previous := "N/A"
	if r.PreviousBalanceDifference.Valid {
		previous = r.PreviousBalanceDifference.Decimal.StringFixed(2)
	}

	tmpl := fasttemplate.New(breakCommentTemplate, "{{", "}}")
	return tmpl.ExecuteString(map[string]interface{}{
		"asof_date":           r.AsofDate.Format("2006-01-02"),
		"account_details":     fmt.Sprintf("%s-%s (%s)", r.Company, r.Account, r.Currency),
		"gl_balance":          r.GLBalance.StringFixed(2),
		"ihub_balance":        r.IHUBBalance.StringFixed(2),
		"balance_difference":  r.BalanceDifference.StringFixed(2),
		"previous_difference": previous,
		"classification":      r.BreakClassification,
		"anomaly_score":       fmt.Sprintf("%.4f", r.AnomalyScore),
	})
}

// ExecutiveSummaryPrompt renders the batch-level summary prompt.
func (s *PromptService) ExecutiveSummaryPrompt(st BatchStats) string {
	matchPct, breakPct := 0.0, 0.0
	if st.Total > 0 {
		matchPct = float64(st.Matches) / float64(st.Total) * 100
		breakPct = float64(st.Breaks) / float64(st.Total) * 100
	}

	tmpl := fasttemplate.New(executiveSummaryTemplate, "{{", "}}")
	return tmpl.ExecuteString(map[string]interface{}{
		"total_records":         fmt.Sprintf("%d", st.Total),
		"matches":               fmt.Sprintf("%d", st.Matches),
		"match_pct":             fmt.Sprintf("%.1f", matchPct),
		"breaks":                fmt.Sprintf("%d", st.Breaks),
		"break_pct":             fmt.Sprintf("%.1f", breakPct),
		"anomalies":             fmt.Sprintf("%d", st.Anomalies),
		"classification_counts": formatCounts(st.ClassificationCounts),
	})
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, fmt.Sprintf("%s=%d", label, counts[label]))
	}
	return strings.Join(parts, ", ")
}
