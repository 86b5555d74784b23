package service

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"github.com/quantrail/reckon/internal/config"
	"github.com/quantrail/reckon/internal/models"
	"github.com/quantrail/reckon/internal/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Fixed texts used when the narrative model is absent or fails. The pipeline
// is numerically complete either way; narrative is strictly additive.
const (
	placeholderMatchComment = "Difference within acceptable tolerance"
	placeholderBreakComment = "Discrepancy detected - requires investigation"
	placeholderSummary      = "AI summary unavailable (narrative model not configured)"
	failedGeneration        = "Analysis generation failed"
)

const defaultMaxBreakComments = 20

// InsightService is the optional narrative collaborator: it annotates break
// records and produces an executive summary through the LLM, degrading to
// fixed placeholder text whenever the client is absent or a call fails.
type InsightService struct {
	logger *zap.Logger

	*repo.LLMLogRepo

	client           *openai.Client // nil when no LLM is configured
	model            string
	prompts          *PromptService
	maxBreakComments int
}

func NewInsightService(
	db *gorm.DB,
	client *openai.Client,
	prompts *PromptService,
	logger *zap.Logger,
	conf *config.Config,
) *InsightService {
	maxComments := conf.LLM.MaxBreakComments
	if maxComments <= 0 {
		maxComments = defaultMaxBreakComments
	}
	return &InsightService{
		logger:           logger,
		LLMLogRepo:       repo.NewLLMLogRepo(db),
		client:           client,
		model:            conf.LLM.Model,
		prompts:          prompts,
		maxBreakComments: maxComments,
	}
}

// Enabled reports whether a narrative model is configured.
func (s *InsightService) Enabled() bool {
	return s.client != nil
}

// AnnotateBreaks fills the comment column of every record. Break records get
// a generated explanation, capped per batch; everything else gets the fixed
// placeholder. Errors never propagate out of this collaborator.
func (s *InsightService) AnnotateBreaks(ctx context.Context, batchID string, records []*models.ReconRecord) {
	generated := 0
	for _, r := range records {
		if !r.IsBreak() {
			r.Comment = placeholderMatchComment
			continue
		}

		if !s.Enabled() || generated >= s.maxBreakComments {
			r.Comment = placeholderBreakComment
			continue
		}

		prompt := s.prompts.BreakCommentPrompt(r)
		comment, err := s.complete(ctx, batchID, r.ID, models.LLMKindBreakComment, prompt)
		if err != nil {
			s.logger.Warn("break comment generation failed",
				zap.String("record_id", r.ID),
				zap.Error(err))
			r.Comment = failedGeneration
			continue
		}
		r.Comment = comment
		generated++
	}
}

// ExecutiveSummary produces the batch-level narrative, or the placeholder
// when no model is configured. It never returns an error.
func (s *InsightService) ExecutiveSummary(ctx context.Context, batchID string, st BatchStats) string {
	if !s.Enabled() {
		return placeholderSummary
	}

	prompt := s.prompts.ExecutiveSummaryPrompt(st)
	summary, err := s.complete(ctx, batchID, "", models.LLMKindExecutiveSummary, prompt)
	if err != nil {
		s.logger.Warn("executive summary generation failed", zap.Error(err))
		return failedGeneration
	}
	return summary
}

func (s *InsightService) complete(ctx context.Context, batchID, recordID, kind, prompt string) (string, error) {
	started := time.Now()

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(s.prompts.SystemInstructions()),
			openai.UserMessage(prompt),
		},
	})

	log := &models.LLMLog{
		ID:         ulid.Make().String(),
		BatchID:    batchID,
		RecordID:   recordID,
		Kind:       kind,
		Model:      s.model,
		UserPrompt: prompt,
		Duration:   time.Since(started).Milliseconds(),
		ExecutedAt: started,
	}

	var content string
	if err != nil {
		log.Error = err.Error()
	} else if len(resp.Choices) == 0 {
		err = fmt.Errorf("empty completion response")
		log.Error = err.Error()
	} else {
		content = resp.Choices[0].Message.Content
		log.AssistantContent = content
		log.PromptTokens = int(resp.Usage.PromptTokens)
		log.CompletionTokens = int(resp.Usage.CompletionTokens)
		log.TotalTokens = int(resp.Usage.TotalTokens)
	}

	if saveErr := s.LLMLogRepo.Create(ctx, log); saveErr != nil {
		s.logger.Error("failed to save llm log", zap.Error(saveErr))
	}

	return content, err
}
