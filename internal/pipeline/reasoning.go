package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/models/chat"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// reasoningStepWire is the JSON shape the chat model is asked to return for
// one chain-of-thought step.
type reasoningStepWire struct {
	Question           string  `json:"question"`
	IntermediateAnswer string  `json:"intermediate_answer"`
	Confidence         float64 `json:"confidence"`
}

// ReasoningStage produces an optional chain-of-thought trace before
// generation, one model call breaking the question into sub-questions
// answered against the retrieved context. It is skipped unless the request
// or pipeline opts in, since it doubles the model calls on the request path.
type ReasoningStage struct {
	models interfaces.ModelService
	conv   *config.ConversationConfig
}

// NewReasoningStage builds the reasoning stage.
func NewReasoningStage(models interfaces.ModelService, conv *config.ConversationConfig) *ReasoningStage {
	return &ReasoningStage{models: models, conv: conv}
}

func (s *ReasoningStage) Name() types.StageName { return types.StageReasoning }

func (s *ReasoningStage) Run(
	ctx context.Context, sc *types.SearchContext, next func() *types.StageError,
) *types.StageError {
	if !s.enabled(sc) || len(sc.QueryResults) == 0 {
		return next()
	}

	chatModel, err := s.models.GetChatModel(ctx, sc.PipelineConfig.LLMProviderID)
	if err != nil {
		// CoT is an enrichment of the final answer, not a precondition for
		// producing one; a missing model just skips the trace.
		return next()
	}

	start := time.Now()
	steps, tokens, err := s.runSteps(ctx, chatModel, sc)
	if err != nil || len(steps) == 0 {
		return next()
	}

	var confidenceSum float64
	for i := range steps {
		steps[i].Step = i + 1
		steps[i].TokensUsed = tokens / len(steps)
		confidenceSum += steps[i].Confidence
	}

	sc.CoT = &types.CoTOutput{
		Steps:                steps,
		AggregatedConfidence: confidenceSum / float64(len(steps)),
		ExecutionTimeMS:      time.Since(start).Milliseconds(),
	}
	return next()
}

func (s *ReasoningStage) enabled(sc *types.SearchContext) bool {
	if sc.Input.Metadata != nil && sc.Input.Metadata.CoTEnabled {
		return true
	}
	return s.conv.EnableCoT
}

func (s *ReasoningStage) runSteps(
	ctx context.Context, chatModel chat.Chat, sc *types.SearchContext,
) ([]types.CoTStep, int, error) {
	var passages strings.Builder
	for _, c := range sc.QueryResults {
		passages.WriteString("- ")
		passages.WriteString(c.Chunk.Text)
		passages.WriteString("\n")
	}

	prompt := fmt.Sprintf(
		"Break the question into at most 3 reasoning steps and answer each using only the context below.\n"+
			"Return a JSON array of objects with fields question, intermediate_answer, confidence (0-1).\n\n"+
			"Question: %s\n\nContext:\n%s",
		sc.Input.Question, passages.String(),
	)
	thinking := false
	resp, err := chatModel.Chat(ctx, []chat.Message{
		{Role: "user", Content: prompt},
	}, &chat.ChatOptions{Temperature: 0.2, Thinking: &thinking})
	if err != nil {
		return nil, 0, err
	}

	var wire []reasoningStepWire
	body := extractJSONArray(resp.Content)
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return nil, 0, err
	}

	steps := make([]types.CoTStep, len(wire))
	for i, w := range wire {
		steps[i] = types.CoTStep{
			Description:      w.Question,
			IntermediateText: w.IntermediateAnswer,
			Confidence:       w.Confidence,
		}
	}
	return steps, resp.Usage.TotalTokens, nil
}

// extractJSONArray trims any prose surrounding a model's JSON array response.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return "[]"
	}
	return s[start : end+1]
}
