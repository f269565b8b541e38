package pipeline

import (
	"context"
	"strings"

	"github.com/fenwick-ai/ragengine/internal/models/chat"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// NoDocumentsApology is the fixed answer returned when retrieval produced no
// chunks to ground a response in; generation is skipped entirely rather
// than letting the model answer from unguided knowledge.
const NoDocumentsApology = "I don't have any relevant documents to answer this question."

// GenerationStage renders the RAG prompt from the resolved template and the
// reranked context, then calls the pipeline's chat model for the final
// answer. The stage does not stream; the conversation orchestrator builds
// its stream frames from the completed answer.
type GenerationStage struct {
	models interfaces.ModelService
}

// NewGenerationStage builds the generation stage.
func NewGenerationStage(models interfaces.ModelService) *GenerationStage {
	return &GenerationStage{models: models}
}

func (s *GenerationStage) Name() types.StageName { return types.StageGeneration }

func (s *GenerationStage) Run(
	ctx context.Context, sc *types.SearchContext, next func() *types.StageError,
) *types.StageError {
	if len(sc.QueryResults) == 0 {
		sc.GeneratedAnswer = NoDocumentsApology
		return next()
	}

	chatModel, err := s.models.GetChatModel(ctx, sc.PipelineConfig.LLMProviderID)
	if err != nil {
		return &types.StageError{Stage: s.Name(), Err: err, Fatal: true, Message: "failed to resolve chat model"}
	}

	prompt, err := s.renderPrompt(sc)
	if err != nil {
		return &types.StageError{Stage: s.Name(), Err: err, Fatal: true, Message: "failed to render prompt"}
	}

	messages := []chat.Message{{Role: "user", Content: prompt}}
	resp, err := chatModel.Chat(ctx, messages, &chat.ChatOptions{Temperature: 0.7})
	if err != nil {
		return &types.StageError{Stage: s.Name(), Err: err, Fatal: true, Message: "generation model call failed"}
	}

	sc.GeneratedAnswer = resp.Content
	return next()
}

func (s *GenerationStage) renderPrompt(sc *types.SearchContext) (string, error) {
	passages := make([]string, len(sc.QueryResults))
	for i, c := range sc.QueryResults {
		passages[i] = c.Chunk.Text
	}
	if sc.RAGTemplate == nil {
		return defaultPrompt(sc.Input.Question, passages), nil
	}
	return sc.RAGTemplate.Render(map[string]string{
		"question": sc.Input.Question,
		"context":  strings.Join(passages, "\n\n"),
	})
}

func defaultPrompt(question string, passages []string) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the context below. ")
	b.WriteString("If the context doesn't contain the answer, say you don't know.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(passages, "\n\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
