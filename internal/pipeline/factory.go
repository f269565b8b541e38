package pipeline

import (
	"github.com/fenwick-ai/ragengine/internal/application/service/retriever"
	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
	"github.com/panjf2000/ants/v2"
)

// Dependencies bundles everything the six stock stages need, so the
// container can build the default pipeline with one call.
type Dependencies struct {
	Collections interfaces.CollectionRepository
	Pipelines   interfaces.PipelineConfigRepository
	Templates   interfaces.PromptTemplateRepository
	Messages    interfaces.ConversationMessageRepository
	Models      interfaces.ModelService
	Engine      *retriever.CompositeRetrieveEngine
	Cleaner     interfaces.ResourceCleaner
	RerankPool  *ants.Pool
	Conv        *config.ConversationConfig
	Rerank      *config.RerankConfig
}

// Build wires the six stock stages into the fixed execution order.
func Build(deps Dependencies) *Pipeline {
	return DefaultPipeline(
		NewResolutionStage(deps.Collections, deps.Pipelines, deps.Templates),
		NewEnhancementStage(deps.Models, deps.Messages, deps.Conv, deps.Cleaner),
		NewRetrievalStage(deps.Engine, deps.Models, deps.Conv),
		NewRerankingStage(deps.Models, deps.Templates, deps.RerankPool, deps.Rerank),
		NewReasoningStage(deps.Models, deps.Conv),
		NewGenerationStage(deps.Models),
	)
}
