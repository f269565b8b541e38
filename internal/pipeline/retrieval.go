package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/fenwick-ai/ragengine/internal/application/service/retriever"
	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

var errNoDocuments = errors.New("no documents found")

// RetrievalStage runs keyword and/or vector search over the resolved
// collection and merges the hits into SearchContext.QueryResults.
type RetrievalStage struct {
	engine *retriever.CompositeRetrieveEngine
	models interfaces.ModelService
	conv   *config.ConversationConfig
}

// NewRetrievalStage builds the retrieval stage.
func NewRetrievalStage(
	engine *retriever.CompositeRetrieveEngine, models interfaces.ModelService, conv *config.ConversationConfig,
) *RetrievalStage {
	return &RetrievalStage{engine: engine, models: models, conv: conv}
}

func (s *RetrievalStage) Name() types.StageName { return types.StageRetrieval }

func (s *RetrievalStage) Run(
	ctx context.Context, sc *types.SearchContext, next func() *types.StageError,
) *types.StageError {
	query := strings.TrimSpace(sc.RewrittenQuery)
	if query == "" {
		query = sc.Input.Question
	}

	topK := s.conv.EmbeddingTopK
	if sc.Input.Metadata != nil && sc.Input.Metadata.TopKOverride > 0 {
		topK = sc.Input.Metadata.TopKOverride
	}

	params, err := s.buildParams(ctx, sc, query, topK)
	if err != nil {
		return &types.StageError{Stage: s.Name(), Err: err, Fatal: true, Message: "failed to prepare retrieval parameters"}
	}

	results, err := s.engine.Retrieve(ctx, params)
	if err != nil {
		return &types.StageError{Stage: s.Name(), Err: err, Fatal: true, Message: "retrieval failed"}
	}

	sc.QueryResults = dedupeScoredChunks(mergeRetrieveResults(results))

	if len(sc.QueryResults) == 0 {
		// Empty retrieval is not a failure: the chain continues and the
		// generation stage answers with the fixed apology.
		sc.AppendError(&types.StageError{
			Stage: s.Name(), Err: errNoDocuments, Fatal: false,
			Message: "no matching documents found",
		})
	}
	return next()
}

func (s *RetrievalStage) buildParams(
	ctx context.Context, sc *types.SearchContext, query string, topK int,
) ([]types.RetrieveParams, error) {
	collections := []string{sc.ResolvedCollectionID}
	var params []types.RetrieveParams

	kind := sc.PipelineConfig.Retriever
	if kind == types.RetrieverKeyword || kind == types.RetrieverHybrid {
		params = append(params, types.RetrieveParams{
			Query:         query,
			CollectionIDs: collections,
			TopK:          topK,
			Threshold:     s.conv.KeywordThreshold,
			RetrieverType: types.KeywordsRetrieverType,
		})
	}
	if kind == types.RetrieverVector || kind == types.RetrieverHybrid {
		embedder, err := s.models.GetEmbeddingModel(ctx, sc.PipelineConfig.EmbeddingModelID)
		if err != nil {
			return nil, err
		}
		vec, err := embedder.Embed(ctx, query)
		if err != nil {
			return nil, err
		}
		params = append(params, types.RetrieveParams{
			Query:         query,
			Embedding:     vec,
			CollectionIDs: collections,
			TopK:          topK,
			Threshold:     s.conv.VectorThreshold,
			RetrieverType: types.VectorRetrieverType,
		})
	}
	return params, nil
}

func mergeRetrieveResults(results []*types.RetrieveResult) []types.ScoredChunk {
	var chunks []types.ScoredChunk
	for _, result := range results {
		for _, hit := range result.Results {
			chunk := types.DocumentChunk{
				ID:   hit.ChunkID,
				Text: hit.Content,
				Metadata: types.ChunkMetadata{
					DocumentID: hit.DocumentID,
				},
			}
			chunks = append(chunks, types.NewScoredChunk(chunk, hit.Score))
		}
	}
	return chunks
}

func dedupeScoredChunks(chunks []types.ScoredChunk) []types.ScoredChunk {
	seen := make(map[string]bool, len(chunks))
	out := make([]types.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		if seen[c.Chunk.ID] {
			continue
		}
		seen[c.Chunk.ID] = true
		out = append(out, c)
	}
	return out
}
