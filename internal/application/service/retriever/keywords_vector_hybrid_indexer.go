package retriever

import (
	"context"
	"slices"
	"time"

	"github.com/fenwick-ai/ragengine/internal/models/embedding"
	"github.com/fenwick-ai/ragengine/internal/models/utils"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// KeywordsVectorHybridRetrieveEngineService implements a hybrid retrieval engine
// that supports both keyword-based and vector-based retrieval.
type KeywordsVectorHybridRetrieveEngineService struct {
	indexRepository interfaces.RetrieveEngineRepository
	engineType      types.RetrieverEngineType
}

// NewKVHybridRetrieveEngine creates a new instance of the hybrid retrieval engine.
// KV stands for KeywordsVector.
func NewKVHybridRetrieveEngine(indexRepository interfaces.RetrieveEngineRepository,
	engineType types.RetrieverEngineType,
) interfaces.RetrieveEngineService {
	return &KeywordsVectorHybridRetrieveEngineService{indexRepository: indexRepository, engineType: engineType}
}

// EngineType returns the type of the retrieval engine.
func (v *KeywordsVectorHybridRetrieveEngineService) EngineType() types.RetrieverEngineType {
	return v.engineType
}

// Retrieve performs retrieval based on the provided parameters.
func (v *KeywordsVectorHybridRetrieveEngineService) Retrieve(ctx context.Context,
	params types.RetrieveParams,
) ([]*types.RetrieveResult, error) {
	return v.indexRepository.Retrieve(ctx, params)
}

// Index embeds the content when vector retrieval is requested and saves it to the repository.
func (v *KeywordsVectorHybridRetrieveEngineService) Index(ctx context.Context,
	embedder embedding.Embedder, indexInfo *types.IndexInfo, retrieverTypes []types.RetrieverType,
) error {
	params := make(map[string]any)
	embeddingMap := make(map[string][]float32)
	if slices.Contains(retrieverTypes, types.VectorRetrieverType) {
		vec, err := embedder.Embed(ctx, indexInfo.Content)
		if err != nil {
			return err
		}
		embeddingMap[indexInfo.ID] = vec
	}
	params["embedding"] = embeddingMap
	return v.indexRepository.Save(ctx, indexInfo, params)
}

// BatchIndex embeds content in batches when vector retrieval is requested.
func (v *KeywordsVectorHybridRetrieveEngineService) BatchIndex(ctx context.Context,
	embedder embedding.Embedder, indexInfoList []*types.IndexInfo, retrieverTypes []types.RetrieverType,
) error {
	if len(indexInfoList) == 0 {
		return nil
	}
	params := make(map[string]any)
	if slices.Contains(retrieverTypes, types.VectorRetrieverType) {
		contentList := make([]string, 0, len(indexInfoList))
		for _, indexInfo := range indexInfoList {
			contentList = append(contentList, indexInfo.Content)
		}
		var embeddings [][]float32
		var err error
		for range 5 {
			embeddings, err = embedder.BatchEmbedWithPool(ctx, embedder, contentList)
			if err == nil {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		if err != nil {
			return err
		}
		batchSize := 20
		for i, indexChunk := range utils.ChunkSlice(indexInfoList, batchSize) {
			embeddingMap := make(map[string][]float32)
			for j, indexInfo := range indexChunk {
				embeddingMap[indexInfo.ID] = embeddings[i*batchSize+j]
			}
			params["embedding"] = embeddingMap
			if err := v.indexRepository.BatchSave(ctx, indexChunk, params); err != nil {
				return err
			}
		}
		return nil
	}
	for _, indexChunk := range utils.ChunkSlice(indexInfoList, 10) {
		if err := v.indexRepository.BatchSave(ctx, indexChunk, params); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByChunkIDList deletes vectors by their chunk IDs.
func (v *KeywordsVectorHybridRetrieveEngineService) DeleteByChunkIDList(ctx context.Context,
	chunkIDList []string, dimension int,
) error {
	return v.indexRepository.DeleteByChunkIDList(ctx, chunkIDList, dimension)
}

// DeleteByCollectionIDList deletes vectors belonging to the given collections.
func (v *KeywordsVectorHybridRetrieveEngineService) DeleteByCollectionIDList(ctx context.Context,
	collectionIDList []string, dimension int,
) error {
	return v.indexRepository.DeleteByCollectionIDList(ctx, collectionIDList, dimension)
}

// Support returns the retriever types supported by this engine.
func (v *KeywordsVectorHybridRetrieveEngineService) Support() []types.RetrieverType {
	return v.indexRepository.Support()
}

// EstimateStorageSize estimates the storage space needed for the provided index information.
func (v *KeywordsVectorHybridRetrieveEngineService) EstimateStorageSize(
	ctx context.Context,
	embedder embedding.Embedder,
	indexInfoList []*types.IndexInfo,
	retrieverTypes []types.RetrieverType,
) int64 {
	params := make(map[string]any)
	if slices.Contains(retrieverTypes, types.VectorRetrieverType) {
		embeddingMap := make(map[string][]float32)
		for _, indexInfo := range indexInfoList {
			embeddingMap[indexInfo.ID] = make([]float32, embedder.GetDimensions())
		}
		params["embedding"] = embeddingMap
	}
	return v.indexRepository.EstimateStorageSize(ctx, indexInfoList, params)
}
