package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fenwick-ai/ragengine/internal/common"
	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pgRepository implements PostgreSQL-based retrieval operations using
// pgvector for dense search and paradedb for full-text search.
type pgRepository struct {
	db *gorm.DB
}

// NewPostgresRetrieveEngineRepository creates a new PostgreSQL retriever repository.
func NewPostgresRetrieveEngineRepository(db *gorm.DB) interfaces.RetrieveEngineRepository {
	logger.GetLogger(context.Background()).Info("[Postgres] initializing retrieve engine repository")
	return &pgRepository{db: db}
}

func (g *pgRepository) EngineType() types.RetrieverEngineType {
	return types.PostgresRetrieverEngineType
}

func (g *pgRepository) Support() []types.RetrieverType {
	return []types.RetrieverType{types.KeywordsRetrieverType, types.VectorRetrieverType}
}

func (g *pgRepository) calculateIndexStorageSize(row *pgVector) int64 {
	contentSizeBytes := int64(len(row.Content))
	var vectorSizeBytes int64
	if row.Dimension > 0 {
		vectorSizeBytes = int64(row.Dimension * 2)
	}
	metadataSizeBytes := int64(200)
	indexOverheadBytes := vectorSizeBytes * 2
	return contentSizeBytes + vectorSizeBytes + metadataSizeBytes + indexOverheadBytes
}

func (g *pgRepository) EstimateStorageSize(
	ctx context.Context, indexInfoList []*types.IndexInfo, additionalParams map[string]any,
) int64 {
	var total int64
	for _, indexInfo := range indexInfoList {
		row := toDBVectorEmbedding(indexInfo, additionalParams)
		total += g.calculateIndexStorageSize(row)
	}
	logger.GetLogger(ctx).Infof("[Postgres] estimated storage size for %d indices: %d bytes", len(indexInfoList), total)
	return total
}

func (g *pgRepository) Save(ctx context.Context, indexInfo *types.IndexInfo, additionalParams map[string]any) error {
	row := toDBVectorEmbedding(indexInfo, additionalParams)
	if err := g.db.WithContext(ctx).Create(row).Error; err != nil {
		logger.GetLogger(ctx).Errorf("[Postgres] save failed: %v", err)
		return err
	}
	return nil
}

func (g *pgRepository) BatchSave(
	ctx context.Context, indexInfoList []*types.IndexInfo, additionalParams map[string]any,
) error {
	rows := make([]*pgVector, len(indexInfoList))
	for i := range indexInfoList {
		rows[i] = toDBVectorEmbedding(indexInfoList[i], additionalParams)
	}
	if err := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rows).Error; err != nil {
		logger.GetLogger(ctx).Errorf("[Postgres] batch save failed: %v", err)
		return err
	}
	return nil
}

func (g *pgRepository) DeleteByChunkIDList(ctx context.Context, chunkIDList []string, dimension int) error {
	result := g.db.WithContext(ctx).Where("chunk_id IN ?", chunkIDList).Delete(&pgVector{})
	if result.Error != nil {
		logger.GetLogger(ctx).Errorf("[Postgres] delete by chunk ids failed: %v", result.Error)
		return result.Error
	}
	return nil
}

func (g *pgRepository) DeleteByCollectionIDList(ctx context.Context, collectionIDList []string, dimension int) error {
	result := g.db.WithContext(ctx).Where("collection_id IN ?", collectionIDList).Delete(&pgVector{})
	if result.Error != nil {
		logger.GetLogger(ctx).Errorf("[Postgres] delete by collection ids failed: %v", result.Error)
		return result.Error
	}
	return nil
}

func (g *pgRepository) Retrieve(ctx context.Context, params types.RetrieveParams) ([]*types.RetrieveResult, error) {
	switch params.RetrieverType {
	case types.KeywordsRetrieverType:
		return g.KeywordsRetrieve(ctx, params)
	case types.VectorRetrieverType:
		return g.VectorRetrieve(ctx, params)
	}
	err := errors.New("invalid retriever type")
	logger.GetLogger(ctx).Errorf("[Postgres] %v: %s", err, params.RetrieverType)
	return nil, err
}

// KeywordsRetrieve performs keyword search over content using paradedb's BM25 index.
func (g *pgRepository) KeywordsRetrieve(ctx context.Context,
	params types.RetrieveParams,
) ([]*types.RetrieveResult, error) {
	conds := make([]clause.Expression, 0)
	if len(params.CollectionIDs) > 0 {
		conds = append(conds, clause.Expr{
			SQL: fmt.Sprintf("collection_id @@@ 'in (%s)'", common.StringSliceJoin(params.CollectionIDs)),
		})
	}
	if len(params.ExcludeChunkIDs) > 0 {
		conds = append(conds, clause.Expr{
			SQL:  "chunk_id NOT IN ?",
			Vars: []interface{}{params.ExcludeChunkIDs},
		})
	}
	conds = append(conds, clause.Expr{
		SQL:  "id @@@ paradedb.match(field => 'content', value => ?, distance => 1)",
		Vars: []interface{}{params.Query},
	})
	conds = append(conds, clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: "score"}, Desc: true},
	}})

	var rows []pgVectorWithScore
	err := g.db.WithContext(ctx).Clauses(conds...).
		Select([]string{
			"paradedb.score(id) as score",
			"id", "content", "collection_id", "document_id", "chunk_id",
		}).
		Limit(int(params.TopK)).
		Find(&rows).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		logger.GetLogger(ctx).Errorf("[Postgres] keywords retrieval failed: %v", err)
		return nil, err
	}

	results := make([]*types.IndexWithScore, len(rows))
	for i := range rows {
		results[i] = fromDBVectorEmbeddingWithScore(&rows[i], types.MatchTypeKeywords)
	}
	return []*types.RetrieveResult{
		{
			Results:             results,
			RetrieverEngineType: types.PostgresRetrieverEngineType,
			RetrieverType:       types.KeywordsRetrieverType,
		},
	}, nil
}

// VectorRetrieve performs cosine-similarity search using pgvector's half-precision vectors.
func (g *pgRepository) VectorRetrieve(ctx context.Context,
	params types.RetrieveParams,
) ([]*types.RetrieveResult, error) {
	conds := make([]clause.Expression, 0)
	if len(params.CollectionIDs) > 0 {
		conds = append(conds, clause.IN{
			Column: "collection_id",
			Values: common.ToInterfaceSlice(params.CollectionIDs),
		})
	}
	if len(params.ExcludeChunkIDs) > 0 {
		conds = append(conds, clause.Expr{
			SQL:  "chunk_id NOT IN ?",
			Vars: []interface{}{params.ExcludeChunkIDs},
		})
	}
	// <=> cosine distance, <-> L2 distance, <#> inner product
	dimension := len(params.Embedding)
	conds = append(conds, clause.Expr{SQL: "dimension = ?", Vars: []interface{}{dimension}})
	conds = append(conds, clause.Expr{
		SQL:  fmt.Sprintf("embedding::halfvec(%d) <=> ?::halfvec < ?", dimension),
		Vars: []interface{}{pgvector.NewHalfVector(params.Embedding), 1 - params.Threshold},
	})
	conds = append(conds, clause.OrderBy{Expression: clause.Expr{
		SQL:  fmt.Sprintf("embedding::halfvec(%d) <=> ?::halfvec", dimension),
		Vars: []interface{}{pgvector.NewHalfVector(params.Embedding)},
	}})

	var rows []pgVectorWithScore
	err := g.db.WithContext(ctx).Clauses(conds...).
		Select(fmt.Sprintf(
			"id, content, collection_id, document_id, chunk_id, "+
				"(1 - (embedding::halfvec(%d) <=> ?::halfvec)) as score",
			dimension,
		), pgvector.NewHalfVector(params.Embedding)).
		Limit(int(params.TopK)).
		Find(&rows).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		logger.GetLogger(ctx).Errorf("[Postgres] vector retrieval failed: %v", err)
		return nil, err
	}

	results := make([]*types.IndexWithScore, len(rows))
	for i := range rows {
		results[i] = fromDBVectorEmbeddingWithScore(&rows[i], types.MatchTypeEmbedding)
	}
	return []*types.RetrieveResult{
		{
			Results:             results,
			RetrieverEngineType: types.PostgresRetrieverEngineType,
			RetrieverType:       types.VectorRetrieverType,
		},
	}, nil
}
