package service

import (
	"context"
	"errors"

	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/models/chat"
	"github.com/fenwick-ai/ragengine/internal/models/embedding"
	"github.com/fenwick-ai/ragengine/internal/models/rerank"
	"github.com/fenwick-ai/ragengine/internal/models/utils/ollama"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// ErrModelNotFound is returned when a model cannot be found in the repository.
var ErrModelNotFound = errors.New("model not found")

// modelService implements the model registry service: persistence plus
// resolving a registered model id into a live Embedder/Reranker/Chat client.
type modelService struct {
	repo          interfaces.ModelRepository
	pooler        embedding.EmbedderPooler
	ollamaService *ollama.OllamaService
}

// NewModelService creates a new model service instance. ollamaService may be
// nil when no local models are registered.
func NewModelService(
	repo interfaces.ModelRepository, pooler embedding.EmbedderPooler, ollamaService *ollama.OllamaService,
) interfaces.ModelService {
	return &modelService{repo: repo, pooler: pooler, ollamaService: ollamaService}
}

func (s *modelService) CreateModel(ctx context.Context, model *types.Model) error {
	if model.Source == types.ModelSourceLocal {
		model.Status = types.ModelStatusDownloading
	} else {
		model.Status = types.ModelStatusActive
	}
	if err := s.repo.Create(ctx, model); err != nil {
		return err
	}

	if model.Source != types.ModelSourceLocal || s.ollamaService == nil {
		return nil
	}

	logger.Infof(ctx, "model: starting background download for %s", model.Name)
	bgCtx := logger.CloneContext(ctx)
	go func() {
		if err := s.ollamaService.PullModel(bgCtx, model.Name); err != nil {
			logger.Errorf(bgCtx, "model: download failed for %s: %v", model.Name, err)
			model.Status = types.ModelStatusDownloadFailed
		} else {
			model.Status = types.ModelStatusActive
		}
		if err := s.repo.Update(bgCtx, model); err != nil {
			logger.Errorf(bgCtx, "model: status update failed for %s: %v", model.Name, err)
		}
	}()
	return nil
}

func (s *modelService) GetModelByID(ctx context.Context, id string) (*types.Model, error) {
	model, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, ErrModelNotFound
	}
	switch model.Status {
	case types.ModelStatusActive:
		return model, nil
	case types.ModelStatusDownloading:
		return nil, errors.New("model is currently downloading")
	case types.ModelStatusDownloadFailed:
		return nil, errors.New("model download failed")
	default:
		return nil, errors.New("abnormal model status")
	}
}

func (s *modelService) ListModels(ctx context.Context) ([]*types.Model, error) {
	return s.repo.List(ctx, "", "")
}

func (s *modelService) UpdateModel(ctx context.Context, model *types.Model) error {
	return s.repo.Update(ctx, model)
}

func (s *modelService) DeleteModel(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// GetEmbeddingModel resolves a registered model id to a live Embedder.
func (s *modelService) GetEmbeddingModel(ctx context.Context, modelID string) (embedding.Embedder, error) {
	model, err := s.GetModelByID(ctx, modelID)
	if err != nil {
		return nil, err
	}
	return embedding.NewEmbedder(embedding.Config{
		Source:               model.Source,
		BaseURL:              model.Parameters.BaseURL,
		APIKey:               model.Parameters.APIKey,
		ModelID:              model.ID,
		ModelName:            model.Name,
		Dimensions:           model.Parameters.EmbeddingParameters.Dimension,
		TruncatePromptTokens: model.Parameters.EmbeddingParameters.TruncatePromptTokens,
		Pooler:               s.pooler,
		OllamaService:        s.ollamaService,
	})
}

// GetRerankModel resolves a registered model id to a live Reranker.
func (s *modelService) GetRerankModel(ctx context.Context, modelID string) (rerank.Reranker, error) {
	model, err := s.GetModelByID(ctx, modelID)
	if err != nil {
		return nil, err
	}
	return rerank.NewReranker(&rerank.RerankerConfig{
		ModelID:   model.ID,
		APIKey:    model.Parameters.APIKey,
		BaseURL:   model.Parameters.BaseURL,
		ModelName: model.Name,
		Source:    model.Source,
	})
}

// GetChatModel resolves a registered model id to a live Chat client. It
// reads the model directly from the repository, skipping the status gate
// GetModelByID applies, since a chat model backing a reasoning/generation
// stage call must resolve even mid-download for models other than itself.
func (s *modelService) GetChatModel(ctx context.Context, modelID string) (chat.Chat, error) {
	model, err := s.repo.GetByID(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, ErrModelNotFound
	}
	return chat.NewChat(&chat.ChatConfig{
		ModelID:       model.ID,
		APIKey:        model.Parameters.APIKey,
		BaseURL:       model.Parameters.BaseURL,
		ModelName:     model.Name,
		Source:        model.Source,
		OllamaService: s.ollamaService,
	})
}
