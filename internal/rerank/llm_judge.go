package rerank

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/fenwick-ai/ragengine/internal/logger"
	"github.com/fenwick-ai/ragengine/internal/models/chat"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/panjf2000/ants/v2"
)

var scorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*\d+`),
	regexp.MustCompile(`(?i:score|rating|relevance)\s*[:=]?\s*(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)`),
}

// LLMJudgeReranker scores each chunk with one chat-model call per batch,
// submitted concurrently through an ants.Pool the way
// embedding.BatchEmbedder pools BatchEmbed calls.
type LLMJudgeReranker struct {
	chat      chat.Chat
	template  *types.PromptTemplate
	pool      *ants.Pool
	batchSize int
	scale     int
}

func NewLLMJudgeReranker(
	chatModel chat.Chat, template *types.PromptTemplate, pool *ants.Pool, batchSize, scale int,
) *LLMJudgeReranker {
	if batchSize <= 0 {
		batchSize = 10
	}
	if scale <= 0 {
		scale = 10
	}
	return &LLMJudgeReranker{
		chat: chatModel, template: template, pool: pool,
		batchSize: batchSize, scale: scale,
	}
}

type judgedChunk struct {
	chunk types.ScoredChunk
	score float64
}

func (r *LLMJudgeReranker) Rerank(ctx context.Context, query string, chunks []types.ScoredChunk) ([]types.ScoredChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	batches := chunkScoredChunks(chunks, r.batchSize)
	judged := make([][]judgedChunk, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		i, batch := i, batch
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			judged[i] = r.scoreBatch(ctx, query, batch)
		})
		if err != nil {
			wg.Done()
			judged[i] = r.fallbackBatch(batch)
		}
	}
	wg.Wait()

	out := make([]types.ScoredChunk, 0, len(chunks))
	for _, batch := range judged {
		for _, jc := range batch {
			out = append(out, jc.chunk.WithScore(jc.score))
		}
	}
	sortByScoreDesc(out)
	return out, nil
}

func (r *LLMJudgeReranker) scoreBatch(ctx context.Context, query string, batch []types.ScoredChunk) []judgedChunk {
	out := make([]judgedChunk, len(batch))
	for i, c := range batch {
		prompt, err := r.template.Render(map[string]string{
			"query":    query,
			"document": c.Chunk.Text,
			"scale":    strconv.Itoa(r.scale),
		})
		if err != nil {
			out[i] = judgedChunk{chunk: c, score: c.Score()}
			continue
		}
		resp, err := r.chat.Chat(ctx, []chat.Message{{Role: "user", Content: prompt}}, &chat.ChatOptions{Temperature: 0})
		if err != nil {
			logger.Warnf(ctx, "llm judge rerank batch failed, using original scores: %v", err)
			return r.fallbackBatch(batch)
		}
		out[i] = judgedChunk{chunk: c, score: r.extractScore(resp.Content)}
	}
	return out
}

func (r *LLMJudgeReranker) fallbackBatch(batch []types.ScoredChunk) []judgedChunk {
	out := make([]judgedChunk, len(batch))
	for i, c := range batch {
		out[i] = judgedChunk{chunk: c, score: c.Score()}
	}
	return out
}

// extractScore parses a numeric relevance score out of free-form LLM text,
// trying "8.5/10", "score: 8.5", then a bare leading number, normalizing
// into 0-1 by the configured scale. An unparsable response scores neutral
// (0.5) rather than zero, so a single bad completion doesn't sink a chunk.
func (r *LLMJudgeReranker) extractScore(text string) float64 {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	for _, pattern := range scorePatterns {
		match := pattern.FindStringSubmatch(trimmed)
		if match == nil {
			continue
		}
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		normalized := value / float64(r.scale)
		if normalized < 0 {
			normalized = 0
		}
		if normalized > 1 {
			normalized = 1
		}
		return normalized
	}
	return 0.5
}

func chunkScoredChunks(chunks []types.ScoredChunk, size int) [][]types.ScoredChunk {
	var out [][]types.ScoredChunk
	for i := 0; i < len(chunks); i += size {
		end := i + size
		if end > len(chunks) {
			end = len(chunks)
		}
		out = append(out, chunks[i:end])
	}
	return out
}
