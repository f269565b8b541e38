package evaluate

import (
	"context"
	"strconv"
	"strings"

	"github.com/fenwick-ai/ragengine/internal/models/chat"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
	"golang.org/x/sync/errgroup"
)

// LLMJudgeEvaluator runs three independent judge calls against the
// evaluation PromptTemplate, one per dimension, concurrently via
// errgroup. One judge failing never discards the other two scores.
type LLMJudgeEvaluator struct {
	models interfaces.ModelService
}

// NewLLMJudgeEvaluator builds the LLM-as-judge evaluator.
func NewLLMJudgeEvaluator(models interfaces.ModelService) *LLMJudgeEvaluator {
	return &LLMJudgeEvaluator{models: models}
}

func (e *LLMJudgeEvaluator) Mode() types.EvaluationMode { return types.EvaluationModeLLMJudge }

type judgeDimension struct {
	name string
	vars func(sc *types.SearchContext) map[string]string
}

var judgeDimensions = []judgeDimension{
	{
		name: "faithfulness",
		vars: func(sc *types.SearchContext) map[string]string {
			return map[string]string{
				"context":  contextText(sc), "question": sc.Input.Question, "answer": sc.GeneratedAnswer,
			}
		},
	},
	{
		name: "answer_relevance",
		vars: func(sc *types.SearchContext) map[string]string {
			return map[string]string{
				"context":  "", "question": sc.Input.Question, "answer": sc.GeneratedAnswer,
			}
		},
	},
	{
		name: "context_relevance",
		vars: func(sc *types.SearchContext) map[string]string {
			return map[string]string{
				"context":  contextText(sc), "question": sc.Input.Question, "answer": "",
			}
		},
	},
}

func contextText(sc *types.SearchContext) string {
	texts := make([]string, len(sc.QueryResults))
	for i, c := range sc.QueryResults {
		texts[i] = c.Chunk.Text
	}
	return strings.Join(texts, "\n\n")
}

// Evaluate runs the three judges concurrently; a single judge's exception
// (model error, unparsable response) is captured as a per-dimension error
// string rather than failing the whole evaluation.
func (e *LLMJudgeEvaluator) Evaluate(ctx context.Context, sc *types.SearchContext) (*types.EvaluationReport, error) {
	if len(sc.QueryResults) == 0 {
		return &types.EvaluationReport{Mode: "llm_judge", Error: "No documents found"}, nil
	}
	if sc.EvaluationTemplate == nil {
		return nil, errEvalTemplateMissing
	}

	model, err := e.models.GetChatModel(ctx, sc.PipelineConfig.LLMProviderID)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(judgeDimensions))
	errs := make([]string, len(judgeDimensions))

	g, gctx := errgroup.WithContext(ctx)
	for i, dim := range judgeDimensions {
		i, dim := i, dim
		g.Go(func() error {
			score, jerr := e.runJudge(gctx, model, sc.EvaluationTemplate, dim.vars(sc))
			if jerr != nil {
				errs[i] = jerr.Error()
				return nil // isolated per judge, never fails the group
			}
			scores[i] = score
			return nil
		})
	}
	_ = g.Wait() // no judge goroutine returns a non-nil error; isolation is per-slot

	report := &types.EvaluationReport{
		Mode:                  "llm_judge",
		JudgeFaithfulness:     scores[0],
		JudgeAnswerRelevance:  scores[1],
		JudgeContextRelevance: scores[2],
	}
	judgeErrs := make(map[string]string, len(judgeDimensions))
	for i, dim := range judgeDimensions {
		if errs[i] != "" {
			judgeErrs[dim.name] = errs[i]
		}
	}
	if len(judgeErrs) > 0 {
		report.JudgeErrors = judgeErrs
	}
	return report, nil
}

func (e *LLMJudgeEvaluator) runJudge(
	ctx context.Context, model chat.Chat, tmpl *types.PromptTemplate, vars map[string]string,
) (float64, error) {
	prompt, err := tmpl.Render(vars)
	if err != nil {
		return 0, err
	}
	thinking := false
	resp, err := model.Chat(ctx, []chat.Message{
		{Role: "user", Content: prompt},
	}, &chat.ChatOptions{Temperature: 0, MaxCompletionTokens: 10, Thinking: &thinking})
	if err != nil {
		return 0, err
	}
	return parseJudgeScore(resp.Content)
}

// parseJudgeScore extracts a float in [0,1] from a short judge response,
// tolerating a leading/trailing explanation by taking the first numeric
// token found.
func parseJudgeScore(text string) (float64, error) {
	text = strings.TrimSpace(text)
	var numBuf strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' {
			numBuf.WriteRune(r)
			continue
		}
		if numBuf.Len() > 0 {
			break
		}
	}
	if numBuf.Len() == 0 {
		return 0, errJudgeUnparsable
	}
	v, err := strconv.ParseFloat(numBuf.String(), 64)
	if err != nil {
		return 0, errJudgeUnparsable
	}
	if v > 1 {
		v = v / 10 // a judge that answered on a 0-10 scale
	}
	return clamp01(v), nil
}
