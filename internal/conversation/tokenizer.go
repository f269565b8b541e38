package conversation

import (
	"math"
	"strings"

	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
	"github.com/yanyiwu/gojieba"
)

// WordEstimator is the word-based token estimator fallback: it
// segments text with the same gojieba tokenizer the query-enhancement stage
// uses for keyword search (internal/pipeline/enhancement.go), then returns
// ceil(words * 1.3), the floor estimate for providers with no native
// tokenizer.
type WordEstimator struct {
	jieba *gojieba.Jieba
}

var _ interfaces.Tokenizer = (*WordEstimator)(nil)

// NewWordEstimator builds the estimator. The jieba tokenizer owns a C
// resource; cleaner (when non-nil) releases it on process shutdown, the
// same pattern EnhancementStage uses.
func NewWordEstimator(cleaner interfaces.ResourceCleaner) *WordEstimator {
	w := &WordEstimator{jieba: gojieba.NewJieba()}
	if cleaner != nil {
		cleaner.RegisterWithName("TokenEstimatorJieba", func() error {
			w.jieba.Free()
			return nil
		})
	}
	return w
}

// CountTokens segments text on word/CJK-term boundaries and scales the
// count by 1.3, rounding up, to approximate a subword tokenizer without
// depending on a specific provider's vocabulary.
func (w *WordEstimator) CountTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	words := w.jieba.CutForSearch(text, false)
	n := 0
	for _, word := range words {
		if strings.TrimSpace(word) == "" {
			continue
		}
		n++
	}
	if n == 0 {
		n = len(strings.Fields(text))
	}
	return int(math.Ceil(float64(n) * 1.3))
}
