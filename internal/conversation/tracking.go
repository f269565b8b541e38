package conversation

import (
	"fmt"

	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/types"
)

// TokenTrackingService implements the token-budget warning contract:
// CheckUsageWarning(current, limit) -> *TokenWarning | nil.
type TokenTrackingService struct {
	cfg *config.TokenTrackingConfig
}

// NewTokenTrackingService builds the tracking service. With a nil cfg (or
// one with MaxContextTokens <= 0) the contextTokens argument of
// CheckUsageWarning is the limit; warnings are off only when that is <= 0 too.
func NewTokenTrackingService(cfg *config.TokenTrackingConfig) *TokenTrackingService {
	return &TokenTrackingService{cfg: cfg}
}

func (s *TokenTrackingService) limit(contextTokens int) int {
	if s.cfg != nil && s.cfg.MaxContextTokens > 0 {
		return s.cfg.MaxContextTokens
	}
	return contextTokens
}

// CheckUsageWarning reports a TokenWarning when currentTokens has crossed
// the approaching/at/over-limit thresholds relative to the effective limit
// (cfg.MaxContextTokens when set, otherwise contextTokens), or nil
// when usage is comfortably under budget.
func (s *TokenTrackingService) CheckUsageWarning(currentTokens int, contextTokens int) *types.TokenWarning {
	limit := s.limit(contextTokens)
	if limit <= 0 {
		return nil
	}
	approaching := 0.8
	atLimit := 0.95
	if s.cfg != nil {
		if s.cfg.ApproachingRatio > 0 {
			approaching = s.cfg.ApproachingRatio
		}
		if s.cfg.AtLimitRatio > 0 {
			atLimit = s.cfg.AtLimitRatio
		}
	}

	pct := float64(currentTokens) / float64(limit)
	switch {
	case currentTokens > limit:
		return &types.TokenWarning{
			Type: types.TokenWarningOverLimit, Severity: "critical", Percentage: pct,
			CurrentTokens: currentTokens, LimitTokens: limit,
			Message:         fmt.Sprintf("conversation has used %d of %d tokens, exceeding the configured limit", currentTokens, limit),
			SuggestedAction: "start a new session or summarize the conversation so far",
		}
	case pct >= atLimit:
		return &types.TokenWarning{
			Type: types.TokenWarningAtLimit, Severity: "high", Percentage: pct,
			CurrentTokens: currentTokens, LimitTokens: limit,
			Message:         fmt.Sprintf("conversation has used %d of %d tokens (%.0f%%)", currentTokens, limit, pct*100),
			SuggestedAction: "consider starting a new session soon",
		}
	case pct >= approaching:
		return &types.TokenWarning{
			Type: types.TokenWarningApproachingLimit, Severity: "medium", Percentage: pct,
			CurrentTokens: currentTokens, LimitTokens: limit,
			Message:         fmt.Sprintf("conversation has used %d of %d tokens (%.0f%%)", currentTokens, limit, pct*100),
			SuggestedAction: "be aware the conversation is approaching its token budget",
		}
	default:
		return nil
	}
}
