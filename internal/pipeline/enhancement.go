package pipeline

import (
	"bytes"
	"html/template"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"context"

	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/models/chat"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
	"github.com/yanyiwu/gojieba"
)

var thinkTagPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

var (
	multiSpacePattern = regexp.MustCompile(`\s+`)
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	emailPattern       = regexp.MustCompile(`\b[\w.%+-]+@[\w.-]+\.[a-zA-Z]{2,}\b`)
	punctPattern       = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
)

// historyTurn is one complete Query/Answer pair used to render the rewrite
// prompt's conversation window.
type historyTurn struct {
	Query    string
	Answer   string
	CreateAt time.Time
}

// EnhancementStage rewrites the user's question against conversation
// history and cleans/tokenizes it for keyword search: one stage covering
// both the LLM rewrite and the mechanical preprocessing.
type EnhancementStage struct {
	models   interfaces.ModelService
	messages interfaces.ConversationMessageRepository
	conv     *config.ConversationConfig

	jieba     *gojieba.Jieba
	stopwords map[string]struct{}
}

// NewEnhancementStage builds the query_enhancement stage. The jieba
// tokenizer owns a C resource; cleaner is used to release it on shutdown.
func NewEnhancementStage(
	models interfaces.ModelService,
	messages interfaces.ConversationMessageRepository,
	conv *config.ConversationConfig,
	cleaner interfaces.ResourceCleaner,
) *EnhancementStage {
	s := &EnhancementStage{
		models:    models,
		messages:  messages,
		conv:      conv,
		jieba:     gojieba.NewJieba(),
		stopwords: defaultStopwords(),
	}
	if cleaner != nil {
		cleaner.RegisterWithName("EnhancementJieba", func() error {
			s.jieba.Free()
			return nil
		})
	}
	return s
}

func (s *EnhancementStage) Name() types.StageName { return types.StageQueryEnhancement }

func (s *EnhancementStage) Run(
	ctx context.Context, sc *types.SearchContext, next func() *types.StageError,
) *types.StageError {
	rewritten := sc.Input.Question
	if sc.Input.Metadata != nil && sc.Input.Metadata.ConversationAware && s.conv.EnableRewrite {
		if r, err := s.rewrite(ctx, sc); err == nil && r != "" {
			rewritten = r
		}
		// A rewrite failure is recoverable: retrieval still runs against the
		// raw question.
	}
	sc.RewrittenQuery = s.tokenizeForKeywordSearch(rewritten)
	return next()
}

func (s *EnhancementStage) rewrite(ctx context.Context, sc *types.SearchContext) (string, error) {
	history, err := s.loadHistory(ctx, sc)
	if err != nil {
		return "", err
	}

	userTmpl, err := template.New("rewriteUser").Parse(s.conv.RewritePromptUser)
	if err != nil {
		return "", err
	}
	systemTmpl, err := template.New("rewriteSystem").Parse(s.conv.RewritePromptSystem)
	if err != nil {
		return "", err
	}

	now := time.Now()
	vars := map[string]any{
		"Query":        sc.Input.Question,
		"CurrentTime":  now.Format("2006-01-02 15:04:05"),
		"Yesterday":    now.AddDate(0, 0, -1).Format("2006-01-02"),
		"Conversation": history,
	}
	var userContent, systemContent bytes.Buffer
	if err := userTmpl.Execute(&userContent, vars); err != nil {
		return "", err
	}
	if err := systemTmpl.Execute(&systemContent, vars); err != nil {
		return "", err
	}

	chatModel, err := s.models.GetChatModel(ctx, sc.PipelineConfig.LLMProviderID)
	if err != nil {
		return "", err
	}
	thinking := false
	resp, err := chatModel.Chat(ctx, []chat.Message{
		{Role: "system", Content: systemContent.String()},
		{Role: "user", Content: userContent.String()},
	}, &chat.ChatOptions{Temperature: 0.3, MaxCompletionTokens: 50, Thinking: &thinking})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (s *EnhancementStage) loadHistory(ctx context.Context, sc *types.SearchContext) ([]historyTurn, error) {
	sessionID := ""
	if sc.Input.Metadata != nil {
		sessionID = sc.Input.Metadata.ConversationContext
	}
	if sessionID == "" {
		return nil, nil
	}
	msgs, err := s.messages.GetRecentMessagesBySession(ctx, sessionID, 20)
	if err != nil {
		return nil, err
	}

	byRequest := make(map[string]*historyTurn)
	for _, m := range msgs {
		turn, ok := byRequest[m.RequestID]
		if !ok {
			turn = &historyTurn{}
			byRequest[m.RequestID] = turn
		}
		switch m.Role {
		case types.RoleUser:
			turn.Query = m.Content
			turn.CreateAt = m.CreatedAt
		case types.RoleAssistant:
			turn.Answer = thinkTagPattern.ReplaceAllString(m.Content, "")
		}
	}

	turns := make([]historyTurn, 0, len(byRequest))
	for _, turn := range byRequest {
		if turn.Query != "" && turn.Answer != "" {
			turns = append(turns, *turn)
		}
	}
	sort.Slice(turns, func(i, j int) bool { return turns[i].CreateAt.After(turns[j].CreateAt) })

	maxRounds := s.conv.MaxRounds
	if maxRounds > 0 && len(turns) > maxRounds {
		turns = turns[:maxRounds]
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// tokenizeForKeywordSearch cleans and segments text for the keyword
// retriever; vector retrieval always embeds the untouched rewritten query.
func (s *EnhancementStage) tokenizeForKeywordSearch(text string) string {
	cleaned := urlPattern.ReplaceAllString(text, " ")
	cleaned = emailPattern.ReplaceAllString(cleaned, " ")
	cleaned = punctPattern.ReplaceAllString(cleaned, " ")
	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return text
	}

	segments := s.jieba.CutForSearch(cleaned, true)
	filtered := make([]string, 0, len(segments))
	for _, seg := range segments {
		if _, stop := s.stopwords[seg]; stop || isBlankSegment(seg) {
			continue
		}
		filtered = append(filtered, seg)
	}
	if len(filtered) == 0 {
		return text
	}
	return strings.Join(filtered, " ")
}

func isBlankSegment(seg string) bool {
	for _, r := range seg {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"的", "了", "和", "是", "在", "我", "你", "他", "她", "它",
		"这", "那", "什么", "怎么", "如何", "为什么", "哪里", "什么时候",
		"the", "is", "are", "am", "I", "you", "he", "she", "it", "this",
		"that", "what", "how", "a", "an", "and", "or", "but", "if", "of",
		"to", "in", "on", "at", "by", "for", "with", "about", "from",
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}
