package conversation

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
	"github.com/yanyiwu/gojieba"
)

// ConversationContext is the serialized summary of recent session history
// the orchestrator builds before enhancing a question.
type ConversationContext struct {
	Window            string
	RelevantDocuments []string
	Entities          []string
	Topics            []string
	MessageCount      int
	ContextLength     int
}

// ContextService builds a ConversationContext from a session's recent
// messages: a window string with one "User:"/"Assistant:" line per message
// (at most window messages, in the order the repository returns them) plus
// a lightweight jieba-based entity/topic extraction.
type ContextService struct {
	messages interfaces.ConversationMessageRepository
	jieba    *gojieba.Jieba
	window   int
}

// NewContextService builds the service. window bounds how many recent
// messages feed the context window (0 uses a sane default of 20, matching
// the query-rewrite history fetch).
func NewContextService(messages interfaces.ConversationMessageRepository, window int, cleaner interfaces.ResourceCleaner) *ContextService {
	if window <= 0 {
		window = 20
	}
	s := &ContextService{messages: messages, jieba: gojieba.NewJieba(), window: window}
	if cleaner != nil {
		cleaner.RegisterWithName("ContextServiceJieba", func() error {
			s.jieba.Free()
			return nil
		})
	}
	return s
}

// Build loads the session's recent messages and derives a ConversationContext.
func (s *ContextService) Build(ctx context.Context, sessionID string) (*ConversationContext, error) {
	msgs, err := s.messages.GetRecentMessagesBySession(ctx, sessionID, s.window)
	if err != nil {
		return nil, err
	}

	var windowLines []string
	docSet := map[string]struct{}{}
	entitySet := map[string]struct{}{}
	for _, m := range msgs {
		switch m.Role {
		case types.RoleUser:
			windowLines = append(windowLines, "User: "+m.Content)
			for _, e := range s.extractTerms(m.Content) {
				entitySet[e] = struct{}{}
			}
		case types.RoleAssistant:
			windowLines = append(windowLines, "Assistant: "+m.Content)
			for _, src := range m.Metadata.Sources {
				if docID := src.Chunk.Metadata.DocumentID; docID != "" {
					docSet[docID] = struct{}{}
				}
			}
		}
	}

	window := strings.Join(windowLines, "\n")
	return &ConversationContext{
		Window:            window,
		RelevantDocuments: sortedKeys(docSet),
		Entities:          sortedKeys(entitySet),
		Topics:            sortedKeys(entitySet), // topics approximated by the same term set
		MessageCount:      len(msgs),
		ContextLength:     len(window),
	}, nil
}

// extractTerms segments text and keeps content-bearing terms (length > 1,
// not pure punctuation/space), a coarse stand-in for named-entity
// extraction that needs no external model call.
func (s *ContextService) extractTerms(text string) []string {
	segments := s.jieba.CutForSearch(text, false)
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if len([]rune(seg)) < 2 || isAllPunct(seg) {
			continue
		}
		out = append(out, seg)
	}
	return out
}

func isAllPunct(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
