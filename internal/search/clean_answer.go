package search

import (
	"regexp"
	"strings"
)

var (
	// booleanConnectors catches stray logical glue a rewriter or generation
	// model sometimes leaves dangling at a clause boundary.
	booleanConnectors = regexp.MustCompile(`(?i)\b(and|or|not)\s*$`)
	wordSplit         = regexp.MustCompile(`(\s+|[,.;:!?]+|\s)`)
)

// CleanAnswer strips stray boolean connectors and collapses consecutive
// case-insensitive duplicate tokens while preserving punctuation.
// It is idempotent: CleanAnswer(CleanAnswer(x)) == CleanAnswer(x).
func CleanAnswer(answer string) string {
	tokens := tokenize(answer)
	if len(tokens) == 0 {
		return ""
	}

	deduped := make([]string, 0, len(tokens))
	for i, tok := range tokens {
		if isWord(tok) && i > 0 && lastWord(deduped) != "" && strings.EqualFold(lastWord(deduped), tok) {
			continue
		}
		deduped = append(deduped, tok)
	}

	result := strings.Join(deduped, "")
	result = booleanConnectors.ReplaceAllString(strings.TrimSpace(result), "")
	return strings.TrimSpace(collapseSpaces(result))
}

var spaceRun = regexp.MustCompile(`[ \t]{2,}`)

func collapseSpaces(s string) string {
	return spaceRun.ReplaceAllString(s, " ")
}

// tokenize splits s into words and separators (whitespace/punctuation runs),
// preserving every byte so re-joining reconstructs the original modulo the
// dedup this package performs.
func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	indices := wordSplit.FindAllStringIndex(s, -1)
	if indices == nil {
		return []string{s}
	}
	var tokens []string
	last := 0
	for _, idx := range indices {
		if idx[0] > last {
			tokens = append(tokens, s[last:idx[0]])
		}
		tokens = append(tokens, s[idx[0]:idx[1]])
		last = idx[1]
	}
	if last < len(s) {
		tokens = append(tokens, s[last:])
	}
	return tokens
}

func isWord(tok string) bool {
	for _, r := range tok {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return tok != ""
}

// lastWord returns the most recent word token appended to out, skipping
// separator tokens, so duplicate detection spans across whitespace.
func lastWord(out []string) string {
	for i := len(out) - 1; i >= 0; i-- {
		if isWord(out[i]) {
			return out[i]
		}
		if !isSeparator(out[i]) {
			return ""
		}
	}
	return ""
}

func isSeparator(tok string) bool {
	for _, r := range tok {
		if r != ' ' && r != '\t' && r != '\n' {
			return false
		}
	}
	return tok != ""
}
