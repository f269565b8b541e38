package interfaces

// Tokenizer is the token-counting capability: `tokenize(text) ->
// int`. A provider that exposes a true tokenizer should wrap it behind this
// interface; one that cannot must fall back to a word-based estimator that
// returns at least ceil(words * 1.3).
type Tokenizer interface {
	CountTokens(text string) int
}
