package types

// ContextKey defines a type for context keys to avoid string collision
type ContextKey string

const (
	// UserIDContextKey is the context key for the authenticated user ID
	UserIDContextKey ContextKey = "UserID"
	// RequestIDContextKey is the context key for request ID
	RequestIDContextKey ContextKey = "RequestID"
	// LoggerContextKey is the context key for logger
	LoggerContextKey ContextKey = "Logger"
)

// String returns the string representation of the context key
func (c ContextKey) String() string {
	return string(c)
}

// CleanupFunc is a registered shutdown action run by a ResourceCleaner.
type CleanupFunc func() error
