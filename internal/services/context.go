package services

import "context"

type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	searchTermKey contextKey = "search_term"
	stageKey      contextKey = "stage"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSearchTerm annotates context with the free-text term driving an import.
func WithSearchTerm(ctx context.Context, term string) context.Context {
	if term == "" {
		return ctx
	}
	return context.WithValue(ctx, searchTermKey, term)
}

// SearchTermFromContext returns the search term if present.
func SearchTermFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(searchTermKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the import stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
