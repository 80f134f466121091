package http

import "context"

type contextKey string

const (
	sessionIDContextKey contextKey = "session_id"
	editorIDContextKey  contextKey = "editor_id"
)

// ContextWithSessionID injects the session identifier resolved from the request path.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}

// SessionIDFromContext extracts a session identifier previously associated with the context.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContextKey).(string)
	return id, ok
}

// ContextWithEditorID injects the attendance editor identifier resolved from the request path.
func ContextWithEditorID(ctx context.Context, editorID string) context.Context {
	return context.WithValue(ctx, editorIDContextKey, editorID)
}

// EditorIDFromContext extracts an attendance editor identifier from the context.
func EditorIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(editorIDContextKey).(string)
	return id, ok
}
