package middleware

import "context"

type contextKey string

const ctxUploaderID contextKey = "uploader_id"

// UploaderIDFromContext returns the uploader identity bound to the request,
// empty when none was supplied.
func UploaderIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUploaderID).(string); ok {
		return v
	}
	return ""
}

// WithUploaderID injects the uploader identifier into the context.
func WithUploaderID(ctx context.Context, uploaderID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUploaderID, uploaderID)
}
