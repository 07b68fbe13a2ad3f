package obsctx

import "context"

type requestIDKey struct{}
type uploadIDKey struct{}

// WithRequestID stores the HTTP request id on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithUploadID stores the upload job id on the context so every log
// line written while processing that job carries it.
func WithUploadID(ctx context.Context, uploadID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, uploadIDKey{}, uploadID)
}

// UploadIDFromContext returns the upload job id or 0.
func UploadIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(uploadIDKey{}).(int64); ok {
		return v
	}
	return 0
}
