package ctxutil

import "context"

type ctxKey string

const (
	traceDataKey   ctxKey = "trace_data"
	requestDataKey ctxKey = "request_data"
)

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

type TraceData struct {
	TraceID   string
	RequestID string
}

// RequestData carries the per-request routing identity. The tenant itself is
// threaded explicitly as *tenant.Context; this is only what middleware and the
// request logger need.
type RequestData struct {
	TenantID string
	ThreadID string
	Channel  string // "api" | "whatsapp"
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(Default(ctx), traceDataKey, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, _ := ctx.Value(traceDataKey).(*TraceData)
	return td
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(Default(ctx), requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	rd, _ := ctx.Value(requestDataKey).(*RequestData)
	return rd
}
