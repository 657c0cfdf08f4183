package toolexecutor

import "context"

// Call describes the invocation a handler is serving.
type Call struct {
	Tool  string
	Index int
}

type callContextKey struct{}

// ContextWithCall attaches the current invocation to ctx for tool handlers.
func ContextWithCall(ctx context.Context, call Call) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callContextKey{}, call)
}

// CallFromContext extracts the current invocation from ctx.
func CallFromContext(ctx context.Context) (Call, bool) {
	if ctx == nil {
		return Call{}, false
	}
	call, ok := ctx.Value(callContextKey{}).(Call)
	return call, ok
}
