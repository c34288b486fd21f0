package console

import "context"

type ctxIndex int

const ctxIndexTrace ctxIndex = iota

// WithTrace marks ctx so commands print every bus command they caused.
func WithTrace(parent context.Context, value bool) context.Context {
	return context.WithValue(parent, ctxIndexTrace, value)
}

func IsTrace(ctx context.Context) bool {
	val, ok := ctx.Value(ctxIndexTrace).(bool)
	return ok && val
}
