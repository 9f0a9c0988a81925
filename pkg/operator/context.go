package operator

import "context"

// Anonymous is recorded when a request does not name an operator.
const Anonymous = "anonymous"

type ctxKey struct{}

// Operator identifies who made a request and from where.
type Operator struct {
	Name    string
	Station string
}

// WithOperator returns a new context carrying op.
func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, ctxKey{}, op)
}

// FromContext returns the operator stored in ctx.
func FromContext(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(ctxKey{}).(Operator)
	return op, ok
}

// NameFromContext returns the operator name, or Anonymous.
func NameFromContext(ctx context.Context) string {
	if op, ok := FromContext(ctx); ok && op.Name != "" {
		return op.Name
	}
	return Anonymous
}
