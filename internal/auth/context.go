package auth

import "context"

type contextKey struct{}

// ParentContext identifies the parent whose verified PIN session authorizes
// the current request.
type ParentContext struct {
	UserID   int64
	FamilyID int64
	Token    string
}

func WithParent(ctx context.Context, pc ParentContext) context.Context {
	return context.WithValue(ctx, contextKey{}, pc)
}

func FromContext(ctx context.Context) (ParentContext, bool) {
	pc, ok := ctx.Value(contextKey{}).(ParentContext)
	return pc, ok
}

func ParentID(ctx context.Context) int64 {
	pc, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return pc.UserID
}

func FamilyID(ctx context.Context) int64 {
	pc, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return pc.FamilyID
}
