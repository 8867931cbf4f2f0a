package api

import (
	"context"
	"fmt"
	"time"
)

// ActivityFunc is a named side-effecting call invoked by workflows through
// Context.ExecuteActivity. Activities may be invoked more than once under a
// retry policy, so they must be idempotent or the caller must accept repeats.
type ActivityFunc func(ctx context.Context, input any) (any, error)

// ActivityOptions configures one activity invocation.
type ActivityOptions struct {
	// StartToCloseTimeout bounds each attempt. Zero means no per-attempt limit.
	StartToCloseTimeout time.Duration

	// RetryPolicy is applied across attempts. Nil means a single attempt.
	RetryPolicy *RetryPolicy
}

// ActivityInfo describes the attempt an activity is running in.
type ActivityInfo struct {
	InstanceID string
	Workflow   string
	Activity   string
	Attempt    int
}

type activityInfoKey struct{}

// WithActivityInfo returns a child context carrying info.
func WithActivityInfo(ctx context.Context, info ActivityInfo) context.Context {
	return context.WithValue(ctx, activityInfoKey{}, info)
}

// ActivityInfoFromContext returns the ActivityInfo attached by the engine.
func ActivityInfoFromContext(ctx context.Context) (ActivityInfo, bool) {
	info, ok := ctx.Value(activityInfoKey{}).(ActivityInfo)
	return info, ok
}

// TypedActivity wraps a strongly-typed function into an ActivityFunc.
// A nil input is converted to the zero value of I.
//
//	api.TypedActivity(func(ctx context.Context, minutes int) (struct{}, error) { ... })
func TypedActivity[I, O any](fn func(context.Context, I) (O, error)) ActivityFunc {
	return func(ctx context.Context, input any) (any, error) {
		var in I
		if input != nil {
			v, ok := input.(I)
			if !ok {
				return nil, fmt.Errorf("activity input: expected %T, got %T", in, input)
			}
			in = v
		}
		return fn(ctx, in)
	}
}
