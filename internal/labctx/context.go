package labctx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// LabContextKey is the request context key for the active lab ID.
type LabContextKey struct{}

// WithLabID stores the lab ID in the context.
func WithLabID(ctx context.Context, labID int64) context.Context {
	return context.WithValue(ctx, LabContextKey{}, labID)
}

// LabIDFromContext returns the lab ID from context, if set.
func LabIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	value := ctx.Value(LabContextKey{})
	if value == nil {
		return 0, false
	}
	switch typed := value.(type) {
	case int64:
		return snowflake.ID(typed), true
	case snowflake.ID:
		return typed, true
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil {
			return parsed, true
		}
	}
	return 0, false
}
