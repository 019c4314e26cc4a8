package authorization

import (
	"context"
	"errors"
)

// Service is the single authorization entry point consumed by every
// mutating route. Actors are "user:<id>" or "system"; labID scopes the
// decision to one tenant.
type Service interface {
	Authorize(ctx context.Context, actor string, labID string, object string, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidLab    = errors.New("invalid_lab")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
