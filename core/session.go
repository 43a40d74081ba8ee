package core

import (
	"context"
	"time"
)

// Session is the identity of the caller of a service operation.
type Session struct {
	UserID string
	Email  string
	Role   string
	Name   string
}

func (s Session) IsAnonymous() bool { return s.UserID == "" }

// TokenBlacklist keeps the IDs of revoked access tokens until they expire.
type TokenBlacklist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
