package leaflink

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Session binds a bearer token to the account it authenticates.
type Session struct {
	Id             string
	AccountId      AccountId
	Token          string
	Ip             string
	UserAgent      string
	LastAccessedAt time.Time
	ExpiresAt      time.Time
}

type SessionStore interface {
	RegisterNew(ctx context.Context, accountId AccountId, ip string, userAgent string) (Session, error)

	ByToken(token string) (Session, error)

	Exists(token string) (bool, error)

	AcquireAndRefresh(ctx context.Context, token string, ip string, userAgent string) (Session, error)

	InvalidateByAuthToken(authToken string) error
}
