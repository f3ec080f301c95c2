package mock

import (
	"context"

	"github.com/leaflink/leaflink"
)

type SessionStore struct {
	RegisterNewFn func(ctx context.Context, accountId leaflink.AccountId, ip string, userAgent string) (leaflink.Session, error)

	ByTokenFn func(token string) (leaflink.Session, error)

	ExistsFn func(token string) (bool, error)

	AcquireAndRefreshFn func(ctx context.Context, token string, ip string, userAgent string) (leaflink.Session, error)

	InvalidateByAuthTokenFn func(authToken string) error
}

func (s SessionStore) RegisterNew(ctx context.Context, accountId leaflink.AccountId, ip string, userAgent string) (leaflink.Session, error) {
	return s.RegisterNewFn(ctx, accountId, ip, userAgent)
}

func (s SessionStore) ByToken(token string) (leaflink.Session, error) {
	return s.ByTokenFn(token)
}

func (s SessionStore) Exists(token string) (bool, error) {
	return s.ExistsFn(token)
}

func (s SessionStore) AcquireAndRefresh(ctx context.Context, token string, ip string, userAgent string) (leaflink.Session, error) {
	return s.AcquireAndRefreshFn(ctx, token, ip, userAgent)
}

func (s SessionStore) InvalidateByAuthToken(authToken string) error {
	return s.InvalidateByAuthTokenFn(authToken)
}
