package mock

import (
	"context"

	"github.com/leaflink/leaflink"
)

type ProfileStore struct {
	CreateFn func(ctx context.Context, owner leaflink.AccountId) (*leaflink.Profile, error)

	ByOwnerFn func(ctx context.Context, owner leaflink.AccountId) (*leaflink.Profile, error)

	SaveFn func(ctx context.Context, profile *leaflink.Profile) error
}

func (s ProfileStore) Create(ctx context.Context, owner leaflink.AccountId) (*leaflink.Profile, error) {
	return s.CreateFn(ctx, owner)
}

func (s ProfileStore) ByOwner(ctx context.Context, owner leaflink.AccountId) (*leaflink.Profile, error) {
	return s.ByOwnerFn(ctx, owner)
}

func (s ProfileStore) Save(ctx context.Context, profile *leaflink.Profile) error {
	return s.SaveFn(ctx, profile)
}
