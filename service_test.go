package leaflink_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/leaflink/leaflink"
	"github.com/leaflink/leaflink/inmem"
	"github.com/leaflink/leaflink/mock"
	"github.com/stretchr/testify/assert"
)

func newService() *leaflink.ProfileService {
	store := inmem.NewProfileStore()
	return &leaflink.ProfileService{Store: &store, Clock: leaflink.FixedClock(1_650_000_000_000_000_000)}
}

func TestServiceInitialize(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := newService()

	profile, err := s.Initialize(ctx, "alice")
	if !assert.NoError(err) {
		return
	}
	assert.Equal(leaflink.AccountId("alice"), profile.Owner())

	_, err = s.Initialize(ctx, "alice")
	assert.ErrorIs(err, leaflink.ErrAlreadyInitialized)

	_, err = s.ByOwner(ctx, "bob")
	assert.ErrorIs(err, leaflink.ErrProfileNotFound)
}

func TestServiceEducationScenario(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := newService()

	_, err := s.Initialize(ctx, "alice")
	if !assert.NoError(err) {
		return
	}
	mit := leaflink.Education{School: "MIT"}
	assert.NoError(s.AddEducation(ctx, "alice", "alice", mit))

	profile, err := s.ByOwner(ctx, "alice")
	if !assert.NoError(err) {
		return
	}
	assert.Equal([]leaflink.Education{mit}, profile.Educations())

	err = s.AddEducation(ctx, "bob", "alice", mit)
	assert.ErrorIs(err, leaflink.ErrUnauthorized)

	profile, err = s.ByOwner(ctx, "alice")
	if !assert.NoError(err) {
		return
	}
	assert.Equal([]leaflink.Education{mit}, profile.Educations())
}

func TestServiceOperations(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := newService()

	_, err := s.Initialize(ctx, "alice")
	if !assert.NoError(err) {
		return
	}
	nft := leaflink.NFT{ContractId: "nft.near", TokenId: "1"}
	assert.NoError(s.SetAvatar(ctx, "alice", "alice", "http://test.com/a.jpg"))
	assert.NoError(s.AddNFT(ctx, "alice", "alice", nft))
	assert.NoError(s.AddPoap(ctx, "alice", "alice", nft))
	assert.NoError(s.AddJob(ctx, "alice", "alice", leaflink.Job{Company: "Near"}))
	assert.NoError(s.AddTag(ctx, "bob", "alice", "gopher"))
	assert.NoError(s.AddComment(ctx, "bob", "alice", leaflink.Comment{Commentator: "carol", Detail: "hey"}))
	assert.NoError(s.AddFollowing(ctx, "alice", "alice", "bob"))
	assert.NoError(s.AddFollowedBy(ctx, "bob", "alice"))
	at, err := s.Touch(ctx, "alice", "alice")
	assert.NoError(err)
	assert.Equal(leaflink.Timestamp(1_650_000_000_000_000_000), at)

	assert.ErrorIs(s.AddNFT(ctx, "bob", "alice", leaflink.NFT{ContractId: "x", TokenId: "2"}), leaflink.ErrUnauthorized)
	assert.ErrorIs(s.SetAvatar(ctx, "bob", "alice", "http://evil.com"), leaflink.ErrUnauthorized)
	_, err = s.Touch(ctx, "bob", "alice")
	assert.ErrorIs(err, leaflink.ErrUnauthorized)

	profile, err := s.ByOwner(ctx, "alice")
	if !assert.NoError(err) {
		return
	}
	avatar, ok := profile.Avatar()
	assert.True(ok)
	assert.Equal("http://test.com/a.jpg", avatar)
	assert.Equal([]leaflink.NFT{nft}, profile.NFTs())
	assert.Equal([]leaflink.NFT{nft}, profile.Poaps())
	assert.Equal([]leaflink.Job{{Company: "Near"}}, profile.Jobs())
	assert.Equal([]string{"gopher"}, profile.Tags())
	assert.Equal([]leaflink.Comment{{Commentator: "bob", Detail: "hey"}}, profile.Comments())
	assert.Equal([]leaflink.AccountId{"bob"}, profile.Following())
	assert.Equal([]leaflink.AccountId{"bob"}, profile.FollowedBy())
	lastUpdate, ok := profile.LastUpdateAt()
	assert.True(ok)
	assert.Equal(at, lastUpdate)
}

func TestServiceRefusedCallDoesNotSave(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	saved := 0
	s := &leaflink.ProfileService{Store: mock.ProfileStore{
		ByOwnerFn: func(ctx context.Context, owner leaflink.AccountId) (*leaflink.Profile, error) {
			return leaflink.NewProfile(owner), nil
		},
		SaveFn: func(ctx context.Context, profile *leaflink.Profile) error {
			saved++
			return nil
		},
	}}

	assert.ErrorIs(s.AddJob(ctx, "bob", "alice", leaflink.Job{Company: "x"}), leaflink.ErrUnauthorized)
	assert.Equal(0, saved)
	assert.NoError(s.AddTag(ctx, "bob", "alice", "x"))
	assert.Equal(1, saved)
}

func TestServiceStoreErrors(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	storeErr := errors.New("storage unavailable")

	s := &leaflink.ProfileService{Store: mock.ProfileStore{
		ByOwnerFn: func(ctx context.Context, owner leaflink.AccountId) (*leaflink.Profile, error) {
			return leaflink.NewProfile(owner), nil
		},
		SaveFn: func(ctx context.Context, profile *leaflink.Profile) error {
			return storeErr
		},
	}}
	assert.ErrorIs(s.AddTag(ctx, "bob", "alice", "x"), storeErr)
}

func TestServiceConcurrentOpenAdds(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := newService()

	_, err := s.Initialize(ctx, "alice")
	if !assert.NoError(err) {
		return
	}

	tags := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, tag := range tags {
		wg.Add(1)
		go func(tag string) {
			defer wg.Done()
			assert.NoError(s.AddTag(ctx, "bob", "alice", tag))
		}(tag)
	}
	wg.Wait()

	profile, err := s.ByOwner(ctx, "alice")
	if !assert.NoError(err) {
		return
	}
	assert.ElementsMatch(tags, profile.Tags())
}
