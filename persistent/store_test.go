package persistent

import (
	"context"
	"testing"

	"github.com/leaflink/leaflink"
	"github.com/stretchr/testify/assert"
)

// testProfileStore runs the behaviour every durable profile store shares.
func testProfileStore(t *testing.T, store leaflink.ProfileStore, owner leaflink.AccountId, other leaflink.AccountId) {
	assert := assert.New(t)
	ctx := context.Background()

	_, err := store.ByOwner(ctx, owner)
	assert.ErrorIs(err, leaflink.ErrProfileNotFound)
	assert.ErrorIs(store.Save(ctx, leaflink.NewProfile(owner)), leaflink.ErrProfileNotFound)

	created, err := store.Create(ctx, owner)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(owner, created.Owner())

	_, err = store.Create(ctx, owner)
	assert.ErrorIs(err, leaflink.ErrAlreadyInitialized)

	empty, err := store.ByOwner(ctx, owner)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(leaflink.NewProfile(owner).Record(), empty.Record())

	started := leaflink.Timestamp(1_577_836_800_000_000_000)
	major := "computer science"
	position := "engineer"
	nft := leaflink.NFT{ContractId: "nft.near", TokenId: "0"}
	assert.NoError(empty.SetAvatar(owner, "http://test.com/xxx.jpg"))
	assert.NoError(empty.SetLastUpdateAt(owner, started))
	assert.NoError(empty.AddNFT(owner, nft))
	assert.NoError(empty.AddTag("tag_name"))
	assert.NoError(empty.AddTag("second"))
	assert.NoError(empty.AddEducation(owner, leaflink.Education{School: "MIT", Major: &major, StartedAt: &started}))
	assert.NoError(empty.AddJob(owner, leaflink.Job{Company: "Near", Position: &position}))
	assert.NoError(empty.AddPoap(owner, leaflink.NFT{ContractId: "poap.near", TokenId: "12"}))
	assert.NoError(empty.AddComment(other, leaflink.Comment{Detail: "hello"}))
	assert.NoError(empty.AddFollowing(owner, other))
	assert.NoError(empty.AddFollowedBy(other, other))
	if !assert.NoError(store.Save(ctx, empty)) {
		return
	}

	loaded, err := store.ByOwner(ctx, owner)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(empty.Record(), loaded.Record())

	// saving again with one more member keeps earlier members and order
	assert.NoError(loaded.AddTag("third"))
	assert.NoError(loaded.SetAvatar(owner, "http://test.com/yyy.jpg"))
	if !assert.NoError(store.Save(ctx, loaded)) {
		return
	}
	reloaded, err := store.ByOwner(ctx, owner)
	if !assert.NoError(err) {
		return
	}
	assert.Equal([]string{"tag_name", "second", "third"}, reloaded.Tags())
	avatar, _ := reloaded.Avatar()
	assert.Equal("http://test.com/yyy.jpg", avatar)

	// other profiles stay isolated
	otherProfile, err := store.Create(ctx, other)
	if !assert.NoError(err) {
		return
	}
	assert.NoError(otherProfile.AddNFT(other, nft))
	assert.NoError(store.Save(ctx, otherProfile))
	reloaded, err = store.ByOwner(ctx, owner)
	if assert.NoError(err) {
		assert.Equal([]leaflink.NFT{nft}, reloaded.NFTs())
	}
	otherLoaded, err := store.ByOwner(ctx, other)
	if assert.NoError(err) {
		assert.Equal([]leaflink.NFT{nft}, otherLoaded.NFTs())
		assert.Len(otherLoaded.Tags(), 0)
	}
}
