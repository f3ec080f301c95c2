package persistent

import (
	"context"
	"math"
	"testing"

	"github.com/leaflink/leaflink"
	"github.com/stretchr/testify/assert"
)

func TestPgProfileStore(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
		return
	}
	ctx := context.Background()

	db := PgOpenTest(ctx)
	defer db.Close()

	testProfileStore(t, &PgProfileStore{DB: db}, "pg-alice.near", "pg-bob.near")
}

func TestPgProfileEntriesDeduplicate(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
		return
	}
	assert := assert.New(t)
	ctx := context.Background()

	db := PgOpenTest(ctx)
	defer db.Close()
	store := &PgProfileStore{DB: db}

	const owner = leaflink.AccountId("pg-carol.near")
	profile, err := store.Create(ctx, owner)
	if !assert.NoError(err) {
		return
	}
	assert.NoError(profile.AddTag("x"))
	assert.NoError(store.Save(ctx, profile))
	assert.NoError(store.Save(ctx, profile))

	count, err := db.NewSelect().
		Model((*ProfileEntry)(nil)).
		Where("owner_id=?", string(owner)).
		Count(ctx)
	if assert.NoError(err) {
		assert.Equal(1, count)
	}
}

func TestProfileEntriesKeys(t *testing.T) {
	assert := assert.New(t)

	record := leaflink.ProfileRecord{
		OwnerId: "alice.near",
		Tags:    []string{"x", "y"},
		Nfts:    []leaflink.NFT{{ContractId: "nft.near", TokenId: "x"}},
	}
	entries := profileEntries(record)
	if !assert.Len(entries, 3) {
		return
	}
	assert.Equal(string(leaflink.CollectionNfts), entries[0].Collection)
	assert.Equal(`{"contract_id":"nft.near","token_id":"x"}`, entries[0].Value)
	assert.Equal(string(leaflink.CollectionTags), entries[1].Collection)
	assert.Equal(`"x"`, entries[1].Value)
	assert.Len(entries[1].Key, 32)
	assert.NotEqual(entries[1].Key, entries[2].Key)
	assert.Equal(entryKey(`"x"`), entries[1].Key)

	profile, err := Profile{OwnerId: "alice.near"}.ToDomain(entries)
	if assert.NoError(err) {
		assert.Equal([]string{"x", "y"}, profile.Tags())
		assert.Equal(record.Nfts, profile.NFTs())
	}
}

func TestPgTimestampRange(t *testing.T) {
	assert := assert.New(t)

	value, err := pgTimestamp(nil)
	assert.NoError(err)
	assert.Nil(value)

	latest := leaflink.Timestamp(math.MaxInt64)
	value, err = pgTimestamp(&latest)
	if assert.NoError(err) {
		assert.Equal(int64(math.MaxInt64), *value)
	}

	tooLate := leaflink.Timestamp(math.MaxInt64) + 1
	_, err = pgTimestamp(&tooLate)
	assert.ErrorIs(err, ErrTimestampOutOfRange)

	profile := leaflink.NewProfile("alice.near")
	assert.NoError(profile.SetLastUpdateAt("alice.near", tooLate))
	assert.ErrorIs((&PgProfileStore{}).Save(context.Background(), profile), ErrTimestampOutOfRange)

	negative := int64(-1)
	_, err = Profile{OwnerId: "alice.near", LastUpdateAt: &negative}.ToDomain(nil)
	assert.ErrorIs(err, ErrTimestampOutOfRange)
}
