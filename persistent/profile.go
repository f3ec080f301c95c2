package persistent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/leaflink/leaflink"
	"github.com/uptrace/bun"
	"github.com/zeebo/xxh3"
)

// ErrTimestampOutOfRange is returned for timestamps the signed bigint
// column cannot hold, i.e. past year 2262 in nanoseconds.
var ErrTimestampOutOfRange = errors.New("timestamp out of bigint range")

type Profile struct {
	bun.BaseModel `bun:"table:profile"`

	OwnerId      string  `bun:",pk"`
	Avatar       *string `bun:",nullzero"`
	LastUpdateAt *int64  `bun:",nullzero"`
}

// ProfileEntry is one member of one profile collection. Collection holds
// the stable storage prefix, Key the hash of the member's canonical
// encoding.
type ProfileEntry struct {
	bun.BaseModel `bun:"table:profile_entry"`

	Id         int64  `bun:",pk,autoincrement"`
	OwnerId    string `bun:",notnull,unique:owner_collection_key"`
	Collection string `bun:",notnull,unique:owner_collection_key,type:varchar(1)"`
	Key        string `bun:",notnull,unique:owner_collection_key,type:varchar(32)"`
	Value      string `bun:",notnull,type:jsonb"`
}

func entryKey(member string) string {
	h := xxh3.HashString128(member)
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}

func profileEntries(r leaflink.ProfileRecord) []ProfileEntry {
	entries := make([]ProfileEntry, 0)
	for _, c := range leaflink.AllCollections {
		for _, member := range collectionMembers(r, c) {
			entries = append(entries, ProfileEntry{
				OwnerId:    string(r.OwnerId),
				Collection: string(c),
				Key:        entryKey(member),
				Value:      member,
			})
		}
	}
	return entries
}

func pgTimestamp(at *leaflink.Timestamp) (*int64, error) {
	if at == nil {
		return nil, nil
	}
	if *at > math.MaxInt64 {
		return nil, fmt.Errorf("last_update_at %d: %w", *at, ErrTimestampOutOfRange)
	}
	value := int64(*at)
	return &value, nil
}

func (p Profile) ToDomain(entries []ProfileEntry) (*leaflink.Profile, error) {
	record := leaflink.ProfileRecord{OwnerId: leaflink.AccountId(p.OwnerId), Avatar: p.Avatar}
	if p.LastUpdateAt != nil {
		if *p.LastUpdateAt < 0 {
			return nil, fmt.Errorf("last_update_at %d: %w", *p.LastUpdateAt, ErrTimestampOutOfRange)
		}
		at := leaflink.Timestamp(*p.LastUpdateAt)
		record.LastUpdateAt = &at
	}

	members := make(map[leaflink.Collection][]string)
	for _, e := range entries {
		c := leaflink.Collection(e.Collection)
		members[c] = append(members[c], e.Value)
	}
	for c, m := range members {
		if err := decodeCollection(&record, c, joinMembers(m)); err != nil {
			return nil, err
		}
	}
	return record.ToDomain(), nil
}

// PgProfileStore keeps the scalar record in `profile` and every
// collection member as its own `profile_entry` row.
type PgProfileStore struct {
	DB *bun.DB
}

var _ leaflink.ProfileStore = (*PgProfileStore)(nil)

func (s *PgProfileStore) CreateSchema(ctx context.Context) error {
	models := []interface{}{
		(*Profile)(nil),
		(*ProfileEntry)(nil),
	}
	for _, model := range models {
		_, err := s.DB.NewCreateTable().IfNotExists().Model(model).Exec(ctx)
		if err != nil {
			return fmt.Errorf("create table %T: %w", model, err)
		}
	}
	_, err := s.DB.NewCreateIndex().
		IfNotExists().
		Model((*ProfileEntry)(nil)).
		Index("profile_entry_owner_id_idx").
		Column("owner_id", "id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create profile entry index: %w", err)
	}
	return nil
}

func (s *PgProfileStore) Create(ctx context.Context, owner leaflink.AccountId) (*leaflink.Profile, error) {
	res, err := s.DB.NewInsert().
		Model(&Profile{OwnerId: string(owner)}).
		On("CONFLICT (owner_id) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if inserted == 0 {
		return nil, leaflink.ErrAlreadyInitialized
	}
	return leaflink.NewProfile(owner), nil
}

func (s *PgProfileStore) ByOwner(ctx context.Context, owner leaflink.AccountId) (*leaflink.Profile, error) {
	profile := new(Profile)
	err := s.DB.NewSelect().
		Model(profile).
		Where("owner_id=?", string(owner)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, leaflink.ErrProfileNotFound
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}

	var entries []ProfileEntry
	err = s.DB.NewSelect().
		Model(&entries).
		Where("owner_id=?", string(owner)).
		Order("id ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("select profile entries: %w", err)
	}
	return profile.ToDomain(entries)
}

// Save writes the scalar record and inserts collection members not
// stored yet. Members are never deleted.
func (s *PgProfileStore) Save(ctx context.Context, profile *leaflink.Profile) error {
	record := profile.Record()
	lastUpdateAt, err := pgTimestamp(record.LastUpdateAt)
	if err != nil {
		return err
	}
	model := &Profile{OwnerId: string(record.OwnerId), Avatar: record.Avatar, LastUpdateAt: lastUpdateAt}
	entries := profileEntries(record)

	return s.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(model).
			Column("avatar", "last_update_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		updated, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if updated == 0 {
			return leaflink.ErrProfileNotFound
		}

		if len(entries) == 0 {
			return nil
		}
		_, err = tx.NewInsert().
			Model(&entries).
			On("CONFLICT (owner_id, collection, key) DO NOTHING").
			Returning("NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert profile entries: %w", err)
		}
		return nil
	})
}
