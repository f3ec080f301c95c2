package persistent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leaflink/leaflink"
	"github.com/tidwall/buntdb"
)

// BuntProfileStore keeps each profile in buntdb: the scalar record under
// "profile:<owner>" and every collection as a JSON array under
// "profile_set:<collection prefix>:<owner>".
type BuntProfileStore struct {
	Buntdb *buntdb.DB
}

var _ leaflink.ProfileStore = (*BuntProfileStore)(nil)

func profileKey(owner leaflink.AccountId) string {
	return "profile:" + string(owner)
}

func collectionKey(owner leaflink.AccountId, c leaflink.Collection) string {
	return "profile_set:" + string(c) + ":" + string(owner)
}

func (s *BuntProfileStore) Create(ctx context.Context, owner leaflink.AccountId) (*leaflink.Profile, error) {
	profile := leaflink.NewProfile(owner)
	serializedScalars, err := json.Marshal(scalarsOf(profile.Record()))
	if err != nil {
		return nil, fmt.Errorf("serialize profile: %w", err)
	}

	err = s.Buntdb.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Get(profileKey(owner))
		switch {
		case err == nil:
			return leaflink.ErrAlreadyInitialized
		case !errors.Is(err, buntdb.ErrNotFound):
			return fmt.Errorf("get profile: %w", err)
		}
		_, _, err = tx.Set(profileKey(owner), string(serializedScalars), nil)
		if err != nil {
			return fmt.Errorf("set profile: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, leaflink.ErrAlreadyInitialized) {
			return nil, err
		}
		return nil, fmt.Errorf("bunt update: %w", err)
	}
	return profile, nil
}

func (s *BuntProfileStore) ByOwner(ctx context.Context, owner leaflink.AccountId) (*leaflink.Profile, error) {
	var record leaflink.ProfileRecord
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		serializedScalars, err := tx.Get(profileKey(owner))
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		var scalars profileScalars
		if err := json.Unmarshal([]byte(serializedScalars), &scalars); err != nil {
			return fmt.Errorf("deserialize profile: %w", err)
		}
		record = scalars.record()

		for _, c := range leaflink.AllCollections {
			serializedMembers, err := tx.Get(collectionKey(owner, c))
			if errors.Is(err, buntdb.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get collection %s: %w", c, err)
			}
			if err := decodeCollection(&record, c, []byte(serializedMembers)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil, leaflink.ErrProfileNotFound
		}
		return nil, fmt.Errorf("bunt view: %w", err)
	}
	return record.ToDomain(), nil
}

func (s *BuntProfileStore) Save(ctx context.Context, profile *leaflink.Profile) error {
	record := profile.Record()
	serializedScalars, err := json.Marshal(scalarsOf(record))
	if err != nil {
		return fmt.Errorf("serialize profile: %w", err)
	}

	err = s.Buntdb.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(profileKey(record.OwnerId)); err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		if _, _, err := tx.Set(profileKey(record.OwnerId), string(serializedScalars), nil); err != nil {
			return fmt.Errorf("set profile: %w", err)
		}
		for _, c := range leaflink.AllCollections {
			members := collectionMembers(record, c)
			if len(members) == 0 {
				continue
			}
			_, _, err := tx.Set(collectionKey(record.OwnerId, c), string(joinMembers(members)), nil)
			if err != nil {
				return fmt.Errorf("set collection %s: %w", c, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return leaflink.ErrProfileNotFound
		}
		return fmt.Errorf("bunt update: %w", err)
	}
	return nil
}
