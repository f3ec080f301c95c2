package inmem

import (
	"context"
	"sync"

	"github.com/leaflink/leaflink"
)

// ProfileStore keeps profile snapshots in memory. Loaded profiles never
// alias the stored ones.
type ProfileStore struct {
	profiles map[leaflink.AccountId]leaflink.ProfileRecord
	mutex    sync.RWMutex
}

func NewProfileStore() ProfileStore {
	return ProfileStore{
		profiles: map[leaflink.AccountId]leaflink.ProfileRecord{},
		mutex:    sync.RWMutex{},
	}
}

var _ leaflink.ProfileStore = (*ProfileStore)(nil)

func (s *ProfileStore) Create(ctx context.Context, owner leaflink.AccountId) (*leaflink.Profile, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.profiles[owner]; ok {
		return nil, leaflink.ErrAlreadyInitialized
	}
	profile := leaflink.NewProfile(owner)
	s.profiles[owner] = profile.Record()
	return profile, nil
}

func (s *ProfileStore) ByOwner(ctx context.Context, owner leaflink.AccountId) (*leaflink.Profile, error) {
	s.mutex.RLock()
	record, ok := s.profiles[owner]
	s.mutex.RUnlock()
	if !ok {
		return nil, leaflink.ErrProfileNotFound
	}
	return record.ToDomain(), nil
}

func (s *ProfileStore) Save(ctx context.Context, profile *leaflink.Profile) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.profiles[profile.Owner()]; !ok {
		return leaflink.ErrProfileNotFound
	}
	s.profiles[profile.Owner()] = profile.Record()
	return nil
}
