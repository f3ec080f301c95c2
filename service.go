package leaflink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ProfileService runs every profile operation as one unit of work:
// load the owner's profile, apply the operation, save it back. A refused
// or failed operation saves nothing. Calls against the same owner never
// overlap.
type ProfileService struct {
	Store ProfileStore
	Clock Clock

	locks ownerLocks
}

func (s *ProfileService) Initialize(ctx context.Context, owner AccountId) (*Profile, error) {
	unlock := s.locks.lock(owner)
	defer unlock()

	profile, err := s.Store.Create(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	logrus.WithField("owner", owner).Infoln("Profile initialized.")
	return profile, nil
}

func (s *ProfileService) ByOwner(ctx context.Context, owner AccountId) (*Profile, error) {
	unlock := s.locks.lock(owner)
	defer unlock()

	profile, err := s.Store.ByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}

func (s *ProfileService) SetAvatar(ctx context.Context, caller AccountId, owner AccountId, url string) error {
	return s.mutate(ctx, OpSetAvatar, caller, owner, func(p *Profile) error {
		return p.SetAvatar(caller, url)
	})
}

func (s *ProfileService) AddNFT(ctx context.Context, caller AccountId, owner AccountId, nft NFT) error {
	return s.mutate(ctx, OpAddNft, caller, owner, func(p *Profile) error {
		return p.AddNFT(caller, nft)
	})
}

func (s *ProfileService) AddTag(ctx context.Context, caller AccountId, owner AccountId, tag string) error {
	return s.mutate(ctx, OpAddTag, caller, owner, func(p *Profile) error {
		return p.AddTag(tag)
	})
}

func (s *ProfileService) AddEducation(ctx context.Context, caller AccountId, owner AccountId, edu Education) error {
	return s.mutate(ctx, OpAddEducation, caller, owner, func(p *Profile) error {
		return p.AddEducation(caller, edu)
	})
}

func (s *ProfileService) AddJob(ctx context.Context, caller AccountId, owner AccountId, job Job) error {
	return s.mutate(ctx, OpAddJob, caller, owner, func(p *Profile) error {
		return p.AddJob(caller, job)
	})
}

func (s *ProfileService) AddPoap(ctx context.Context, caller AccountId, owner AccountId, poap NFT) error {
	return s.mutate(ctx, OpAddPoap, caller, owner, func(p *Profile) error {
		return p.AddPoap(caller, poap)
	})
}

func (s *ProfileService) AddComment(ctx context.Context, caller AccountId, owner AccountId, comment Comment) error {
	return s.mutate(ctx, OpAddComment, caller, owner, func(p *Profile) error {
		return p.AddComment(caller, comment)
	})
}

func (s *ProfileService) AddFollowing(ctx context.Context, caller AccountId, owner AccountId, account AccountId) error {
	return s.mutate(ctx, OpAddFollowing, caller, owner, func(p *Profile) error {
		return p.AddFollowing(caller, account)
	})
}

// AddFollowedBy records caller as a follower of owner's profile.
func (s *ProfileService) AddFollowedBy(ctx context.Context, caller AccountId, owner AccountId) error {
	return s.mutate(ctx, OpAddFollowedBy, caller, owner, func(p *Profile) error {
		return p.AddFollowedBy(caller, caller)
	})
}

// Touch stamps last_update_at with the current clock reading.
func (s *ProfileService) Touch(ctx context.Context, caller AccountId, owner AccountId) (Timestamp, error) {
	now := s.Clock.Now()
	err := s.mutate(ctx, OpSetLastUpdateAt, caller, owner, func(p *Profile) error {
		return p.SetLastUpdateAt(caller, now)
	})
	if err != nil {
		return 0, err
	}
	return now, nil
}

func (s *ProfileService) mutate(ctx context.Context, op OperationName, caller AccountId, owner AccountId,
	apply func(p *Profile) error) error {
	unlock := s.locks.lock(owner)
	defer unlock()

	profile, err := s.Store.ByOwner(ctx, owner)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if err := apply(profile); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			logrus.
				WithField("owner", owner).
				WithField("caller", caller).
				WithField("operation", op).
				Infoln("Rejected owner's method.")
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.Store.Save(ctx, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	logrus.
		WithField("owner", owner).
		WithField("caller", caller).
		WithField("operation", op).
		Debugln("Profile updated.")
	return nil
}

// ownerLocks hands out one mutex per owner, dropped once nobody holds it.
type ownerLocks struct {
	mutex sync.Mutex
	held  map[AccountId]*ownerLock
}

type ownerLock struct {
	mutex sync.Mutex
	refs  int
}

func (l *ownerLocks) lock(owner AccountId) (unlock func()) {
	l.mutex.Lock()
	if l.held == nil {
		l.held = make(map[AccountId]*ownerLock)
	}
	ol, ok := l.held[owner]
	if !ok {
		ol = &ownerLock{}
		l.held[owner] = ol
	}
	ol.refs++
	l.mutex.Unlock()

	ol.mutex.Lock()
	return func() {
		ol.mutex.Unlock()

		l.mutex.Lock()
		ol.refs--
		if ol.refs == 0 {
			delete(l.held, owner)
		}
		l.mutex.Unlock()
	}
}
