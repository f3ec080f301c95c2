package leaflink

import (
	"context"
	"errors"
	"unicode/utf8"
)

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrAlreadyInitialized = errors.New("profile already initialized")
)

type AccountId string

// Timestamp counts nanoseconds since the unix epoch.
type Timestamp uint64

type NFT struct {
	ContractId AccountId `json:"contract_id"`
	TokenId    string    `json:"token_id"`
}

type Education struct {
	School    string     `json:"school"`
	College   *string    `json:"college"`
	Major     *string    `json:"major"`
	StartedAt *Timestamp `json:"started_at"`
	EndedAt   *Timestamp `json:"ended_at"`
}

type Job struct {
	Company   string     `json:"company"`
	Position  *string    `json:"position"`
	Desc      *string    `json:"desc"`
	StartedAt *Timestamp `json:"started_at"`
	EndedAt   *Timestamp `json:"ended_at"`
}

type Comment struct {
	Commentator AccountId  `json:"commentator"`
	Detail      string     `json:"detail"`
	UpdateAt    *Timestamp `json:"update_at"`
}

// Collection names one of the profile sets. The value is the stable
// storage prefix of that set.
type Collection string

const (
	CollectionNfts       Collection = "a"
	CollectionTags       Collection = "b"
	CollectionEducations Collection = "c"
	CollectionJobs       Collection = "d"
	CollectionPoaps      Collection = "e"
	CollectionComments   Collection = "f"
	CollectionFollowing  Collection = "g"
	CollectionFollowBy   Collection = "h"
)

var AllCollections = []Collection{
	CollectionNfts,
	CollectionTags,
	CollectionEducations,
	CollectionJobs,
	CollectionPoaps,
	CollectionComments,
	CollectionFollowing,
	CollectionFollowBy,
}

type Profile struct {
	owner        AccountId
	avatar       *string
	lastUpdateAt *Timestamp

	nfts       Set[NFT]
	tags       Set[string]
	educations Set[Education]
	jobs       Set[Job]
	poaps      Set[NFT]
	comments   Set[Comment]
	following  Set[AccountId]
	followBy   Set[AccountId]
}

func NewProfile(owner AccountId) *Profile {
	return &Profile{owner: owner}
}

func (p *Profile) Owner() AccountId {
	return p.owner
}

func (p *Profile) SetAvatar(caller AccountId, url string) error {
	if err := Authorize(OpSetAvatar, caller, p.owner, caller); err != nil {
		return err
	}
	if !utf8.ValidString(url) {
		return ErrInvalidText
	}
	p.avatar = &url
	return nil
}

func (p *Profile) Avatar() (string, bool) {
	if p.avatar == nil {
		return "", false
	}
	return *p.avatar, true
}

func (p *Profile) SetLastUpdateAt(caller AccountId, at Timestamp) error {
	if err := Authorize(OpSetLastUpdateAt, caller, p.owner, caller); err != nil {
		return err
	}
	p.lastUpdateAt = &at
	return nil
}

func (p *Profile) LastUpdateAt() (Timestamp, bool) {
	if p.lastUpdateAt == nil {
		return 0, false
	}
	return *p.lastUpdateAt, true
}

func (p *Profile) AddNFT(caller AccountId, nft NFT) error {
	if err := Authorize(OpAddNft, caller, p.owner, caller); err != nil {
		return err
	}
	_, err := p.nfts.Insert(nft)
	return err
}

func (p *Profile) NFTs() []NFT {
	return p.nfts.Values()
}

// AddTag is open to every caller.
func (p *Profile) AddTag(tag string) error {
	_, err := p.tags.Insert(tag)
	return err
}

func (p *Profile) Tags() []string {
	return p.tags.Values()
}

func (p *Profile) AddEducation(caller AccountId, edu Education) error {
	if err := Authorize(OpAddEducation, caller, p.owner, caller); err != nil {
		return err
	}
	_, err := p.educations.Insert(edu)
	return err
}

func (p *Profile) Educations() []Education {
	return p.educations.Values()
}

func (p *Profile) AddJob(caller AccountId, job Job) error {
	if err := Authorize(OpAddJob, caller, p.owner, caller); err != nil {
		return err
	}
	_, err := p.jobs.Insert(job)
	return err
}

func (p *Profile) Jobs() []Job {
	return p.jobs.Values()
}

// AddPoap records a proof-of-attendance token. Same shape as an NFT but
// kept in its own collection.
func (p *Profile) AddPoap(caller AccountId, poap NFT) error {
	if err := Authorize(OpAddPoap, caller, p.owner, caller); err != nil {
		return err
	}
	_, err := p.poaps.Insert(poap)
	return err
}

func (p *Profile) Poaps() []NFT {
	return p.poaps.Values()
}

// AddComment is open to every caller. The commentator is always the
// caller; whatever the comment carried is replaced.
func (p *Profile) AddComment(caller AccountId, comment Comment) error {
	comment.Commentator = caller
	_, err := p.comments.Insert(comment)
	return err
}

func (p *Profile) Comments() []Comment {
	return p.comments.Values()
}

func (p *Profile) AddFollowing(caller AccountId, account AccountId) error {
	if err := Authorize(OpAddFollowing, caller, p.owner, caller); err != nil {
		return err
	}
	_, err := p.following.Insert(account)
	return err
}

func (p *Profile) Following() []AccountId {
	return p.following.Values()
}

// AddFollowedBy records follower in this profile's incoming edges. Only
// the follower itself may do that.
func (p *Profile) AddFollowedBy(caller AccountId, follower AccountId) error {
	if err := Authorize(OpAddFollowedBy, caller, p.owner, follower); err != nil {
		return err
	}
	_, err := p.followBy.Insert(follower)
	return err
}

func (p *Profile) FollowedBy() []AccountId {
	return p.followBy.Values()
}

// ProfileRecord is the flat, serializable snapshot of a profile used by
// stores and transports.
type ProfileRecord struct {
	OwnerId      AccountId   `json:"owner_id"`
	Avatar       *string     `json:"avatar"`
	LastUpdateAt *Timestamp  `json:"last_update_at"`
	Nfts         []NFT       `json:"nfts"`
	Tags         []string    `json:"tags"`
	Educations   []Education `json:"educations"`
	Jobs         []Job       `json:"jobs"`
	Poaps        []NFT       `json:"poaps"`
	Comments     []Comment   `json:"comments"`
	Following    []AccountId `json:"following"`
	FollowBy     []AccountId `json:"follow_by"`
}

func (p *Profile) Record() ProfileRecord {
	r := ProfileRecord{
		OwnerId:    p.owner,
		Nfts:       p.NFTs(),
		Tags:       p.Tags(),
		Educations: p.Educations(),
		Jobs:       p.Jobs(),
		Poaps:      p.Poaps(),
		Comments:   p.Comments(),
		Following:  p.Following(),
		FollowBy:   p.FollowedBy(),
	}
	if avatar, ok := p.Avatar(); ok {
		r.Avatar = &avatar
	}
	if at, ok := p.LastUpdateAt(); ok {
		r.LastUpdateAt = &at
	}
	return r
}

// ToDomain rebuilds a profile from a stored record. Duplicates in the
// record collapse.
func (r ProfileRecord) ToDomain() *Profile {
	p := &Profile{
		owner:      r.OwnerId,
		nfts:       NewSet(r.Nfts...),
		tags:       NewSet(r.Tags...),
		educations: NewSet(r.Educations...),
		jobs:       NewSet(r.Jobs...),
		poaps:      NewSet(r.Poaps...),
		comments:   NewSet(r.Comments...),
		following:  NewSet(r.Following...),
		followBy:   NewSet(r.FollowBy...),
	}
	if r.Avatar != nil {
		avatar := *r.Avatar
		p.avatar = &avatar
	}
	if r.LastUpdateAt != nil {
		at := *r.LastUpdateAt
		p.lastUpdateAt = &at
	}
	return p
}

type ProfileStore interface {
	// Create stores a new empty profile for owner. Fails with
	// ErrAlreadyInitialized when the owner already has one.
	Create(ctx context.Context, owner AccountId) (*Profile, error)

	ByOwner(ctx context.Context, owner AccountId) (*Profile, error)

	Save(ctx context.Context, profile *Profile) error
}
