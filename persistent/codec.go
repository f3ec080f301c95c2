package persistent

import (
	"encoding/json"
	"fmt"

	"github.com/leaflink/leaflink"
)

// profileScalars is the single record holding a profile's non-collection
// fields.
type profileScalars struct {
	OwnerId      leaflink.AccountId  `json:"owner_id"`
	Avatar       *string             `json:"avatar"`
	LastUpdateAt *leaflink.Timestamp `json:"last_update_at"`
}

func scalarsOf(r leaflink.ProfileRecord) profileScalars {
	return profileScalars{OwnerId: r.OwnerId, Avatar: r.Avatar, LastUpdateAt: r.LastUpdateAt}
}

func (s profileScalars) record() leaflink.ProfileRecord {
	return leaflink.ProfileRecord{OwnerId: s.OwnerId, Avatar: s.Avatar, LastUpdateAt: s.LastUpdateAt}
}

// collectionMembers returns the encoded members of one collection in
// their stored order.
func collectionMembers(r leaflink.ProfileRecord, c leaflink.Collection) []string {
	switch c {
	case leaflink.CollectionNfts:
		return encodeMembers(r.Nfts)
	case leaflink.CollectionTags:
		return encodeMembers(r.Tags)
	case leaflink.CollectionEducations:
		return encodeMembers(r.Educations)
	case leaflink.CollectionJobs:
		return encodeMembers(r.Jobs)
	case leaflink.CollectionPoaps:
		return encodeMembers(r.Poaps)
	case leaflink.CollectionComments:
		return encodeMembers(r.Comments)
	case leaflink.CollectionFollowing:
		return encodeMembers(r.Following)
	case leaflink.CollectionFollowBy:
		return encodeMembers(r.FollowBy)
	default:
		panic("unknown collection `" + string(c) + "`")
	}
}

func encodeMembers[T any](values []T) []string {
	members := make([]string, len(values))
	for i, v := range values {
		members[i] = leaflink.SetKey(v)
	}
	return members
}

// decodeCollection fills collection c of r from a JSON array.
func decodeCollection(r *leaflink.ProfileRecord, c leaflink.Collection, data []byte) error {
	var target interface{}
	switch c {
	case leaflink.CollectionNfts:
		target = &r.Nfts
	case leaflink.CollectionTags:
		target = &r.Tags
	case leaflink.CollectionEducations:
		target = &r.Educations
	case leaflink.CollectionJobs:
		target = &r.Jobs
	case leaflink.CollectionPoaps:
		target = &r.Poaps
	case leaflink.CollectionComments:
		target = &r.Comments
	case leaflink.CollectionFollowing:
		target = &r.Following
	case leaflink.CollectionFollowBy:
		target = &r.FollowBy
	default:
		return fmt.Errorf("unknown collection `%s`", c)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode collection %s: %w", c, err)
	}
	return nil
}

func joinMembers(members []string) []byte {
	raw := make([]json.RawMessage, len(members))
	for i, m := range members {
		raw[i] = json.RawMessage(m)
	}
	bytes, err := json.Marshal(raw)
	if err != nil {
		panic(err)
	}
	return bytes
}
