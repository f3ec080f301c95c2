package leaflink

import "errors"

var ErrUnauthorized = errors.New("owner's method")

// Gate decides which callers may run an operation.
type Gate byte

const (
	// GateOpen lets any caller through.
	GateOpen Gate = 0
	// GateOwner lets only the profile owner through.
	GateOwner Gate = 1
	// GateSelf lets through only a caller acting on its own identity,
	// e.g. an account recording itself as a follower.
	GateSelf Gate = 2
)

func (g Gate) allows(caller AccountId, owner AccountId, subject AccountId) bool {
	switch g {
	case GateOpen:
		return true
	case GateOwner:
		return caller == owner
	case GateSelf:
		return caller == subject
	default:
		return false
	}
}

type OperationName string

const (
	OpSetAvatar       OperationName = "set_avatar"
	OpAddNft          OperationName = "add_nft"
	OpAddTag          OperationName = "add_tag"
	OpAddEducation    OperationName = "add_education"
	OpAddJob          OperationName = "add_job"
	OpAddPoap         OperationName = "add_poap"
	OpAddComment      OperationName = "add_comment"
	OpAddFollowing    OperationName = "add_following"
	OpAddFollowedBy   OperationName = "add_follow_by"
	OpSetLastUpdateAt OperationName = "set_last_update_at"
)

type Operation struct {
	Name OperationName
	Gate Gate
}

var AllOperations map[OperationName]Operation = mapOperationsByName(
	Operation{Name: OpSetAvatar, Gate: GateOwner},
	Operation{Name: OpAddNft, Gate: GateOwner},
	Operation{Name: OpAddTag, Gate: GateOpen},
	Operation{Name: OpAddEducation, Gate: GateOwner},
	Operation{Name: OpAddJob, Gate: GateOwner},
	Operation{Name: OpAddPoap, Gate: GateOwner},
	Operation{Name: OpAddComment, Gate: GateOpen},
	Operation{Name: OpAddFollowing, Gate: GateOwner},
	Operation{Name: OpAddFollowedBy, Gate: GateSelf},
	Operation{Name: OpSetLastUpdateAt, Gate: GateOwner},
)

func mapOperationsByName(ops ...Operation) map[OperationName]Operation {
	opsMap := make(map[OperationName]Operation)
	for _, op := range ops {
		if _, ok := opsMap[op.Name]; ok {
			panic("Duplicated operation name: `" + op.Name + "`!")
		}
		opsMap[op.Name] = op
	}
	return opsMap
}

// Authorize checks caller against the gate of the named operation.
// Subject is the identity the operation acts on behalf of (only GateSelf
// looks at it). Unknown operations are always refused.
func Authorize(name OperationName, caller AccountId, owner AccountId, subject AccountId) error {
	op, ok := AllOperations[name]
	if !ok || !op.Gate.allows(caller, owner, subject) {
		return ErrUnauthorized
	}
	return nil
}
