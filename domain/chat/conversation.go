package chat

import (
	"ephemeral-chat/errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type ConversationKind string

const (
	OneToOneKind ConversationKind = "one_to_one"
	GroupKind    ConversationKind = "group"
)

// RoomKey names a broadcast room. Group rooms live in their own namespace
// so that a group id can never collide with a one-to-one conversation id.
type RoomKey string

const groupRoomPrefix = "group_"

func DirectRoomKey(id uuid.UUID) RoomKey {
	return RoomKey(id.String())
}

func GroupRoomKey(id uuid.UUID) RoomKey {
	return RoomKey(groupRoomPrefix + id.String())
}

// Ref points at a conversation of either kind.
type Ref struct {
	Kind ConversationKind
	ID   uuid.UUID
}

func (r Ref) RoomKey() RoomKey {
	if r.Kind == GroupKind {
		return GroupRoomKey(r.ID)
	}
	return DirectRoomKey(r.ID)
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// Conversation is the behaviour shared by one-to-one and group conversations.
// Every permission rule that differs between the two kinds lives behind it.
type Conversation interface {
	Ref() Ref
	Participants() []string
	IsMember(userID string) bool
	CanRecall(requesterID, senderID string) bool
	CanChangePolicy(requesterID string) bool
	Policy() Policy
}

var (
	_ Conversation = OneToOne{}
	_ Conversation = Group{}
)

// OneToOne holds exactly two distinct participants, stored in normalized order.
type OneToOne struct {
	ConversationID uuid.UUID
	Pair           [2]string
	Disappearing   Policy
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewOneToOne(a, b string, at time.Time) (OneToOne, error) {
	low, high, err := NormalizePair(a, b)
	if err != nil {
		return OneToOne{}, err
	}
	return OneToOne{
		ConversationID: uuid.New(),
		Pair:           [2]string{low, high},
		CreatedAt:      at,
		UpdatedAt:      at,
	}, nil
}

func (c OneToOne) Ref() Ref {
	return Ref{Kind: OneToOneKind, ID: c.ConversationID}
}

func (c OneToOne) Participants() []string {
	return c.Pair[:]
}

func (c OneToOne) IsMember(userID string) bool {
	return c.Pair[0] == userID || c.Pair[1] == userID
}

// CanRecall only lets the original sender take a message back.
func (c OneToOne) CanRecall(requesterID, senderID string) bool {
	return requesterID == senderID && c.IsMember(requesterID)
}

func (c OneToOne) CanChangePolicy(requesterID string) bool {
	return c.IsMember(requesterID)
}

func (c OneToOne) Policy() Policy {
	return c.Disappearing
}

// Other returns the participant that is not userID.
func (c OneToOne) Other(userID string) string {
	if c.Pair[0] == userID {
		return c.Pair[1]
	}
	return c.Pair[0]
}

// Group has a single immutable admin who is always a participant.
type Group struct {
	GroupID      uuid.UUID
	Name         string
	AdminID      string
	Members      []string
	Disappearing Policy
	AvatarRef    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewGroup builds a group whose participants are {admin} ∪ initial, de-duplicated.
func NewGroup(name, adminID string, initial []string, at time.Time) (Group, error) {
	if err := ValidateUserID(adminID); err != nil {
		return Group{}, err
	}
	for _, id := range initial {
		if err := ValidateUserID(id); err != nil {
			return Group{}, err
		}
	}
	return Group{
		GroupID:   uuid.New(),
		Name:      name,
		AdminID:   adminID,
		Members:   lo.Uniq(append([]string{adminID}, initial...)),
		CreatedAt: at,
		UpdatedAt: at,
	}, nil
}

func (g Group) Ref() Ref {
	return Ref{Kind: GroupKind, ID: g.GroupID}
}

func (g Group) Participants() []string {
	return g.Members
}

func (g Group) IsMember(userID string) bool {
	return lo.Contains(g.Members, userID)
}

// CanRecall lets the sender or the admin take a message back.
func (g Group) CanRecall(requesterID, senderID string) bool {
	return requesterID == g.AdminID || (requesterID == senderID && g.IsMember(requesterID))
}

func (g Group) CanChangePolicy(requesterID string) bool {
	return requesterID == g.AdminID
}

func (g Group) Policy() Policy {
	return g.Disappearing
}

// AddMember appends memberID when requested by the admin.
// It reports false when the member was already there.
func (g *Group) AddMember(requesterID, memberID string) (bool, error) {
	if requesterID != g.AdminID {
		return false, fmt.Errorf("%w: only the admin can add members", errors.ErrPermissionDenied)
	}
	if err := ValidateUserID(memberID); err != nil {
		return false, err
	}
	if g.IsMember(memberID) {
		return false, nil
	}
	g.Members = append(g.Members, memberID)
	return true, nil
}
