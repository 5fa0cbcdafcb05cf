package storage

import (
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Records are stored in protobuf wire format so that the values stay readable
// by any protobuf tool given the field numbers below.
//
//	message Message {
//	  string id = 1; string conversation_kind = 2; string conversation_id = 3;
//	  string sender_id = 4; string content = 5; string kind = 6;
//	  int64 created_at = 7; int64 expires_at = 8; bool recalled = 9;
//	  repeated string read_by = 10; repeated string deleted_for = 11;
//	}
//	message Conversation {
//	  string id = 1; string kind = 2; repeated string participants = 3;
//	  string name = 4; string admin_id = 5; bool disappearing_enabled = 6;
//	  int64 disappear_after_seconds = 7; string avatar_ref = 8;
//	  int64 created_at = 9; int64 updated_at = 10;
//	}
//	message User { string id = 1; string username = 2; string avatar = 3; }
type field struct {
	bytes  []byte
	varint uint64
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendRepeated(b []byte, num protowire.Number, values []string) []byte {
	for _, v := range values {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func appendTime(b []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	return appendVarint(b, num, uint64(t.UnixNano()))
}

// walk visits every length-delimited and varint field, skipping unknown wire types.
func walk(b []byte, visit func(num protowire.Number, f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", errors.ErrInvalidRecord, protowire.ParseError(n))
		}
		b = b[n:]

		var f field
		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: %v", errors.ErrInvalidRecord, protowire.ParseError(n))
			}
			f.bytes = v
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: %v", errors.ErrInvalidRecord, protowire.ParseError(n))
			}
			f.varint = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: %v", errors.ErrInvalidRecord, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		if err := visit(num, f); err != nil {
			return err
		}
	}
	return nil
}

func toTime(v uint64) time.Time {
	return time.Unix(0, int64(v)).UTC()
}

func encodeMessage(m chat.Message) []byte {
	var b []byte
	b = appendString(b, 1, m.ID.String())
	b = appendString(b, 2, string(m.Conversation.Kind))
	b = appendString(b, 3, m.Conversation.ID.String())
	b = appendString(b, 4, m.SenderID)
	b = appendString(b, 5, m.Content)
	b = appendString(b, 6, string(m.Kind))
	b = appendTime(b, 7, m.CreatedAt)
	if m.ExpiresAt != nil {
		b = appendTime(b, 8, *m.ExpiresAt)
	}
	b = appendBool(b, 9, m.Recalled)
	b = appendRepeated(b, 10, m.ReadBy)
	b = appendRepeated(b, 11, m.DeletedFor)
	return b
}

func decodeMessage(b []byte) (chat.Message, error) {
	var m chat.Message
	var id, conversationID string
	err := walk(b, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			id = string(f.bytes)
		case 2:
			m.Conversation.Kind = chat.ConversationKind(f.bytes)
		case 3:
			conversationID = string(f.bytes)
		case 4:
			m.SenderID = string(f.bytes)
		case 5:
			m.Content = string(f.bytes)
		case 6:
			m.Kind = chat.Kind(f.bytes)
		case 7:
			m.CreatedAt = toTime(f.varint)
		case 8:
			expiresAt := toTime(f.varint)
			m.ExpiresAt = &expiresAt
		case 9:
			m.Recalled = protowire.DecodeBool(f.varint)
		case 10:
			m.ReadBy = append(m.ReadBy, string(f.bytes))
		case 11:
			m.DeletedFor = append(m.DeletedFor, string(f.bytes))
		}
		return nil
	})
	if err != nil {
		return chat.Message{}, err
	}
	if m.ID, err = uuid.Parse(id); err != nil {
		return chat.Message{}, fmt.Errorf("%w: message id: %v", errors.ErrInvalidRecord, err)
	}
	if m.Conversation.ID, err = uuid.Parse(conversationID); err != nil {
		return chat.Message{}, fmt.Errorf("%w: conversation id: %v", errors.ErrInvalidRecord, err)
	}
	return m, nil
}

// conversationRecord is the stored shape shared by both conversation kinds.
type conversationRecord struct {
	ID           uuid.UUID
	Kind         chat.ConversationKind
	Participants []string
	Name         string
	AdminID      string
	Policy       chat.Policy
	AvatarRef    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func encodeConversation(r conversationRecord) []byte {
	var b []byte
	b = appendString(b, 1, r.ID.String())
	b = appendString(b, 2, string(r.Kind))
	b = appendRepeated(b, 3, r.Participants)
	b = appendString(b, 4, r.Name)
	b = appendString(b, 5, r.AdminID)
	b = appendBool(b, 6, r.Policy.Enabled)
	b = appendVarint(b, 7, uint64(r.Policy.AfterSeconds))
	b = appendString(b, 8, r.AvatarRef)
	b = appendTime(b, 9, r.CreatedAt)
	b = appendTime(b, 10, r.UpdatedAt)
	return b
}

func decodeConversation(b []byte) (conversationRecord, error) {
	var r conversationRecord
	var id string
	err := walk(b, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			id = string(f.bytes)
		case 2:
			r.Kind = chat.ConversationKind(f.bytes)
		case 3:
			r.Participants = append(r.Participants, string(f.bytes))
		case 4:
			r.Name = string(f.bytes)
		case 5:
			r.AdminID = string(f.bytes)
		case 6:
			r.Policy.Enabled = protowire.DecodeBool(f.varint)
		case 7:
			r.Policy.AfterSeconds = int(f.varint)
		case 8:
			r.AvatarRef = string(f.bytes)
		case 9:
			r.CreatedAt = toTime(f.varint)
		case 10:
			r.UpdatedAt = toTime(f.varint)
		}
		return nil
	})
	if err != nil {
		return conversationRecord{}, err
	}
	if r.ID, err = uuid.Parse(id); err != nil {
		return conversationRecord{}, fmt.Errorf("%w: conversation id: %v", errors.ErrInvalidRecord, err)
	}
	return r, nil
}

func fromOneToOne(c chat.OneToOne) conversationRecord {
	return conversationRecord{
		ID:           c.ConversationID,
		Kind:         chat.OneToOneKind,
		Participants: c.Participants(),
		Policy:       c.Disappearing,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (r conversationRecord) toOneToOne() (chat.OneToOne, error) {
	if r.Kind != chat.OneToOneKind || len(r.Participants) != 2 {
		return chat.OneToOne{}, fmt.Errorf("%w: %s is not a one-to-one conversation", errors.ErrInvalidRecord, r.ID)
	}
	return chat.OneToOne{
		ConversationID: r.ID,
		Pair:           [2]string{r.Participants[0], r.Participants[1]},
		Disappearing:   r.Policy,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}, nil
}

func fromGroup(g chat.Group) conversationRecord {
	return conversationRecord{
		ID:           g.GroupID,
		Kind:         chat.GroupKind,
		Participants: g.Members,
		Name:         g.Name,
		AdminID:      g.AdminID,
		Policy:       g.Disappearing,
		AvatarRef:    g.AvatarRef,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func (r conversationRecord) toGroup() (chat.Group, error) {
	if r.Kind != chat.GroupKind {
		return chat.Group{}, fmt.Errorf("%w: %s is not a group", errors.ErrInvalidRecord, r.ID)
	}
	return chat.Group{
		GroupID:      r.ID,
		Name:         r.Name,
		AdminID:      r.AdminID,
		Members:      r.Participants,
		Disappearing: r.Policy,
		AvatarRef:    r.AvatarRef,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

func (r conversationRecord) toConversation() (chat.Conversation, error) {
	switch r.Kind {
	case chat.GroupKind:
		return r.toGroup()
	default:
		return r.toOneToOne()
	}
}

func encodeUser(u chat.User) []byte {
	var b []byte
	b = appendString(b, 1, u.ID)
	b = appendString(b, 2, u.Username)
	b = appendString(b, 3, u.Avatar)
	return b
}

func decodeUser(b []byte) (chat.User, error) {
	var u chat.User
	err := walk(b, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			u.ID = string(f.bytes)
		case 2:
			u.Username = string(f.bytes)
		case 3:
			u.Avatar = string(f.bytes)
		}
		return nil
	})
	return u, err
}
