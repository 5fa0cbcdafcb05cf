package storage

import (
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Key layout. Timestamps are zero padded to 19 digits so that lexicographical
// order is chronological order.
//
//	msg:{message_id}                                  -> Message
//	exp:{expires_at}:{message_id}                     -> empty, expiry index
//	list:{conversation_id}:{created_at}:{message_id}  -> empty, conversation message list
//	dm:{conversation_id}                              -> Conversation (one-to-one)
//	pair:{low_user}:{high_user}                       -> conversation id
//	group:{group_id}                                  -> Conversation (group)
//	member:{user_id}:{kind}:{conversation_id}         -> empty, membership index
//	user:{user_id}                                    -> User
const (
	messagePrefix = "msg:"
	expiryPrefix  = "exp:"
	listPrefix    = "list:"
	dmPrefix      = "dm:"
	pairPrefix    = "pair:"
	groupPrefix   = "group:"
	memberPrefix  = "member:"
	userPrefix    = "user:"

	// maxConflictRetries bounds the optimistic transaction retries.
	maxConflictRetries = 16
	// deleteBatchSize keeps bulk deletes under badger's transaction size limit.
	deleteBatchSize = 500
)

func messageKey(id uuid.UUID) []byte {
	return []byte(messagePrefix + id.String())
}

func expiryKey(expiresAt time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", expiryPrefix, expiresAt.UnixNano(), id))
}

func listConversationPrefix(conversationID uuid.UUID) []byte {
	return []byte(listPrefix + conversationID.String() + ":")
}

func listKey(conversationID uuid.UUID, createdAt time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", listPrefix, conversationID, createdAt.UnixNano(), id))
}

func conversationKey(ref chat.Ref) []byte {
	if ref.Kind == chat.GroupKind {
		return []byte(groupPrefix + ref.ID.String())
	}
	return []byte(dmPrefix + ref.ID.String())
}

func pairKey(low, high string) []byte {
	return []byte(pairPrefix + low + ":" + high)
}

func memberKey(userID string, ref chat.Ref) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s", memberPrefix, userID, ref.Kind, ref.ID))
}

func memberKindPrefix(userID string, kind chat.ConversationKind) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:", memberPrefix, userID, kind))
}

func userKey(id string) []byte {
	return []byte(userPrefix + id)
}

// lastSegmentID parses the uuid that ends every index key.
func lastSegmentID(key []byte) (uuid.UUID, error) {
	s := string(key)
	return uuid.Parse(s[strings.LastIndex(s, ":")+1:])
}

// updateWithRetry runs fn in a read-write transaction and replays it when a
// concurrent transaction committed a key it read.
func updateWithRetry(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", errors.ErrConflict, err)
}
