//go:generate go run go.uber.org/mock/mockgen -source=conversation_repository.go -destination=../../mocks/mock_conversation_repository.go -package=mocks
package storage

import (
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IConversationRepository interface {
	ResolveOrCreate(a, b string, now time.Time) (chat.OneToOne, bool, error)
	GetOneToOne(id uuid.UUID) (chat.OneToOne, error)
	GetGroup(id uuid.UUID) (chat.Group, error)
	Get(ref chat.Ref) (chat.Conversation, error)
	CreateGroup(group chat.Group) error
	UpdateGroup(id uuid.UUID, now time.Time, mutate func(group *chat.Group) (bool, error)) (chat.Group, error)
	UpdatePolicy(ref chat.Ref, now time.Time, mutate func(c chat.Conversation) (chat.Policy, error)) (chat.Conversation, error)
	ListForUser(userID string, kind chat.ConversationKind) ([]chat.Conversation, error)
}

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, log: log}
}

// ResolveOrCreate returns the unique one-to-one conversation between a and b,
// creating it on first contact. Concurrent callers racing on the same pair
// conflict on the pair key and the loser replays against the winner's record.
func (r *ConversationRepository) ResolveOrCreate(a, b string, now time.Time) (chat.OneToOne, bool, error) {
	low, high, err := chat.NormalizePair(a, b)
	if err != nil {
		return chat.OneToOne{}, false, err
	}

	var conversation chat.OneToOne
	var created bool
	err = updateWithRetry(r.db, func(txn *badger.Txn) error {
		created = false
		item, err := txn.Get(pairKey(low, high))
		switch {
		case err == nil:
			var id uuid.UUID
			if err = item.Value(func(val []byte) error {
				id, err = uuid.ParseBytes(val)
				return err
			}); err != nil {
				return fmt.Errorf("%w: pair %s:%s: %v", errors.ErrInvalidRecord, low, high, err)
			}
			conversation, err = getOneToOne(txn, id)
			return err
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		conversation, err = chat.NewOneToOne(low, high, now.UTC())
		if err != nil {
			return err
		}
		if err = txn.Set(pairKey(low, high), []byte(conversation.ConversationID.String())); err != nil {
			return err
		}
		if err = putConversation(txn, fromOneToOne(conversation)); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return chat.OneToOne{}, false, err
	}
	if created {
		r.log.Debug("Created one-to-one conversation", "conversation_id", conversation.ConversationID)
	}
	return conversation, created, nil
}

func (r *ConversationRepository) GetOneToOne(id uuid.UUID) (chat.OneToOne, error) {
	var conversation chat.OneToOne
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		conversation, err = getOneToOne(txn, id)
		return err
	})
	return conversation, err
}

func (r *ConversationRepository) GetGroup(id uuid.UUID) (chat.Group, error) {
	var group chat.Group
	err := r.db.View(func(txn *badger.Txn) error {
		record, err := getConversation(txn, chat.Ref{Kind: chat.GroupKind, ID: id})
		if err != nil {
			return err
		}
		group, err = record.toGroup()
		return err
	})
	return group, err
}

func (r *ConversationRepository) Get(ref chat.Ref) (chat.Conversation, error) {
	var conversation chat.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		record, err := getConversation(txn, ref)
		if err != nil {
			return err
		}
		conversation, err = record.toConversation()
		return err
	})
	return conversation, err
}

func (r *ConversationRepository) CreateGroup(group chat.Group) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return putConversation(txn, fromGroup(group))
	})
}

// UpdateGroup applies mutate inside a transaction and persists the group when
// mutate reports a change. Membership index entries follow the member list.
func (r *ConversationRepository) UpdateGroup(id uuid.UUID, now time.Time, mutate func(group *chat.Group) (bool, error)) (chat.Group, error) {
	var group chat.Group
	err := updateWithRetry(r.db, func(txn *badger.Txn) error {
		record, err := getConversation(txn, chat.Ref{Kind: chat.GroupKind, ID: id})
		if err != nil {
			return err
		}
		if group, err = record.toGroup(); err != nil {
			return err
		}
		changed, err := mutate(&group)
		if err != nil || !changed {
			return err
		}
		group.UpdatedAt = now.UTC()
		return putConversation(txn, fromGroup(group))
	})
	return group, err
}

// UpdatePolicy replaces the disappearing policy with the one computed by mutate.
func (r *ConversationRepository) UpdatePolicy(ref chat.Ref, now time.Time, mutate func(c chat.Conversation) (chat.Policy, error)) (chat.Conversation, error) {
	var conversation chat.Conversation
	err := updateWithRetry(r.db, func(txn *badger.Txn) error {
		record, err := getConversation(txn, ref)
		if err != nil {
			return err
		}
		current, err := record.toConversation()
		if err != nil {
			return err
		}
		policy, err := mutate(current)
		if err != nil {
			return err
		}
		record.Policy = policy
		record.UpdatedAt = now.UTC()
		if err = putConversation(txn, record); err != nil {
			return err
		}
		conversation, err = record.toConversation()
		return err
	})
	return conversation, err
}

// ListForUser returns every conversation of the given kind userID belongs to.
func (r *ConversationRepository) ListForUser(userID string, kind chat.ConversationKind) ([]chat.Conversation, error) {
	var conversations []chat.Conversation
	prefix := memberKindPrefix(userID, kind)
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := lastSegmentID(it.Item().Key())
			if err != nil {
				r.log.Warn("Skipping malformed member key", "key", string(it.Item().Key()), "error", err)
				continue
			}
			record, err := getConversation(txn, chat.Ref{Kind: kind, ID: id})
			if errors.Is(err, errors.ErrConversationNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			conversation, err := record.toConversation()
			if err != nil {
				return err
			}
			conversations = append(conversations, conversation)
		}
		return nil
	})
	return conversations, err
}

func putConversation(txn *badger.Txn, record conversationRecord) error {
	ref := chat.Ref{Kind: record.Kind, ID: record.ID}
	if err := txn.Set(conversationKey(ref), encodeConversation(record)); err != nil {
		return err
	}
	for _, userID := range record.Participants {
		if err := txn.Set(memberKey(userID, ref), nil); err != nil {
			return err
		}
	}
	return nil
}

func getConversation(txn *badger.Txn, ref chat.Ref) (conversationRecord, error) {
	item, err := txn.Get(conversationKey(ref))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return conversationRecord{}, fmt.Errorf("%w: %s", errors.ErrConversationNotFound, ref)
	}
	if err != nil {
		return conversationRecord{}, err
	}
	var record conversationRecord
	err = item.Value(func(val []byte) error {
		record, err = decodeConversation(val)
		return err
	})
	return record, err
}

func getOneToOne(txn *badger.Txn, id uuid.UUID) (chat.OneToOne, error) {
	record, err := getConversation(txn, chat.Ref{Kind: chat.OneToOneKind, ID: id})
	if err != nil {
		return chat.OneToOne{}, err
	}
	return record.toOneToOne()
}
