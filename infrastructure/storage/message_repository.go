//go:generate go run go.uber.org/mock/mockgen -source=message_repository.go -destination=../../mocks/mock_message_repository.go -package=mocks
package storage

import (
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	Append(message chat.Message) (chat.Message, error)
	FindByID(id uuid.UUID) (chat.Message, error)
	FindActiveByIDs(ids []uuid.UUID) ([]chat.Message, error)
	ListConversationMessageIDs(conversationID uuid.UUID) ([]uuid.UUID, error)
	LastActive(conversationID uuid.UUID) (*chat.Message, error)
	Recall(id uuid.UUID) (chat.Message, error)
	FindExpired(now time.Time) ([]uuid.UUID, error)
	BulkDelete(ids []uuid.UUID) (int, error)
	CompactDangling() (int, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log, now: time.Now}
}

// Append persists the message and links it to its conversation list in one transaction.
// The list is a set of independent keys, so appends and removals of different
// ids never touch the same key and commute.
func (r *MessageRepository) Append(message chat.Message) (chat.Message, error) {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = r.now().UTC()
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(message.ID), encodeMessage(message)); err != nil {
			return err
		}
		if message.ExpiresAt != nil {
			if err := txn.Set(expiryKey(*message.ExpiresAt, message.ID), nil); err != nil {
				return err
			}
		}
		return txn.Set(listKey(message.Conversation.ID, message.CreatedAt, message.ID), nil)
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("append message %s: %w", message.ID, err)
	}
	return message, nil
}

func (r *MessageRepository) FindByID(id uuid.UUID) (chat.Message, error) {
	var message chat.Message
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		message, err = getMessage(txn, id)
		return err
	})
	return message, err
}

// FindActiveByIDs keeps the order of ids and silently skips recalled messages
// and ids whose record has already been swept.
func (r *MessageRepository) FindActiveByIDs(ids []uuid.UUID) ([]chat.Message, error) {
	messages := make([]chat.Message, 0, len(ids))
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			message, err := getMessage(txn, id)
			if errors.Is(err, errors.ErrMessageNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if message.IsActive() {
				messages = append(messages, message)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// ListConversationMessageIDs returns the ids linked to a conversation in send order.
func (r *MessageRepository) ListConversationMessageIDs(conversationID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	prefix := listConversationPrefix(conversationID)
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := lastSegmentID(it.Item().Key())
			if err != nil {
				r.log.Warn("Skipping malformed list key", "key", string(it.Item().Key()), "error", err)
				continue
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

// LastActive walks the conversation list backward and returns the newest
// message that still exists and was not recalled.
func (r *MessageRepository) LastActive(conversationID uuid.UUID) (*chat.Message, error) {
	var last *chat.Message
	prefix := listConversationPrefix(conversationID)
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			id, err := lastSegmentID(it.Item().Key())
			if err != nil {
				continue
			}
			message, err := getMessage(txn, id)
			if errors.Is(err, errors.ErrMessageNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if message.IsActive() {
				last = &message
				return nil
			}
		}
		return nil
	})
	return last, err
}

// Recall marks the message recalled, clears its content and unlinks it from
// its conversation list. The record itself is kept.
// A message that is already recalled is reported as not found.
func (r *MessageRepository) Recall(id uuid.UUID) (chat.Message, error) {
	var recalled chat.Message
	err := updateWithRetry(r.db, func(txn *badger.Txn) error {
		message, err := getMessage(txn, id)
		if err != nil {
			return err
		}
		if message.Recalled {
			return fmt.Errorf("%w: %s was already recalled", errors.ErrMessageNotFound, id)
		}
		message.Recall()
		if err = txn.Set(messageKey(id), encodeMessage(message)); err != nil {
			return err
		}
		if err = txn.Delete(listKey(message.Conversation.ID, message.CreatedAt, id)); err != nil {
			return err
		}
		recalled = message
		return nil
	})
	return recalled, err
}

// FindExpired scans the expiry index up to now included.
// Only expiries committed before the scan started are visible.
func (r *MessageRepository) FindExpired(now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	prefix := []byte(expiryPrefix)
	limit := now.UnixNano()
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			parts := strings.SplitN(strings.TrimPrefix(key, expiryPrefix), ":", 2)
			if len(parts) != 2 {
				continue
			}
			at, err := strconv.ParseInt(parts[0], 10, 64)
			if err != nil {
				continue
			}
			if at > limit {
				break
			}
			id, err := uuid.Parse(parts[1])
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

// BulkDelete hard-removes message records and their expiry entries.
// Conversation lists are left alone; readers tolerate the dangling ids.
func (r *MessageRepository) BulkDelete(ids []uuid.UUID) (int, error) {
	deleted := 0
	for _, chunk := range lo.Chunk(ids, deleteBatchSize) {
		count := 0
		err := updateWithRetry(r.db, func(txn *badger.Txn) error {
			count = 0
			for _, id := range chunk {
				message, err := getMessage(txn, id)
				if errors.Is(err, errors.ErrMessageNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				if err = txn.Delete(messageKey(id)); err != nil {
					return err
				}
				if message.ExpiresAt != nil {
					if err = txn.Delete(expiryKey(*message.ExpiresAt, id)); err != nil {
						return err
					}
				}
				count++
			}
			return nil
		})
		if err != nil {
			return deleted, err
		}
		deleted += count
	}
	return deleted, nil
}

// CompactDangling removes list entries whose message record no longer exists.
func (r *MessageRepository) CompactDangling() (int, error) {
	var dangling [][]byte
	prefix := []byte(listPrefix)
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			id, err := lastSegmentID(key)
			if err != nil {
				continue
			}
			_, err = txn.Get(messageKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				dangling = append(dangling, key)
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, chunk := range lo.Chunk(dangling, deleteBatchSize) {
		err = r.db.Update(func(txn *badger.Txn) error {
			for _, key := range chunk {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return len(dangling), nil
}

func getMessage(txn *badger.Txn, id uuid.UUID) (chat.Message, error) {
	item, err := txn.Get(messageKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.Message{}, fmt.Errorf("%w: %s", errors.ErrMessageNotFound, id)
	}
	if err != nil {
		return chat.Message{}, err
	}
	var message chat.Message
	err = item.Value(func(val []byte) error {
		message, err = decodeMessage(val)
		return err
	})
	return message, err
}
