//go:generate go run go.uber.org/mock/mockgen -source=user_repository.go -destination=../../mocks/mock_user_repository.go -package=mocks
package storage

import (
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

// IUserRepository is a read-mostly directory of identities, used to expand
// message senders. Users are registered by the identity provider.
type IUserRepository interface {
	SaveUser(user chat.User) error
	GetUsers(ids []string) (map[string]chat.User, error)
}

type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewUserRepository(db *badger.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{db: db, log: log}
}

func (r *UserRepository) SaveUser(user chat.User) error {
	if err := chat.ValidateUserID(user.ID); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(user.ID), encodeUser(user))
	})
}

// GetUsers resolves the known ids. Unknown ids are absent from the result.
func (r *UserRepository) GetUsers(ids []string) (map[string]chat.User, error) {
	users := make(map[string]chat.User, len(ids))
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range lo.Uniq(ids) {
			item, err := txn.Get(userKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				user, err := decodeUser(val)
				if err != nil {
					return err
				}
				users[id] = user
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return users, err
}
