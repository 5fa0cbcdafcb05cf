// Package chat contains the core concepts of the conversation engine:
// participants, conversations, messages and the rules binding them.
// No storage, network or transport logic should be added here.
package chat

import (
	"ephemeral-chat/errors"
	"fmt"

	"github.com/google/uuid"
)

// User is the external identity of a participant, referenced by id everywhere else.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// ValidateUserID rejects anything that is not a canonical UUID.
func ValidateUserID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: malformed user id %q", errors.ErrInvalidParticipant, id)
	}
	return nil
}

// NormalizePair orders two distinct participants so that {a, b} and {b, a}
// produce the same key.
func NormalizePair(a, b string) (string, string, error) {
	if err := ValidateUserID(a); err != nil {
		return "", "", err
	}
	if err := ValidateUserID(b); err != nil {
		return "", "", err
	}
	if a == b {
		return "", "", fmt.Errorf("%w: a conversation needs two distinct users", errors.ErrInvalidParticipant)
	}
	if a > b {
		a, b = b, a
	}
	return a, b, nil
}
