package storage

import (
	"ephemeral-chat/domain/chat"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	messages := NewMessageRepository(db, testLogger())
	conversations := NewConversationRepository(db, testLogger())

	// Given a conversation holding a disappearing message
	direct, _, err := conversations.ResolveOrCreate(uuid.NewString(), uuid.NewString(), time.Now())
	req.NoError(err)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	message := newMessage(direct.Ref(), direct.Pair[0], "hi", at)
	expiresAt := at.Add(time.Minute)
	message.ExpiresAt = &expiresAt
	_, err = messages.Append(message)
	req.NoError(err)

	// When inspecting messages
	rows, err := Inspect(db, messagePrefix, 10)

	// Then the record is decoded
	req.NoError(err)
	req.Len(rows, 1)
	req.Equal("MESSAGE", rows[0].Type)
	req.Equal("10:00:00", rows[0].Timestamp)
	req.Contains(rows[0].Detail, string(chat.KindText))
	req.Contains(rows[0].Detail, "expires 10:01:00")

	// And index keys are listed with their timestamp
	rows, err = Inspect(db, expiryPrefix, 10)
	req.NoError(err)
	req.Len(rows, 1)
	req.Equal("INDEX", rows[0].Type)
	req.Equal("10:01:00", rows[0].Timestamp)

	// And the limit is honoured
	rows, err = Inspect(db, "", 1)
	req.NoError(err)
	req.Len(rows, 1)
}
