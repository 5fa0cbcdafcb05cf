package chat

import (
	"ephemeral-chat/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the struct tags of a command and reports failures as validation errors.
func Validate(cmd any) error {
	if err := validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return nil
}

// Attachment is an uploaded file handed to the blob store before sending.
type Attachment struct {
	FileName string `validate:"required,max=255"`
	Data     []byte `validate:"required"`
}

type SendDirectCommand struct {
	SenderID    string `validate:"required,uuid"`
	RecipientID string `validate:"required,uuid"`
	Content     string `validate:"max=10000"`
	Attachment  *Attachment
}

type SendGroupCommand struct {
	GroupID    string `validate:"required,uuid"`
	SenderID   string `validate:"required,uuid"`
	Content    string `validate:"max=10000"`
	Attachment *Attachment
}

type GetDirectMessagesCommand struct {
	UserID  string `validate:"required,uuid"`
	OtherID string `validate:"required,uuid"`
	PageRequest
}

type GetGroupMessagesCommand struct {
	GroupID string `validate:"required,uuid"`
	UserID  string `validate:"required,uuid"`
	PageRequest
}

type RecallCommand struct {
	MessageID   string `validate:"required,uuid"`
	RequesterID string `validate:"required,uuid"`
}

type SetDisappearingCommand struct {
	Conversation Ref
	RequesterID  string `validate:"required,uuid"`
	Enabled      bool
	Seconds      int
}

type CreateGroupCommand struct {
	Name         string   `validate:"required,max=100"`
	AdminID      string   `validate:"required,uuid"`
	Participants []string `validate:"dive,uuid"`
	Avatar       *Attachment
}

type AddMemberCommand struct {
	GroupID     string `validate:"required,uuid"`
	RequesterID string `validate:"required,uuid"`
	MemberID    string `validate:"required,uuid"`
}
