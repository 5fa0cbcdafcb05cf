package chat

import (
	"ephemeral-chat/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewPolicy(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		seconds int
		want    Policy
	}{
		{"disabled forces zero", false, 90, Policy{}},
		{"enabled keeps seconds", true, 5, Policy{Enabled: true, AfterSeconds: 5}},
		{"enabled without seconds uses default", true, 0, Policy{Enabled: true, AfterSeconds: DefaultDisappearAfterSeconds}},
		{"negative clamps to one", true, -10, Policy{Enabled: true, AfterSeconds: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NewPolicy(tt.enabled, tt.seconds))
		})
	}
}

func TestPolicy_StampExpiry(t *testing.T) {
	req := require.New(t)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	req.Nil(Policy{}.StampExpiry(now))
	req.Nil(Policy{Enabled: true}.StampExpiry(now))

	expiresAt := NewPolicy(true, 5).StampExpiry(now)
	req.NotNil(expiresAt)
	req.Equal(now.Add(5*time.Second), *expiresAt)
}

func TestKindFromMIME(t *testing.T) {
	req := require.New(t)

	kind, err := KindFromMIME("image/png")
	req.NoError(err)
	req.Equal(KindPhoto, kind)

	kind, err = KindFromMIME("video/mp4")
	req.NoError(err)
	req.Equal(KindVideo, kind)

	_, err = KindFromMIME("application/pdf")
	req.ErrorIs(err, errors.ErrUnsupportedMedia)
}

func TestValidate_Commands(t *testing.T) {
	req := require.New(t)

	err := Validate(CreateGroupCommand{AdminID: "c0d4a1f2-5a4b-4c1e-9d2f-1b8f0a1e2d3c"})
	req.ErrorIs(err, errors.ErrValidation)

	err = Validate(CreateGroupCommand{Name: "book club", AdminID: "c0d4a1f2-5a4b-4c1e-9d2f-1b8f0a1e2d3c"})
	req.NoError(err)

	err = Validate(AddMemberCommand{GroupID: "nope"})
	req.ErrorIs(err, errors.ErrValidation)
}
