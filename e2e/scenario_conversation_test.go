package e2e

import (
	"context"
	pb "ephemeral-chat/proto/chat"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type testConversationSuite struct {
	BaseGrpcSuite
}

func TestConversationSuite(t *testing.T) {
	suite.Run(t, &testConversationSuite{})
}

func (s *testConversationSuite) TestSendReadRecall() {
	alice, bob := uuid.NewString(), uuid.NewString()
	var messageID string

	s.Run("Step 1: alice writes to bob", func() {
		s.WithChat("Send a direct message", alice, func(ctx context.Context, client *pb.ChatServiceClient) {
			resp, err := client.SendDirectMessage(ctx, &pb.SendDirectRequest{RecipientID: bob, Content: "hi"})
			s.Require().NoError(err)
			s.Require().Equal("text", resp.Message.Kind)
			messageID = resp.Message.ID
		})
	})

	s.Run("Step 2: bob reads the conversation", func() {
		s.WithChat("Read the conversation", bob, func(ctx context.Context, client *pb.ChatServiceClient) {
			page, err := client.GetDirectMessages(ctx, &pb.GetDirectMessagesRequest{OtherUserID: alice})
			s.Require().NoError(err)
			s.Require().Equal(1, page.Total)
			s.Require().Equal(messageID, page.Messages[0].ID)
		})
	})

	s.Run("Step 3: alice recalls the message", func() {
		s.WithChat("Recall the message", alice, func(ctx context.Context, client *pb.ChatServiceClient) {
			resp, err := client.RecallMessage(ctx, &pb.RecallRequest{MessageID: messageID})
			s.Require().NoError(err)
			s.Require().True(resp.Success)

			page, err := client.GetDirectMessages(ctx, &pb.GetDirectMessagesRequest{OtherUserID: bob})
			s.Require().NoError(err)
			s.Require().Zero(page.Total)
		})
	})
}
