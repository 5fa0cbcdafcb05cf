package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func tenMessages(at time.Time) []Message {
	var messages []Message
	for i := 1; i <= 10; i++ {
		messages = append(messages, Message{
			ID:        uuid.New(),
			SenderID:  uuid.NewString(),
			Content:   fmt.Sprintf("m%d", i),
			Kind:      KindText,
			CreatedAt: at.Add(time.Duration(i) * time.Second),
		})
	}
	return messages
}

func contents(messages []Message) []string {
	return lo.Map(messages, func(m Message, _ int) string { return m.Content })
}

func TestPaginate_WalksBackwardFromNewest(t *testing.T) {
	req := require.New(t)
	// Given ten chronological messages stored in shuffled order
	messages := tenMessages(time.Now().UTC())
	shuffled := append([]Message{}, messages[5:]...)
	shuffled = append(shuffled, messages[:5]...)

	// When reading three pages of three
	page1 := Paginate(shuffled, PageRequest{Page: 1, Limit: 3})
	page2 := Paginate(shuffled, PageRequest{Page: 2, Limit: 3})
	page3 := Paginate(shuffled, PageRequest{Page: 3, Limit: 3})

	// Then each page is chronological and pages walk backward
	req.Equal([]string{"m8", "m9", "m10"}, contents(page1.Messages))
	req.Equal([]string{"m5", "m6", "m7"}, contents(page2.Messages))
	req.Equal([]string{"m2", "m3", "m4"}, contents(page3.Messages))
	for _, p := range []Page{page1, page2, page3} {
		req.Equal(10, p.Total)
		req.Equal(3, p.Limit)
	}
}

func TestPaginate_ExcludesRecalled(t *testing.T) {
	req := require.New(t)
	messages := tenMessages(time.Now().UTC())
	messages[9].Recall()

	page := Paginate(messages, PageRequest{Page: 1, Limit: 3})

	req.Equal(9, page.Total)
	req.Equal([]string{"m7", "m8", "m9"}, contents(page.Messages))
}

func TestPaginate_EmptyAndOutOfRange(t *testing.T) {
	req := require.New(t)

	empty := Paginate(nil, PageRequest{})
	req.Equal(0, empty.Total)
	req.Empty(empty.Messages)
	req.NotNil(empty.Messages)
	req.Equal(DefaultPage, empty.Page)
	req.Equal(DefaultLimit, empty.Limit)

	outOfRange := Paginate(tenMessages(time.Now()), PageRequest{Page: 5, Limit: 3})
	req.Equal(10, outOfRange.Total)
	req.Empty(outOfRange.Messages)
}

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   PageRequest
		want PageRequest
	}{
		{"defaults", PageRequest{}, PageRequest{Page: 1, Limit: 50}},
		{"negative page", PageRequest{Page: -2, Limit: 10}, PageRequest{Page: 1, Limit: 10}},
		{"limit too large", PageRequest{Page: 2, Limit: 500}, PageRequest{Page: 2, Limit: 100}},
		{"limit at bound", PageRequest{Page: 1, Limit: 100}, PageRequest{Page: 1, Limit: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}
