package chat

import (
	"slices"
	"sort"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 100
)

type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps a request into the accepted window instead of rejecting it.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	switch {
	case p.Limit < 1:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}

type Page struct {
	Page     int
	Limit    int
	Total    int
	Messages []Message
}

// Paginate walks backward from the newest message while keeping every page
// in chronological order. Recalled messages never appear and never count.
func Paginate(messages []Message, req PageRequest) Page {
	req = req.Normalize()
	active := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.IsActive() {
			active = append(active, m)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].ID.String() > active[j].ID.String()
		}
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})

	page := Page{Page: req.Page, Limit: req.Limit, Total: len(active), Messages: []Message{}}
	skip := (req.Page - 1) * req.Limit
	if skip >= len(active) {
		return page
	}
	end := min(skip+req.Limit, len(active))
	window := slices.Clone(active[skip:end])
	slices.Reverse(window)
	page.Messages = window
	return page
}
