package models

import "time"

// Message is an append-only log entry of a conversation line between a
// user and the administrator. Rows are never updated or deleted.
type Message struct {
	ID        int64
	UserID    int64
	Text      string
	FromAdmin bool
	CreatedAt time.Time
}

// Stats aggregates funnel counters for the admin /stats command and the
// HTTP stats endpoint.
type Stats struct {
	TotalUsers      int `json:"total_users"`
	SubscribedUsers int `json:"subscribed_users"`
	ReceivedContent int `json:"received_content"`
	TotalMessages   int `json:"total_messages"`
}

// SubscriptionRate returns the share of users who subscribed, in percent.
func (s Stats) SubscriptionRate() float64 {
	if s.TotalUsers == 0 {
		return 0
	}
	return float64(s.SubscribedUsers) / float64(s.TotalUsers) * 100
}

// ContentRate returns the share of users who received the content, in percent.
func (s Stats) ContentRate() float64 {
	if s.TotalUsers == 0 {
		return 0
	}
	return float64(s.ReceivedContent) / float64(s.TotalUsers) * 100
}
