package models

import "time"

// VoteUpdate is published over Redis whenever a vote changes state, and
// fans out to websocket feed subscribers.
type VoteUpdate struct {
	VoteID        uint      `json:"vote_id"`
	ChatID        int64     `json:"chat_id"`
	TargetUserID  int64     `json:"target_user_id"`
	VoteType      string    `json:"vote_type"`
	VotesFor      int       `json:"votes_for"`
	VotesAgainst  int       `json:"votes_against"`
	RequiredVotes int       `json:"required_votes"`
	IsActive      bool      `json:"is_active"`
	Result        *bool     `json:"result,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// ReactionEvent is a reaction-add observed in a chat.
type ReactionEvent struct {
	MessageID int
	ChatID    int64
	ReactorID int64
	Emoji     string
}
