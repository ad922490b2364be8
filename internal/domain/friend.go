package domain

import "time"

// Friend request lifecycle states. A rejected request is deleted rather than
// kept in a terminal state, so no "rejected" value exists.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
)

// FriendRequest is a directed request from Sender to Recipient.
type FriendRequest struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FriendRequestView is a request joined with the counterpart profile the
// viewer cares about: the sender for incoming requests, the recipient for
// outgoing and accepted ones.
type FriendRequestView struct {
	FriendRequest
	Sender    *PublicProfile `json:"sender,omitempty"`
	Recipient *PublicProfile `json:"recipient,omitempty"`
}
