package model

import "time"

// Message mirrors the `messages` table.  Conversations are not stored; they
// are derived from the messages exchanged by two users.
type Message struct {
	ID          string    `db:"id" json:"id"`
	SenderID    string    `db:"sender_id" json:"senderId"`
	RecipientID string    `db:"recipient_id" json:"recipientId"`
	ItemID      *string   `db:"item_id" json:"itemId,omitempty"`
	LoanID      *string   `db:"loan_id" json:"loanId,omitempty"`
	Content     string    `db:"content" json:"content"`
	IsRead      bool      `db:"is_read" json:"isRead"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type MessageCreate struct {
	SenderID    string
	RecipientID string
	ItemID      *string
	LoanID      *string
	Content     string
}

type MessagePatch struct {
	IsRead *bool
}

// ItemRef and LoanRef are the optional context attached to a message.
type ItemRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type LoanRef struct {
	ID     string     `json:"id"`
	Status LoanStatus `json:"status"`
}

type MessageWithDetails struct {
	Message
	Sender    UserSummary `json:"sender"`
	Recipient UserSummary `json:"recipient"`
	Item      *ItemRef    `json:"item,omitempty"`
	Loan      *LoanRef    `json:"loan,omitempty"`
}

// Conversation is one row per counterpart of a user.
type Conversation struct {
	OtherUser   UserSummary `json:"otherUser"`
	LastMessage LastMessage `json:"lastMessage"`
	UnreadCount int         `json:"unreadCount"`
}

type LastMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	SenderID  string    `json:"senderId"`
	CreatedAt time.Time `json:"createdAt"`
}
