package models

import (
	"strings"
	"time"
)

// NIPMaxLen is the column width of the nip field; longer values are
// truncated on every write path.
const NIPMaxLen = 18

// Subscriber is a private chat that opted in to receive messages from the
// bot. Optional fields are pointers so that absent values stay null both in
// the JSON file and in the database.
type Subscriber struct {
	ChatID       int64      `db:"chat_id" json:"-"`
	FirstName    *string    `db:"first_name" json:"first_name"`
	LastName     *string    `db:"last_name" json:"last_name"`
	Username     *string    `db:"username" json:"username"`
	NIP          *string    `db:"nip" json:"nip"`
	SubscribedAt *time.Time `db:"subscribed_at" json:"subscribed_at"`
	UpdatedAt    *time.Time `db:"updated_at" json:"updated_at"`
}

// NotifyRequest is the payload of POST /notify. Exactly one targeting field
// is expected; with none set the message is broadcast to every subscriber.
type NotifyRequest struct {
	Message   string  `json:"message" binding:"required"`
	ChatID    *int64  `json:"chat_id"`
	Username  *string `json:"username"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	NIP       *string `json:"nip"`
}

// SubscriberUpdate carries a partial update for PUT /subscribers/:chat_id.
// Nil fields are left untouched.
type SubscriberUpdate struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Username  *string `json:"username"`
	NIP       *string `json:"nip"`
}

// NormalizeNIP strips whitespace and enforces the column width.
func NormalizeNIP(nip string) string {
	nip = strings.Join(strings.Fields(nip), "")
	if len(nip) > NIPMaxLen {
		return nip[:NIPMaxLen]
	}
	return nip
}

// StrPtr returns a pointer to s, or nil when s is empty. Telegram reports
// absent names as empty strings while storage keeps them null.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
