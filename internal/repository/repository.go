package repository

import (
	"errors"

	"relay-bot/pkg/models"
)

// ErrSubscriberNotFound is returned by Get for unknown chat ids.
var ErrSubscriberNotFound = errors.New("subscriber not found")

type Repositories struct {
	SubscriberRepository
}

func NewRepositories(subscribers SubscriberRepository) *Repositories {
	return &Repositories{SubscriberRepository: subscribers}
}

// SubscriberRepository persists subscriber records. The file and Postgres
// implementations are interchangeable; callers never know which one they
// are talking to.
type SubscriberRepository interface {
	// All returns every record keyed by chat id.
	All() (map[int64]models.Subscriber, error)
	Get(chatID int64) (models.Subscriber, error)
	// Upsert creates the record or refreshes it, overwriting only the
	// non-nil fields and bumping updated_at.
	Upsert(sub models.Subscriber) error
	// SaveAll bulk-writes records as-is, overwriting existing ones.
	SaveAll(subs map[int64]models.Subscriber) error
	Delete(chatID int64) error
}
