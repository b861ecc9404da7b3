package service

import (
	"relay-bot/internal/repository"
	"relay-bot/pkg/models"
)

type SubscriberServiceImpl struct {
	repo repository.SubscriberRepository
}

func NewSubscriberService(repo repository.SubscriberRepository) *SubscriberServiceImpl {
	return &SubscriberServiceImpl{repo: repo}
}

func (s *SubscriberServiceImpl) All() (map[int64]models.Subscriber, error) {
	return s.repo.All()
}

func (s *SubscriberServiceImpl) Get(chatID int64) (models.Subscriber, error) {
	return s.repo.Get(chatID)
}

func (s *SubscriberServiceImpl) Upsert(sub models.Subscriber) error {
	return s.repo.Upsert(sub)
}

// Update applies a partial update and returns the merged record. The record
// is created when it does not exist yet, matching the PUT semantics of the
// notify API.
func (s *SubscriberServiceImpl) Update(chatID int64, update models.SubscriberUpdate) (models.Subscriber, error) {
	sub := models.Subscriber{
		ChatID:    chatID,
		FirstName: update.FirstName,
		LastName:  update.LastName,
		Username:  update.Username,
	}
	if update.NIP != nil {
		nip := models.NormalizeNIP(*update.NIP)
		sub.NIP = &nip
	}
	if err := s.repo.Upsert(sub); err != nil {
		return models.Subscriber{}, err
	}
	return s.repo.Get(chatID)
}

func (s *SubscriberServiceImpl) SaveAll(subs map[int64]models.Subscriber) error {
	return s.repo.SaveAll(subs)
}

func (s *SubscriberServiceImpl) Delete(chatID int64) error {
	return s.repo.Delete(chatID)
}
