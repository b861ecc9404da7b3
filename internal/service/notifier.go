package service

import (
	"strings"
	"sync"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"relay-bot/pkg/models"
)

const defaultConcurrency = 10

type NotifierServiceImpl struct {
	bot         Sender
	subscribers SubscriberService
	concurrency int
}

func NewNotifierService(bot Sender, subscribers SubscriberService, concurrency int) *NotifierServiceImpl {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &NotifierServiceImpl{
		bot:         bot,
		subscribers: subscribers,
		concurrency: concurrency,
	}
}

func (n *NotifierServiceImpl) Notify(req models.NotifyRequest) (int, error) {
	subs, err := n.subscribers.All()
	if err != nil {
		return 0, err
	}

	targets := resolveTargets(subs, req)
	if len(targets) == 0 {
		return 0, nil
	}

	var sent int64
	sem := make(chan struct{}, n.concurrency)
	var wg sync.WaitGroup
	for _, chatID := range targets {
		wg.Add(1)
		sem <- struct{}{}
		go func(chatID int64) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, req.Message)); err != nil {
				log.Errorf("failed to send message to %d: %v", chatID, err)
				return
			}
			atomic.AddInt64(&sent, 1)
		}(chatID)
	}
	wg.Wait()
	return int(sent), nil
}

// resolveTargets picks recipient chat ids for a notify request. A direct
// chat_id short-circuits everything else and must belong to a known
// subscriber; an unknown one is a no-op rather than an error. The nip
// filter overrides the name filters.
func resolveTargets(subs map[int64]models.Subscriber, req models.NotifyRequest) []int64 {
	if req.ChatID != nil {
		if _, ok := subs[*req.ChatID]; ok {
			return []int64{*req.ChatID}
		}
		return nil
	}

	if req.NIP != nil && *req.NIP != "" {
		want := models.NormalizeNIP(*req.NIP)
		var targets []int64
		for chatID, sub := range subs {
			if sub.NIP != nil && *sub.NIP == want {
				targets = append(targets, chatID)
			}
		}
		return targets
	}

	switch {
	case req.Username != nil && *req.Username != "":
		var targets []int64
		for chatID, sub := range subs {
			if sub.Username != nil && strings.EqualFold(*sub.Username, *req.Username) {
				targets = append(targets, chatID)
			}
		}
		return targets
	case req.FirstName != nil && *req.FirstName != "":
		return matchSubstring(subs, *req.FirstName, func(sub models.Subscriber) *string { return sub.FirstName })
	case req.LastName != nil && *req.LastName != "":
		return matchSubstring(subs, *req.LastName, func(sub models.Subscriber) *string { return sub.LastName })
	}

	// no filter: broadcast
	targets := make([]int64, 0, len(subs))
	for chatID := range subs {
		targets = append(targets, chatID)
	}
	return targets
}

func matchSubstring(subs map[int64]models.Subscriber, needle string, field func(models.Subscriber) *string) []int64 {
	needle = strings.ToLower(needle)
	var targets []int64
	for chatID, sub := range subs {
		if value := field(sub); value != nil && strings.Contains(strings.ToLower(*value), needle) {
			targets = append(targets, chatID)
		}
	}
	return targets
}

func (n *NotifierServiceImpl) SyncOne(chatID int64) (models.Subscriber, error) {
	chat, err := n.bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		log.Errorf("failed to fetch chat info for %d: %v", chatID, err)
		return models.Subscriber{}, err
	}

	sub := models.Subscriber{
		ChatID:    chatID,
		FirstName: models.StrPtr(chat.FirstName),
		LastName:  models.StrPtr(chat.LastName),
		Username:  models.StrPtr(chat.UserName),
	}
	if err := n.subscribers.Upsert(sub); err != nil {
		return models.Subscriber{}, err
	}
	return n.subscribers.Get(chatID)
}

func (n *NotifierServiceImpl) SyncAll() (int, error) {
	subs, err := n.subscribers.All()
	if err != nil {
		return 0, err
	}

	var updated int64
	sem := make(chan struct{}, n.concurrency)
	var wg sync.WaitGroup
	for chatID := range subs {
		wg.Add(1)
		sem <- struct{}{}
		go func(chatID int64) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := n.SyncOne(chatID); err != nil {
				log.Errorf("failed to sync chat %d: %v", chatID, err)
				return
			}
			atomic.AddInt64(&updated, 1)
		}(chatID)
	}
	wg.Wait()
	return int(updated), nil
}
