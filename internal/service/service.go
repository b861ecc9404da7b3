package service

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"relay-bot/internal/repository"
	"relay-bot/pkg/config"
	"relay-bot/pkg/models"
)

type Services struct {
	SubscriberService
	NotifierService
	TelegramService
}

func NewServices(repos *repository.Repositories, bot *tgbotapi.BotAPI, cfg *config.Config) *Services {
	subscriberService := NewSubscriberService(repos.SubscriberRepository)
	notifierService := NewNotifierService(bot, subscriberService, cfg.Notify.Concurrency)
	forwarder := NewForwarder(cfg.Forward.Allowlist)
	telegramService := NewTelegramService(bot, subscriberService, forwarder, cfg.Telegram)
	return &Services{
		SubscriberService: subscriberService,
		NotifierService:   notifierService,
		TelegramService:   telegramService,
	}
}

type SubscriberService interface {
	All() (map[int64]models.Subscriber, error)
	Get(chatID int64) (models.Subscriber, error)
	Upsert(sub models.Subscriber) error
	Update(chatID int64, update models.SubscriberUpdate) (models.Subscriber, error)
	SaveAll(subs map[int64]models.Subscriber) error
	Delete(chatID int64) error
}

type NotifierService interface {
	// Notify resolves targets from the request and sends the message,
	// returning how many sends succeeded.
	Notify(req models.NotifyRequest) (int, error)
	// SyncOne refreshes one record from the Telegram chat info.
	SyncOne(chatID int64) (models.Subscriber, error)
	// SyncAll refreshes every record, returning how many were updated.
	SyncAll() (int, error)
}

type TelegramService interface {
	Start() error
	Stop()
}

// Sender is the slice of *tgbotapi.BotAPI the services depend on; tests
// substitute a fake.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
}
