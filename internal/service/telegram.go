package service

import (
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"relay-bot/pkg/config"
	"relay-bot/pkg/models"
)

type Telegram struct {
	bot         *tgbotapi.BotAPI
	subscribers SubscriberService
	forwarder   *Forwarder
	cfg         config.TelegramConfig

	// chats whose next message is an admin broadcast
	messageState map[int64]bool
}

func NewTelegramService(bot *tgbotapi.BotAPI, subscribers SubscriberService, forwarder *Forwarder, cfg config.TelegramConfig) *Telegram {
	return &Telegram{
		bot:          bot,
		subscribers:  subscribers,
		forwarder:    forwarder,
		cfg:          cfg,
		messageState: make(map[int64]bool),
	}
}

func (t *Telegram) Start() error {
	if t.bot == nil {
		return errors.New("telegram bot is not configured")
	}
	log.Infof("authorized on account %s", t.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)

	go t.loop(updates)
	return nil
}

func (t *Telegram) Stop() {
	t.bot.StopReceivingUpdates()
}

func (t *Telegram) loop(updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message == nil {
			continue
		}
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			continue
		}

		chatID := update.Message.Chat.ID
		t.refreshSubscriber(update.Message)

		// an admin who issued /message sends the broadcast text next
		if t.messageState[chatID] {
			t.messageState[chatID] = false
			t.broadcast(chatID, update.Message.Text)
			continue
		}

		switch update.Message.Command() {
		case "start":
			t.reply(chatID, "Halo! Selamat datang di bot saya.")
			t.scheduleFollowup(chatID)

		case "help":
			t.reply(chatID, "Gunakan /start untuk memulai bot.")

		case "haysay":
			t.reply(chatID, "hay say")

		case "chat":
			msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Your chat id: `%d`", chatID))
			msg.ParseMode = "Markdown"
			t.send(msg)

		case "forward":
			t.handleForward(chatID, update.Message.CommandArguments())

		case "message":
			if t.cfg.AdminID == 0 || chatID != t.cfg.AdminID {
				t.reply(chatID, "You are not allowed to use this command.")
				continue
			}
			t.reply(chatID, "Send the message you want to broadcast to all subscribers:")
			t.messageState[chatID] = true

		default:
			t.reply(chatID, "Sorry, I did not understand that. Try /help.")
		}
	}
}

// refreshSubscriber creates or updates the sender's record; every private
// message keeps the stored names current.
func (t *Telegram) refreshSubscriber(message *tgbotapi.Message) {
	sub := models.Subscriber{
		ChatID:    message.Chat.ID,
		FirstName: models.StrPtr(message.Chat.FirstName),
		LastName:  models.StrPtr(message.Chat.LastName),
		Username:  models.StrPtr(message.Chat.UserName),
	}
	if err := t.subscribers.Upsert(sub); err != nil {
		log.Errorf("failed to upsert subscriber %d: %v", message.Chat.ID, err)
	}
}

func (t *Telegram) handleForward(chatID int64, rawURL string) {
	if rawURL == "" {
		t.reply(chatID, "Usage: /forward <https url>")
		return
	}

	sub, err := t.subscribers.Get(chatID)
	if err != nil {
		log.Errorf("failed to load subscriber %d for forward: %v", chatID, err)
		t.reply(chatID, "Could not load your subscriber record, try again later.")
		return
	}

	if err := t.forwarder.Forward(rawURL, sub); err != nil {
		log.Warnf("forward rejected for %d: %v", chatID, err)
		t.reply(chatID, "Forward rejected: "+err.Error())
		return
	}
	t.reply(chatID, "Your data was forwarded.")
}

func (t *Telegram) broadcast(adminID int64, text string) {
	subs, err := t.subscribers.All()
	if err != nil {
		log.Errorf("failed to load subscribers for broadcast: %v", err)
		t.reply(adminID, "Failed to load the subscriber list.")
		return
	}

	sent := 0
	for chatID := range subs {
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			log.Errorf("broadcast to %d failed: %v", chatID, err)
			continue
		}
		sent++
	}
	t.reply(adminID, fmt.Sprintf("Message sent to %d subscriber(s).", sent))
}

// scheduleFollowup arms the optional one-shot follow-up message after
// /start. Nothing is scheduled unless both knobs are configured.
func (t *Telegram) scheduleFollowup(chatID int64) {
	if t.cfg.FollowupDelay <= 0 || t.cfg.FollowupMessage == "" {
		return
	}
	time.AfterFunc(t.cfg.FollowupDelay, func() {
		t.reply(chatID, t.cfg.FollowupMessage)
	})
}

func (t *Telegram) reply(chatID int64, text string) {
	t.send(tgbotapi.NewMessage(chatID, text))
}

func (t *Telegram) send(msg tgbotapi.Chattable) {
	if _, err := t.bot.Send(msg); err != nil {
		log.Errorf("send message err: %v", err)
	}
}
