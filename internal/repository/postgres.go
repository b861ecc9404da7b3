package repository

import (
	"database/sql"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"relay-bot/pkg/models"
	"relay-bot/pkg/postgres"
)

type PostgresSubscriberRepository struct {
	mgr *postgres.Manager
}

func NewPostgresSubscriberRepository(mgr *postgres.Manager) *PostgresSubscriberRepository {
	return &PostgresSubscriberRepository{mgr: mgr}
}

func (r *PostgresSubscriberRepository) All() (map[int64]models.Subscriber, error) {
	var rows []models.Subscriber
	query := `SELECT chat_id, first_name, last_name, username, nip, subscribed_at, updated_at FROM subscribers;`
	if err := r.mgr.DB().Select(&rows, query); err != nil {
		log.Errorf("list subscribers err: %v", err)
		return nil, err
	}

	subs := make(map[int64]models.Subscriber, len(rows))
	for _, sub := range rows {
		subs[sub.ChatID] = sub
	}
	return subs, nil
}

func (r *PostgresSubscriberRepository) Get(chatID int64) (models.Subscriber, error) {
	var sub models.Subscriber
	query := `SELECT chat_id, first_name, last_name, username, nip, subscribed_at, updated_at FROM subscribers WHERE chat_id=$1;`
	err := r.mgr.DB().Get(&sub, query, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscriber{}, ErrSubscriberNotFound
	}
	if err != nil {
		log.Errorf("get subscriber err: %v", err)
		return models.Subscriber{}, err
	}
	return sub, nil
}

func (r *PostgresSubscriberRepository) Upsert(sub models.Subscriber) error {
	now := time.Now().UTC()
	if sub.SubscribedAt == nil {
		sub.SubscribedAt = &now
	}
	sub.UpdatedAt = &now
	truncateNIP(&sub)

	query := `
		INSERT INTO subscribers (chat_id, first_name, last_name, username, nip, subscribed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (chat_id) DO UPDATE SET
			first_name = COALESCE(EXCLUDED.first_name, subscribers.first_name),
			last_name  = COALESCE(EXCLUDED.last_name, subscribers.last_name),
			username   = COALESCE(EXCLUDED.username, subscribers.username),
			nip        = COALESCE(EXCLUDED.nip, subscribers.nip),
			updated_at = EXCLUDED.updated_at;
	`
	_, err := r.mgr.DB().Exec(query, sub.ChatID, sub.FirstName, sub.LastName, sub.Username, sub.NIP, sub.SubscribedAt, sub.UpdatedAt)
	if err != nil {
		log.Errorf("upsert subscriber err: %v", err)
		return err
	}
	return nil
}

func (r *PostgresSubscriberRepository) SaveAll(subs map[int64]models.Subscriber) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO subscribers (chat_id, first_name, last_name, username, nip, subscribed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (chat_id) DO UPDATE SET
			first_name    = EXCLUDED.first_name,
			last_name     = EXCLUDED.last_name,
			username      = EXCLUDED.username,
			nip           = EXCLUDED.nip,
			subscribed_at = EXCLUDED.subscribed_at,
			updated_at    = EXCLUDED.updated_at;
	`

	tx, err := r.mgr.DB().Beginx()
	if err != nil {
		return err
	}
	for chatID, sub := range subs {
		sub.ChatID = chatID
		if sub.SubscribedAt == nil {
			sub.SubscribedAt = &now
		}
		if sub.UpdatedAt == nil {
			sub.UpdatedAt = &now
		}
		truncateNIP(&sub)
		if _, err := tx.Exec(query, sub.ChatID, sub.FirstName, sub.LastName, sub.Username, sub.NIP, sub.SubscribedAt, sub.UpdatedAt); err != nil {
			log.Errorf("save subscriber %d err: %v", chatID, err)
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *PostgresSubscriberRepository) Delete(chatID int64) error {
	_, err := r.mgr.DB().Exec(`DELETE FROM subscribers WHERE chat_id=$1;`, chatID)
	if err != nil {
		log.Errorf("delete subscriber err: %v", err)
	}
	return err
}

func truncateNIP(sub *models.Subscriber) {
	if sub.NIP != nil {
		nip := models.NormalizeNIP(*sub.NIP)
		sub.NIP = &nip
	}
}
