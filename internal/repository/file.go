package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"relay-bot/pkg/models"
)

// FileSubscriberRepository keeps subscriber records in a JSON file mapping
// stringified chat ids to metadata. It understands the legacy format (a
// plain array of chat ids) and upgrades it in place on first read. There is
// no cross-process locking; the mutex only serializes access within the bot.
type FileSubscriberRepository struct {
	mu   sync.Mutex
	path string
}

func NewFileSubscriberRepository(path string) *FileSubscriberRepository {
	return &FileSubscriberRepository{path: path}
}

func (r *FileSubscriberRepository) All() (map[int64]models.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *FileSubscriberRepository) Get(chatID int64) (models.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, err := r.load()
	if err != nil {
		return models.Subscriber{}, err
	}
	sub, ok := subs[chatID]
	if !ok {
		return models.Subscriber{}, ErrSubscriberNotFound
	}
	return sub, nil
}

func (r *FileSubscriberRepository) Upsert(sub models.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, err := r.load()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	current, exists := subs[sub.ChatID]
	if !exists {
		current = models.Subscriber{ChatID: sub.ChatID}
		if sub.SubscribedAt != nil {
			current.SubscribedAt = sub.SubscribedAt
		} else {
			current.SubscribedAt = &now
		}
	}
	if sub.FirstName != nil {
		current.FirstName = sub.FirstName
	}
	if sub.LastName != nil {
		current.LastName = sub.LastName
	}
	if sub.Username != nil {
		current.Username = sub.Username
	}
	if sub.NIP != nil {
		nip := models.NormalizeNIP(*sub.NIP)
		current.NIP = &nip
	}
	current.UpdatedAt = &now

	subs[sub.ChatID] = current
	return r.save(subs)
}

func (r *FileSubscriberRepository) SaveAll(subs map[int64]models.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for chatID, sub := range subs {
		sub.ChatID = chatID
		truncateNIP(&sub)
		subs[chatID] = sub
	}
	return r.save(subs)
}

func (r *FileSubscriberRepository) Delete(chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := subs[chatID]; !ok {
		return nil
	}
	delete(subs, chatID)
	return r.save(subs)
}

// load reads the file and normalizes whatever is in it. Callers hold the
// mutex. A legacy array or an entry with missing keys is rewritten to disk
// in the current shape; an unparsable file is backed up and reset.
func (r *FileSubscriberRepository) load() (map[int64]models.Subscriber, error) {
	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return map[int64]models.Subscriber{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read subscribers file: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[int64]models.Subscriber{}, nil
	}

	var wire map[string]models.Subscriber
	if err := json.Unmarshal(raw, &wire); err == nil {
		subs := make(map[int64]models.Subscriber, len(wire))
		for key, sub := range wire {
			chatID, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				log.Warnf("skipping non-numeric subscriber key %q in %s", key, r.path)
				continue
			}
			sub.ChatID = chatID
			subs[chatID] = sub
		}
		if missingFields(raw) {
			if err := r.save(subs); err != nil {
				return nil, err
			}
		}
		return subs, nil
	}

	var legacy []int64
	if err := json.Unmarshal(raw, &legacy); err == nil {
		now := time.Now().UTC()
		subs := make(map[int64]models.Subscriber, len(legacy))
		for _, chatID := range legacy {
			subs[chatID] = models.Subscriber{ChatID: chatID, SubscribedAt: &now}
		}
		log.Infof("migrated legacy subscribers list (%d entries) at %s", len(legacy), r.path)
		if err := r.save(subs); err != nil {
			return nil, err
		}
		return subs, nil
	}

	// Unreadable content: keep a copy for inspection and start over.
	backup := fmt.Sprintf("%s.bak-%d", r.path, time.Now().Unix())
	if err := os.Rename(r.path, backup); err != nil {
		return nil, fmt.Errorf("back up invalid subscribers file: %w", err)
	}
	log.Warnf("subscribers file %s was not valid JSON, backed up to %s", r.path, backup)
	subs := map[int64]models.Subscriber{}
	if err := r.save(subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// save writes the map atomically. Callers hold the mutex.
func (r *FileSubscriberRepository) save(subs map[int64]models.Subscriber) error {
	wire := make(map[string]models.Subscriber, len(subs))
	for chatID, sub := range subs {
		wire[strconv.FormatInt(chatID, 10)] = sub
	}

	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("encode subscribers: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create subscribers dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".subscribers-*")
	if err != nil {
		return fmt.Errorf("create temp subscribers file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write subscribers file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}

var subscriberFields = []string{"first_name", "last_name", "username", "nip", "subscribed_at", "updated_at"}

// missingFields reports whether any entry in the raw mapping lacks one of
// the current record keys, meaning the normalized shape should be written
// back to disk.
func missingFields(raw []byte) bool {
	var entries map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return false
	}
	for _, entry := range entries {
		for _, field := range subscriberFields {
			if _, ok := entry[field]; !ok {
				return true
			}
		}
	}
	return false
}
