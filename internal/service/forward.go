package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"relay-bot/pkg/models"
	"relay-bot/pkg/urlguard"
)

// Forwarder posts a subscriber's own record to a caller-supplied URL after
// the URL clears the SSRF guard. Redirects are refused so a validated URL
// cannot bounce the request somewhere else.
type Forwarder struct {
	client    *http.Client
	allowlist []string
}

func NewForwarder(allowlist []string) *Forwarder {
	return &Forwarder{
		client: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		allowlist: allowlist,
	}
}

type forwardPayload struct {
	ChatID       int64      `json:"chat_id"`
	FirstName    *string    `json:"first_name"`
	LastName     *string    `json:"last_name"`
	Username     *string    `json:"username"`
	NIP          *string    `json:"nip"`
	SubscribedAt *time.Time `json:"subscribed_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

func (f *Forwarder) Forward(rawURL string, sub models.Subscriber) error {
	if err := urlguard.Validate(rawURL, f.allowlist); err != nil {
		return err
	}

	body, err := json.Marshal(forwardPayload{
		ChatID:       sub.ChatID,
		FirstName:    sub.FirstName,
		LastName:     sub.LastName,
		Username:     sub.Username,
		NIP:          sub.NIP,
		SubscribedAt: sub.SubscribedAt,
		UpdatedAt:    sub.UpdatedAt,
	})
	if err != nil {
		return err
	}

	resp, err := f.client.Post(rawURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("forward request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return errors.New("forward target answered " + resp.Status)
	}
	return nil
}
