package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	log "github.com/sirupsen/logrus"

	"relay-bot/internal/repository"
	"relay-bot/pkg/models"
)

// bindStrict decodes a JSON body rejecting unknown fields, then runs the
// usual binding validation. Raw Telegram updates posted to the API by
// mistake fail here instead of silently merging garbage into records.
func bindStrict(c *gin.Context, dst any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return binding.Validator.ValidateStruct(dst)
}

func chatIDParam(c *gin.Context) (int64, bool) {
	chatID, err := strconv.ParseInt(c.Param("chat_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_id must be an integer"})
		return 0, false
	}
	return chatID, true
}

func (h *Handlers) notify(c *gin.Context) {
	var req models.NotifyRequest
	if err := bindStrict(c, &req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	sent, err := h.services.NotifierService.Notify(req)
	if err != nil {
		log.Errorf("notify failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent, "ok": true})
}

func (h *Handlers) listSubscribers(c *gin.Context) {
	subs, err := h.services.SubscriberService.All()
	if err != nil {
		log.Errorf("list subscribers failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscribers"})
		return
	}

	out := make(map[string]models.Subscriber, len(subs))
	for chatID, sub := range subs {
		out[strconv.FormatInt(chatID, 10)] = sub
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) updateSubscriber(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	var update models.SubscriberUpdate
	if err := bindStrict(c, &update); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.services.SubscriberService.Update(chatID, update)
	if err != nil {
		log.Errorf("update subscriber %d failed: %v", chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update subscriber"})
		return
	}
	c.JSON(http.StatusOK, gin.H{strconv.FormatInt(chatID, 10): sub})
}

func (h *Handlers) deleteSubscriber(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	if err := h.services.SubscriberService.Delete(chatID); err != nil {
		log.Errorf("delete subscriber %d failed: %v", chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete subscriber"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) syncSubscriber(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	sub, err := h.services.NotifierService.SyncOne(chatID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriberNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscriber not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found or not accessible"})
		return
	}
	c.JSON(http.StatusOK, gin.H{strconv.FormatInt(chatID, 10): sub})
}

func (h *Handlers) syncAllSubscribers(c *gin.Context) {
	updated, err := h.services.NotifierService.SyncAll()
	if err != nil {
		log.Errorf("sync all subscribers failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sync subscribers"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated, "ok": true})
}
