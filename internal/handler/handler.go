package handler

import (
	"net/http"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	"relay-bot/internal/service"
	"relay-bot/pkg/util"
)

type Handlers struct {
	services *service.Services
	apiKey   string
}

func NewHandlers(services *service.Services, apiKey string) *Handlers {
	return &Handlers{services: services, apiKey: apiKey}
}

func (h *Handlers) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), util.RequestID(), util.CORS())
	pprof.Register(router)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := router.Group("/", h.requireAPIKey())
	api.POST("/notify", h.notify)
	api.GET("/subscribers", h.listSubscribers)
	api.PUT("/subscribers/:chat_id", h.updateSubscriber)
	api.DELETE("/subscribers/:chat_id", h.deleteSubscriber)
	api.POST("/subscribers/:chat_id/sync", h.syncSubscriber)
	api.POST("/subscribers/sync", h.syncAllSubscribers)

	return router
}

// requireAPIKey rejects requests without the configured X-API-KEY header.
// With no key configured the API is open, matching a local dev setup.
func (h *Handlers) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.apiKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-KEY") != h.apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
