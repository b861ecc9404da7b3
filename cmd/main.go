package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	relaybot "relay-bot"
	"relay-bot/internal/handler"
	"relay-bot/internal/repository"
	"relay-bot/internal/service"
	"relay-bot/pkg/config"
	"relay-bot/pkg/postgres"
)

func main() {
	config.GlobalConfig.Init()
	cfg := &config.GlobalConfig

	if cfg.Telegram.Token == "" {
		log.Fatal("TELEGRAM_TOKEN is not set; add it to your environment or a .env file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repos *repository.Repositories
	var dbManager *postgres.Manager
	if cfg.DB.Enabled() {
		mgr, err := postgres.NewManager(ctx, cfg.DB, postgres.RetryConfig{MaxElapsed: time.Minute}, log.Infof)
		if err != nil {
			log.Fatalf("can't connect to postgres: %s", err.Error())
		}
		dbManager = mgr
		postgres.MigrateDB(mgr.DB(), cfg.DB)
		go mgr.MonitorAndReconnect(ctx, 30*time.Second)
		repos = repository.NewRepositories(repository.NewPostgresSubscriberRepository(mgr))
		log.Info("using postgres subscriber storage")
	} else {
		repos = repository.NewRepositories(repository.NewFileSubscriberRepository(cfg.SubscribersFile))
		log.Infof("no database configured, using file storage at %s", cfg.SubscribersFile)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Fatalf("can't create telegram bot: %s", err.Error())
	}
	bot.Debug = false

	services := service.NewServices(repos, bot, cfg)
	handlers := handler.NewHandlers(services, cfg.Notify.APIKey)

	if err := services.TelegramService.Start(); err != nil {
		log.Fatalf("can't start telegram service: %s", err.Error())
	}

	gin.SetMode(cfg.Server.GinMode)
	srv := new(relaybot.Server)
	go func() {
		if err := srv.Run(cfg.Server.Port, handlers.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("error occurred while running http server: %s", err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Print("relay-bot shutting down")
	services.TelegramService.Stop()

	if err := srv.Shutdown(context.Background()); err != nil {
		log.Errorf("error occured on server shutting down: %s", err.Error())
	}
	if dbManager != nil {
		if err := dbManager.Close(); err != nil {
			log.Errorf("error occured on db connection close: %s", err.Error())
		}
	}
}
