// Command migrate-subscribers imports the JSON subscribers file into the
// configured Postgres database. It understands the legacy list format and
// upserts records, so running it repeatedly is safe.
package main

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"relay-bot/internal/repository"
	"relay-bot/pkg/config"
	"relay-bot/pkg/postgres"
)

func main() {
	config.GlobalConfig.Init()
	cfg := &config.GlobalConfig

	if !cfg.DB.Enabled() {
		log.Fatal("DATABASE_URL is not configured, nothing to migrate into")
	}

	if _, err := os.Stat(cfg.SubscribersFile); os.IsNotExist(err) {
		log.Infof("no subscribers file found at %s, nothing to migrate", cfg.SubscribersFile)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	mgr, err := postgres.NewManager(ctx, cfg.DB, postgres.RetryConfig{MaxElapsed: time.Minute}, log.Infof)
	if err != nil {
		log.Fatalf("can't connect to postgres: %s", err.Error())
	}
	defer mgr.Close()
	postgres.MigrateDB(mgr.DB(), cfg.DB)

	fileRepo := repository.NewFileSubscriberRepository(cfg.SubscribersFile)
	subs, err := fileRepo.All()
	if err != nil {
		log.Fatalf("can't read subscribers file: %s", err.Error())
	}
	if len(subs) == 0 {
		log.Info("subscribers file is empty, nothing to migrate")
		return
	}

	log.Infof("migrating %d subscriber(s) to the database", len(subs))
	pgRepo := repository.NewPostgresSubscriberRepository(mgr)
	if err := pgRepo.SaveAll(subs); err != nil {
		log.Fatalf("migration failed: %s", err.Error())
	}
	log.Info("migration complete")
}
