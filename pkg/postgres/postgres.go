package postgres

import (
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate"
	"github.com/golang-migrate/migrate/database/postgres"
	_ "github.com/golang-migrate/migrate/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"relay-bot/pkg/config"
)

const SubscriberTable = "subscribers"

// DatabaseName extracts the database name from a DSN for the migration
// runner; discrete DB_* configuration carries it directly.
func DatabaseName(cfg config.PostgresConfig) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	if u, err := url.Parse(cfg.URL); err == nil {
		if name := u.Path; len(name) > 1 {
			return name[1:]
		}
	}
	return "postgres"
}

// MigrateDB applies the SQL migrations under the configured directory.
// An already up-to-date schema is not an error.
func MigrateDB(db *sqlx.DB, cfg config.PostgresConfig) {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		logrus.Fatalf("couldn't get database instance for running migrations: %s", err.Error())
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", cfg.Migrations), DatabaseName(cfg), driver)
	if err != nil {
		logrus.Fatalf("couldn't create migrate instance: %s", err.Error())
	}

	if err := m.Up(); err != nil {
		if err != migrate.ErrNoChange {
			logrus.Fatalf("couldn't run database migrations: %s", err.Error())
		}
	} else {
		logrus.Info("database migration was run successfully")
	}
}
