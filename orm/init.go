package orm

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"crate-registry/config"
)

type DB struct {
	dbGorm *gorm.DB
}

// InitDB connects to postgres, runs migrations and returns the handle.
// Fatal on failure: the process is useless without its store.
func InitDB(cfg *config.AppConfig) DB {
	dsn := fmt.Sprintf(
		"host='%s' port='%d' user='%s' password='%s' dbname='%s' sslmode='%s'",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.SSLMode,
	)

	dsnRedacted := strings.ReplaceAll(dsn, cfg.Database.Password, "*****")
	log.Debug().
		Msgf("Connecting to postgres using the following information: %s", dsnRedacted)

	db, err := Open(postgres.Open(dsn))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the database")
	}

	log.Debug().Msg("Successfully connected to the database")

	return db
}

// Open initializes a handle on an arbitrary dialector and runs the
// schema migration. InitDB uses it with postgres; tests use it with an
// in-memory sqlite.
func Open(dialector gorm.Dialector) (DB, error) {
	dbGorm, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return DB{}, fmt.Errorf("open database: %w", err)
	}

	err = dbGorm.AutoMigrate(
		&User{},
		&Organisation{},
		&Crate{},
		&CrateVersion{},
		&UserOrganisationPermission{},
		&UserCratePermission{},
		&SshKey{},
		&Session{},
	)
	if err != nil {
		return DB{}, fmt.Errorf("migrate database: %w", err)
	}

	return DB{dbGorm: dbGorm}, nil
}

// Gorm exposes the underlying handle for connection pool tuning.
func (db DB) Gorm() *gorm.DB {
	return db.dbGorm
}

func (db DB) useTransaction(tx *gorm.DB) DB {
	return DB{dbGorm: tx}
}
