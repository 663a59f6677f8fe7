package postgres

import (
	"log"

	"github.com/LavaJover/mmk-rates-service/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MustInitDB opens the rates database. Schema is owned by the SQL migrations.
func MustInitDB(cfg *config.RatesConfig) *gorm.DB {
	dsn := cfg.RatesDB.Dsn
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}

	return db
}
