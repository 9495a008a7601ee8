package database

import (
	"fmt"

	"github.com/JuanFRosales/MindsetGo/internal/config"
	"github.com/JuanFRosales/MindsetGo/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a MySQL connection and runs auto-migration.
func Connect(cfg *config.AppConfig) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.IsDev() {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               cfg.DSN(),
		DefaultStringSize: 191,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

// Migrate runs GORM auto-migration for all models. Ordered parents-first so
// engines that enforce referential integrity can create foreign keys.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UserModel{},
		&models.InviteCodeModel{},
		&models.SessionModel{},
		&models.QrLinkModel{},
		&models.QrResolutionModel{},
		&models.LoginProofModel{},
		&models.WebauthnChallengeModel{},
		&models.PasskeyModel{},
		&models.MessageModel{},
		&models.ConversationSummaryModel{},
		&models.ProfileStateModel{},
	)
}
