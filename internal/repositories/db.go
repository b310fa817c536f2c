package repositories

import (
	"github.com/rohittcodes/flashio-sub001/internal/config"
	"github.com/rohittcodes/flashio-sub001/internal/logging"
	"github.com/rohittcodes/flashio-sub001/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDatabase() {
	dsn := config.Envs.DB_URL
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	// Run migrations
	err = db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.File{},
		&models.SandboxInstance{},
		&models.TerminalSession{},
	)
	if err != nil {
		logging.Fatal("Migration failed", zap.Error(err))
	}
	DB = db
	logging.Info("Successfully connected to database")
}
