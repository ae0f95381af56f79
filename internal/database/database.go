package database

import (
	"log"
	"os"
	"presence-hub-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB initializes the database connection and runs migrations
func InitDB() {
	var err error

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "presence-hub.db"
	}

	// Using glebarez/sqlite which is a pure Go implementation (no CGO required)
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})

	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.Friendship{},
	)

	if err != nil {
		log.Fatal("Failed to migrate database: ", err)
	}

	// The connection directory starts empty on every boot, so any online
	// flag left over from a previous run is stale.
	if err := DB.Model(&models.User{}).Where("online = ?", true).Update("online", false).Error; err != nil {
		log.Println("Failed to reset online flags:", err)
	}

	log.Println("Database connected and migrated")
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}
