// Migrates contacts and messages from the development SQLite file into the
// PostgreSQL instance pointed at by DATABASE_URL.
package main

import (
	"log"

	"outreach-gateway/internal/config"
	"outreach-gateway/internal/database"
	"outreach-gateway/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	cfg := config.LoadConfig()
	if cfg.DatabaseURL == "" {
		log.Fatalf("DATABASE_URL must point at the destination PostgreSQL instance")
	}

	sqliteDB, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to SQLite: %v", err)
	}
	log.Printf("Connected to SQLite at %s", cfg.DBPath)

	pgDB, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	if err := database.Migrate(pgDB); err != nil {
		log.Fatalf("Failed to migrate destination schema: %v", err)
	}

	log.Println("Starting data migration...")

	var contacts []models.Contact
	if err := sqliteDB.Find(&contacts).Error; err != nil {
		log.Fatalf("Failed to read contacts: %v", err)
	}
	if len(contacts) > 0 {
		if err := pgDB.CreateInBatches(contacts, 200).Error; err != nil {
			log.Fatalf("Failed to write contacts: %v", err)
		}
	}
	log.Printf("Migrated %d contacts", len(contacts))

	var messages []models.Message
	if err := sqliteDB.Find(&messages).Error; err != nil {
		log.Fatalf("Failed to read messages: %v", err)
	}
	if len(messages) > 0 {
		if err := pgDB.CreateInBatches(messages, 500).Error; err != nil {
			log.Fatalf("Failed to write messages: %v", err)
		}
	}
	log.Printf("Migrated %d messages", len(messages))

	// Advance the id sequences past the copied rows.
	for _, table := range []string{"contacts", "messages"} {
		query := "SELECT setval(pg_get_serial_sequence('" + table + "', 'id'), coalesce(max(id), 0) + 1, false) FROM " + table
		if err := pgDB.Exec(query).Error; err != nil {
			log.Printf("Warning: failed to sync sequence for %s: %v", table, err)
		}
	}

	log.Println("Data migration completed")
}
