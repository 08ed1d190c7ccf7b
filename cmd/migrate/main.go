package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"bookshelf/internal/config"
	"bookshelf/internal/storage/ch"
	"bookshelf/migrations"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using existing environment variables")
	}

	// Get command from arguments (default to "up")
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	driver := os.Getenv("REMOTE_DRIVER")
	if driver == "" {
		driver = config.DriverClickHouse
	}

	if command == "create" {
		create(driver)
		return
	}

	db, err := open(driver)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(context.Background()); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Printf("Connected to %s successfully", driver)

	log.Printf("Running migrations: %s", command)
	if err := migrations.Run(db, driver, command); err != nil {
		log.Fatalf("Migration command %s failed: %v", command, err)
	}
	log.Printf("Migration command %s completed successfully", command)
}

// open connects to the remote store named by driver
func open(driver string) (*sql.DB, error) {
	switch driver {
	case config.DriverPostgres:
		return sql.Open("pgx", os.Getenv("POSTGRES_DSN"))
	case config.DriverClickHouse:
		cfg, err := config.ClickHouseFromEnv()
		if err != nil {
			return nil, err
		}
		return ch.OpenDB(cfg.ClickHouseHost, cfg.ClickHousePort, cfg.ClickHouseDatabase,
			cfg.ClickHouseUser, cfg.ClickHousePassword, cfg.ClickHouseUseTLS), nil
	default:
		return nil, fmt.Errorf("unsupported REMOTE_DRIVER %q, use clickhouse or postgres", driver)
	}
}

// create writes a new empty SQL migration into the dialect's source directory
func create(driver string) {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate create <migration_name>")
	}
	migrationName := os.Args[2]
	dir := "./migrations/" + driver
	if err := goose.Create(nil, dir, migrationName, "sql"); err != nil {
		log.Fatalf("Failed to create migration: %v", err)
	}
	log.Printf("Created migration %s in %s", migrationName, dir)
}
