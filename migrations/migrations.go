// Package migrations holds the goose SQL migrations of the books table, one directory per dialect.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// FS contains the clickhouse/ and postgres/ migration directories
//
//go:embed clickhouse/*.sql postgres/*.sql
var FS embed.FS

// Dialects supported by the embedded migrations. Each one is also its directory name.
const (
	DialectClickHouse = "clickhouse"
	DialectPostgres   = "postgres"
)

// Run executes a goose command against db using the embedded migrations of dialect.
// Supported commands are up, up-by-one, down, reset, status and version.
func Run(db *sql.DB, dialect, command string) error {
	if dialect != DialectClickHouse && dialect != DialectPostgres {
		return fmt.Errorf("unsupported dialect %q", dialect)
	}

	goose.SetBaseFS(FS)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	switch command {
	case "up":
		return goose.Up(db, dialect)
	case "up-by-one":
		return goose.UpByOne(db, dialect)
	case "down":
		return goose.Down(db, dialect)
	case "reset":
		return goose.Reset(db, dialect)
	case "status":
		return goose.Status(db, dialect)
	case "version":
		_, err := goose.GetDBVersion(db)
		return err
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// Up applies every pending migration of dialect
func Up(db *sql.DB, dialect string) error {
	return Run(db, dialect, "up")
}
