package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite открывает файл SQLite и создает таблицу профилей.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// go-sqlite3 serialises writers; one connection avoids "database is locked".
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func migrateSQLite(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS financial_profiles (
		user_id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}
