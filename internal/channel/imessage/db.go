package imessage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// openReadOnly opens the local Messages chat database in read-only mode.
// The agent never writes to it; sending goes through the OS automation
// bridge instead (spec.md §4.2).
func openReadOnly(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open chat database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open chat database: %w", err)
	}
	return db, nil
}
