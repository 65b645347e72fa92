package db

import (
	"database/sql"

	libdb "cardbridge/backend/libs/db"
)

// NewPostgres opens the bridge's store connection. The bridge applies one
// command at a time, so the pool is held to a single connection.
func NewPostgres(dsn string) (*sql.DB, error) {
	return libdb.NewPostgresDB(dsn, libdb.Options{
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
}
