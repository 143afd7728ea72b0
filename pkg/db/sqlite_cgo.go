//go:build !nosqlite && !purego

package db

import (
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
)

const sqliteDriverName = "sqlite3"

func withSQLitePragmas(dsn string) string {
	return appendQuery(dsn, "_busy_timeout=5000", "_foreign_keys=1")
}
