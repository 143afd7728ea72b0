//go:build !nosqlite && purego

package db

import (
	_ "modernc.org/sqlite" // registers "sqlite"
)

const sqliteDriverName = "sqlite"

func withSQLitePragmas(dsn string) string {
	return appendQuery(dsn, "_pragma=busy_timeout(5000)", "_pragma=foreign_keys(1)")
}
