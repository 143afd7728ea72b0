package session

import (
	"errors"
	"regexp"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var errEmptyID = errors.New("session id must not be empty")

// queries renders the session statements for one SQL dialect.
type queries struct {
	dialect string
	table   string
}

func (q queries) save(rec *Record) (string, []any) {
	return entsql.Dialect(q.dialect).
		Insert(q.table).
		Columns("id", "data", "expiry_date").
		Values(rec.ID, rec.Data, rec.ExpiresAt.UnixNano()).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
}

func (q queries) load(id string, now time.Time) (string, []any) {
	b := entsql.Dialect(q.dialect)
	return b.Select("id", "data", "expiry_date").
		From(b.Table(q.table)).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.GT("expiry_date", now.UnixNano()),
		)).
		Query()
}

func (q queries) delete(id string) (string, []any) {
	return entsql.Dialect(q.dialect).
		Delete(q.table).
		Where(entsql.EQ("id", id)).
		Query()
}

func (q queries) deleteExpired(now time.Time) (string, []any) {
	return entsql.Dialect(q.dialect).
		Delete(q.table).
		Where(entsql.LTE("expiry_date", now.UnixNano())).
		Query()
}

// createTable returns the DDL for the session table. dataType is the
// dialect's binary column type. expiry_date holds Unix nanoseconds.
func (q queries) createTable(dataType string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + q.table + ` (
	id TEXT PRIMARY KEY NOT NULL,
	data ` + dataType + ` NOT NULL,
	expiry_date BIGINT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS ` + q.table + `_expiry_idx ON ` + q.table + ` (expiry_date)`,
	}
}
