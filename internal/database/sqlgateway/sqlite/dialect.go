package sqlite

import (
	"fmt"
)

type Dialect struct {
	migrationsTable string
}

func NewDialect(migrationsTable string) *Dialect {
	return &Dialect{migrationsTable: migrationsTable}
}

func (d Dialect) TableExistsQuery() (string, []interface{}) {
	return "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", []interface{}{d.migrationsTable}
}

func (d Dialect) ReadStateQuery() string {
	const sqliteReadStateQuery = "SELECT name, checksum, coalesce(completed, 0) AS completed FROM %s ORDER BY id"
	return fmt.Sprintf(sqliteReadStateQuery, d.migrationsTable)
}

func (d Dialect) InsertPendingQuery(name, checksum string) (string, []interface{}) {
	const sqliteInsertPendingQuery = "INSERT INTO %s (name, checksum, completed) VALUES (?, ?, 0)"
	return fmt.Sprintf(sqliteInsertPendingQuery, d.migrationsTable), []interface{}{name, checksum}
}

func (d Dialect) InsertCompletedQuery(name, checksum string) (string, []interface{}) {
	const sqliteInsertCompletedQuery = "INSERT INTO %s (name, checksum, completed) VALUES (?, ?, 1)"
	return fmt.Sprintf(sqliteInsertCompletedQuery, d.migrationsTable), []interface{}{name, checksum}
}

func (d Dialect) CompleteQuery(name string) (string, []interface{}) {
	const sqliteCompleteQuery = "UPDATE %s SET completed = 1 WHERE name = ?"
	return fmt.Sprintf(sqliteCompleteQuery, d.migrationsTable), []interface{}{name}
}

func (d Dialect) ForgetQuery(name string) (string, []interface{}) {
	const sqliteForgetQuery = "DELETE FROM %s WHERE name = ? AND completed = 0"
	return fmt.Sprintf(sqliteForgetQuery, d.migrationsTable), []interface{}{name}
}
