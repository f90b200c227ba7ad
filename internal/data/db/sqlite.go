package db

import "strings"

const defaultSQLitePath = "lingua.db"

// SQLiteDSN returns dsn with foreign key enforcement switched on, since cascades
// depend on it.
func SQLiteDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = defaultSQLitePath
	}
	if strings.Contains(dsn, "_fk=") || strings.Contains(dsn, "_foreign_keys=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_fk=1"
	}
	return dsn + "?_fk=1"
}
