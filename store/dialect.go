package store

import (
	"fmt"
	"strings"
	"time"
)

// sqliteNow is the timestamp literal queries are written with; postgres
// rewrites it.
const sqliteNow = "datetime('now','localtime')"

// Dialect covers the few places the two backends disagree.
type Dialect interface {
	Now() string
	TimestampType() string
	Rebind(query string) string
}

type sqliteDialect struct{}

func (sqliteDialect) Now() string                { return sqliteNow }
func (sqliteDialect) TimestampType() string      { return "TEXT" }
func (sqliteDialect) Rebind(query string) string { return query }

type postgresDialect struct{}

func (postgresDialect) Now() string                { return "NOW()" }
func (postgresDialect) TimestampType() string      { return "TIMESTAMPTZ" }
func (postgresDialect) Rebind(query string) string { return Rebind(query) }

// parseTime converts a scanned timestamp value to time.Time.
// Handles both SQLite (returns string) and Postgres (returns time.Time).
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if t == "" {
			return time.Time{}
		}
		for _, layout := range []string{
			"2006-01-02 15:04:05",
			time.RFC3339,
			time.RFC3339Nano,
			"2006-01-02 15:04:05-07:00",
			"2006-01-02 15:04:05.999999-07:00",
		} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}

// parseTimePtr is like parseTime but returns nil for zero/missing timestamps.
func parseTimePtr(v any) *time.Time {
	t := parseTime(v)
	if t.IsZero() {
		return nil
	}
	return &t
}

// Rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func Rebind(query string) string {
	n := 0
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString(fmt.Sprintf("$%d", n))
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}
