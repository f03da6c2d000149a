package sqlite

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/valyala/bytebufferpool"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func fromNullMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return fromMillis(v.Int64)
}

// containsPattern wraps term in LIKE wildcards, escaping its own wildcards with a backslash.
func containsPattern(term string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_ = buf.WriteByte('%')
	for i := 0; i < len(term); i++ {
		c := term[i]
		if c == '%' || c == '_' || c == '\\' {
			_ = buf.WriteByte('\\')
		}
		_ = buf.WriteByte(c)
	}
	_ = buf.WriteByte('%')

	return buf.String()
}

func prefixed(alias string, columns []string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		out[i] = alias + "." + col
	}
	return out
}
