package sqlite

import (
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestContainsPattern(t *testing.T) {
	cases := map[string]string{
		"jokic":   "%jokic%",
		"50%":     `%50\%%`,
		"a_b":     `%a\_b%`,
		`back\sl`: `%back\\sl%`,
		"dončić":  "%dončić%",
		"":        "%%",
	}
	for in, want := range cases {
		if got := containsPattern(in); got != want {
			t.Fatalf("containsPattern(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN("/data/stats.db", 2*time.Second)
	if !strings.HasPrefix(dsn, "file:/data/stats.db?") {
		t.Fatalf("unexpected dsn prefix: %s", dsn)
	}

	query, err := url.ParseQuery(strings.SplitN(dsn, "?", 2)[1])
	if err != nil {
		t.Fatalf("parse dsn query: %v", err)
	}
	pragmas := strings.Join(query["_pragma"], ",")
	for _, want := range []string{"foreign_keys(1)", "busy_timeout(2000)", "journal_mode(WAL)"} {
		if !strings.Contains(pragmas, want) {
			t.Fatalf("expected pragma %s in %s", want, pragmas)
		}
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	if !isForeignKeyViolation(errors.New("constraint failed: FOREIGN KEY constraint failed (787)")) {
		t.Fatalf("expected foreign key violation to be detected")
	}
	if isForeignKeyViolation(errors.New("database is locked")) || isForeignKeyViolation(nil) {
		t.Fatalf("expected unrelated errors to be ignored")
	}
}

func TestNullMillisRoundTrip(t *testing.T) {
	if got := fromNullMillis(sql.NullInt64{}); !got.IsZero() {
		t.Fatalf("expected NULL to map to zero time, got %s", got)
	}

	at := time.Date(2026, 3, 1, 12, 0, 0, 123_000_000, time.UTC)
	if got := fromNullMillis(sql.NullInt64{Int64: toMillis(at), Valid: true}); !got.Equal(at) {
		t.Fatalf("expected %s, got %s", at, got)
	}
}
