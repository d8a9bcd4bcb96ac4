package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func TestConnString_Defaults(t *testing.T) {
	cfg := ConnConfig{Host: "db.internal", Database: "app", User: "scanner", Password: "s3cret"}
	parsed, err := pgx.ParseConfig(cfg.connString())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Host != "db.internal" || parsed.Port != DefaultPort {
		t.Errorf("host/port = %s/%d", parsed.Host, parsed.Port)
	}
	if parsed.Database != "app" || parsed.User != "scanner" || parsed.Password != "s3cret" {
		t.Errorf("unexpected parsed config: db=%s user=%s", parsed.Database, parsed.User)
	}
	if parsed.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("ConnectTimeout = %v, want %v", parsed.ConnectTimeout, DefaultConnectTimeout)
	}
	if parsed.TLSConfig == nil {
		t.Error("sslmode=require should configure TLS")
	}
}

func TestConnString_QuotesValues(t *testing.T) {
	cfg := ConnConfig{Host: "localhost", Port: 6543, Database: "my db", User: "o'brien", Password: `p a\ss'word`, SSLMode: "disable", ConnectTimeout: 2 * time.Second}
	parsed, err := pgx.ParseConfig(cfg.connString())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Database != "my db" || parsed.User != "o'brien" || parsed.Password != `p a\ss'word` {
		t.Errorf("quoting lost data: db=%q user=%q password=%q", parsed.Database, parsed.User, parsed.Password)
	}
	if parsed.Port != 6543 {
		t.Errorf("Port = %d", parsed.Port)
	}
	if parsed.TLSConfig != nil {
		t.Error("sslmode=disable should not configure TLS")
	}
}

func TestConnConfig_StringOmitsPassword(t *testing.T) {
	cfg := ConnConfig{Host: "h", Database: "d", User: "u", Password: "hunter2"}
	if s := cfg.String(); strings.Contains(s, "hunter2") || s != "u@h:5432/d" {
		t.Errorf("String() = %q", s)
	}
}

func TestResolveSchemas(t *testing.T) {
	tests := []struct {
		input []string
		want  []string
	}{
		{nil, nil},
		{[]string{"all"}, nil},
		{[]string{"public", "*"}, nil},
		{[]string{" public ", "", "billing"}, []string{"public", "billing"}},
		{[]string{" "}, nil},
	}
	for _, tt := range tests {
		got := ResolveSchemas(tt.input)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") || (got == nil) != (tt.want == nil) {
			t.Errorf("ResolveSchemas(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIntrospect_ConnectFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	cfg := ConnConfig{Host: "127.0.0.1", Port: 1, Database: "nodb", User: "u", Password: "topsecret", SSLMode: "disable", ConnectTimeout: time.Second}
	_, err := NewIntrospector(SchemaFilter{}).Introspect(ctx, cfg)

	var ce *ConnectError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConnectError, got %T: %v", err, err)
	}
	if strings.Contains(err.Error(), "topsecret") {
		t.Error("error leaks password")
	}
}
