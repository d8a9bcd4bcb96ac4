package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDiagnose(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Cause
	}{
		{"nil", nil, CauseUnknown},
		{"auth code", &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}, CauseAuth},
		{"auth string", fmt.Errorf("password authentication failed for user \"test\""), CauseAuth},
		{"hba", fmt.Errorf("no pg_hba.conf entry for host \"10.0.0.1\", SSL off"), CauseAuth},
		{"parse config", pgconn.NewParseConfigError("not-a-url", "failed to parse as keyword/value", errors.New("invalid keyword/value")), CauseConfig},
		{"tls refused", fmt.Errorf("server refused TLS connection"), CauseTLS},
		{"x509", fmt.Errorf("tls: failed to verify certificate: x509: certificate signed by unknown authority"), CauseTLS},
		{"refused", fmt.Errorf("dial tcp 127.0.0.1:1: connect: connection refused"), CauseNetwork},
		{"reset", fmt.Errorf("read: connection reset by peer"), CauseNetwork},
		{"timeout", fmt.Errorf("dial tcp: i/o timeout"), CauseNetwork},
		{"deadline", context.DeadlineExceeded, CauseNetwork},
		{"dns", fmt.Errorf("lookup invalid: no such host"), CauseNetwork},
		{"other pg error", &pgconn.PgError{Code: "53300", Message: "too many connections"}, CauseUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Diagnose(tt.err); got != tt.want {
				t.Errorf("Diagnose(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestConnectError(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := &ConnectError{Target: "app@db:5432/prod", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("ConnectError should unwrap to its cause")
	}
	msg := err.Error()
	if !strings.Contains(msg, "app@db:5432/prod") || !strings.Contains(msg, "(network)") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestIntrospectError(t *testing.T) {
	cause := errors.New("relation does not exist")
	err := &IntrospectError{Op: "get columns", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("IntrospectError should unwrap to its cause")
	}
	if err.Error() != "get columns: relation does not exist" {
		t.Errorf("Error() = %q", err.Error())
	}
}
