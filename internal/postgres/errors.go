package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const authErrorCode = "28P01" // invalid_password

// Cause is a coarse diagnosis of why a connection attempt failed.
type Cause string

const (
	CauseAuth    Cause = "auth"
	CauseNetwork Cause = "network"
	CauseTLS     Cause = "tls"
	CauseConfig  Cause = "config"
	CauseUnknown Cause = "unknown"
)

// ConnectError reports that a connection to the target could not be established.
type ConnectError struct {
	Target string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s (%s): %v", e.Target, Diagnose(e.Err), e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IntrospectError reports a catalog query failure after a successful connect.
type IntrospectError struct {
	Op  string
	Err error
}

func (e *IntrospectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IntrospectError) Unwrap() error { return e.Err }

// Diagnose classifies a connection error. Nothing is retried; the cause only
// makes the message easier to act on.
func Diagnose(err error) Cause {
	if err == nil {
		return CauseUnknown
	}

	var parseErr *pgconn.ParseConfigError
	if errors.As(err, &parseErr) {
		return CauseConfig
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == authErrorCode {
			return CauseAuth
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "password authentication failed") ||
		strings.Contains(msg, "no pg_hba.conf entry") {
		return CauseAuth
	}

	if strings.Contains(msg, "tls") || strings.Contains(msg, "ssl") ||
		strings.Contains(msg, "x509") || strings.Contains(msg, "certificate") {
		return CauseTLS
	}

	var netErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &netErr) || errors.As(err, &dnsErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "no such host") {
		return CauseNetwork
	}

	return CauseUnknown
}
