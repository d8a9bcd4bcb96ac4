package postgres

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultPort           = 5432
	DefaultSSLMode        = "require"
	DefaultConnectTimeout = 5 * time.Second
)

// ConnConfig holds the credentials for one target database.
type ConnConfig struct {
	Host           string
	Port           int
	Database       string
	User           string
	Password       string
	SSLMode        string
	ConnectTimeout time.Duration
}

// connString renders a keyword/value connection string. Values are quoted so
// passwords containing spaces or quotes survive intact.
func (c ConnConfig) connString() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = DefaultSSLMode
	}
	timeout := c.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	secs := int(timeout.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}

	parts := []string{
		"host=" + quote(c.Host),
		fmt.Sprintf("port=%d", port),
		"dbname=" + quote(c.Database),
		"user=" + quote(c.User),
		"password=" + quote(c.Password),
		"sslmode=" + quote(sslmode),
		fmt.Sprintf("connect_timeout=%d", secs),
	}
	return strings.Join(parts, " ")
}

// String describes the target without the password.
func (c ConnConfig) String() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s@%s:%d/%s", c.User, c.Host, port, c.Database)
}

func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
