package datasource

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFound is returned when no datasource has the requested id.
var ErrNotFound = errors.New("datasource not found")

const redacted = "********"

// Config holds the connection settings of a datasource. Port is kept as
// raw JSON because clients send it both as a number and as a string.
type Config struct {
	Host     string      `json:"host,omitempty"`
	Port     json.Number `json:"port,omitempty"`
	Database string      `json:"database,omitempty"`
	User     string      `json:"user,omitempty"`
	Password string      `json:"password,omitempty"`
	SSLMode  string      `json:"sslmode,omitempty"`
}

// PortNumber parses Port, returning ok=false when it is absent.
func (c Config) PortNumber() (port int, ok bool, err error) {
	raw := strings.TrimSpace(c.Port.String())
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 65535 {
		return 0, true, fmt.Errorf("invalid port %q", raw)
	}
	return n, true, nil
}

// Datasource is a registered target database.
type Datasource struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Config Config `json:"config"`
}

// Redacted returns a copy safe to print or serve.
func (d Datasource) Redacted() Datasource {
	if d.Config.Password != "" {
		d.Config.Password = redacted
	}
	return d
}

// Input is the payload accepted by Create.
type Input struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Config Config `json:"config"`
}

// Validate checks the fields every datasource needs regardless of engine.
func (in Input) Validate() error {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.Type) == "" {
		missing = append(missing, "type")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
