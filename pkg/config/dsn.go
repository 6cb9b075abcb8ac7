package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// connURL holds the pieces of a postgres connection URL once parsed.
type connURL struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Options  map[string]string
}

// ParseDatabaseURL splits a postgres:// or postgresql:// connection URL
// into its components. Missing pieces get development defaults: port 5432
// and sslmode=disable.
func ParseDatabaseURL(raw string) (*connURL, error) {
	if raw == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	raw = strings.Replace(raw, "postgresql://", "postgres://", 1)

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if u.Scheme != "postgres" {
		return nil, fmt.Errorf("database URL scheme %q is not postgres", u.Scheme)
	}

	parsed := &connURL{
		Host:     u.Hostname(),
		Port:     5432,
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  "disable",
		Options:  make(map[string]string),
	}

	if portStr := u.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port in database URL: %w", err)
		}
		parsed.Port = port
	}

	if u.User != nil {
		parsed.User = u.User.Username()
		parsed.Password, _ = u.User.Password()
	}

	for key, values := range u.Query() {
		if len(values) > 0 {
			parsed.Options[key] = values[0]
		}
	}
	if mode, ok := parsed.Options["sslmode"]; ok {
		parsed.SSLMode = mode
		delete(parsed.Options, "sslmode")
	}

	return parsed, nil
}

// ToDSN renders the parsed URL as a libpq key=value DSN.
func (p *connURL) ToDSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
	for key, value := range p.Options {
		dsn += fmt.Sprintf(" %s=%s", key, value)
	}
	return dsn
}
