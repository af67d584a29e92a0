// Package config parses the operator-facing flag grammar of spec.md
// §6. The grammar (bare "--switch" booleans, "--key=value" for
// everything else, and two distinct non-zero exit codes for distinct
// mistakes) doesn't fit a getopt-style flag library, so this package
// parses the raw argument list directly; cmd/energylabel-logd layers
// cobra on top of it purely for --help text and command dispatch.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"energylabel-log-server/internal/warehouse"
)

// Config is every operator-supplied setting, populated with spec.md
// §6's documented defaults before argument parsing begins.
type Config struct {
	Host string
	Port int

	MariaDBUser        string
	MariaDBPassword    string
	MariaDBDatabase    string
	MariaDBHost        string
	MariaDBPort        int
	MariaDBConnLimit   int
	MariaDBColumnStore bool

	Help                    bool
	MariaDBInit             bool
	MariaDBUnsafeDropTables bool
	MariaDBInsertTestRun    bool
}

func defaults() *Config {
	return &Config{
		Host:               "localhost",
		Port:               3000,
		MariaDBUser:        "energylabel",
		MariaDBPassword:    "energylabel",
		MariaDBDatabase:    "energylabel",
		MariaDBHost:        "localhost",
		MariaDBPort:        3306,
		MariaDBConnLimit:   50,
		MariaDBColumnStore: true,
	}
}

// UnknownFlagError is an unrecognized "--key=value" option. Spec.md
// §6: stderr message, exit code -1.
type UnknownFlagError struct {
	Flag string
}

func (e *UnknownFlagError) Error() string { return fmt.Sprintf("unknown flag: --%s", e.Flag) }
func (e *UnknownFlagError) ExitCode() int { return -1 }

// MissingValueError is a multi-value key given without "=value".
// Spec.md §6: exit code 1.
type MissingValueError struct {
	Flag string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("flag --%s requires a value (--%s=value)", e.Flag, e.Flag)
}
func (e *MissingValueError) ExitCode() int { return 1 }

var multiValueFlags = map[string]bool{
	"host":                 true,
	"port":                 true,
	"mariadb-user":         true,
	"mariadb-password":     true,
	"mariadb-database":     true,
	"mariadb-host":         true,
	"mariadb-port":         true,
	"mariadb-conn-limit":   true,
	"mariadb-column-store": true,
}

var singleValueFlags = map[string]bool{
	"help":                       true,
	"mariadb-init":               true,
	"mariadb-unsafe-drop-tables": true,
	"mariadb-insert-test-run":    true,
}

// Parse implements spec.md §6's CLI grammar directly over a raw
// argument slice (e.g. os.Args[1:]). Non-flag arguments (anything not
// starting with "--") are ignored.
func Parse(args []string) (*Config, error) {
	cfg := defaults()

	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		body := strings.TrimPrefix(arg, "--")
		key, value, hasValue := strings.Cut(body, "=")

		if singleValueFlags[key] {
			applySwitch(cfg, key)
			continue
		}
		if !multiValueFlags[key] {
			return nil, &UnknownFlagError{Flag: key}
		}
		if !hasValue {
			return nil, &MissingValueError{Flag: key}
		}
		if err := applyValue(cfg, key, value); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func applySwitch(cfg *Config, key string) {
	switch key {
	case "help":
		cfg.Help = true
	case "mariadb-init":
		cfg.MariaDBInit = true
	case "mariadb-unsafe-drop-tables":
		cfg.MariaDBUnsafeDropTables = true
	case "mariadb-insert-test-run":
		cfg.MariaDBInsertTestRun = true
	}
}

func applyValue(cfg *Config, key, value string) error {
	switch key {
	case "host":
		cfg.Host = value
	case "port":
		n, err := strconv.Atoi(value)
		if err != nil {
			return &warehouse.ConfigError{Msg: fmt.Sprintf("--port: %v", err)}
		}
		cfg.Port = n
	case "mariadb-user":
		cfg.MariaDBUser = value
	case "mariadb-password":
		cfg.MariaDBPassword = value
	case "mariadb-database":
		cfg.MariaDBDatabase = value
	case "mariadb-host":
		cfg.MariaDBHost = value
	case "mariadb-port":
		n, err := strconv.Atoi(value)
		if err != nil {
			return &warehouse.ConfigError{Msg: fmt.Sprintf("--mariadb-port: %v", err)}
		}
		cfg.MariaDBPort = n
	case "mariadb-conn-limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return &warehouse.ConfigError{Msg: fmt.Sprintf("--mariadb-conn-limit: %v", err)}
		}
		cfg.MariaDBConnLimit = n
	case "mariadb-column-store":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &warehouse.ConfigError{Msg: fmt.Sprintf("--mariadb-column-store: %v", err)}
		}
		cfg.MariaDBColumnStore = b
	}
	return nil
}

// WarehouseConfig projects the subset of Config the warehouse façade
// needs into warehouse.Config.
func (c *Config) WarehouseConfig() warehouse.Config {
	return warehouse.Config{
		User:        c.MariaDBUser,
		Password:    c.MariaDBPassword,
		Database:    c.MariaDBDatabase,
		Host:        c.MariaDBHost,
		Port:        c.MariaDBPort,
		ConnLimit:   c.MariaDBConnLimit,
		ColumnStore: c.MariaDBColumnStore,
	}
}
