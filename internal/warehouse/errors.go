package warehouse

import (
	"fmt"

	"energylabel-log-server/internal/sqlgen"
)

// ConfigError reports a malformed operator-supplied setting — a
// non-numeric port or connection limit. Fatal at startup.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config error: %s", e.Msg) }

// SchemaMisuseError indicates the schema literal itself is broken —
// an emitter was asked to resolve the surrogate key column of a
// subtree that has none. This should never happen against the schema
// this system ships; seeing it means a programming error, not bad
// input. sqlgen is where the emitter helpers live and where this is
// actually raised (as a panic, since it is fatal and unrecoverable);
// aliased here so it sits alongside the other error kinds spec.md §7
// groups under the core's surfaced errors.
type SchemaMisuseError = sqlgen.SchemaMisuseError

// DriverError wraps a failure from the connection pool or the
// underlying driver: acquiring a connection, running a query,
// committing, or rolling back.
type DriverError struct {
	Err error
}

func (e *DriverError) Error() string { return fmt.Sprintf("driver error: %v", e.Err) }
func (e *DriverError) Unwrap() error { return e.Err }

// ValidationError reports a malformed /log request body. Surfaced by
// the HTTP façade as 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("validation error: %s", e.Msg) }
