package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures for exit codes and HTTP status mapping.
type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindConfig
	KindAdapter
	KindDatabase
	KindIO
	KindValidation
	KindNotFound
)

// Process exit codes, one per error kind.
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitConfig   = 10
	ExitAdapter  = 20
	ExitDatabase = 30
	ExitIO       = 40
	ExitGeneric  = 50
)

// OpsError carries a kind alongside the message so the CLI can map failures
// to exit codes and handlers can map them to HTTP statuses.
type OpsError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *OpsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *OpsError) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, err error, format string, args ...any) *OpsError {
	return &OpsError{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// ConfigError reports a missing or unparseable configuration.
func ConfigError(err error, format string, args ...any) *OpsError {
	return newError(KindConfig, err, format, args...)
}

// AdapterError reports an unreadable or malformed source file.
func AdapterError(err error, format string, args ...any) *OpsError {
	return newError(KindAdapter, err, format, args...)
}

// DatabaseError reports an index open or SQL failure.
func DatabaseError(err error, format string, args ...any) *OpsError {
	return newError(KindDatabase, err, format, args...)
}

// IOError reports a canonical-log or lock failure.
func IOError(err error, format string, args ...any) *OpsError {
	return newError(KindIO, err, format, args...)
}

// ValidationError reports bad request input.
func ValidationError(format string, args ...any) *OpsError {
	return newError(KindValidation, nil, format, args...)
}

// NotFoundError reports a missing entity.
func NotFoundError(format string, args ...any) *OpsError {
	return newError(KindNotFound, nil, format, args...)
}

// GenericError reports anything else.
func GenericError(err error, format string, args ...any) *OpsError {
	return newError(KindGeneric, err, format, args...)
}

// IsNotFound reports whether err is a missing-entity error.
func IsNotFound(err error) bool {
	var oe *OpsError
	return errors.As(err, &oe) && oe.Kind == KindNotFound
}

// ExitCode maps an error to the process exit code contract.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var oe *OpsError
	if errors.As(err, &oe) {
		switch oe.Kind {
		case KindConfig:
			return ExitConfig
		case KindAdapter:
			return ExitAdapter
		case KindDatabase:
			return ExitDatabase
		case KindIO:
			return ExitIO
		case KindValidation:
			return ExitUsage
		}
	}
	return ExitGeneric
}

// HTTPStatus maps an error to the response status. Validation, adapter and
// config problems are the caller's fault; missing entities are 404. Anything
// else is a server-side failure.
func HTTPStatus(err error) int {
	var oe *OpsError
	if errors.As(err, &oe) {
		switch oe.Kind {
		case KindValidation, KindAdapter, KindConfig:
			return http.StatusBadRequest
		case KindNotFound:
			return http.StatusNotFound
		}
	}
	return http.StatusInternalServerError
}
