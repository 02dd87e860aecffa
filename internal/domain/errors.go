package domain

import "fmt"

// Error types for consistent error handling across the registration API.

// ErrValidation indicates a missing or malformed required field.
// No write has happened when it is raised.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Message
}

// ErrDuplicate indicates the e-mail or CPF/CNPJ is already registered,
// detected either by the pre-write check or by a uniqueness violation
// surfaced during the write itself.
type ErrDuplicate struct {
	Field   string
	Message string
}

func (e *ErrDuplicate) Error() string {
	return e.Message
}

// ErrWrite indicates a record-store insert or delete failed.
type ErrWrite struct {
	Table string
	Err   error
}

func (e *ErrWrite) Error() string {
	return fmt.Sprintf("erro ao gravar em %s: %v", e.Table, e.Err)
}

func (e *ErrWrite) Unwrap() error {
	return e.Err
}

// ErrUniqueViolation is raised by the record store when an insert hits a
// uniqueness constraint (PostgREST code 23505). The orchestrator converts
// it into ErrDuplicate after compensating.
type ErrUniqueViolation struct {
	Table  string
	Detail string
}

func (e *ErrUniqueViolation) Error() string {
	return fmt.Sprintf("unique violation on %s: %s", e.Table, e.Detail)
}

// ErrProvider indicates an identity-provider call failed.
// AlreadyRegistered is set when the provider reported the e-mail as taken,
// detected structurally when possible and by message text as fallback.
type ErrProvider struct {
	Op                string
	Message           string
	AlreadyRegistered bool
	Err               error
}

func (e *ErrProvider) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("identity provider error [%s]: %v", e.Op, e.Err)
}

func (e *ErrProvider) Unwrap() error {
	return e.Err
}

// ErrUnauthorized indicates a missing or invalid admin access token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
