package errors

import stderrors "errors"

// Sentinel failures shared by the contract core. Callers classify with
// errors.Is; the contract surface maps them onto invocation responses.
// Business-rule mismatches (a vehicle that does not match a violation, a
// registration number that differs) are NOT errors: they are reported as
// typed outcomes by the matching engine.
var (
	ErrUnauthorized  = stderrors.New("contract: caller organization not permitted")
	ErrAlreadyExists = stderrors.New("contract: asset already exists")
	ErrNotFound      = stderrors.New("contract: asset not found")
	ErrMissingField  = stderrors.New("contract: required transient field missing")
)
