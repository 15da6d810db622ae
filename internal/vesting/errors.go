package vesting

import (
	"errors"
	"fmt"
)

// Code classifies service failures. Every failure from the query and claim
// services carries exactly one code; collaborator faults are caught and
// reclassified, never propagated raw.
type Code string

const (
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeInvalidTokenAddress Code = "INVALID_TOKEN_ADDRESS"
	CodeNoWallet            Code = "NO_WALLET"
	CodeInvalidPassword     Code = "INVALID_PASSWORD"
	CodeScheduleNotFound    Code = "SCHEDULE_NOT_FOUND"
	CodeScheduleFetchFailed Code = "SCHEDULE_FETCH_FAILED"
	CodeNothingToClaim      Code = "NOTHING_TO_CLAIM"
	CodeTransactionReverted Code = "TRANSACTION_REVERTED"
	CodeClaimFailed         Code = "CLAIM_FAILED"
	CodeRPCFailure          Code = "RPC_FAILURE"
)

// Error is a classified service failure. Message is always human-readable;
// Token carries the offending token address when one is known.
type Error struct {
	Code    Code
	Token   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s: %s (token %s)", e.Code, e.Message, e.Token)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds a classified error, preserving the underlying cause.
func newError(code Code, token, message string, err error) *Error {
	return &Error{Code: code, Token: token, Message: message, Err: err}
}

// CodeOf extracts the classification from an error, or empty for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
