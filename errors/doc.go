// Package errors provides the structured error type used by procspec's
// adapter, spec file and configuration layers.
//
// The core entry points of package process return operating system errors
// unchanged. The layers built on top of them classify failures with an
// ErrorCode (launch, wait, cancellation, invalid spec documents) and keep the
// original error as the Cause, so errors.Is and errors.As still reach it.
package errors
