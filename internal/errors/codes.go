// Package errors provides structured error handling for the ledger core.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Chain lifecycle errors
	CodeAlreadyInitialized Code = "CHAIN_ALREADY_INITIALIZED"
	CodeNoGenesis          Code = "CHAIN_NO_GENESIS"
	CodeChainInactive      Code = "CHAIN_INACTIVE"

	// Storage errors
	CodeNotFound        Code = "NOT_FOUND"
	CodeDuplicateHeight Code = "DUPLICATE_BLOCK_HEIGHT"

	// Crypto errors
	CodeAuthenticationFailure Code = "AUTHENTICATION_FAILURE"
	CodeMalformedInput        Code = "MALFORMED_INPUT"
)

// GRPCCode maps domain codes to gRPC status codes for the service boundary.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeMalformedInput:
		return codes.InvalidArgument

	case CodeAlreadyInitialized,
		CodeNoGenesis,
		CodeChainInactive:
		return codes.FailedPrecondition

	case CodeNotFound:
		return codes.NotFound

	case CodeDuplicateHeight:
		return codes.AlreadyExists

	case CodeAuthenticationFailure:
		return codes.DataLoss

	default:
		return codes.Internal
	}
}
