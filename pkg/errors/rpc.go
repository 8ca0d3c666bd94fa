package errors

import (
	"fmt"
)

/*
RpcError represents a JSON-RPC error response.
*/
type RpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

/*
Error implements the error interface for RpcError.
*/
func (e *RpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// JSON-RPC reserved codes, followed by the A2A task codes.
var (
	ErrParseError     = &RpcError{Code: -32700, Message: "Invalid JSON payload"}
	ErrInvalidRequest = &RpcError{Code: -32600, Message: "Request payload validation error"}
	ErrMethodNotFound = &RpcError{Code: -32601, Message: "Method not found"}
	ErrInvalidParams  = &RpcError{Code: -32602, Message: "Invalid parameters"}
	ErrInternal       = &RpcError{Code: -32603, Message: "Internal error"}

	ErrTaskNotFound      = &RpcError{Code: -32001, Message: "Task not found"}
	ErrTaskNotCancelable = &RpcError{Code: -32002, Message: "Task cannot be canceled"}
)

// WithMessagef creates a *copy* of an RpcError with a formatted message.
// It does not modify the original error variable.
func (e *RpcError) WithMessagef(format string, args ...any) *RpcError {
	newErr := *e
	newErr.Message = fmt.Sprintf(format, args...)
	return &newErr
}

/*
WithData returns a copy of the error carrying data as its detail payload.
*/
func (e *RpcError) WithData(data any) *RpcError {
	newErr := *e
	newErr.Data = data
	return &newErr
}

/*
Is reports whether target carries the same code, so errors.Is matches a
decorated copy against its sentinel.
*/
func (e *RpcError) Is(target error) bool {
	other, ok := target.(*RpcError)
	if !ok || other == nil || e == nil {
		return false
	}

	return e.Code == other.Code
}

/*
Internal wraps an arbitrary error as an InternalError whose message is the
cause text.
*/
func Internal(err error) *RpcError {
	if err == nil {
		return ErrInternal
	}

	if rpcErr, ok := err.(*RpcError); ok {
		return rpcErr
	}

	return ErrInternal.WithMessagef("%s", err.Error())
}
