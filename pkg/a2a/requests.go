package a2a

import (
	"bytes"
	"encoding/json"

	"github.com/theapemachine/a2a-server/pkg/errors"
	"github.com/theapemachine/a2a-server/pkg/jsonrpc"
)

const (
	MethodGetTask                 = "tasks/get"
	MethodCancelTask              = "tasks/cancel"
	MethodSendTask                = "tasks/send"
	MethodSendTaskSubscribe       = "tasks/sendSubscribe"
	MethodSetTaskPushNotification = "tasks/pushNotification/set"
	MethodGetTaskPushNotification = "tasks/pushNotification/get"
	MethodResubscribeToTask       = "tasks/resubscribe"
)

/*
Request is the closed set of decoded JSON-RPC requests. Every protocol
method has a variant, and anything else decodes to UnknownMethodRequest.
*/
type Request interface {
	Header() RequestHeader
	request()
}

/*
RequestHeader carries the envelope fields every variant shares.
*/
type RequestHeader struct {
	ID     json.RawMessage
	Method string
}

func (header RequestHeader) Header() RequestHeader { return header }
func (RequestHeader) request()                     {}

// Streaming reports whether the method answers with an event stream.
func (header RequestHeader) Streaming() bool {
	return header.Method == MethodSendTaskSubscribe || header.Method == MethodResubscribeToTask
}

type GetTaskRequest struct {
	RequestHeader
	Params TaskQueryParams
}

type CancelTaskRequest struct {
	RequestHeader
	Params TaskIDParams
}

type SendTaskRequest struct {
	RequestHeader
	Params TaskSendParams
}

type SendTaskStreamingRequest struct {
	RequestHeader
	Params TaskSendParams
}

type SetTaskPushNotificationRequest struct {
	RequestHeader
	Params TaskPushNotificationConfig
}

type GetTaskPushNotificationRequest struct {
	RequestHeader
	Params TaskIDParams
}

type TaskResubscriptionRequest struct {
	RequestHeader
	Params TaskQueryParams
}

type UnknownMethodRequest struct {
	RequestHeader
}

/*
RequestError is a decoding failure together with the request id, when one
could be read, so the error response can still be correlated.
*/
type RequestError struct {
	ID  json.RawMessage
	Err *errors.RpcError
}

func (err *RequestError) Error() string {
	return err.Err.Error()
}

/*
ParseRequest decodes a JSON-RPC body into one of the Request variants.
Malformed JSON is a parse error. Well-formed JSON that is not a valid
request, or whose params fail decoding or validation, is an invalid
request.
*/
func ParseRequest(body []byte) (Request, *RequestError) {
	body = bytes.TrimSpace(body)

	if !json.Valid(body) {
		return nil, &RequestError{Err: errors.ErrParseError}
	}

	if body[0] == '[' {
		return nil, &RequestError{
			Err: errors.ErrInvalidRequest.WithMessagef("batch requests are not supported"),
		}
	}

	var envelope jsonrpc.Request

	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &RequestError{
			Err: errors.ErrInvalidRequest.WithMessagef("malformed request envelope: %s", err),
		}
	}

	header := RequestHeader{ID: envelope.ID, Method: envelope.Method}

	if envelope.JSONRPC != jsonrpc.Version {
		return nil, &RequestError{
			ID:  envelope.ID,
			Err: errors.ErrInvalidRequest.WithMessagef("jsonrpc must be %q", jsonrpc.Version),
		}
	}

	if envelope.Method == "" {
		return nil, &RequestError{
			ID:  envelope.ID,
			Err: errors.ErrInvalidRequest.WithMessagef("method is required"),
		}
	}

	var (
		request Request
		err     *errors.RpcError
	)

	switch envelope.Method {
	case MethodGetTask:
		var params TaskQueryParams
		if params, err = decodeParams[TaskQueryParams](envelope.Params); err == nil {
			request = GetTaskRequest{header, params}
		}
	case MethodCancelTask:
		var params TaskIDParams
		if params, err = decodeParams[TaskIDParams](envelope.Params); err == nil {
			request = CancelTaskRequest{header, params}
		}
	case MethodSendTask:
		var params TaskSendParams
		if params, err = decodeParams[TaskSendParams](envelope.Params); err == nil {
			request = SendTaskRequest{header, params}
		}
	case MethodSendTaskSubscribe:
		var params TaskSendParams
		if params, err = decodeParams[TaskSendParams](envelope.Params); err == nil {
			request = SendTaskStreamingRequest{header, params}
		}
	case MethodSetTaskPushNotification:
		var params TaskPushNotificationConfig
		if params, err = decodeParams[TaskPushNotificationConfig](envelope.Params); err == nil {
			request = SetTaskPushNotificationRequest{header, params}
		}
	case MethodGetTaskPushNotification:
		var params TaskIDParams
		if params, err = decodeParams[TaskIDParams](envelope.Params); err == nil {
			request = GetTaskPushNotificationRequest{header, params}
		}
	case MethodResubscribeToTask:
		var params TaskQueryParams
		if params, err = decodeParams[TaskQueryParams](envelope.Params); err == nil {
			request = TaskResubscriptionRequest{header, params}
		}
	default:
		request = UnknownMethodRequest{header}
	}

	if err != nil {
		return nil, &RequestError{ID: envelope.ID, Err: err}
	}

	return request, nil
}

type validatable[T any] interface {
	*T
	Validate() *errors.RpcError
}

/*
decodeParams unmarshals raw into a T and validates the result.
*/
func decodeParams[T any, P validatable[T]](raw json.RawMessage) (T, *errors.RpcError) {
	var params T

	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return params, errors.ErrInvalidRequest.WithMessagef("params are required")
	}

	if err := json.Unmarshal(raw, &params); err != nil {
		return params, errors.ErrInvalidRequest.WithMessagef("invalid params: %s", err)
	}

	return params, P(&params).Validate()
}
