// Package dispatcher routes incoming COMMS messages to gate service methods.
package dispatcher

import "encoding/json"

// Request is the JSON envelope for incoming COMMS gate requests.
type Request struct {
	ID     string             `json:"id"`
	Method string             `json:"method"`
	Params json.RawMessage    `json:"params,omitempty"`
	Ctx    *InvocationContext `json:"ctx,omitempty"`
}

// Response is the JSON envelope for COMMS gate responses.
type Response struct {
	ID     string       `json:"id"`
	Ok     bool         `json:"ok"`
	Result interface{}  `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Retryable bool        `json:"retryable"`
}

// InvocationContext holds context from the caller.
type InvocationContext struct {
	UserID        string `json:"userId,omitempty"`
	RequestID     string `json:"requestId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	DeadlineMs    int    `json:"deadlineMs,omitempty"`
	TimeoutMs     int    `json:"timeoutMs,omitempty"`
}
