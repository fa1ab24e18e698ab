// Package errors provides standardized error handling for the assistant
// pipeline. Collaborator failures are always recoverable locally; the codes
// here exist for logging and for distinguishing real answers from fallbacks.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeStoreConnectionFailed ErrorCode = "STORE_CONNECTION_FAILED"
	ErrCodeStoreQueryFailed      ErrorCode = "STORE_QUERY_FAILED"
	ErrCodeStoreQueryTimeout     ErrorCode = "STORE_QUERY_TIMEOUT"

	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout     ErrorCode = "SEARCH_TIMEOUT"

	ErrCodeLLMTimeout          ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMCompletionFailed ErrorCode = "LLM_COMPLETION_FAILED"
	ErrCodeLLMMalformedReply   ErrorCode = "LLM_MALFORMED_REPLY"

	ErrCodeVectorIndexFailed ErrorCode = "VECTOR_INDEX_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeSessionCacheFailed ErrorCode = "SESSION_CACHE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewStoreError wraps a persistent-store failure. Retryable: the caller may
// retry, but the pipeline contract is to degrade to an empty result instead.
func NewStoreError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreQueryFailed,
		Message:   "persistent store query failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchError wraps a retrieval-backend failure.
func NewSearchError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "search backend query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMTimeoutError marks a timed-out prose-generation call.
func NewLLMTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "prose generation timed out",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMError wraps any other prose-generation failure, including quota
// errors and malformed responses, which are treated identically.
func NewLLMError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMCompletionFailed,
		Message:   "prose generation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewVectorIndexError wraps an advisory vector-index failure. Never
// retried inline; the heuristic pipeline proceeds without it.
func NewVectorIndexError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeVectorIndexFailed,
		Message:   "vector index unavailable",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationError wraps a best-effort notification failure.
func NewNotificationError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreConnectionFailed,
		ErrCodeStoreQueryFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeLLMCompletionFailed:
		return 3
	case ErrCodeStoreQueryTimeout,
		ErrCodeSearchTimeout:
		return 2
	case ErrCodeLLMTimeout:
		return 1
	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}
