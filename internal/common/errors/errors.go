// Package errors provides the error taxonomy shared by the retrieval and dialogue
// components, plus conversion to workflow-engine errors for job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Conversation-facing taxonomy.
const (
	ErrCodeClassificationFailed ErrorCode = "CLASSIFICATION_FAILED"
	ErrCodeRetrievalFailed      ErrorCode = "RETRIEVAL_FAILED"
	ErrCodeCacheKeyFailed       ErrorCode = "CACHE_KEY_FAILED"
	ErrCodeInteractionLogFailed ErrorCode = "INTERACTION_LOG_FAILED"
	ErrCodeLeadValidationFailed ErrorCode = "LEAD_VALIDATION_FAILED"
)

// Infrastructure codes.
const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeExternalProviderFailed   ErrorCode = "EXTERNAL_PROVIDER_FAILED"
	ErrCodeCompletionFailed         ErrorCode = "COMPLETION_FAILED"
	ErrCodeCompletionTimeout        ErrorCode = "COMPLETION_TIMEOUT"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeCRMSyncFailed            ErrorCode = "CRM_SYNC_FAILED"
	ErrCodeInvalidInput             ErrorCode = "INVALID_INPUT"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
)

// Disposition says what the conversation layer does with a failure.
type Disposition string

const (
	// DispositionRecover degrades to a default locally; the user never sees it.
	DispositionRecover Disposition = "recover"
	// DispositionSurface reaches the user as a distinguishable message.
	DispositionSurface Disposition = "surface"
	// DispositionSwallow is logged and dropped.
	DispositionSwallow Disposition = "swallow"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns e.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	e := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewClassificationFailedError wraps a completion transport or parse failure.
func NewClassificationFailedError(err error) *StandardError {
	return newError(ErrCodeClassificationFailed, "Intent classification failed", err, false)
}

// NewRetrievalFailedError wraps an internal store or external provider failure.
func NewRetrievalFailedError(source string, err error) *StandardError {
	return newError(ErrCodeRetrievalFailed, "Search failed", err, false).
		WithMetadata("source", source)
}

// NewCacheKeyFailedError wraps a digest failure.
func NewCacheKeyFailedError(err error) *StandardError {
	return newError(ErrCodeCacheKeyFailed, "Cache key digest failed", err, false)
}

// NewInteractionLogFailedError wraps a message-log write failure.
func NewInteractionLogFailedError(err error) *StandardError {
	return newError(ErrCodeInteractionLogFailed, "Exchange could not be logged", err, true)
}

// NewLeadValidationFailedError reports which lead field broke which rule.
func NewLeadValidationFailedError(field, rule string) *StandardError {
	e := newError(ErrCodeLeadValidationFailed, "Lead validation failed", nil, false)
	e.Details = fmt.Sprintf("%s: %s", field, rule)
	return e.WithMetadata("field", field).WithMetadata("rule", rule)
}

// NewDatabaseConnectionFailedError creates a retryable connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection failed", err, true)
}

// NewQueryExecutionFailedError creates a retryable query error.
func NewQueryExecutionFailedError(query string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Query execution failed", err, true).
		WithMetadata("query", query)
}

// NewSearchQueryFailedError creates a retryable search index error.
func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query failed", err, true).
		WithMetadata("index", index)
}

// NewExternalProviderFailedError creates an error for a third-party API failure.
func NewExternalProviderFailedError(provider string, err error) *StandardError {
	return newError(ErrCodeExternalProviderFailed, "External provider failed", err, true).
		WithMetadata("provider", provider)
}

// NewCompletionFailedError wraps a chat-completion failure.
func NewCompletionFailedError(err error) *StandardError {
	return newError(ErrCodeCompletionFailed, "Completion request failed", err, true)
}

// NewCompletionTimeoutError reports a completion call that ran out of time.
func NewCompletionTimeoutError() *StandardError {
	return newError(ErrCodeCompletionTimeout, "Completion request timed out", nil, true)
}

// NewNotificationSendFailedError wraps an email/SMS failure.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification send failed", err, true).
		WithMetadata("channel", channel)
}

// NewCRMSyncFailedError wraps a CRM push failure.
func NewCRMSyncFailedError(err error) *StandardError {
	return newError(ErrCodeCRMSyncFailed, "CRM sync failed", err, true)
}

// NewInvalidInputError reports malformed job or request input.
func NewInvalidInputError(details string) *StandardError {
	e := newError(ErrCodeInvalidInput, "Invalid input", nil, false)
	e.Details = details
	return e
}

// ==========================
// 4. Classification Helpers
// ==========================

// BPMNErrorMapping maps internal codes to the error codes modelled in processes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeRetrievalFailed:      "SEARCH_FAILED",
	ErrCodeLeadValidationFailed: "LEAD_INVALID",
	ErrCodeInvalidInput:         "INVALID_INPUT",
}

// GetDisposition maps a code onto the conversation-level policy.
func GetDisposition(code ErrorCode) Disposition {
	switch code {
	case ErrCodeRetrievalFailed, ErrCodeLeadValidationFailed:
		return DispositionSurface
	case ErrCodeInteractionLogFailed, ErrCodeNotificationSendFailed, ErrCodeCRMSyncFailed:
		return DispositionSwallow
	default:
		return DispositionRecover
	}
}

// GetRetryCount returns how many times a job failing with code may be retried.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeCRMSyncFailed:
		return 3
	case ErrCodeExternalProviderFailed, ErrCodeCompletionFailed, ErrCodeInteractionLogFailed:
		return 2
	case ErrCodeCompletionTimeout:
		return 1
	default:
		return 0
	}
}

// IsRetryableErrorCode reports whether code allows job retries.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for logging.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "RETRIEVAL") ||
		strings.Contains(codeStr, "PROVIDER") || strings.Contains(codeStr, "CACHE"):
		return "SEARCH"
	case strings.Contains(codeStr, "CLASSIFICATION") || strings.Contains(codeStr, "COMPLETION"):
		return "AI"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "CRM"):
		return "FOLLOW_UP"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// ConvertToBPMNError converts a StandardError for the workflow engine.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// AsStandardError finds a StandardError in err's chain, or wraps err as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// HasCode reports whether err carries a StandardError with code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}
