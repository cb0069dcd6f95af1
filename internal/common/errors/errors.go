// Package errors provides the standardized error type shared by the dispatch
// engine, its stores and the Zeebe job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	ErrCodeTriggerNotFound       ErrorCode = "TRIGGER_NOT_FOUND"
	ErrCodeCatalogLoadFailed     ErrorCode = "CATALOG_LOAD_FAILED"
	ErrCodeTemplateConfigInvalid ErrorCode = "TEMPLATE_CONFIG_INVALID"
	ErrCodeBindingNotFound       ErrorCode = "BINDING_NOT_FOUND"

	ErrCodeRecipientLookupFailed ErrorCode = "RECIPIENT_LOOKUP_FAILED"
	ErrCodeRecipientUnresolved   ErrorCode = "RECIPIENT_UNRESOLVED"

	ErrCodeDeliveryFailed      ErrorCode = "DELIVERY_FAILED"
	ErrCodeDeliveryTimeout     ErrorCode = "DELIVERY_TIMEOUT"
	ErrCodeExecutorMissing     ErrorCode = "EXECUTOR_MISSING"
	ErrCodeExecutorPanic       ErrorCode = "EXECUTOR_PANIC"
	ErrCodeActivityWriteFailed ErrorCode = "ACTIVITY_WRITE_FAILED"
	ErrCodeActivityQueryFailed ErrorCode = "ACTIVITY_QUERY_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeIndexingFailed           ErrorCode = "INDEXING_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
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

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false, nil)
}

func NewTriggerNotFoundError(triggerKey string) *StandardError {
	return newError(ErrCodeTriggerNotFound, "Trigger not found or inactive",
		fmt.Sprintf("triggerKey: %s", triggerKey), false, nil)
}

func NewCatalogLoadFailedError(what string, err error) *StandardError {
	return newError(ErrCodeCatalogLoadFailed, "Failed to load trigger catalog",
		fmt.Sprintf("%s: %v", what, err), true, err)
}

func NewTemplateConfigInvalidError(templateID int64, details string) *StandardError {
	return newError(ErrCodeTemplateConfigInvalid, "Action template config failed validation",
		fmt.Sprintf("templateId: %d, %s", templateID, details), false, nil)
}

func NewBindingNotFoundError(bindingID int64) *StandardError {
	return newError(ErrCodeBindingNotFound, "Trigger action binding not found or inactive",
		fmt.Sprintf("bindingId: %d", bindingID), false, nil)
}

func NewRecipientLookupFailedError(userID string, err error) *StandardError {
	return newError(ErrCodeRecipientLookupFailed, "Recipient profile lookup failed",
		fmt.Sprintf("userId: %s, error: %v", userID, err), true, err)
}

func NewRecipientUnresolvedError(actionType string) *StandardError {
	return newError(ErrCodeRecipientUnresolved, "No recipient could be resolved",
		fmt.Sprintf("actionType: %s", actionType), false, nil)
}

func NewDeliveryFailedError(actionType string, err error) *StandardError {
	return newError(ErrCodeDeliveryFailed, "Action delivery failed",
		fmt.Sprintf("actionType: %s, error: %v", actionType, err), true, err)
}

func NewDeliveryTimeoutError(actionType string, err error) *StandardError {
	return newError(ErrCodeDeliveryTimeout, "Action delivery timed out",
		fmt.Sprintf("actionType: %s, error: %v", actionType, err), true, err)
}

func NewExecutorMissingError(actionType string) *StandardError {
	return newError(ErrCodeExecutorMissing, "No executor registered for action type",
		fmt.Sprintf("actionType: %s", actionType), false, nil)
}

func NewExecutorPanicError(actionType string, recovered interface{}) *StandardError {
	return newError(ErrCodeExecutorPanic, "Executor panicked",
		fmt.Sprintf("actionType: %s, panic: %v", actionType, recovered), false, nil)
}

func NewActivityWriteFailedError(err error) *StandardError {
	return newError(ErrCodeActivityWriteFailed, "Failed to persist action activity",
		err.Error(), true, err)
}

func NewActivityQueryFailedError(err error) *StandardError {
	return newError(ErrCodeActivityQueryFailed, "Failed to query action activity",
		err.Error(), true, err)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error",
		err.Error(), true, err)
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()), true, err)
}

func NewIndexingFailedError(index string, err error) *StandardError {
	return newError(ErrCodeIndexingFailed, "Elasticsearch indexing error",
		fmt.Sprintf("index: %s, error: %v", index, err), true, err)
}

// BPMNErrorMapping maps internal codes to the error codes modelled in BPMN.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidInput:             "INVALID_INPUT",
	ErrCodeTriggerNotFound:          "TRIGGER_NOT_FOUND",
	ErrCodeCatalogLoadFailed:        "CATALOG_LOAD_FAILED",
	ErrCodeActivityQueryFailed:      "ACTIVITY_QUERY_FAILED",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
}

// GetRetryCount returns how many job retries an error code deserves.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCatalogLoadFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeActivityQueryFailed,
		ErrCodeActivityWriteFailed,
		ErrCodeRecipientLookupFailed,
		ErrCodeDeliveryFailed:
		return 3
	case ErrCodeDeliveryTimeout, ErrCodeIndexingFailed:
		return 2
	default:
		return 0
	}
}

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

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory buckets a code for dashboards and log fields.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TRIGGER") || strings.Contains(codeStr, "CATALOG") ||
		strings.Contains(codeStr, "TEMPLATE") || strings.Contains(codeStr, "BINDING"):
		return "CATALOG"
	case strings.Contains(codeStr, "RECIPIENT"):
		return "RECIPIENT"
	case strings.Contains(codeStr, "DELIVERY") || strings.Contains(codeStr, "EXECUTOR"):
		return "DELIVERY"
	case strings.Contains(codeStr, "ACTIVITY") || strings.Contains(codeStr, "INDEXING"):
		return "AUDIT"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// AsStandardError returns err as a *StandardError, wrapping foreign errors as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if As(err, &stdErr) {
		return stdErr
	}
	return newError("INTERNAL_ERROR", "Unexpected error", err.Error(), false, err)
}

// Is and As forward to the standard library so callers importing this package
// under the name errors keep the usual helpers.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

func New(text string) error { return stderrors.New(text) }
