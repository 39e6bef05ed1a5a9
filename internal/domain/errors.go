package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the caller-visible code (K0xx/K3xx/K6xx taxonomy)
type ErrorCode string

const (
	ErrorCodeInvalidBody              ErrorCode = "K001"
	ErrorCodeUnexpected               ErrorCode = "K002"
	ErrorCodeInvalidMerchant          ErrorCode = "K004"
	ErrorCodeDeclined                 ErrorCode = "K006"
	ErrorCodeInvalidToken             ErrorCode = "K008"
	ErrorCodeTransactionNotFound      ErrorCode = "K020"
	ErrorCodeProcessorUnreachable     ErrorCode = "K021"
	ErrorCodeDuplicateTransaction     ErrorCode = "K023"
	ErrorCodeRuleRejected             ErrorCode = "K322"
	ErrorCodeSecureValidationRejected ErrorCode = "K325"
	ErrorCodeAmountRequired           ErrorCode = "K600"
	ErrorCodeMissingParameters        ErrorCode = "K601"
)

// ErrorKind groups error codes by how the pipeline reacts to them
type ErrorKind string

const (
	KindUpstreamUnreachable ErrorKind = "upstream_unreachable"
	KindUpstreamRejected    ErrorKind = "upstream_rejected"
	KindRuleEngineRejected  ErrorKind = "rule_engine_rejected"
	KindValidation          ErrorKind = "validation"
	KindConfiguration       ErrorKind = "configuration"
	KindDuplicateWrite      ErrorKind = "duplicate_write"
	KindInternal            ErrorKind = "internal"
)

var errorMessages = map[ErrorCode]string{
	ErrorCodeInvalidBody:              "Cuerpo de la petición inválido.",
	ErrorCodeUnexpected:               "Ha ocurrido un error inesperado.",
	ErrorCodeInvalidMerchant:          "ID de comercio o credencial no válido.",
	ErrorCodeDeclined:                 "Transacción declinada.",
	ErrorCodeInvalidToken:             "Token inválido.",
	ErrorCodeTransactionNotFound:      "Transacción no encontrada.",
	ErrorCodeProcessorUnreachable:     "Procesador inalcanzable.",
	ErrorCodeDuplicateTransaction:     "Transacción duplicada.",
	ErrorCodeRuleRejected:             "Transacción declinada por reglas.",
	ErrorCodeSecureValidationRejected: "Transacción declinada por validación de seguridad.",
	ErrorCodeAmountRequired:           "El monto de la transacción es requerido.",
	ErrorCodeMissingParameters:        "Faltan parámetros requeridos.",
}

var errorKinds = map[ErrorCode]ErrorKind{
	ErrorCodeInvalidBody:              KindValidation,
	ErrorCodeUnexpected:               KindInternal,
	ErrorCodeInvalidMerchant:          KindValidation,
	ErrorCodeDeclined:                 KindUpstreamRejected,
	ErrorCodeInvalidToken:             KindValidation,
	ErrorCodeTransactionNotFound:      KindValidation,
	ErrorCodeProcessorUnreachable:     KindUpstreamUnreachable,
	ErrorCodeDuplicateTransaction:     KindDuplicateWrite,
	ErrorCodeRuleRejected:             KindRuleEngineRejected,
	ErrorCodeSecureValidationRejected: KindRuleEngineRejected,
	ErrorCodeAmountRequired:           KindValidation,
	ErrorCodeMissingParameters:        KindValidation,
}

// MessageFor returns the canonical message configured for a code
func MessageFor(code ErrorCode) string {
	return errorMessages[code]
}

// DomainError represents a structured, caller-visible error with code and metadata
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Kind    ErrorKind
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a metadata field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails merges metadata into the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

// ErrorCode implements CodedError
func (e *DomainError) ErrorCode() string { return string(e.Code) }

// ErrorMessage implements CodedError
func (e *DomainError) ErrorMessage() string { return e.Message }

// ErrorMetadata implements CodedError
func (e *DomainError) ErrorMetadata() map[string]interface{} { return e.Details }

// NewDomainError creates an error with the canonical message of the code
func NewDomainError(code ErrorCode) *DomainError {
	return &DomainError{
		Code:    code,
		Kind:    kindOf(code),
		Message: errorMessages[code],
		Details: make(map[string]interface{}),
	}
}

// NewDomainErrorWithMessage creates an error overriding the canonical message
func NewDomainErrorWithMessage(code ErrorCode, message string) *DomainError {
	e := NewDomainError(code)
	e.Message = message
	return e
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, err error) *DomainError {
	e := NewDomainError(code)
	e.Err = err
	return e
}

// NewConfigurationError reports a fatal misconfiguration. Surfaced to callers as K002.
func NewConfigurationError(format string, args ...interface{}) *DomainError {
	e := WrapError(ErrorCodeUnexpected, fmt.Errorf(format, args...))
	e.Kind = KindConfiguration
	return e
}

func kindOf(code ErrorCode) ErrorKind {
	if k, ok := errorKinds[code]; ok {
		return k
	}
	return KindInternal
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsKind checks the error kind of a DomainError
func IsKind(err error, kind ErrorKind) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind == kind
	}
	return false
}

// ProcessorError is a vendor-coded error raised by an acquirer integration
// (Aurus numeric codes, Transbank codes). Code is the vendor code, not a K-code.
type ProcessorError struct {
	Err           error
	Metadata      map[string]interface{}
	Code          string
	Message       string
	ProcessorName string
	StatusCode    int
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor %s error %s: %s", e.ProcessorName, e.Code, e.Message)
}

func (e *ProcessorError) Unwrap() error { return e.Err }

// ErrorCode implements CodedError
func (e *ProcessorError) ErrorCode() string { return e.Code }

// ErrorMessage implements CodedError
func (e *ProcessorError) ErrorMessage() string { return e.Message }

// ErrorMetadata implements CodedError
func (e *ProcessorError) ErrorMetadata() map[string]interface{} { return e.Metadata }

// IsServerError reports a 5xx upstream status
func (e *ProcessorError) IsServerError() bool {
	return e.StatusCode >= 500
}

// CodedError is implemented by every normalized error the transaction builder understands
type CodedError interface {
	error
	ErrorCode() string
	ErrorMessage() string
	ErrorMetadata() map[string]interface{}
}

// AsCoded returns the normalized view of err, or false for raw errors
func AsCoded(err error) (CodedError, bool) {
	var pe *ProcessorError
	if errors.As(err, &pe) {
		return pe, true
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// UpstreamFailure is the raw failure of a processor invocation before classification
type UpstreamFailure struct {
	Err           error
	Body          map[string]interface{}
	Code          string
	Message       string
	TransactionID string
	TicketNumber  string
	StatusCode    int
	Timeout       bool
}

func (f *UpstreamFailure) Error() string {
	if f.Timeout {
		return "upstream timeout"
	}
	return fmt.Sprintf("upstream failure status=%d code=%s: %s", f.StatusCode, f.Code, f.Message)
}

func (f *UpstreamFailure) Unwrap() error { return f.Err }

var (
	ErrTransactionExists = errors.New("transaction already exists")
	ErrNotFound          = errors.New("item not found")
)
