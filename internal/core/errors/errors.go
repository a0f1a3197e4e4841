package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidArgument   ErrorCode = "INVALID_ARGUMENT"
	CodeInvalidObject     ErrorCode = "INVALID_OBJECT"
	CodeResolution        ErrorCode = "RESOLUTION_ERROR"
	CodeMissingEntryPoint ErrorCode = "MISSING_ENTRY_POINT"
	CodeInvalidEntryPoint ErrorCode = "INVALID_ENTRY_POINT"
	CodeNoMainMethod      ErrorCode = "NO_MAIN_METHOD"
	CodeInheritanceCycle  ErrorCode = "INHERITANCE_CYCLE"
	CodeExecution         ErrorCode = "EXECUTION_ERROR"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInternal          ErrorCode = "INTERNAL_ERROR"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxPackage   = "package"
	CtxObject    = "object"
	CtxLocation  = "location"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches a key/value pair to the outermost DomainError in err's
// chain, wrapping plain errors as INTERNAL_ERROR.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return err
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the first DomainError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}
