package errorx

import "fmt"

// AbortedErrorf creates a CliniaError with type ErrorTypeAborted and a formatted message.
// It is used for optimistic concurrency conflicts.
func AbortedErrorf(format string, args ...any) *CliniaError {
	return newWithStack(ErrorTypeAborted, fmt.Sprintf(format, args...))
}

func IsAbortedError(e error) bool {
	return hasType(e, ErrorTypeAborted)
}

// AlreadyExistsErrorf creates a CliniaError with type ErrorTypeAlreadyExists and a formatted message
func AlreadyExistsErrorf(format string, args ...any) *CliniaError {
	return newWithStack(ErrorTypeAlreadyExists, fmt.Sprintf(format, args...))
}

func IsAlreadyExistsError(e error) bool {
	return hasType(e, ErrorTypeAlreadyExists)
}

// FailedPreconditionErrorf creates a CliniaError with type ErrorTypeFailedPrecondition and a formatted message
func FailedPreconditionErrorf(format string, args ...any) *CliniaError {
	return newWithStack(ErrorTypeFailedPrecondition, fmt.Sprintf(format, args...))
}

func IsFailedPreconditionError(e error) bool {
	return hasType(e, ErrorTypeFailedPrecondition)
}

// InternalErrorf creates a CliniaError with type ErrorTypeInternal and a formatted message
func InternalErrorf(format string, args ...any) *CliniaError {
	return newWithStack(ErrorTypeInternal, fmt.Sprintf(format, args...))
}

func IsInternalError(e error) bool {
	return hasType(e, ErrorTypeInternal)
}

// InvalidArgumentErrorf creates a CliniaError with type ErrorTypeInvalidArgument and a formatted message
func InvalidArgumentErrorf(format string, args ...any) *CliniaError {
	return newWithStack(ErrorTypeInvalidArgument, fmt.Sprintf(format, args...))
}

func IsInvalidArgumentError(e error) bool {
	return hasType(e, ErrorTypeInvalidArgument)
}

// NotFoundErrorf creates a CliniaError with type ErrorTypeNotFound and a formatted message
func NotFoundErrorf(format string, args ...any) *CliniaError {
	return newWithStack(ErrorTypeNotFound, fmt.Sprintf(format, args...))
}

func IsNotFoundError(e error) bool {
	return hasType(e, ErrorTypeNotFound)
}

// UnavailableErrorf creates a CliniaError with type ErrorTypeUnavailable and a formatted message.
// The caller cannot proceed until the remote dependency is reachable again.
func UnavailableErrorf(format string, args ...any) *CliniaError {
	return newWithStack(ErrorTypeUnavailable, fmt.Sprintf(format, args...))
}

func IsUnavailableError(e error) bool {
	return hasType(e, ErrorTypeUnavailable)
}
