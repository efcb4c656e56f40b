package errorx

type ErrorType string

// Errors status code are defined here:
// https://chromium.googlesource.com/external/github.com/grpc/grpc/+/refs/tags/v1.21.4-pre1/doc/statuscodes.md

const (
	// The Unspecified type should not be used, only useful to assert whether or not an error is a CliniaError during cast
	ErrorTypeUnspecified        = ErrorType("")
	ErrorTypeAborted            = ErrorType("ABORTED")
	ErrorTypeAlreadyExists      = ErrorType("ALREADY_EXISTS")
	ErrorTypeFailedPrecondition = ErrorType("FAILED_PRECONDITION")
	ErrorTypeInternal           = ErrorType("INTERNAL")
	ErrorTypeInvalidArgument    = ErrorType("INVALID_ARGUMENT")
	ErrorTypeNotFound           = ErrorType("NOT_FOUND")
	ErrorTypeUnavailable        = ErrorType("UNAVAILABLE")
)

var errorTypes = []ErrorType{
	ErrorTypeAborted,
	ErrorTypeAlreadyExists,
	ErrorTypeFailedPrecondition,
	ErrorTypeInternal,
	ErrorTypeInvalidArgument,
	ErrorTypeNotFound,
	ErrorTypeUnavailable,
}

func ParseErrorType(s string) (ErrorType, error) {
	e := ErrorType(s)
	if err := e.Validate(); err != nil {
		return ErrorTypeUnspecified, err
	}

	return e, nil
}

func (e ErrorType) String() string {
	return string(e)
}

func (e ErrorType) Validate() error {
	for _, t := range errorTypes {
		if e == t {
			return nil
		}
	}

	names := make([]string, len(errorTypes))
	for i, t := range errorTypes {
		names[i] = t.String()
	}

	return NewEnumOutOfRangeError(e.String(), names, "error type")
}
