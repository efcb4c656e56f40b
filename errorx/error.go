package errorx

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// CliniaError is the error returned by every package of this module when the
// failure has a meaning for the caller.
type CliniaError struct {
	Type    ErrorType     `json:"type"`
	Message string        `json:"message"`
	Details []CliniaError `json:"details,omitempty"`

	OriginalError error `json:"-"` // Not returned to clients

	stack Callers
}

var _ error = (*CliniaError)(nil)

var messagePattern = regexp.MustCompile(`^\[(.*?)\] (.*)$`)

func newWithStack(t ErrorType, msg string) *CliniaError {
	return &CliniaError{
		Type:    t,
		Message: msg,
		stack:   callers(2),
	}
}

func (e CliniaError) Error() string {
	if e.OriginalError == nil {
		return fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
	}

	return fmt.Sprintf("[%s] %s: %s", e.Type.String(), e.Message, e.OriginalError.Error())
}

// Unwrap exposes the original error to errors.Is and errors.As.
func (e CliniaError) Unwrap() error {
	return e.OriginalError
}

// StackTrace returns the call stack captured when the error was created.
func (e CliniaError) StackTrace() Callers {
	return e.stack
}

// WithDetails returns a copy of the error with the given details appended.
func (e CliniaError) WithDetails(details ...*CliniaError) CliniaError {
	out := e
	out.Details = make([]CliniaError, 0, len(e.Details)+len(details))
	out.Details = append(out.Details, e.Details...)
	for _, d := range details {
		if d == nil {
			continue
		}
		out.Details = append(out.Details, CliniaError{Type: d.Type, Message: d.Message, Details: d.Details})
	}

	return out
}

// WithOriginalError attaches the error that caused this one.
func (e *CliniaError) WithOriginalError(err error) *CliniaError {
	e.OriginalError = err
	return e
}

// NewCliniaErrorFromMessage parses a message produced by CliniaError.Error back into an error.
func NewCliniaErrorFromMessage(msg string) (*CliniaError, error) {
	m := messagePattern.FindStringSubmatch(msg)
	if len(m) < 3 {
		return nil, fmt.Errorf("%q is not a valid error type", msg)
	}

	eT, err := ParseErrorType(m[1])
	if err != nil {
		return nil, err
	}

	return &CliniaError{
		Type:    eT,
		Message: m[2],
	}, nil
}

// IsCliniaError returns the first CliniaError found in the error chain.
func IsCliniaError(e error) (*CliniaError, bool) {
	if e == nil {
		return nil, false
	}

	var ptr *CliniaError
	if errors.As(e, &ptr) && ptr != nil && ptr.Type != ErrorTypeUnspecified {
		return ptr, true
	}

	var val CliniaError
	if errors.As(e, &val) && val.Type != ErrorTypeUnspecified {
		return &val, true
	}

	return nil, false
}

func hasType(e error, t ErrorType) bool {
	mE, ok := IsCliniaError(e)
	if !ok {
		return false
	}

	return mE.Type == t
}

// NewEnumOutOfRangeError is returned when a value is not one of the enum's values.
func NewEnumOutOfRangeError(actual string, expectedOneOf []string, enumName string) *CliniaError {
	return newWithStack(
		ErrorTypeInvalidArgument,
		fmt.Sprintf("%q is not a valid %s. Possible values: [%s]", actual, enumName, strings.Join(expectedOneOf, ", ")),
	)
}
