package elasticx

import (
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/clinia/searchx/errorx"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

const (
	IndexNotFoundException               = "index_not_found_exception"
	ResourceAlreadyExistsException       = "resource_already_exists_exception"
	VersionConflictEngineException       = "version_conflict_engine_exception"
	StrictDynamicMappingException        = "strict_dynamic_mapping_exception"
	MergeMappingException                = "merge_mapping_exception"
	maxErrorBody                   int64 = 64 << 10
)

// Engines before 2.0 report errors as a single "Name[reason]" string.
var legacyError = regexp.MustCompile(`(?s)^([A-Za-z][A-Za-z0-9]*)\[(.*)\]$`)

// Legacy exceptions renamed since, keyed by their legacy name.
var legacyErrorTypes = map[string]string{
	"IndexMissingException":       IndexNotFoundException,
	"IndexAlreadyExistsException": ResourceAlreadyExistsException,
}

// ErrMappingUpdateRejected is wrapped by the error returned when the engine
// declines a mapping update.
var ErrMappingUpdateRejected = errors.New("mapping update rejected")

// EngineError is the error reported in the body of a failed engine response.
type EngineError struct {
	Status int
	Type   string
	Reason string
	Body   string
}

func (e *EngineError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("[%d] %s", e.Status, e.Body)
	}
	return fmt.Sprintf("[%d] %s: %s", e.Status, e.Type, e.Reason)
}

// newEngineError reads the error body of res. The caller still closes the body.
func newEngineError(res *esapi.Response) *EngineError {
	e := &EngineError{Status: res.StatusCode}
	if res.Body == nil {
		return e
	}

	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	e.Body = string(raw)

	parsed := gjson.ParseBytes(raw)
	switch errField := parsed.Get("error"); {
	case errField.IsObject():
		e.Type = errField.Get("type").String()
		e.Reason = errField.Get("reason").String()
	case errField.Type == gjson.String:
		e.Type, e.Reason = parseLegacyError(errField.String())
	}

	return e
}

func parseLegacyError(msg string) (errType string, reason string) {
	m := legacyError.FindStringSubmatch(msg)
	if m == nil {
		return "", msg
	}
	if t, ok := legacyErrorTypes[m[1]]; ok {
		return t, m[2]
	}
	return lo.SnakeCase(m[1]), m[2]
}

func connectionFailure(cause error, format string, args ...any) error {
	return errorx.UnavailableErrorf(format, args...).WithOriginalError(cause)
}

func transportFailure(cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	var engineErr *EngineError
	if errors.As(cause, &engineErr) && engineErr.Body != "" {
		return errorx.InternalErrorf("%s: %s", msg, engineErr.Body).WithOriginalError(cause)
	}
	return errorx.InternalErrorf("%s", msg).WithOriginalError(cause)
}

// IsConnectionFailure reports whether the engine could not be reached when connecting.
func IsConnectionFailure(err error) bool {
	return errorx.IsUnavailableError(err)
}

// IsWriteConflict reports whether a versioned write was rejected because the
// stored version is higher than the supplied one.
func IsWriteConflict(err error) bool {
	return errorx.IsAbortedError(err)
}

// IsTransportFailure reports whether the engine failed a request or could not be reached mid-call.
func IsTransportFailure(err error) bool {
	return errorx.IsInternalError(err)
}

func IsMappingUpdateRejected(err error) bool {
	return errors.Is(err, ErrMappingUpdateRejected)
}

// AsEngineError returns the engine error carried by err, if any.
func AsEngineError(err error) (*EngineError, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr, true
	}
	return nil, false
}

func notFound(cause error, format string, args ...any) error {
	return errorx.NotFoundErrorf(format, args...).WithOriginalError(cause)
}

func readBody(res *esapi.Response) ([]byte, error) {
	if res.Body == nil {
		return nil, nil
	}
	return io.ReadAll(res.Body)
}
