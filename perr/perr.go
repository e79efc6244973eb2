// Package perr implements the closed error taxonomy surfaced to the
// dispatcher (spec §7). Every error the planner returns carries one of
// these kinds, so the dispatcher never has to pattern-match error
// strings.
package perr

import "fmt"

// Kind enumerates the surfaced error taxonomy.
type Kind int

const (
	// BadFilter: a request filter (forbidden_uris, allowed_id, ...)
	// could not be interpreted.
	BadFilter Kind = iota
	// UnknownApi: the request's api selector is not serviced.
	UnknownApi
	// UnableToParse: the request's binary envelope could not be
	// decoded.
	UnableToParse
	// BadFormat: a decoded field had the wrong shape or type.
	BadFormat
	// InvalidProtobufRequest: the protobuf payload itself failed
	// validation.
	InvalidProtobufRequest
	// DateOutOfBounds: the reference datetime falls outside the
	// loaded calendar.
	DateOutOfBounds
	// NoOrigin: every origin place-uri was dropped.
	NoOrigin
	// NoDestination: every destination place-uri was dropped.
	NoDestination
	// NoOriginNorDestination: both origin and destination lists were
	// dropped entirely.
	NoOriginNorDestination
	// UnknownObject: a URI did not resolve to any known object.
	UnknownObject
	// NoSolution: the engine ran to completion with an empty arrived
	// front.
	NoSolution
	// DeadlineExpired: the request's deadline elapsed mid-computation.
	DeadlineExpired
	// ServiceUnavailable: no snapshot is loaded yet.
	ServiceUnavailable
	// InternalError: every other surfaced failure, including
	// response-builder validation errors.
	InternalError
)

func (k Kind) String() string {
	switch k {
	case BadFilter:
		return "bad_filter"
	case UnknownApi:
		return "unknown_api"
	case UnableToParse:
		return "unable_to_parse"
	case BadFormat:
		return "bad_format"
	case InvalidProtobufRequest:
		return "invalid_protobuf_request"
	case DateOutOfBounds:
		return "date_out_of_bounds"
	case NoOrigin:
		return "no_origin"
	case NoDestination:
		return "no_destination"
	case NoOriginNorDestination:
		return "no_origin_nor_destination"
	case UnknownObject:
		return "unknown_object"
	case NoSolution:
		return "no_solution"
	case DeadlineExpired:
		return "deadline_expired"
	case ServiceUnavailable:
		return "service_unavailable"
	case InternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Error is the typed error returned to the dispatcher: a Kind plus a
// human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// New builds an *Error from a kind and a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an InternalError from a lower-level error, per the
// propagation policy that response-builder validation failures (and
// every other unclassified failure) surface as InternalError.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Kind: InternalError, Message: err.Error()}
}
