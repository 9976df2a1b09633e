package transform

import (
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain tags statuses produced by ToStatus. Statuses without an
// ErrorInfo in this domain are transport or plugin faults, not record faults.
const ErrorDomain = "metricshape.v1"

const (
	reasonParse     = "PARSE"
	reasonSchema    = "SCHEMA"
	reasonSerialize = "SERIALIZATION"
)

// ToStatus maps a transform error onto a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	var se *SchemaError
	switch {
	case errors.As(err, &se):
		return withReason(codes.FailedPrecondition, err, reasonSchema, &errdetails.BadRequest{
			FieldViolations: []*errdetails.BadRequest_FieldViolation{{Field: se.Field, Description: se.Reason}},
		})
	case errors.Is(err, ErrParse):
		return withReason(codes.InvalidArgument, err, reasonParse, nil)
	case errors.Is(err, ErrSerialize):
		return withReason(codes.Internal, err, reasonSerialize, nil)
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codes.Unknown, err.Error())
}

// withReason builds a status carrying an ErrorInfo in ErrorDomain, plus br
// when it is non-nil.
func withReason(c codes.Code, err error, reason string, br *errdetails.BadRequest) error {
	st := status.New(c, err.Error())
	info := &errdetails.ErrorInfo{Reason: reason, Domain: ErrorDomain}
	var d *status.Status
	var derr error
	if br != nil {
		d, derr = st.WithDetails(info, br)
	} else {
		d, derr = st.WithDetails(info)
	}
	if derr == nil {
		st = d
	}
	return st.Err()
}

// FromStatus is the inverse of ToStatus. Statuses that ToStatus did not
// produce are returned unchanged, so callers may retry them.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || err == nil {
		return err
	}
	var reason string
	var violation *errdetails.BadRequest_FieldViolation
	for _, d := range st.Details() {
		switch d := d.(type) {
		case *errdetails.ErrorInfo:
			if d.GetDomain() == ErrorDomain {
				reason = d.GetReason()
			}
		case *errdetails.BadRequest:
			if fv := d.GetFieldViolations(); len(fv) > 0 {
				violation = fv[0]
			}
		}
	}
	switch {
	case reason == reasonParse && st.Code() == codes.InvalidArgument:
		return &ParseError{Err: errors.New(st.Message())}
	case reason == reasonSchema && st.Code() == codes.FailedPrecondition:
		if violation != nil {
			return &SchemaError{Field: violation.GetField(), Reason: violation.GetDescription()}
		}
		return &SchemaError{Reason: st.Message()}
	case reason == reasonSerialize && st.Code() == codes.Internal:
		return &SerializationError{Err: errors.New(st.Message())}
	}
	return err
}
