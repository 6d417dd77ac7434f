package kvcache

import (
	"fmt"
)

// CodecOp names the codec call that failed.
type CodecOp string

const (
	OpEncodeKey   CodecOp = "encode key"
	OpEncodeValue CodecOp = "encode value"
	OpDecodeValue CodecOp = "decode value"
)

// CodecError reports a key or value codec failure, including recovered panics.
type CodecError struct {
	Op  CodecOp
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// ResultError is the error form of a non-success Result.
type ResultError struct {
	Code    ResultCode
	Message string
	Cause   error
}

func (e *ResultError) Error() string {
	if e.Message == "" {
		return "kvcache: " + e.Code.String()
	}
	return fmt.Sprintf("kvcache: %s: %s", e.Code, e.Message)
}

func (e *ResultError) Unwrap() error { return e.Cause }

// Is matches another *ResultError by code, so callers can test
// errors.Is(err, &ResultError{Code: CodeNotFound}).
func (e *ResultError) Is(target error) bool {
	t, ok := target.(*ResultError)
	return ok && t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}
