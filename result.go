package kvcache

import "strconv"

// ResultCode classifies the outcome of a cache operation.
type ResultCode uint8

const (
	CodeSuccess ResultCode = iota
	CodeFail
	CodeNotFound
	CodeExpired
	CodeIllegalArgument
	// CodeExists is reported by PutIfAbsent when a live entry was already present.
	CodeExists
)

func (c ResultCode) String() string {
	switch c {
	case CodeSuccess:
		return "SUCCESS"
	case CodeFail:
		return "FAIL"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeExpired:
		return "EXPIRED"
	case CodeIllegalArgument:
		return "ILLEGAL_ARGUMENT"
	case CodeExists:
		return "EXISTS"
	default:
		return "ResultCode(" + strconv.Itoa(int(c)) + ")"
	}
}

// Messages attached to results produced by the cache itself.
const (
	MsgIllegalArgument = "illegal argument"
	MsgNotFound        = "not found"
	MsgExpired         = "expired"
	MsgExists          = "key already exists"
	MsgRejected        = "rejected by provider"
	MsgNoInspect       = "provider does not support inspection"
)

// Result is the immutable outcome of a cache operation.
// The zero value is a SUCCESS carrying the zero T.
type Result[T any] struct {
	code  ResultCode
	msg   string
	value T
	cause error
}

// Outcome is the result of operations that carry no value (writes, removals).
type Outcome = Result[struct{}]

func (r Result[T]) Code() ResultCode { return r.code }
func (r Result[T]) Message() string  { return r.msg }

// Value returns the carried value. It is the zero T unless Code is CodeSuccess.
func (r Result[T]) Value() T { return r.value }

func (r Result[T]) IsSuccess() bool { return r.code == CodeSuccess }

// Err returns nil for SUCCESS and a *ResultError otherwise. The error unwraps
// to the provider or codec error that produced the result, if any.
func (r Result[T]) Err() error {
	if r.code == CodeSuccess {
		return nil
	}
	return &ResultError{Code: r.code, Message: r.msg, Cause: r.cause}
}

func (r Result[T]) String() string {
	if r.msg == "" {
		return r.code.String()
	}
	return r.code.String() + ": " + r.msg
}

func success[T any](v T) Result[T] {
	return Result[T]{code: CodeSuccess, value: v}
}

func done() Outcome { return Outcome{code: CodeSuccess} }

func failure[T any](msg string, cause error) Result[T] {
	return Result[T]{code: CodeFail, msg: msg, cause: cause}
}

func illegalArgument[T any]() Result[T] {
	return Result[T]{code: CodeIllegalArgument, msg: MsgIllegalArgument}
}

func notFound[T any]() Result[T] {
	return Result[T]{code: CodeNotFound, msg: MsgNotFound}
}

func expired[T any]() Result[T] {
	return Result[T]{code: CodeExpired, msg: MsgExpired}
}

func exists() Outcome {
	return Outcome{code: CodeExists, msg: MsgExists}
}

