package common

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrIO              = errors.New("i/o error")
	ErrExhausted       = errors.New("resource exhausted")
	ErrCorrupt         = errors.New("corrupt file system")
)
