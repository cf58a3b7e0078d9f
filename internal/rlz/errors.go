package rlz

import "errors"

var (
	ErrInvalidInput     = errors.New("rlz: invalid input")
	ErrTooLong          = errors.New("rlz: value exceeds maximum length")
	ErrUnsupportedPoint = errors.New("rlz: access point not supported")
)
