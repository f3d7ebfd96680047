package types

import "errors"

// ErrInvalidArgument is returned when a caller breaks an input contract
// (empty candidate list, inverted range, probability outside [0,1], ...).
var ErrInvalidArgument = errors.New("invalid argument")
