package signals

import "errors"

// Validation errors returned by constructors and operations in this package.
var (
	ErrInvalidSpikeTime = errors.New("invalid spike time")
	ErrInvalidBounds    = errors.New("invalid time bounds")
	ErrInvalidBinWidth  = errors.New("bin width must be positive")
	ErrInvalidDT        = errors.New("sampling interval must be positive")
	ErrDuplicateID      = errors.New("identifier already present")
	ErrNilTrain         = errors.New("spike train is nil")
	ErrNilSignal        = errors.New("analog signal is nil")
	ErrLengthMismatch   = errors.New("length mismatch")
	ErrUnknownAggregate = errors.New("unknown aggregation type")
)
