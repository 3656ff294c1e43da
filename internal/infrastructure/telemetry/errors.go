package telemetry

import "errors"

// ErrMeterNil is returned when a nil meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")
