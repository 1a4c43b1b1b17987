package sink

import "errors"

// Errors
var (
	ErrUnavailable      = errors.New("side effect unavailable on this platform")
	ErrPermissionDenied = errors.New("desktop notifications not permitted")
)
