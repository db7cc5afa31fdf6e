package nn

import "errors"

// ErrInvalidParameter is returned for out-of-range configuration values.
var ErrInvalidParameter = errors.New("invalid parameter")
