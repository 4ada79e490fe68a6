package types

import "errors"

// ErrNotFound is returned by directory lookups when the object does not exist.
var ErrNotFound = errors.New("not found")
