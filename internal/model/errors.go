package model

import "errors"

// ErrNotFound is returned by stores when no record matches, including ownership mismatches.
var ErrNotFound = errors.New("not found")
