package model

import "errors"

// ErrNotFound is returned when a video has no stored analysis or no stored comments.
var ErrNotFound = errors.New("not found")
