package play

import "errors"

var (
	ErrTrackNotFound = errors.New("track not found")

	ErrDuplicatePlay = errors.New("duplicate play within dedup window")
)
