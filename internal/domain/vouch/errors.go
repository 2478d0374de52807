package vouch

import "errors"

// Sentinel kinds for vouch errors.
var (
	ErrSelfVouch = errors.New("cannot vouch for yourself")
)
