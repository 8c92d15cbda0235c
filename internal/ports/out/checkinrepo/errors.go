package checkinrepo

import "errors"

// ErrDuplicate indicates a record already exists for the same member and visit date.
var ErrDuplicate = errors.New("check-in already recorded for member on date")
