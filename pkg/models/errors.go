package models

import "errors"

// ErrInvalidInput is wrapped by every validation failure in the estimator
// and optimizer. Test for it with errors.Is.
var ErrInvalidInput = errors.New("invalid input")
