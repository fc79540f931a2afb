package models

import "errors"

// ErrFinishedNeedsKM guards the finished-rides invariant before persistence.
var ErrFinishedNeedsKM = errors.New("km must be greater than 0 for finished rides")
