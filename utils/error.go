package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorConflict marks state conflicts (undo collision, reconciled row mutated)
// so the endpoint layer can map them to 409 instead of 400.
var ErrorConflict = errors.New("conflict")

func ConflictError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrorConflict}, args...)...)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrorConflict)
}
