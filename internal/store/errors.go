package store

import (
	"errors"

	"github.com/agentrt/agentrt/internal/apperr"
)

// errNotFound builds a not_found apperr.Error for the given entity/id.
func errNotFound(entity, id string) error {
	return apperr.New(apperr.KindNotFound, entity+" not found: "+id)
}

// errValidation builds a validation apperr.Error.
func errValidation(message string) error {
	return apperr.New(apperr.KindValidation, message)
}

// errAsAppErr extracts an *apperr.Error from err, if any.
func errAsAppErr(err error) (*apperr.Error, bool) {
	var ae *apperr.Error
	ok := errors.As(err, &ae)
	return ae, ok
}
