package store

import (
	"github.com/inkwell/tagstore/internal/errors"
)

// Sentinel errors. They carry domain codes, so errors.Is(err, errors.ErrNotFound)
// holds for any store miss and the API maps them to the right status.
var (
	ErrNotFound      = errors.NotFound("resource not found")
	ErrAlreadyExists = errors.AlreadyExists("resource already exists")
)
