package domain

import (
	"github.com/pkg/errors"

	"memberflow/internal/pkg/apperr"
)

var (
	ErrItemNotFound = errors.Wrap(apperr.ErrNotFound, "workflow item not found")
	ErrEmptyLabel   = errors.Wrap(apperr.ErrInvalidInput, "item label is required")
)
