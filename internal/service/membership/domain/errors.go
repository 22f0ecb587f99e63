package domain

import (
	"github.com/pkg/errors"

	"memberflow/internal/pkg/apperr"
)

var (
	// ErrAlreadyMember 只由存储层的唯一约束冲突产生
	ErrAlreadyMember    = errors.Wrap(apperr.ErrConflict, "already a member of this merchant")
	ErrCardNotFound     = errors.Wrap(apperr.ErrNotFound, "membership card not found")
	ErrMerchantNotFound = errors.Wrap(apperr.ErrNotFound, "merchant not found")
	ErrMerchantInactive = errors.Wrap(apperr.ErrForbidden, "merchant is not accepting members")
	ErrInvalidPoints    = errors.Wrap(apperr.ErrInvalidAmount, "points must be a positive integer")
)
