package domain

import (
	"regexp"
	"time"

	"github.com/pkg/errors"

	"memberflow/internal/pkg/apperr"
)

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// Merchant 商户（店铺）。由入驻流程创建，引擎只读。
type Merchant struct {
	ID          string
	Name        string
	Slug        string
	AccentColor string
	Active      bool
	CreatedAt   time.Time
}

// Validate 检查 slug 与主题色格式
func (m *Merchant) Validate() error {
	if m.ID == "" || m.Name == "" {
		return errors.Wrap(apperr.ErrInvalidInput, "merchant id and name are required")
	}
	if !slugPattern.MatchString(m.Slug) {
		return errors.Wrapf(apperr.ErrInvalidInput, "merchant slug %q is not url-safe", m.Slug)
	}
	if m.AccentColor != "" && !colorPattern.MatchString(m.AccentColor) {
		return errors.Wrapf(apperr.ErrInvalidInput, "accent color %q must be #RRGGBB", m.AccentColor)
	}
	return nil
}
