// internal/pkg/apperr/apperr.go
package apperr

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"
	"net/http"

	"github.com/pkg/errors"
)

// 引擎对外暴露的错误分类。所有业务错误都应当能通过 errors.Is 归到其中之一。
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("forbidden")
	ErrUnavailable       = errors.New("unavailable")
)

var kinds = []error{
	ErrNotFound,
	ErrConflict,
	ErrInvalidTransition,
	ErrInvalidAmount,
	ErrInvalidInput,
	ErrForbidden,
	ErrUnavailable,
}

// classified 把底层错误挂到某个分类下，同时保留原始错误链
type classified struct {
	kind  error
	cause error
}

func (e *classified) Error() string { return e.kind.Error() + ": " + e.cause.Error() }

func (e *classified) Is(target error) bool { return target == e.kind }

func (e *classified) Unwrap() error { return e.cause }

// Mark 将 cause 归类为 kind，errors.Is 对 kind 和 cause 链上的错误都成立。
func Mark(kind, cause error) error {
	if cause == nil {
		return nil
	}
	return &classified{kind: kind, cause: cause}
}

// Kind 返回 err 所属的分类，无法归类时返回 nil。
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Retryable 只有存储不可用（超时、断连）才允许调用方退避重试。
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// FromStore 翻译与具体驱动无关的存储错误。已经归类的错误原样返回。
func FromStore(err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Mark(ErrUnavailable, err)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return Mark(ErrUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Mark(ErrUnavailable, err)
	}
	return err
}

// HTTPStatus 把错误分类映射为 HTTP 状态码
func HTTPStatus(err error) int {
	switch Kind(err) {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrInvalidTransition:
		return http.StatusUnprocessableEntity
	case ErrInvalidAmount, ErrInvalidInput:
		return http.StatusBadRequest
	case ErrForbidden:
		return http.StatusForbidden
	case ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message 返回面向用户的提示文案
func Message(err error) string {
	switch Kind(err) {
	case ErrConflict, ErrInvalidTransition, ErrForbidden:
		return "This action was rejected: " + err.Error()
	case ErrUnavailable:
		return "The service is temporarily unavailable, please try again."
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrInvalidAmount, ErrInvalidInput:
		return "The request was invalid: " + err.Error()
	default:
		return "Internal error."
	}
}

// IsCallerBug 标记那些说明调用方逻辑有误、需要以错误级别记录的分类
func IsCallerBug(err error) bool {
	k := Kind(err)
	return k == ErrNotFound || k == ErrInvalidAmount || k == ErrInvalidInput
}
