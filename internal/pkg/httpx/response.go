// Package httpx 是各服务 HTTP 处理器共用的请求解析与响应工具
package httpx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/pkg/logger"
)

const maxBodyBytes = 1 << 20

// ErrorBody 错误响应体
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Extract 从请求头中恢复上游的 trace context
func Extract(r *http.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

// WriteJSON 以给定状态码输出 JSON
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Error().Err(err).Msg("Failed to encode response")
	}
}

// WriteError 按错误分类选择状态码与提示文案
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	body := ErrorBody{Error: apperr.Message(err)}
	if k := apperr.Kind(err); k != nil {
		body.Kind = k.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.Ctx(ctx).Error().Err(err).Int("status", status).Msg("Request failed")
	}
	WriteJSON(w, status, body)
}

// DecodeJSON 解析请求体，格式错误归为 ErrInvalidInput
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Mark(apperr.ErrInvalidInput, errors.Wrap(err, "malformed request body"))
	}
	return nil
}
