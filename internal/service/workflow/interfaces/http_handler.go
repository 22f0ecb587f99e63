package interfaces

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/pkg/authctx"
	"memberflow/internal/pkg/httpx"
	"memberflow/internal/service/workflow/application"
	"memberflow/internal/service/workflow/domain"
)

// WorkflowHandler 封装了工作流服务的 HTTP 处理器
type WorkflowHandler struct {
	service *application.WorkflowService
}

func NewWorkflowHandler(service *application.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{service: service}
}

// RegisterRoutes 注册工作流相关路由，调用方负责挂载 authctx.Middleware
func (h *WorkflowHandler) RegisterRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Post("/", h.submit)
		r.Get("/", h.listMine)
		r.Get("/{id}", h.get)
		r.Post("/{id}/transition", h.transition)
	})
	r.Get("/admin/activity", h.recentActivity)
}

func (h *WorkflowHandler) submit(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	actor, _ := authctx.FromContext(ctx)

	var req application.SubmitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	kind, err := domain.ParseKind(req.Kind)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}

	item, err := h.service.Submit(ctx, kind, actor.UserID, req.Label, req.Summary)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, application.ToItemResponse(item))
}

func (h *WorkflowHandler) listMine(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	actor, _ := authctx.FromContext(ctx)

	filter, err := parseFilter(r)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	items, err := h.service.ListByOwner(ctx, actor.UserID, filter)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	resp := make([]*application.ItemResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, application.ToItemResponse(it))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *WorkflowHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	actor, _ := authctx.FromContext(ctx)

	item, err := h.service.Get(ctx, chi.URLParam(r, "id"), actor)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, application.ToItemResponse(item))
}

func (h *WorkflowHandler) transition(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	actor, _ := authctx.FromContext(ctx)

	var req application.TransitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	target, err := domain.ParseStatus(req.Status)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}

	item, err := h.service.Transition(ctx, chi.URLParam(r, "id"), target, actor)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, application.ToItemResponse(item))
}

func (h *WorkflowHandler) recentActivity(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	actor, _ := authctx.FromContext(ctx)

	filter, err := parseFilter(r)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	entries, err := h.service.ListRecent(ctx, actor, filter)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entries)
}

// parseFilter 解析 ?kind=&status=&limit=
func parseFilter(r *http.Request) (domain.ListFilter, error) {
	q := r.URL.Query()
	var f domain.ListFilter
	if v := q.Get("kind"); v != "" {
		k, err := domain.ParseKind(v)
		if err != nil {
			return f, err
		}
		f.Kind = k
	}
	if v := q.Get("status"); v != "" {
		s, err := domain.ParseStatus(v)
		if err != nil {
			return f, err
		}
		f.Status = s
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.Wrapf(apperr.ErrInvalidInput, "limit %q must be a non-negative integer", v)
		}
		f.Limit = n
	}
	return f, nil
}
