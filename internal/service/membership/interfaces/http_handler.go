package interfaces

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"memberflow/internal/pkg/apperr"
	"memberflow/internal/pkg/authctx"
	"memberflow/internal/pkg/httpx"
	"memberflow/internal/service/membership/application"
	"memberflow/internal/service/membership/domain"
)

// MembershipHandler 封装了会员服务的 HTTP 处理器
type MembershipHandler struct {
	service *application.LedgerService
}

// NewMembershipHandler 创建一个新的 HTTP 处理器实例
func NewMembershipHandler(service *application.LedgerService) *MembershipHandler {
	return &MembershipHandler{service: service}
}

// RegisterRoutes 注册会员相关路由，调用方负责挂载 authctx.Middleware
func (h *MembershipHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tiers", h.listTiers)
	r.Route("/memberships", func(r chi.Router) {
		r.Post("/", h.join)
		r.Get("/", h.listCards)
		r.Get("/{id}", h.getCard)
		r.Post("/{id}/accrue", h.accrue)
	})
}

func (h *MembershipHandler) join(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	actor, _ := authctx.FromContext(ctx)

	var req application.JoinRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}

	card, err := h.service.Join(ctx, actor.UserID, req.MerchantID)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, application.ToCardResponse(card))
}

func (h *MembershipHandler) listCards(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	actor, _ := authctx.FromContext(ctx)

	cards, err := h.service.ListCards(ctx, actor.UserID)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	resp := make([]*application.CardResponse, 0, len(cards))
	for _, c := range cards {
		resp = append(resp, application.ToCardResponse(c))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *MembershipHandler) getCard(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	actor, _ := authctx.FromContext(ctx)

	card, err := h.service.GetCard(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	// 顾客看不到别人的卡，按不存在处理
	if !actor.IsStaff() && !actor.Owns(card.UserID) {
		httpx.WriteError(ctx, w, domain.ErrCardNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, application.ToCardResponse(card))
}

func (h *MembershipHandler) accrue(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	actor, _ := authctx.FromContext(ctx)
	if !actor.IsStaff() {
		httpx.WriteError(ctx, w, errors.Wrap(apperr.ErrForbidden, "only staff can award points"))
		return
	}

	var req application.AccrueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}

	card, err := h.service.Accrue(ctx, chi.URLParam(r, "id"), req.Points)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, application.ToCardResponse(card))
}

func (h *MembershipHandler) listTiers(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, application.TierTable())
}
