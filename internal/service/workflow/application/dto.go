package application

import (
	"time"

	"memberflow/internal/pkg/timefmt"
	"memberflow/internal/service/workflow/domain"
)

// SubmitRequest 提交工单、下单或生成文档
type SubmitRequest struct {
	Kind    string `json:"kind"`
	Label   string `json:"label"`
	Summary string `json:"summary,omitempty"`
}

// TransitionRequest 状态流转请求，status 接受规范名与订单别名
type TransitionRequest struct {
	Status string `json:"status"`
}

// ItemResponse 工作流实体对外的展示结构
type ItemResponse struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	OwnerID    string         `json:"owner_id"`
	Label      string         `json:"label"`
	Summary    string         `json:"summary,omitempty"`
	Status     string         `json:"status"`
	Display    domain.Display `json:"display"`
	NextStatus []string       `json:"next_status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ActivityEntry 后台"最近动态"中的一行
type ActivityEntry struct {
	ItemResponse
	Age string `json:"age"`
}

func ToItemResponse(it *domain.Item) *ItemResponse {
	next := domain.Successors(it.Kind, it.Status)
	names := make([]string, len(next))
	for i, s := range next {
		names[i] = string(s)
	}
	return &ItemResponse{
		ID:         it.ID,
		Kind:       string(it.Kind),
		OwnerID:    it.OwnerID,
		Label:      it.Label,
		Summary:    it.Summary,
		Status:     string(it.Status),
		Display:    domain.DisplayFor(it.Kind, it.Status),
		NextStatus: names,
		CreatedAt:  it.CreatedAt,
		UpdatedAt:  it.UpdatedAt,
	}
}

func ToActivityEntry(it *domain.Item, now time.Time) ActivityEntry {
	return ActivityEntry{
		ItemResponse: *ToItemResponse(it),
		Age:          timefmt.FormatRelative(now, it.CreatedAt),
	}
}
