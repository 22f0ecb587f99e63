package domain

import "strings"

// Display 状态的展示元数据，后台、订单页、文档页共用这一张表
type Display struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type displayKey struct {
	kind   Kind
	status Status
}

var baseDisplay = map[Status]Display{
	StatusNew:        {Label: "New", Color: "#3B82F6", Icon: "inbox"},
	StatusInProgress: {Label: "In progress", Color: "#F59E0B", Icon: "clock"},
	StatusDone:       {Label: "Done", Color: "#10B981", Icon: "check-circle"},
	StatusArchived:   {Label: "Archived", Color: "#6B7280", Icon: "archive"},
	StatusCompleted:  {Label: "Completed", Color: "#059669", Icon: "package-check"},
	StatusCancelled:  {Label: "Cancelled", Color: "#EF4444", Icon: "x-circle"},
}

// 订单沿用同一张图，只是叫法不同
var kindOverrides = map[displayKey]Display{
	{KindOrder, StatusNew}:        {Label: "Pending", Color: "#3B82F6", Icon: "shopping-bag"},
	{KindOrder, StatusInProgress}: {Label: "Accepted", Color: "#F59E0B", Icon: "chef-hat"},
	{KindOrder, StatusDone}:       {Label: "Ready", Color: "#10B981", Icon: "bell"},
	{KindDocument, StatusDone}:    {Label: "Approved", Color: "#10B981", Icon: "file-check"},
}

// DisplayFor 返回 (kind, status) 的展示信息；未知状态回退为原始值
func DisplayFor(k Kind, s Status) Display {
	if d, ok := kindOverrides[displayKey{k, s}]; ok {
		return d
	}
	if d, ok := baseDisplay[s]; ok {
		return d
	}
	return Display{Label: strings.ToLower(string(s)), Color: "#9CA3AF", Icon: "help-circle"}
}

// Label 状态在该种类下的展示名
func (s Status) Label(k Kind) string {
	return DisplayFor(k, s).Label
}
