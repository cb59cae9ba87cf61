package models

// Group 自选股分组
// "default" 分组是隐式分组，不出现在服务端列表里，也不可删除
type Group struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ItemCount int    `json:"item_count"`
}

// WatchlistItem 自选股条目，(group_id, ts_code) 唯一
type WatchlistItem struct {
	TsCode  string `json:"ts_code"`
	Name    string `json:"name"`
	GroupID string `json:"group_id,omitempty"`
}

// GroupCounts 各分组的权威计数
type GroupCounts struct {
	Default int            `json:"default"`
	Groups  map[string]int `json:"groups"`
}
