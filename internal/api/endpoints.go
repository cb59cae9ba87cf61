package api

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/run-bigpig/traefin/internal/models"
)

// 后端约定的业务错误码
const (
	CodeDuplicate     = "duplicate"      // 重复配置 / 重名
	CodeMissingConfig = "missing_config" // 未配置 AI 模型
)

// Login 登录换取令牌
func (c *Client) Login(ctx context.Context, username, password string) (*models.AuthTokens, error) {
	env, err := c.Post(ctx, "token/", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	var tokens models.AuthTokens
	if err := DecodeData(env, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Register 注册账号，后端可能直接返回令牌
func (c *Client) Register(ctx context.Context, username, password, email string) (*models.AuthTokens, error) {
	env, err := c.Post(ctx, "register/", map[string]string{
		"username": username,
		"password": password,
		"email":    email,
	})
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 {
		return nil, nil
	}
	var tokens models.AuthTokens
	if err := DecodeData(env, &tokens); err != nil {
		return nil, err
	}
	if tokens.Access == "" {
		return nil, nil
	}
	return &tokens, nil
}

// SearchStocks 搜索个股
func (c *Client) SearchStocks(ctx context.Context, q string) ([]models.StockInfo, error) {
	query := url.Values{}
	if q != "" {
		query.Set("q", q)
	}
	env, err := c.Get(ctx, "stock/", query)
	if err != nil {
		return nil, err
	}
	var stocks []models.StockInfo
	if err := DecodeData(env, &stocks); err != nil {
		return nil, err
	}
	return stocks, nil
}

// MarketIndices 大盘指数
func (c *Client) MarketIndices(ctx context.Context) ([]models.MarketIndex, error) {
	env, err := c.Get(ctx, "market/index/", nil)
	if err != nil {
		return nil, err
	}
	var indices []models.MarketIndex
	if err := DecodeData(env, &indices); err != nil {
		return nil, err
	}
	return indices, nil
}

// TopGainers 涨幅榜
func (c *Client) TopGainers(ctx context.Context) ([]models.GainerItem, error) {
	env, err := c.Get(ctx, "market/top-gainers/", nil)
	if err != nil {
		return nil, err
	}
	var items []models.GainerItem
	if err := DecodeData(env, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// TopIndustries 行业涨幅榜
func (c *Client) TopIndustries(ctx context.Context) ([]models.IndustryItem, error) {
	env, err := c.Get(ctx, "market/top-industries/", nil)
	if err != nil {
		return nil, err
	}
	var items []models.IndustryItem
	if err := DecodeData(env, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListGroups 拉取全部自选分组（含权威计数，不含隐式 default 分组）
func (c *Client) ListGroups(ctx context.Context) ([]models.Group, error) {
	env, err := c.Get(ctx, "watchlist-groups/", nil)
	if err != nil {
		return nil, err
	}
	var groups []models.Group
	if err := DecodeData(env, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// CreateGroup 新建分组
func (c *Client) CreateGroup(ctx context.Context, name string) (*models.Group, error) {
	env, err := c.Post(ctx, "watchlist-groups/", map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	var group models.Group
	if err := DecodeData(env, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// RenameGroup 重命名分组
func (c *Client) RenameGroup(ctx context.Context, id, name string) error {
	_, err := c.Patch(ctx, "watchlist-groups/"+id+"/", map[string]string{"name": name})
	return err
}

// DeleteGroup 删除分组（连带该分组下全部自选）
func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	_, err := c.Delete(ctx, "watchlist-groups/"+id+"/", nil)
	return err
}

// WatchlistCounts 各分组计数的一次性权威拉取
func (c *Client) WatchlistCounts(ctx context.Context) (*models.GroupCounts, error) {
	env, err := c.Get(ctx, "watchlist/count/", nil)
	if err != nil {
		return nil, err
	}
	counts := models.GroupCounts{Groups: map[string]int{}}
	if err := DecodeData(env, &counts); err != nil {
		return nil, err
	}
	if counts.Groups == nil {
		counts.Groups = map[string]int{}
	}
	return &counts, nil
}

// Watchlist 拉取某分组的自选股，groupID 为空表示 default 分组
func (c *Client) Watchlist(ctx context.Context, groupID string) ([]models.WatchlistItem, error) {
	query := url.Values{}
	if groupID != "" {
		query.Set("group_id", groupID)
	}
	env, err := c.Get(ctx, "watchlist/", query)
	if err != nil {
		return nil, err
	}
	var items []models.WatchlistItem
	if err := DecodeData(env, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AddWatchlist 添加自选
// 已在分组内时后端返回 status=info，此时 already 为 true 且不算成功
func (c *Client) AddWatchlist(ctx context.Context, item models.WatchlistItem) (already bool, err error) {
	body := map[string]string{
		"ts_code": item.TsCode,
		"name":    item.Name,
	}
	if item.GroupID != "" {
		body["group_id"] = item.GroupID
	}
	env, err := c.Post(ctx, "watchlist/", body)
	if err != nil {
		return false, err
	}
	return env.Status == StatusInfo, nil
}

// RemoveWatchlist 移除自选
func (c *Client) RemoveWatchlist(ctx context.Context, tsCode, groupID string) error {
	query := url.Values{}
	query.Set("ts_code", tsCode)
	if groupID != "" {
		query.Set("group_id", groupID)
	}
	_, err := c.Delete(ctx, "watchlist/", query)
	return err
}

// AnalyzeWatchlist 一键分析某分组的自选股，groupID 为空表示 default 分组
// 返回 info 状态时（如自选为空）把提示语当作回复内容
func (c *Client) AnalyzeWatchlist(ctx context.Context, groupID string) (string, error) {
	body := map[string]string{}
	if groupID != "" {
		body["group_id"] = groupID
	}
	env, err := c.Post(ctx, "ai/analyze/", body)
	if err != nil {
		return "", err
	}
	if env.Status == StatusInfo {
		return env.Message, nil
	}
	var data struct {
		Message string `json:"message"`
	}
	if err := DecodeData(env, &data); err != nil {
		return "", err
	}
	if data.Message == "" {
		return "分析完成", nil
	}
	return data.Message, nil
}

// Chat 对话一轮，携带完整可见历史与可选的个股上下文
func (c *Client) Chat(ctx context.Context, history []models.ChatTurn, stock *models.StockInfo) (string, error) {
	body := map[string]any{"messages": history}
	if stock != nil {
		body["stock"] = stock
	}
	env, err := c.Post(ctx, "ai/chat/", body)
	if err != nil {
		return "", err
	}
	var data struct {
		Message string `json:"message"`
	}
	if err := DecodeData(env, &data); err != nil {
		return "", err
	}
	return data.Message, nil
}

// Events 个股事件时间线
func (c *Client) Events(ctx context.Context, symbol, start, end string) ([]models.EventItem, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	if start != "" {
		query.Set("start", start)
	}
	if end != "" {
		query.Set("end", end)
	}
	env, err := c.Get(ctx, "events/", query)
	if err != nil {
		return nil, err
	}
	var events []models.EventItem
	if err := DecodeData(env, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Signals 个股信号解释与买卖时机综合报告
func (c *Client) Signals(ctx context.Context, symbol string) (*models.SignalsPayload, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	env, err := c.Get(ctx, "signals/", query)
	if err != nil {
		return nil, err
	}
	var payload models.SignalsPayload
	if err := DecodeData(env, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// RunBacktest 提交回测配置，返回报告的原始 JSON（用于原样持久化）
func (c *Client) RunBacktest(ctx context.Context, config models.BacktestConfig) (json.RawMessage, error) {
	env, err := c.Post(ctx, "backtest/", config)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// UserInfo 用户信息
func (c *Client) UserInfo(ctx context.Context) (*models.UserInfo, error) {
	env, err := c.Get(ctx, "user/info/", nil)
	if err != nil {
		return nil, err
	}
	var info models.UserInfo
	if err := DecodeData(env, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// UpdateEmail 更新邮箱
func (c *Client) UpdateEmail(ctx context.Context, email string) error {
	_, err := c.Patch(ctx, "user/info/", map[string]string{"email": email})
	return err
}

// ChangePassword 修改密码
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	_, err := c.Post(ctx, "user/change-password/", map[string]string{
		"old_password": oldPassword,
		"new_password": newPassword,
	})
	return err
}

// SaveAIModel 保存 AI 模型配置
// 配置重复时后端返回 status=info + code=duplicate，duplicate 为 true
func (c *Client) SaveAIModel(ctx context.Context, save models.AIModelSave) (duplicate bool, err error) {
	env, err := c.Post(ctx, "ai-models/", save)
	if err != nil {
		return false, err
	}
	return env.Status == StatusInfo && env.Code == CodeDuplicate, nil
}

// SelectAIModel 切换当前使用的 AI 模型
func (c *Client) SelectAIModel(ctx context.Context, id string) error {
	_, err := c.Post(ctx, "ai-models/"+id+"/select/", map[string]string{})
	return err
}

// DeleteAIModel 删除 AI 模型配置
func (c *Client) DeleteAIModel(ctx context.Context, id string) error {
	_, err := c.Delete(ctx, "ai-models/"+id+"/", nil)
	return err
}

// AnalysisHistory 一键分析历史
func (c *Client) AnalysisHistory(ctx context.Context) ([]models.AnalysisRecord, error) {
	env, err := c.Get(ctx, "ai-history/", nil)
	if err != nil {
		return nil, err
	}
	var records []models.AnalysisRecord
	if err := DecodeData(env, &records); err != nil {
		return nil, err
	}
	return records, nil
}
