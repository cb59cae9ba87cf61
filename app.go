package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/run-bigpig/traefin/internal/api"
	"github.com/run-bigpig/traefin/internal/logger"
	"github.com/run-bigpig/traefin/internal/models"
	"github.com/run-bigpig/traefin/internal/services"
	"github.com/run-bigpig/traefin/internal/storage"
)

var appLog = logger.New("App")

// App 应用主结构，聚合全部服务并暴露给前端
type App struct {
	ctx context.Context

	store     *storage.Store
	emitter   *services.Emitter
	session   *services.SessionService
	auth      *services.AuthService
	groups    *services.GroupService
	watchlist *services.WatchlistService
	assistant *services.AssistantService
	research  *services.ResearchService
	backtest  *services.BacktestService
	market    *services.MarketService
	settings  *services.SettingsService
}

// NewApp 组装全部服务
func NewApp() *App {
	store, err := storage.Open()
	if err != nil {
		appLog.Error("打开本地存储失败: %v", err)
		os.Exit(1)
	}

	emitter := services.NewEmitter()
	session := services.NewSessionService(store, emitter)

	baseURL := os.Getenv("TRAEFIN_API")
	client := api.NewClient(baseURL, session)
	// 任何接口返回 401/403：全局登出并把用户带回登录页
	client.OnUnauthorized(func() {
		session.Logout()
		emitter.Emit(services.EventSessionExpired)
		emitter.Navigate("/login")
	})

	watchlist := services.NewWatchlistService(client, emitter)
	app := &App{
		store:     store,
		emitter:   emitter,
		session:   session,
		auth:      services.NewAuthService(client, session, emitter),
		groups:    services.NewGroupService(client, session, store, watchlist, emitter),
		watchlist: watchlist,
		assistant: services.NewAssistantService(client, session, emitter),
		research:  services.NewResearchService(client, session, watchlist, emitter),
		backtest:  services.NewBacktestService(client, store, emitter),
		market:    services.NewMarketService(client, watchlist, emitter),
		settings:  services.NewSettingsService(client, emitter),
	}
	return app
}

// startup 应用启动：绑定事件上下文、播种计数与分组、启动自动刷新
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.emitter.Bind(ctx)

	go func() {
		if !a.session.IsLoggedIn() {
			return
		}
		if err := a.watchlist.FetchAllCounts(ctx); err != nil {
			appLog.Warn("启动计数拉取失败: %v", err)
		}
		if _, err := a.groups.ListGroups(ctx); err != nil {
			appLog.Warn("启动分组拉取失败: %v", err)
		}
	}()

	a.market.StartAutoRefresh()
}

// shutdown 应用退出
func (a *App) shutdown(ctx context.Context) {
	a.market.Stop()
}

// ---- 会话 ----

// GetSession 会话快照
func (a *App) GetSession() models.Session { return a.session.Snapshot() }

// Login 登录
func (a *App) Login(username, password string) error {
	return a.auth.Login(a.ctx, username, password)
}

// Register 注册，返回是否已自动登录
func (a *App) Register(username, password, email string) (bool, error) {
	return a.auth.Register(a.ctx, username, password, email)
}

// Logout 登出
func (a *App) Logout() { a.session.Logout() }

// ToggleTheme 切换主题
func (a *App) ToggleTheme() { a.session.ToggleTheme() }

// SetActiveGroup 切换当前分组
func (a *App) SetActiveGroup(id string) { a.session.SetActiveGroup(id) }

// SetAssistantOpen 展开/收起助手面板
func (a *App) SetAssistantOpen(open bool) { a.session.SetAssistantOpen(open) }

// GetAssistantPanelWidth 助手面板宽度偏好
func (a *App) GetAssistantPanelWidth() int { return a.session.AssistantPanelWidth() }

// SetAssistantPanelWidth 保存助手面板宽度偏好
func (a *App) SetAssistantPanelWidth(width int) { a.session.SetAssistantPanelWidth(width) }

// ---- 分组 ----

// ListGroups 拉取分组列表
func (a *App) ListGroups() ([]models.Group, error) { return a.groups.ListGroups(a.ctx) }

// GetGroups 分组列表缓存
func (a *App) GetGroups() []models.Group { return a.groups.Groups() }

// GetDefaultGroupName 默认分组显示名
func (a *App) GetDefaultGroupName() string { return a.groups.DefaultGroupName() }

// CreateGroup 新建分组
func (a *App) CreateGroup(name string) (*models.Group, error) {
	return a.groups.CreateGroup(a.ctx, name)
}

// RenameGroup 重命名分组
func (a *App) RenameGroup(id, name string) error { return a.groups.RenameGroup(a.ctx, id, name) }

// DeleteGroup 删除分组
func (a *App) DeleteGroup(id string) error { return a.groups.DeleteGroup(a.ctx, id) }

// ---- 自选 ----

// FetchWatchlist 拉取某分组的自选股
func (a *App) FetchWatchlist(groupID string) ([]models.WatchlistItem, error) {
	return a.watchlist.FetchWatchlist(a.ctx, groupID)
}

// GetCounts 分组计数快照
func (a *App) GetCounts() models.GroupCounts { return a.watchlist.Counts() }

// AddToWatchlist 添加自选，返回结果枚举
func (a *App) AddToWatchlist(groupID, tsCode, name string) (services.AddOutcome, error) {
	return a.watchlist.AddMember(a.ctx, groupID, tsCode, name)
}

// RemoveFromWatchlist 移除自选
func (a *App) RemoveFromWatchlist(groupID, tsCode string) error {
	return a.watchlist.RemoveMember(a.ctx, groupID, tsCode)
}

// ---- 助手 ----

// GetMessages 对话记录
func (a *App) GetMessages() []models.ChatMessage { return a.assistant.Messages() }

// SendMessage 发送自由文本
func (a *App) SendMessage(text string) error { return a.assistant.SendFreeText(a.ctx, text) }

// AnalyzeGroup 一键分析分组自选股
func (a *App) AnalyzeGroup(groupID string) error { return a.assistant.RunBulkAnalysis(a.ctx, groupID) }

// ---- 个股研究 ----

// OpenResearch 打开个股研究视图
func (a *App) OpenResearch(tsCode string) { a.research.Open(a.ctx, tsCode) }

// CloseResearch 关闭个股研究视图
func (a *App) CloseResearch() { a.research.Close() }

// GetResearch 当前研究视图
func (a *App) GetResearch() *services.ResearchView { return a.research.Current() }

// AddResearchToGroup 把当前个股加入当前分组
func (a *App) AddResearchToGroup() (services.AddOutcome, error) {
	return a.research.AddCurrentToActiveGroup(a.ctx)
}

// OpenAssistantWithStock 带着当前个股打开助手
func (a *App) OpenAssistantWithStock() error { return a.research.OpenAssistantWithCurrent() }

// ---- 回测 ----

// RunBacktest 运行回测
func (a *App) RunBacktest(config models.BacktestConfig) (*models.BacktestReport, error) {
	return a.backtest.Run(a.ctx, config)
}

// GetLatestBacktest 读取最近一次回测报告
func (a *App) GetLatestBacktest() *models.BacktestReport {
	report, ok := a.backtest.LatestReport()
	if !ok {
		return nil
	}
	return report
}

// ---- 行情 ----

// SearchStocks 搜索个股
func (a *App) SearchStocks(q string) ([]models.StockInfo, error) { return a.market.Search(a.ctx, q) }

// GetIndices 大盘指数
func (a *App) GetIndices() ([]models.MarketIndex, error) { return a.market.Indices(a.ctx) }

// GetTopGainers 涨幅榜
func (a *App) GetTopGainers() ([]models.GainerItem, error) { return a.market.TopGainers(a.ctx) }

// GetTopIndustries 行业涨幅榜
func (a *App) GetTopIndustries() ([]models.IndustryItem, error) {
	return a.market.TopIndustries(a.ctx)
}

// ---- 设置 ----

// GetUserInfo 用户信息
func (a *App) GetUserInfo() (*models.UserInfo, error) { return a.settings.UserInfo(a.ctx) }

// UpdateEmail 更新邮箱
func (a *App) UpdateEmail(email string) error { return a.settings.UpdateEmail(a.ctx, email) }

// ChangePassword 修改密码
func (a *App) ChangePassword(oldPassword, newPassword string) error {
	return a.settings.ChangePassword(a.ctx, oldPassword, newPassword)
}

// SaveAIModel 保存 AI 模型配置
func (a *App) SaveAIModel(raw json.RawMessage) (bool, error) {
	var save models.AIModelSave
	if err := json.Unmarshal(raw, &save); err != nil {
		return false, err
	}
	return a.settings.SaveAIModel(a.ctx, save)
}

// SelectAIModel 切换当前模型
func (a *App) SelectAIModel(id string) error { return a.settings.SelectAIModel(a.ctx, id) }

// DeleteAIModel 删除模型配置
func (a *App) DeleteAIModel(id string) error { return a.settings.DeleteAIModel(a.ctx, id) }

// GetAnalysisHistory 一键分析历史
func (a *App) GetAnalysisHistory() ([]models.AnalysisRecord, error) {
	return a.settings.AnalysisHistory(a.ctx)
}
