package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/run-bigpig/traefin/internal/api"
	"github.com/run-bigpig/traefin/internal/logger"
	"github.com/run-bigpig/traefin/internal/models"
)

var researchLog = logger.New("Research")

// 个股研究错误
var ErrNoResearchStock = errors.New("个股信息尚未加载")

// ResearchView 个股研究视图状态
type ResearchView struct {
	TsCode       string              `json:"ts_code"`
	Stock        *models.StockInfo   `json:"stock,omitempty"`
	Events       []models.EventItem  `json:"events"`
	Signals      []models.SignalItem `json:"signals"`
	TimingReport json.RawMessage     `json:"timing_report,omitempty"`
}

// ResearchService 个股研究聚合器
// 三路数据（概况、事件时间线、信号解释+时机报告）并发拉取、互不等待，
// 任一路失败不影响其余两路。视图代次号充当取消标志：关闭视图或打开
// 新个股后，迟到的响应直接丢弃（请求本身不中断，只丢结果）。
type ResearchService struct {
	log       *logger.Logger
	api       *api.Client
	session   *SessionService
	watchlist *WatchlistService
	emitter   *Emitter

	mu   sync.RWMutex
	gen  int
	view *ResearchView
}

// NewResearchService 创建个股研究服务
func NewResearchService(client *api.Client, session *SessionService, watchlist *WatchlistService, emitter *Emitter) *ResearchService {
	return &ResearchService{
		log:       researchLog,
		api:       client,
		session:   session,
		watchlist: watchlist,
		emitter:   emitter,
	}
}

// Open 打开个股研究视图，立即返回，三路数据各自就绪后分别推送
func (s *ResearchService) Open(ctx context.Context, tsCode string) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.view = &ResearchView{TsCode: tsCode}
	s.mu.Unlock()

	symbol := strings.SplitN(tsCode, ".", 2)[0]

	go s.fetchProfile(ctx, gen, symbol)
	go s.fetchEvents(ctx, gen, tsCode)
	go s.fetchSignals(ctx, gen, tsCode)
}

// Close 关闭视图，丢弃所有迟到的响应
func (s *ResearchService) Close() {
	s.mu.Lock()
	s.gen++
	s.view = nil
	s.mu.Unlock()
}

// Current 当前视图快照，未打开时返回 nil
func (s *ResearchService) Current() *ResearchView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.view == nil {
		return nil
	}
	out := *s.view
	return &out
}

// deliver 把一路结果写入视图；代次号不匹配说明视图已关闭或已切换，丢弃
func (s *ResearchService) deliver(gen int, event string, apply func(*ResearchView)) {
	s.mu.Lock()
	if gen != s.gen || s.view == nil {
		s.mu.Unlock()
		return
	}
	apply(s.view)
	snapshot := *s.view
	s.mu.Unlock()

	s.emitter.Emit(event, snapshot)
}

// stale 判断某代次是否已过期（用于抑制迟到的错误提示）
func (s *ResearchService) stale(gen int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return gen != s.gen
}

// fetchProfile 拉取个股概况（搜索接口的第一条命中）
func (s *ResearchService) fetchProfile(ctx context.Context, gen int, symbol string) {
	stocks, err := s.api.SearchStocks(ctx, symbol)
	if err != nil {
		if !s.stale(gen) {
			s.emitter.Notice(NoticeError, "加载个股信息失败")
		}
		return
	}
	var stock *models.StockInfo
	if len(stocks) > 0 {
		stock = &stocks[0]
	}
	s.deliver(gen, EventResearchProfile, func(v *ResearchView) {
		v.Stock = stock
	})
}

// fetchEvents 拉取事件时间线
func (s *ResearchService) fetchEvents(ctx context.Context, gen int, tsCode string) {
	events, err := s.api.Events(ctx, tsCode, "", "")
	if err != nil {
		if !s.stale(gen) {
			s.emitter.Notice(NoticeError, "加载事件失败")
		}
		return
	}
	s.deliver(gen, EventResearchEvents, func(v *ResearchView) {
		v.Events = events
	})
}

// fetchSignals 拉取信号解释与买卖时机综合报告
func (s *ResearchService) fetchSignals(ctx context.Context, gen int, tsCode string) {
	payload, err := s.api.Signals(ctx, tsCode)
	if err != nil {
		if !s.stale(gen) {
			s.emitter.Notice(NoticeError, "加载信号解释失败")
		}
		return
	}
	s.deliver(gen, EventResearchSignals, func(v *ResearchView) {
		v.Signals = payload.Signals
		v.TimingReport = payload.TimingReport
	})
}

// AddCurrentToActiveGroup 把当前个股加入当前分组
func (s *ResearchService) AddCurrentToActiveGroup(ctx context.Context) (AddOutcome, error) {
	view := s.Current()
	if view == nil || view.Stock == nil {
		return AddFailed, ErrNoResearchStock
	}
	groupID := s.session.ActiveGroupID()
	return s.watchlist.AddMember(ctx, groupID, view.Stock.TsCode, view.Stock.Name)
}

// OpenAssistantWithCurrent 带着当前个股打开助手面板
func (s *ResearchService) OpenAssistantWithCurrent() error {
	view := s.Current()
	if view == nil || view.Stock == nil {
		return ErrNoResearchStock
	}
	// 先开面板再注入上下文：注入会同步触发助手的消费流程
	s.session.SetAssistantOpen(true)
	s.session.SetAssistantContext(&models.AssistantContext{
		Kind: models.ContextStock,
		Data: view.Stock,
	})
	return nil
}
