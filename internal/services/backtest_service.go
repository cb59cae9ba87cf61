package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/run-bigpig/traefin/internal/api"
	"github.com/run-bigpig/traefin/internal/logger"
	"github.com/run-bigpig/traefin/internal/models"
	"github.com/run-bigpig/traefin/internal/storage"
)

var backtestLog = logger.New("Backtest")

// BacktestService 回测门面
// 只负责提交配置、把返回的报告原样写进唯一的"最近报告"槽位并返回给
// 调用方。报告页只读槽位，不发网络请求。失败时不改动任何持久化状态。
type BacktestService struct {
	log     *logger.Logger
	api     *api.Client
	store   *storage.Store
	emitter *Emitter
}

// NewBacktestService 创建回测服务
func NewBacktestService(client *api.Client, store *storage.Store, emitter *Emitter) *BacktestService {
	return &BacktestService{
		log:     backtestLog,
		api:     client,
		store:   store,
		emitter: emitter,
	}
}

// Run 提交回测
// 成功：整份报告覆盖写入最近报告槽位（只有一个槽位，不累积）并返回；
// 失败：服务端原话透给调用方展示，槽位保持原样
func (s *BacktestService) Run(ctx context.Context, config models.BacktestConfig) (*models.BacktestReport, error) {
	raw, err := s.api.RunBacktest(ctx, config)
	if err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "回测失败"))
		return nil, err
	}

	var report models.BacktestReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("解析回测报告失败: %w", err)
	}

	// 原样持久化，报告页展示的就是这份字节
	if err := s.store.SetRaw(storage.KeyLastBacktest, raw); err != nil {
		s.log.Warn("持久化回测报告失败: %v", err)
	}
	s.log.Info("回测完成 %s/%s，交易 %d 笔", config.Symbol, config.Template, report.Metrics.Trades)
	return &report, nil
}

// LatestReport 读取最近一次持久化的报告，没有时返回 false
func (s *BacktestService) LatestReport() (*models.BacktestReport, bool) {
	raw, ok := s.store.GetRaw(storage.KeyLastBacktest)
	if !ok {
		return nil, false
	}
	var report models.BacktestReport
	if err := json.Unmarshal(raw, &report); err != nil {
		s.log.Warn("本地回测报告损坏: %v", err)
		return nil, false
	}
	return &report, true
}
