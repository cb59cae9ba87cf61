package services

import (
	"context"
	"sync"
	"time"

	"github.com/run-bigpig/traefin/internal/api"
	"github.com/run-bigpig/traefin/internal/logger"
	"github.com/run-bigpig/traefin/internal/models"
)

var marketLog = logger.New("Market")

// MarketService 行情数据服务
// 市场概览页的指数、涨幅榜、行业榜三路数据各自独立拉取；
// 另带一个低频自动刷新循环，把最新指数与分组计数推给前端。
type MarketService struct {
	log       *logger.Logger
	api       *api.Client
	watchlist *WatchlistService
	emitter   *Emitter

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// NewMarketService 创建行情服务
func NewMarketService(client *api.Client, watchlist *WatchlistService, emitter *Emitter) *MarketService {
	return &MarketService{
		log:       marketLog,
		api:       client,
		watchlist: watchlist,
		emitter:   emitter,
	}
}

// Search 搜索个股
func (s *MarketService) Search(ctx context.Context, q string) ([]models.StockInfo, error) {
	stocks, err := s.api.SearchStocks(ctx, q)
	if err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "搜索失败"))
		return nil, err
	}
	return stocks, nil
}

// Indices 大盘指数
func (s *MarketService) Indices(ctx context.Context) ([]models.MarketIndex, error) {
	return s.api.MarketIndices(ctx)
}

// TopGainers 涨幅榜
func (s *MarketService) TopGainers(ctx context.Context) ([]models.GainerItem, error) {
	return s.api.TopGainers(ctx)
}

// TopIndustries 行业涨幅榜
func (s *MarketService) TopIndustries(ctx context.Context) ([]models.IndustryItem, error) {
	return s.api.TopIndustries(ctx)
}

// StartAutoRefresh 启动自动刷新循环
func (s *MarketService) StartAutoRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	go s.refreshLoop(s.stopChan)
}

// Stop 停止自动刷新
func (s *MarketService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		close(s.stopChan)
		s.running = false
	}
}

// refreshLoop 刷新循环：指数 30 秒一次，分组计数 5 分钟一次
func (s *MarketService) refreshLoop(stop <-chan struct{}) {
	indexTicker := time.NewTicker(30 * time.Second)
	countTicker := time.NewTicker(5 * time.Minute)
	defer indexTicker.Stop()
	defer countTicker.Stop()

	// 启动时立即推送一次
	safeCall(s.pushIndices)

	for {
		select {
		case <-stop:
			return
		case <-indexTicker.C:
			safeCall(s.pushIndices)
		case <-countTicker.C:
			safeCall(s.pushCounts)
		}
	}
}

// pushIndices 推送最新指数
func (s *MarketService) pushIndices() {
	indices, err := s.api.MarketIndices(context.Background())
	if err != nil {
		return
	}
	s.emitter.Emit(EventMarketIndices, indices)
}

// pushCounts 拉取权威计数并推送（覆盖本地乐观计数）
func (s *MarketService) pushCounts() {
	if err := s.watchlist.FetchAllCounts(context.Background()); err != nil {
		s.log.Debug("刷新分组计数失败: %v", err)
	}
}
