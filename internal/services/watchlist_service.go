package services

import (
	"context"
	"sync"

	"github.com/run-bigpig/traefin/internal/api"
	"github.com/run-bigpig/traefin/internal/logger"
	"github.com/run-bigpig/traefin/internal/models"
)

var watchlistLog = logger.New("Watchlist")

// AddOutcome 添加自选的结果
type AddOutcome int

const (
	AddFailed      AddOutcome = iota // 硬失败，计数不动
	Added                            // 成功，计数 +1
	AlreadyPresent                   // 已在分组内（info 状态），不算成功，计数不动
)

// WatchlistService 自选股成员与计数的对账器
// 计数是尽力而为的缓存：本地在 ±1 乐观调整，下一次权威拉取
// （watchlist/count/ 或分组列表携带的 item_count）总是直接覆盖，
// 从不做冲突比对。计数永不减到负数。
type WatchlistService struct {
	log     *logger.Logger
	api     *api.Client
	emitter *Emitter

	mu sync.RWMutex
	// 分组 ID -> 计数 / 成员集合 / 条目列表，default 分组用哨兵键
	counts  map[string]int
	members map[string]map[string]struct{}
	items   map[string][]models.WatchlistItem
}

// NewWatchlistService 创建自选服务
func NewWatchlistService(client *api.Client, emitter *Emitter) *WatchlistService {
	return &WatchlistService{
		log:     watchlistLog,
		api:     client,
		emitter: emitter,
		counts:  make(map[string]int),
		members: make(map[string]map[string]struct{}),
		items:   make(map[string][]models.WatchlistItem),
	}
}

// serverGroupID default 分组在请求参数里用空值表示
func serverGroupID(groupID string) string {
	if groupID == DefaultGroupID {
		return ""
	}
	return groupID
}

// FetchWatchlist 拉取某分组的全部成员并刷新成员集合
func (s *WatchlistService) FetchWatchlist(ctx context.Context, groupID string) ([]models.WatchlistItem, error) {
	items, err := s.api.Watchlist(ctx, serverGroupID(groupID))
	if err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "加载自选股失败"))
		return nil, err
	}

	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item.TsCode] = struct{}{}
	}

	s.mu.Lock()
	s.members[groupID] = set
	s.items[groupID] = items
	s.mu.Unlock()
	return items, nil
}

// Items 某分组最近一次拉取的成员列表
func (s *WatchlistService) Items(groupID string) []models.WatchlistItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.WatchlistItem, len(s.items[groupID]))
	copy(out, s.items[groupID])
	return out
}

// IsWatched 代码是否已在分组内（基于最近一次拉取的集合）
func (s *WatchlistService) IsWatched(groupID, tsCode string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[groupID][tsCode]
	return ok
}

// FetchAllCounts 应用启动时的一次性权威计数拉取
func (s *WatchlistService) FetchAllCounts(ctx context.Context) error {
	counts, err := s.api.WatchlistCounts(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.counts = make(map[string]int, len(counts.Groups)+1)
	s.counts[DefaultGroupID] = counts.Default
	for id, n := range counts.Groups {
		s.counts[id] = n
	}
	s.mu.Unlock()

	s.emitCounts()
	return nil
}

// ApplyGroupCounts 用权威计数覆盖本地缓存（只覆盖给出的分组）
func (s *WatchlistService) ApplyGroupCounts(counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	s.mu.Lock()
	for id, n := range counts {
		s.counts[id] = n
	}
	s.mu.Unlock()
	s.emitCounts()
}

// SetCount 直接设置某分组计数（如新建分组时置零）
func (s *WatchlistService) SetCount(groupID string, n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	s.counts[groupID] = n
	s.mu.Unlock()
	s.emitCounts()
}

// Count 某分组当前展示的计数
func (s *WatchlistService) Count(groupID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[groupID]
}

// Counts 全部计数的快照
func (s *WatchlistService) Counts() models.GroupCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := models.GroupCounts{Groups: make(map[string]int, len(s.counts))}
	for id, n := range s.counts {
		if id == DefaultGroupID {
			out.Default = n
			continue
		}
		out.Groups[id] = n
	}
	return out
}

// AddMember 添加自选（乐观计数）
// 成功：该分组计数恰好 +1；已存在（info）：计数不动，返回 AlreadyPresent；
// 硬失败：计数不动
func (s *WatchlistService) AddMember(ctx context.Context, groupID, tsCode, name string) (AddOutcome, error) {
	already, err := s.api.AddWatchlist(ctx, models.WatchlistItem{
		TsCode:  tsCode,
		Name:    name,
		GroupID: serverGroupID(groupID),
	})
	if err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "添加失败"))
		return AddFailed, err
	}
	if already {
		s.emitter.Notice(NoticeInfo, "该股票已在当前分组")
		return AlreadyPresent, nil
	}

	s.mu.Lock()
	s.counts[groupID]++
	if s.members[groupID] == nil {
		s.members[groupID] = make(map[string]struct{})
	}
	s.members[groupID][tsCode] = struct{}{}
	s.mu.Unlock()

	s.emitCounts()
	s.emitter.Notice(NoticeInfo, "已添加到自选")
	return Added, nil
}

// RemoveMember 移除自选，成功时计数 -1 并以零为下界
func (s *WatchlistService) RemoveMember(ctx context.Context, groupID, tsCode string) error {
	if err := s.api.RemoveWatchlist(ctx, tsCode, serverGroupID(groupID)); err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "移除失败"))
		return err
	}

	s.mu.Lock()
	if s.counts[groupID] > 0 {
		s.counts[groupID]--
	}
	delete(s.members[groupID], tsCode)
	for i, item := range s.items[groupID] {
		if item.TsCode == tsCode {
			s.items[groupID] = append(s.items[groupID][:i], s.items[groupID][i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.emitCounts()
	return nil
}

// emitCounts 推送计数快照到前端
func (s *WatchlistService) emitCounts() {
	s.emitter.Emit(EventWatchlistCounts, s.Counts())
}
