package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/run-bigpig/traefin/internal/api"
	"github.com/run-bigpig/traefin/internal/logger"
	"github.com/run-bigpig/traefin/internal/models"
	"github.com/run-bigpig/traefin/internal/storage"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var groupLog = logger.New("Group")

// 分组操作错误
var (
	ErrEmptyGroupName        = errors.New("分组名称不能为空")
	ErrDefaultGroupImmutable = errors.New("默认分组不可删除")
)

// 默认分组的兜底显示名，真实显示名只存在本地存储里
const fallbackDefaultGroupName = "默认分组"

// GroupService 自选分组注册表
// 服务端分组列表的本地镜像，外加隐式的 default 分组。
// 约束：当前选中分组要么是 default，要么必须出现在最新拉取的列表里；
// 当前分组被删除时，选择器随删除响应同步回落到 default。
type GroupService struct {
	log       *logger.Logger
	api       *api.Client
	session   *SessionService
	store     *storage.Store
	watchlist *WatchlistService
	emitter   *Emitter
	collator  *collate.Collator

	mu     sync.RWMutex
	groups []models.Group
}

// NewGroupService 创建分组服务
func NewGroupService(client *api.Client, session *SessionService, store *storage.Store, watchlist *WatchlistService, emitter *Emitter) *GroupService {
	return &GroupService{
		log:       groupLog,
		api:       client,
		session:   session,
		store:     store,
		watchlist: watchlist,
		emitter:   emitter,
		collator:  collate.New(language.Chinese),
	}
}

// Groups 当前缓存的分组列表（不含 default）
func (s *GroupService) Groups() []models.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Group, len(s.groups))
	copy(out, s.groups)
	return out
}

// DefaultGroupName 默认分组的显示名
func (s *GroupService) DefaultGroupName() string {
	if name, ok := s.store.GetString(storage.KeyDefaultGroupName); ok && strings.TrimSpace(name) != "" {
		return name
	}
	return fallbackDefaultGroupName
}

// ListGroups 拉取全量分组并替换本地镜像
// 失败时保留现有列表不动；成功时按中文排序、校验当前分组有效性，
// 并用响应携带的权威计数覆盖本地乐观计数。
func (s *GroupService) ListGroups(ctx context.Context) ([]models.Group, error) {
	groups, err := s.api.ListGroups(ctx)
	if err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "加载分组失败"))
		return nil, err
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return s.collator.CompareString(groups[i].Name, groups[j].Name) < 0
	})

	s.mu.Lock()
	s.groups = groups
	s.mu.Unlock()

	// 选择器指向的分组已不存在时同步回落
	active := s.session.ActiveGroupID()
	if active != DefaultGroupID && !containsGroup(groups, active) {
		s.session.SetActiveGroup(DefaultGroupID)
	}

	// 列表携带的 item_count 是权威值，直接覆盖乐观缓存
	counts := make(map[string]int, len(groups))
	for _, g := range groups {
		counts[g.ID] = g.ItemCount
	}
	s.watchlist.ApplyGroupCounts(counts)

	return s.Groups(), nil
}

// CreateGroup 新建分组并切换为当前分组
func (s *GroupService) CreateGroup(ctx context.Context, name string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyGroupName
	}

	group, err := s.api.CreateGroup(ctx, name)
	if err != nil {
		// 重名等冲突：提示后端原话，本地状态保持不变
		s.emitter.Notice(NoticeWarning, noticeText(err, "创建分组失败"))
		return nil, err
	}

	s.mu.Lock()
	s.groups = append(s.groups, *group)
	sort.SliceStable(s.groups, func(i, j int) bool {
		return s.collator.CompareString(s.groups[i].Name, s.groups[j].Name) < 0
	})
	s.mu.Unlock()

	s.watchlist.SetCount(group.ID, group.ItemCount)
	s.session.SetActiveGroup(group.ID)
	s.log.Info("创建分组 %s(%s)", group.Name, group.ID)
	return group, nil
}

// RenameGroup 重命名分组
// default 分组不存在于服务端，改名只写本地存储，不发请求
func (s *GroupService) RenameGroup(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyGroupName
	}

	if id == DefaultGroupID {
		if err := s.store.SetString(storage.KeyDefaultGroupName, name); err != nil {
			s.emitter.Notice(NoticeError, "保存分组名称失败")
			return err
		}
		s.emitter.Emit(EventSessionChanged, s.session.Snapshot())
		return nil
	}

	if err := s.api.RenameGroup(ctx, id, name); err != nil {
		s.emitter.Notice(NoticeWarning, noticeText(err, "重命名分组失败"))
		return err
	}
	_, err := s.ListGroups(ctx)
	return err
}

// DeleteGroup 删除分组（破坏性操作，确认交互在前端完成）
// 删除的是当前分组时，选择器在删除响应返回后立刻回落到 default
func (s *GroupService) DeleteGroup(ctx context.Context, id string) error {
	if id == DefaultGroupID {
		s.emitter.Notice(NoticeWarning, ErrDefaultGroupImmutable.Error())
		return ErrDefaultGroupImmutable
	}

	if err := s.api.DeleteGroup(ctx, id); err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "删除分组失败"))
		return err
	}

	if s.session.ActiveGroupID() == id {
		s.session.SetActiveGroup(DefaultGroupID)
	}

	s.mu.Lock()
	for i := range s.groups {
		if s.groups[i].ID == id {
			s.groups = append(s.groups[:i], s.groups[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	// 删除后刷新一次拿权威视图，失败只提示不回滚
	if _, err := s.ListGroups(ctx); err != nil {
		s.log.Warn("删除后刷新分组失败: %v", err)
	}
	return nil
}

// containsGroup 判断分组列表是否包含指定 ID
func containsGroup(groups []models.Group, id string) bool {
	for _, g := range groups {
		if g.ID == id {
			return true
		}
	}
	return false
}
