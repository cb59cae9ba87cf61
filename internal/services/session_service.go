package services

import (
	"strconv"
	"sync"

	"github.com/run-bigpig/traefin/internal/logger"
	"github.com/run-bigpig/traefin/internal/models"
	"github.com/run-bigpig/traefin/internal/storage"

	"github.com/google/uuid"
)

var sessionLog = logger.New("Session")

// DefaultGroupID 隐式默认分组的哨兵 ID，服务端列表里永远不会出现它
const DefaultGroupID = "default"

// 助手面板默认宽度（像素）
const defaultAssistantPanelWidth = 320

// SessionService 进程级会话存储
// 唯一的全局可变共享状态：登录凭证、主题、当前分组、助手面板开关
// 与一次性的助手上下文。其他组件只读它，写入必须走这里的修改器。
// 凭证三元组只允许 SetAuth / Logout 写入，且两者保证内存与本地
// 存储在返回后完全一致（整体原子落盘，不存在半写）。
type SessionService struct {
	log     *logger.Logger
	store   *storage.Store
	emitter *Emitter

	mu            sync.RWMutex
	token         string
	refreshToken  string
	username      string
	isDark        bool
	activeGroupID string
	assistantOpen bool
	assistantCtx  *models.AssistantContext

	subMu       sync.RWMutex
	subscribers []func()
}

// NewSessionService 从本地存储恢复会话
func NewSessionService(store *storage.Store, emitter *Emitter) *SessionService {
	s := &SessionService{
		log:           sessionLog,
		store:         store,
		emitter:       emitter,
		activeGroupID: DefaultGroupID,
	}
	s.token, _ = store.GetString(storage.KeyToken)
	s.refreshToken, _ = store.GetString(storage.KeyRefreshToken)
	s.username, _ = store.GetString(storage.KeyUsername)
	return s
}

// Subscribe 注册状态变更回调
// 任何一次修改器调用都会通知全部订阅者，同一个值可能被重复通知，
// 订阅者自己负责去重（见助手控制器的上下文消费）。
func (s *SessionService) Subscribe(fn func()) {
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.subMu.Unlock()
}

// notify 通知订阅者并推送会话快照
func (s *SessionService) notify() {
	s.subMu.RLock()
	subs := make([]func(), len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn()
	}
	if s.emitter != nil {
		s.emitter.Emit(EventSessionChanged, s.Snapshot())
	}
}

// Snapshot 会话状态快照
func (s *SessionService) Snapshot() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Session{
		Token:           s.token,
		RefreshToken:    s.refreshToken,
		Username:        s.username,
		IsDark:          s.isDark,
		ActiveGroupID:   s.activeGroupID,
		IsAssistantOpen: s.assistantOpen,
	}
}

// Token 当前访问令牌，实现 api.CredentialSource
func (s *SessionService) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Username 当前用户名
func (s *SessionService) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// IsLoggedIn 是否已登录
func (s *SessionService) IsLoggedIn() bool {
	return s.Token() != ""
}

// SetAuth 写入凭证三元组，先落盘再更新内存
func (s *SessionService) SetAuth(token, refreshToken, username string) error {
	err := s.store.SetMany(map[string]string{
		storage.KeyToken:        token,
		storage.KeyRefreshToken: refreshToken,
		storage.KeyUsername:     username,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.refreshToken = refreshToken
	s.username = username
	s.mu.Unlock()

	s.log.Info("用户 %s 登录", username)
	s.notify()
	return nil
}

// Logout 清空凭证三元组，可重复调用
func (s *SessionService) Logout() {
	// 键不存在时 Delete 是空操作，重复登出不报错
	if err := s.store.Delete(storage.KeyToken, storage.KeyRefreshToken, storage.KeyUsername); err != nil {
		s.log.Warn("清理本地凭证失败: %v", err)
	}

	s.mu.Lock()
	s.token = ""
	s.refreshToken = ""
	s.username = ""
	s.mu.Unlock()

	s.notify()
}

// IsDark 当前主题
func (s *SessionService) IsDark() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isDark
}

// ToggleTheme 切换明暗主题
func (s *SessionService) ToggleTheme() {
	s.mu.Lock()
	s.isDark = !s.isDark
	s.mu.Unlock()
	s.notify()
}

// ActiveGroupID 当前选中的分组
func (s *SessionService) ActiveGroupID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeGroupID
}

// SetActiveGroup 切换当前分组
func (s *SessionService) SetActiveGroup(id string) {
	if id == "" {
		id = DefaultGroupID
	}
	s.mu.Lock()
	s.activeGroupID = id
	s.mu.Unlock()
	s.notify()
}

// IsAssistantOpen 助手面板是否展开
func (s *SessionService) IsAssistantOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assistantOpen
}

// SetAssistantOpen 展开/收起助手面板
func (s *SessionService) SetAssistantOpen(open bool) {
	s.mu.Lock()
	s.assistantOpen = open
	s.mu.Unlock()
	s.notify()
}

// AssistantContext 当前待消费的助手上下文，可能为 nil
func (s *SessionService) AssistantContext() *models.AssistantContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assistantCtx
}

// SetAssistantContext 写入一次性助手上下文
// 每次注入都盖上新的消费令牌：内容相同的两次注入是两个独立事件，
// 同一个值被重复通知则只消费一次。
func (s *SessionService) SetAssistantContext(ctx *models.AssistantContext) {
	if ctx != nil {
		ctx.Token = uuid.NewString()
	}
	s.mu.Lock()
	s.assistantCtx = ctx
	s.mu.Unlock()
	s.notify()
}

// AssistantPanelWidth 助手面板宽度偏好
func (s *SessionService) AssistantPanelWidth() int {
	raw, ok := s.store.GetString(storage.KeyAIPanelWidth)
	if !ok {
		return defaultAssistantPanelWidth
	}
	width, err := strconv.Atoi(raw)
	if err != nil || width <= 0 {
		return defaultAssistantPanelWidth
	}
	return width
}

// SetAssistantPanelWidth 保存助手面板宽度偏好
func (s *SessionService) SetAssistantPanelWidth(width int) {
	if width <= 0 {
		return
	}
	if err := s.store.SetString(storage.KeyAIPanelWidth, strconv.Itoa(width)); err != nil {
		s.log.Warn("保存面板宽度失败: %v", err)
	}
}
