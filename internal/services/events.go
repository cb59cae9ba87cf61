package services

import (
	"context"
	"sync"

	"github.com/run-bigpig/traefin/internal/logger"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

var emitterLog = logger.New("Events")

// 事件名称常量
const (
	EventSessionChanged      = "session:changed"
	EventSessionExpired      = "session:expired"
	EventNotice              = "ui:notice"
	EventNavigate            = "ui:navigate"
	EventAssistantTranscript = "assistant:transcript"
	EventAssistantSending    = "assistant:sending"
	EventResearchProfile     = "research:profile"
	EventResearchEvents      = "research:events"
	EventResearchSignals     = "research:signals"
	EventMarketIndices       = "market:indices:update"
	EventWatchlistCounts     = "watchlist:counts:update"
)

// 提示级别
const (
	NoticeInfo    = "info"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Notice 用户可见提示
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// safeCall 安全调用，捕获 panic 避免崩溃
func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			emitterLog.Error("panic recovered: %v", r)
		}
	}()
	fn()
}

// Emitter 前端事件推送器
// 绑定 Wails 运行时上下文之前（含单元测试场景）所有推送都是空操作
type Emitter struct {
	mu  sync.RWMutex
	ctx context.Context
}

// NewEmitter 创建事件推送器
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Bind 绑定 Wails 运行时上下文
func (e *Emitter) Bind(ctx context.Context) {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()
}

// Emit 推送事件到前端
func (e *Emitter) Emit(event string, data ...any) {
	e.mu.RLock()
	ctx := e.ctx
	e.mu.RUnlock()

	if ctx == nil {
		return
	}
	safeCall(func() {
		runtime.EventsEmit(ctx, event, data...)
	})
}

// Notice 推送一条用户可见提示
func (e *Emitter) Notice(level, message string) {
	e.Emit(EventNotice, Notice{Level: level, Message: message})
}

// Navigate 要求前端跳转到指定路由
func (e *Emitter) Navigate(path string) {
	e.Emit(EventNavigate, path)
}
