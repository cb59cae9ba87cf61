package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/run-bigpig/traefin/internal/api"
	"github.com/run-bigpig/traefin/internal/logger"
	"github.com/run-bigpig/traefin/internal/models"

	"github.com/google/uuid"
)

var assistantLog = logger.New("Assistant")

// 助手错误定义
var (
	ErrAssistantBusy = errors.New("请等待当前回复完成")
	ErrNoAIConfig    = errors.New("未配置 AI 服务")
	ErrEmptyMessage  = errors.New("消息内容不能为空")
)

// 开场白
const assistantGreeting = "您好，我是您的智能投资助手。我可以帮您分析自选股，或者回答市场相关问题。"

// 对话角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// AssistantService 智能助手控制器
// 持有只追加的对话记录；同一实例同一时刻只允许一个在途请求。
// 用户消息在发起请求前就追加且失败也不回滚，失败只追加错误条目。
type AssistantService struct {
	log     *logger.Logger
	api     *api.Client
	session *SessionService
	emitter *Emitter

	mu           sync.Mutex
	messages     []models.ChatMessage
	sending      bool
	lastCtxToken string
}

// NewAssistantService 创建助手控制器并订阅会话变更
func NewAssistantService(client *api.Client, session *SessionService, emitter *Emitter) *AssistantService {
	s := &AssistantService{
		log:     assistantLog,
		api:     client,
		session: session,
		emitter: emitter,
		messages: []models.ChatMessage{
			newMessage(RoleAssistant, assistantGreeting),
		},
	}
	// 会话存储可能为同一个上下文值重复通知，消费去重在 consumeInjectedContext 里做
	session.Subscribe(s.consumeInjectedContext)
	return s
}

// newMessage 构造一条对话消息
func newMessage(role, content string) models.ChatMessage {
	return models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Messages 对话记录快照
func (s *AssistantService) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// IsSending 是否有在途请求
func (s *AssistantService) IsSending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// SendFreeText 发送自由文本
func (s *AssistantService) SendFreeText(ctx context.Context, text string) error {
	return s.send(ctx, text, nil)
}

// send 追加用户消息并发起一轮对话
func (s *AssistantService) send(ctx context.Context, text string, stock *models.StockInfo) error {
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return ErrAssistantBusy
	}
	s.sending = true
	// 乐观追加：用户消息立即上屏，请求失败也不撤回
	s.messages = append(s.messages, newMessage(RoleUser, text))
	history := s.historyLocked()
	s.mu.Unlock()
	s.emitTranscript()
	s.emitSending(true)

	reply, err := s.api.Chat(ctx, history, stock)

	s.mu.Lock()
	s.sending = false
	if err != nil {
		s.messages = append(s.messages, s.failureMessage(err))
	} else {
		s.messages = append(s.messages, newMessage(RoleAssistant, reply))
	}
	s.mu.Unlock()
	s.emitTranscript()
	s.emitSending(false)

	if err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "回复失败，请稍后重试"))
		return err
	}
	return nil
}

// RunBulkAnalysis 一键分析某分组的自选股
// 后端返回 missing_config 时引导用户去设置页配置模型，不追加助手消息
func (s *AssistantService) RunBulkAnalysis(ctx context.Context, groupID string) error {
	label := "当前分组"
	if groupID == DefaultGroupID || groupID == "" {
		groupID = DefaultGroupID
		label = "默认分组"
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return ErrAssistantBusy
	}
	s.sending = true
	s.messages = append(s.messages, newMessage(RoleUser, fmt.Sprintf("分析%s自选股", label)))
	s.mu.Unlock()
	s.emitTranscript()
	s.emitSending(true)

	reply, err := s.api.AnalyzeWatchlist(ctx, serverGroupID(groupID))

	s.mu.Lock()
	s.sending = false
	if err != nil {
		if isMissingConfig(err) {
			s.mu.Unlock()
			s.emitSending(false)
			s.emitter.Notice(NoticeWarning, ErrNoAIConfig.Error())
			s.emitter.Navigate("/settings")
			return ErrNoAIConfig
		}
		s.messages = append(s.messages, s.failureMessage(err))
	} else {
		s.messages = append(s.messages, newMessage(RoleAssistant, reply))
	}
	s.mu.Unlock()
	s.emitTranscript()
	s.emitSending(false)

	if err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "分析失败"))
		return err
	}
	return nil
}

// consumeInjectedContext 消费其他视图注入的一次性上下文
// 只比较注入令牌，不比较内容：同一个值被重复通知只发送一次，
// 内容相同的新注入是新事件，会再次发送。
func (s *AssistantService) consumeInjectedContext() {
	injected := s.session.AssistantContext()
	if injected == nil {
		return
	}

	s.mu.Lock()
	if injected.Token == s.lastCtxToken {
		s.mu.Unlock()
		return
	}
	s.lastCtxToken = injected.Token
	s.mu.Unlock()

	// 先清槽位再发送，发送失败也不会重复消费
	s.session.SetAssistantContext(nil)

	text, stock := openingForContext(injected)
	if err := s.send(context.Background(), text, stock); err != nil {
		s.log.Warn("上下文消息发送失败: %v", err)
	}
}

// openingForContext 根据注入上下文合成开场消息
func openingForContext(injected *models.AssistantContext) (string, *models.StockInfo) {
	if injected.Kind == models.ContextStock && injected.Data != nil {
		stock := injected.Data
		label := stock.Name
		if label == "" {
			label = stock.TsCode
		}
		return fmt.Sprintf("帮我分析一下%s（%s）", label, stock.TsCode), stock
	}
	if injected.Message != "" {
		return injected.Message, nil
	}
	return "帮我分析一下当前市场", nil
}

// failureMessage 失败时追加的错误条目（不撤回用户消息）
func (s *AssistantService) failureMessage(err error) models.ChatMessage {
	msg := newMessage(RoleAssistant, "回复失败，请稍后重试")
	msg.Error = noticeText(err, "请求失败")
	return msg
}

// isMissingConfig 判断是否为未配置 AI 模型的特殊响应
func isMissingConfig(err error) bool {
	var apiErr *api.Error
	return errors.As(err, &apiErr) && apiErr.Code == api.CodeMissingConfig
}

// historyLocked 当前可见对话历史（跳过错误条目），调用方需持有锁
func (s *AssistantService) historyLocked() []models.ChatTurn {
	history := make([]models.ChatTurn, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Error != "" {
			continue
		}
		history = append(history, models.ChatTurn{Role: m.Role, Content: m.Content})
	}
	return history
}

// emitTranscript 推送最新对话记录
func (s *AssistantService) emitTranscript() {
	s.emitter.Emit(EventAssistantTranscript, s.Messages())
}

// emitSending 推送在途状态
func (s *AssistantService) emitSending(sending bool) {
	s.emitter.Emit(EventAssistantSending, sending)
}
