package models

// ContextKind 助手上下文类型
type ContextKind string

const (
	ContextStock   ContextKind = "stock"   // 从个股视图带入
	ContextGeneral ContextKind = "general" // 泛化意图
)

// AssistantContext 一次性的助手上下文
// 由其他视图注入，助手消费一次后即被清空。Token 在注入时生成，
// 消费方只比较 Token，不比较内容：内容相同的两次注入是两个事件。
type AssistantContext struct {
	Kind    ContextKind `json:"kind"`
	Data    *StockInfo  `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Token   string      `json:"-"`
}

// Session 会话状态快照（用于前端一次性读取）
type Session struct {
	Token           string `json:"token"`
	RefreshToken    string `json:"refreshToken"`
	Username        string `json:"username"`
	IsDark          bool   `json:"isDark"`
	ActiveGroupID   string `json:"activeGroupId"`
	IsAssistantOpen bool   `json:"isAssistantOpen"`
}

// AuthTokens 登录接口返回的令牌对
type AuthTokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
