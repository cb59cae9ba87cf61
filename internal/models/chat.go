package models

// ChatMessage 助手对话消息
type ChatMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"` // user / assistant
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	Error     string `json:"error,omitempty"` // 失败时的错误信息
}

// ChatTurn 发往后端的对话历史条目
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
