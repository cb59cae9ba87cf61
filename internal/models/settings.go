package models

// AIModelConfig 已保存的 AI 模型配置（Key 只回显掩码）
type AIModelConfig struct {
	ID               string `json:"id"`
	Provider         string `json:"provider"`
	BaseURL          string `json:"base_url"`
	Model            string `json:"model"`
	APIKeyConfigured bool   `json:"api_key_configured"`
	APIKeyPreview    string `json:"api_key_preview,omitempty"`
}

// UserProfile 用户配置
type UserProfile struct {
	AIProvider      string          `json:"ai_provider,omitempty"`
	AIBaseURL       string          `json:"ai_base_url,omitempty"`
	AIModel         string          `json:"ai_model,omitempty"`
	AIModels        []AIModelConfig `json:"ai_models,omitempty"`
	ActiveAIModelID string          `json:"active_ai_model_id,omitempty"`
}

// UserInfo 用户信息
type UserInfo struct {
	Username string      `json:"username"`
	Email    string      `json:"email,omitempty"`
	Profile  UserProfile `json:"profile"`
}

// AIModelSave 保存 AI 模型配置的请求体
type AIModelSave struct {
	Provider  string `json:"provider"`
	BaseURL   string `json:"base_url"`
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	SetActive bool   `json:"set_active"`
}

// AnalysisRecord 一键分析历史记录
type AnalysisRecord struct {
	ID        string `json:"id"`
	GroupID   string `json:"group_id,omitempty"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}
