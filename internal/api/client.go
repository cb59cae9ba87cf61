package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/run-bigpig/traefin/internal/logger"
)

var log = logger.New("API")

// DefaultBaseURL 后端默认地址
const DefaultBaseURL = "http://127.0.0.1:8000/api/"

// 后端信封里的 status 取值
const (
	StatusSuccess = "success"
	StatusInfo    = "info"
	StatusError   = "error"
)

// ErrUnauthorized 登录凭证失效（401/403）
// 客户端收到后必须已经执行全局登出，调用方只负责把用户引导回登录页
var ErrUnauthorized = errors.New("登录状态已失效")

// Error 后端返回的业务错误，保留服务端原话与错误码
type Error struct {
	StatusCode int    // HTTP 状态码
	Message    string // 服务端 message 字段
	Code       string // 服务端 code 字段，如 duplicate / missing_config
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("请求失败（HTTP %d）", e.StatusCode)
}

// Envelope 后端统一响应信封
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Code    string          `json:"code,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// CredentialSource 提供当前的访问令牌，由会话存储实现
type CredentialSource interface {
	Token() string
}

// Client REST 客户端
// 所有请求自动携带 Bearer 令牌；任何接口返回 401/403 都会触发
// onUnauthorized 回调（全局登出 + 跳转登录页），这是应用级约定。
type Client struct {
	baseURL        string
	http           *http.Client
	creds          CredentialSource
	onUnauthorized func()
}

// NewClient 创建 REST 客户端
func NewClient(baseURL string, creds CredentialSource) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		creds:   creds,
	}
}

// OnUnauthorized 注册授权失效回调
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// Get 发起 GET 请求
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Envelope, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// Post 发起 POST 请求
func (c *Client) Post(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

// Patch 发起 PATCH 请求
func (c *Client) Patch(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.do(ctx, http.MethodPatch, path, nil, body)
}

// Delete 发起 DELETE 请求
func (c *Client) Delete(ctx context.Context, path string, query url.Values) (*Envelope, error) {
	return c.do(ctx, http.MethodDelete, path, query, nil)
}

// do 执行请求并解析统一信封
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*Envelope, error) {
	u := c.baseURL + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("序列化请求体失败: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds != nil {
		if token := c.creds.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("网络请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		log.Warn("%s %s 返回 %d，触发全局登出", method, path, resp.StatusCode)
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return nil, ErrUnauthorized
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	var env Envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 400 {
				return nil, &Error{StatusCode: resp.StatusCode}
			}
			return nil, fmt.Errorf("解析响应失败: %w", err)
		}
	}

	if env.Status == StatusError || (resp.StatusCode >= 400 && env.Status != StatusSuccess && env.Status != StatusInfo) {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    env.Message,
			Code:       env.Code,
		}
	}
	return &env, nil
}

// DecodeData 把信封里的 data 字段解码到目标结构
func DecodeData(env *Envelope, out any) error {
	if env == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("解析数据失败: %w", err)
	}
	return nil
}
