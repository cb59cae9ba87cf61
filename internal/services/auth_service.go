package services

import (
	"context"
	"errors"
	"strings"

	"github.com/run-bigpig/traefin/internal/api"
	"github.com/run-bigpig/traefin/internal/logger"
)

var authLog = logger.New("Auth")

// 认证参数错误
var ErrEmptyCredentials = errors.New("用户名和密码不能为空")

// AuthService 登录 / 注册
// 表单校验在前端完成，这里只做最低限度的防御
type AuthService struct {
	log     *logger.Logger
	api     *api.Client
	session *SessionService
	emitter *Emitter
}

// NewAuthService 创建认证服务
func NewAuthService(client *api.Client, session *SessionService, emitter *Emitter) *AuthService {
	return &AuthService{
		log:     authLog,
		api:     client,
		session: session,
		emitter: emitter,
	}
}

// Login 登录并写入会话
func (s *AuthService) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrEmptyCredentials
	}

	tokens, err := s.api.Login(ctx, username, password)
	if err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "登录失败"))
		return err
	}
	return s.session.SetAuth(tokens.Access, tokens.Refresh, username)
}

// Register 注册账号，后端返回令牌时直接登录
func (s *AuthService) Register(ctx context.Context, username, password, email string) (loggedIn bool, err error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, ErrEmptyCredentials
	}

	tokens, err := s.api.Register(ctx, username, password, email)
	if err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "注册失败"))
		return false, err
	}
	if tokens == nil {
		return false, nil
	}
	if err := s.session.SetAuth(tokens.Access, tokens.Refresh, username); err != nil {
		return false, err
	}
	return true, nil
}

// noticeText 优先用服务端原话，否则用兜底提示
func noticeText(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
