package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/run-bigpig/traefin/internal/api"
	"github.com/run-bigpig/traefin/internal/logger"
	"github.com/run-bigpig/traefin/internal/models"

	"github.com/sashabaranov/go-openai"
)

var settingsLog = logger.New("Settings")

// 设置页错误
var ErrEmptyAPIKey = errors.New("请输入 API Key")

// 模型连通性校验的超时时间
const verifyTimeout = 15 * time.Second

// SettingsService 账户与 AI 模型配置
// AI 配置保存到后端之前，先用用户填写的 Base URL / Key 直连服务商
// 校验一次连通性，避免把无效配置存进去
type SettingsService struct {
	log     *logger.Logger
	api     *api.Client
	emitter *Emitter
}

// NewSettingsService 创建设置服务
func NewSettingsService(client *api.Client, emitter *Emitter) *SettingsService {
	return &SettingsService{
		log:     settingsLog,
		api:     client,
		emitter: emitter,
	}
}

// UserInfo 用户信息
func (s *SettingsService) UserInfo(ctx context.Context) (*models.UserInfo, error) {
	info, err := s.api.UserInfo(ctx)
	if err != nil {
		s.emitter.Notice(NoticeError, "无法获取用户信息")
		return nil, err
	}
	return info, nil
}

// UpdateEmail 更新邮箱
func (s *SettingsService) UpdateEmail(ctx context.Context, email string) error {
	if err := s.api.UpdateEmail(ctx, email); err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "更新失败"))
		return err
	}
	s.emitter.Notice(NoticeInfo, "设置已更新")
	return nil
}

// ChangePassword 修改密码
func (s *SettingsService) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if err := s.api.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "密码修改失败"))
		return err
	}
	s.emitter.Notice(NoticeInfo, "密码修改成功")
	return nil
}

// VerifyAIModel 校验模型配置的连通性
// 用服务商的模型列表接口做探活；部分服务商不返回完整列表，
// 所以模型不在列表里只告警，不算失败
func (s *SettingsService) VerifyAIModel(ctx context.Context, baseURL, apiKey, model string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return ErrEmptyAPIKey
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = normalizeBaseURL(baseURL)
	client := openai.NewClientWithConfig(cfg)

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	list, err := client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("模型连通性校验失败: %w", err)
	}
	for _, m := range list.Models {
		if m.ID == model {
			return nil
		}
	}
	s.log.Warn("模型 %s 不在服务商列表中（共 %d 个）", model, len(list.Models))
	return nil
}

// normalizeBaseURL 服务商基地址统一成带 /v1 的形式
func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return "https://api.deepseek.com/v1"
	}
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}
	return baseURL
}

// SaveAIModel 校验后保存 AI 模型配置
// 配置重复时后端返回 info+duplicate，提示用户但不算错误
func (s *SettingsService) SaveAIModel(ctx context.Context, save models.AIModelSave) (duplicate bool, err error) {
	if err := s.VerifyAIModel(ctx, save.BaseURL, save.APIKey, save.Model); err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "模型校验失败"))
		return false, err
	}

	duplicate, err = s.api.SaveAIModel(ctx, save)
	if err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "保存失败"))
		return false, err
	}
	if duplicate {
		s.emitter.Notice(NoticeWarning, "该模型配置已存在，请勿重复添加")
		return true, nil
	}
	s.emitter.Notice(NoticeInfo, "AI 模型已保存")
	return false, nil
}

// SelectAIModel 切换当前使用的模型
func (s *SettingsService) SelectAIModel(ctx context.Context, id string) error {
	if err := s.api.SelectAIModel(ctx, id); err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "切换失败"))
		return err
	}
	s.emitter.Notice(NoticeInfo, "已切换当前模型")
	return nil
}

// DeleteAIModel 删除模型配置
func (s *SettingsService) DeleteAIModel(ctx context.Context, id string) error {
	if err := s.api.DeleteAIModel(ctx, id); err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "删除失败"))
		return err
	}
	s.emitter.Notice(NoticeInfo, "已删除")
	return nil
}

// AnalysisHistory 一键分析历史记录
func (s *SettingsService) AnalysisHistory(ctx context.Context) ([]models.AnalysisRecord, error) {
	records, err := s.api.AnalysisHistory(ctx)
	if err != nil {
		s.emitter.Notice(NoticeError, noticeText(err, "加载分析历史失败"))
		return nil, err
	}
	return records, nil
}
