package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/run-bigpig/traefin/internal/models"
)

// handleModelList 注册 OpenAI 兼容的模型列表接口
func handleModelList(backend *fakeBackend, ids ...string) {
	backend.handle("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		type model struct {
			ID     string `json:"id"`
			Object string `json:"object"`
		}
		list := struct {
			Object string  `json:"object"`
			Data   []model `json:"data"`
		}{Object: "list"}
		for _, id := range ids {
			list.Data = append(list.Data, model{ID: id, Object: "model"})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	})
}

// TestVerifyAIModel 测试模型连通性校验
func TestVerifyAIModel(t *testing.T) {
	t.Run("空Key直接拒绝", func(t *testing.T) {
		app := newTestApp(t, newFakeBackend(t))
		err := app.settings.VerifyAIModel(context.Background(), "http://example.com", "  ", "deepseek-chat")
		if !errors.Is(err, ErrEmptyAPIKey) {
			t.Fatalf("期望 ErrEmptyAPIKey，实际 %v", err)
		}
	})

	t.Run("模型在列表中", func(t *testing.T) {
		backend := newFakeBackend(t)
		handleModelList(backend, "deepseek-chat", "deepseek-reasoner")
		app := newTestApp(t, backend)

		err := app.settings.VerifyAIModel(context.Background(), backend.server.URL, "sk-test", "deepseek-chat")
		if err != nil {
			t.Fatalf("校验失败: %v", err)
		}
	})

	t.Run("模型不在列表只告警不报错", func(t *testing.T) {
		backend := newFakeBackend(t)
		handleModelList(backend, "deepseek-chat")
		app := newTestApp(t, backend)

		err := app.settings.VerifyAIModel(context.Background(), backend.server.URL, "sk-test", "gpt-99")
		if err != nil {
			t.Fatalf("不完整的列表不应导致失败: %v", err)
		}
	})

	t.Run("服务商不可达", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.handle("/v1/models", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		app := newTestApp(t, backend)

		err := app.settings.VerifyAIModel(context.Background(), backend.server.URL, "sk-bad", "deepseek-chat")
		if err == nil {
			t.Fatal("探活失败时应返回错误")
		}
	})
}

// TestNormalizeBaseURL 测试服务商地址归一化
func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "https://api.deepseek.com/v1"},
		{"https://api.deepseek.com", "https://api.deepseek.com/v1"},
		{"https://api.deepseek.com/", "https://api.deepseek.com/v1"},
		{"https://api.deepseek.com/v1", "https://api.deepseek.com/v1"},
		{"  https://api.moonshot.cn/v1/  ", "https://api.moonshot.cn/v1"},
	}
	for _, c := range cases {
		if got := normalizeBaseURL(c.in); got != c.want {
			t.Errorf("normalizeBaseURL(%q) = %q，期望 %q", c.in, got, c.want)
		}
	}
}

// TestSaveAIModel 测试模型配置保存
func TestSaveAIModel(t *testing.T) {
	t.Run("校验通过后保存", func(t *testing.T) {
		backend := newFakeBackend(t)
		handleModelList(backend, "deepseek-chat")
		backend.handle("/ai-models/", func(w http.ResponseWriter, r *http.Request) {
			writeSuccess(w, nil)
		})
		app := newTestApp(t, backend)

		duplicate, err := app.settings.SaveAIModel(context.Background(), models.AIModelSave{
			Provider: "deepseek",
			BaseURL:  backend.server.URL,
			Model:    "deepseek-chat",
			APIKey:   "sk-test",
		})
		if err != nil {
			t.Fatalf("保存失败: %v", err)
		}
		if duplicate {
			t.Error("首次保存不应判重")
		}
	})

	t.Run("重复配置提示但不报错", func(t *testing.T) {
		backend := newFakeBackend(t)
		handleModelList(backend, "deepseek-chat")
		backend.handle("/ai-models/", func(w http.ResponseWriter, r *http.Request) {
			writeInfo(w, "该模型配置已存在", "duplicate")
		})
		app := newTestApp(t, backend)

		duplicate, err := app.settings.SaveAIModel(context.Background(), models.AIModelSave{
			Provider: "deepseek",
			BaseURL:  backend.server.URL,
			Model:    "deepseek-chat",
			APIKey:   "sk-test",
		})
		if err != nil {
			t.Fatalf("判重不应报错: %v", err)
		}
		if !duplicate {
			t.Error("应返回 duplicate=true")
		}
	})

	t.Run("校验失败不发保存请求", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.handle("/v1/models", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		var saved atomic.Int32
		backend.handle("/ai-models/", func(w http.ResponseWriter, r *http.Request) {
			saved.Add(1)
			writeSuccess(w, nil)
		})
		app := newTestApp(t, backend)

		if _, err := app.settings.SaveAIModel(context.Background(), models.AIModelSave{
			BaseURL: backend.server.URL,
			Model:   "deepseek-chat",
			APIKey:  "sk-bad",
		}); err == nil {
			t.Fatal("校验失败时应返回错误")
		}
		if saved.Load() != 0 {
			t.Error("校验失败不应发出保存请求")
		}
	})
}

// TestUserSettings 测试账户设置
func TestUserSettings(t *testing.T) {
	t.Run("用户信息", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.handle("/user/info/", func(w http.ResponseWriter, r *http.Request) {
			writeSuccess(w, models.UserInfo{
				Username: "zhangsan",
				Email:    "zs@example.com",
				Profile:  models.UserProfile{ActiveAIModelID: "m1"},
			})
		})
		app := newTestApp(t, backend)

		info, err := app.settings.UserInfo(context.Background())
		if err != nil {
			t.Fatalf("获取用户信息失败: %v", err)
		}
		if info.Username != "zhangsan" || info.Profile.ActiveAIModelID != "m1" {
			t.Errorf("用户信息不符: %+v", info)
		}
	})

	t.Run("修改密码失败保留服务端原话", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.handle("/user/change-password/", func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusBadRequest, "旧密码不正确", "")
		})
		app := newTestApp(t, backend)

		err := app.settings.ChangePassword(context.Background(), "old", "new")
		if err == nil || err.Error() != "旧密码不正确" {
			t.Errorf("应保留服务端原话: %v", err)
		}
	})

	t.Run("分析历史", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.handle("/ai-history/", func(w http.ResponseWriter, r *http.Request) {
			writeSuccess(w, []models.AnalysisRecord{
				{ID: "r1", Content: "整体偏多", CreatedAt: "2026-08-01 09:30:00"},
			})
		})
		app := newTestApp(t, backend)

		records, err := app.settings.AnalysisHistory(context.Background())
		if err != nil {
			t.Fatalf("加载分析历史失败: %v", err)
		}
		if len(records) != 1 || records[0].ID != "r1" {
			t.Errorf("分析历史不符: %+v", records)
		}
	})
}
