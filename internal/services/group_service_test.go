package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/run-bigpig/traefin/internal/models"
	"github.com/run-bigpig/traefin/internal/storage"
)

// TestListGroups 测试分组列表拉取
func TestListGroups(t *testing.T) {
	t.Run("拉取成功并排序", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.handle("/watchlist-groups/", func(w http.ResponseWriter, r *http.Request) {
			writeSuccess(w, []models.Group{
				{ID: "g2", Name: "B组", ItemCount: 5},
				{ID: "g1", Name: "A组", ItemCount: 2},
			})
		})
		app := newTestApp(t, backend)

		groups, err := app.groups.ListGroups(context.Background())
		if err != nil {
			t.Fatalf("拉取分组失败: %v", err)
		}
		if len(groups) != 2 {
			t.Fatalf("期望 2 个分组，实际 %d", len(groups))
		}
		if groups[0].Name != "A组" || groups[1].Name != "B组" {
			t.Errorf("分组未按名称排序: %s, %s", groups[0].Name, groups[1].Name)
		}

		// 列表携带的计数是权威值
		if app.watchlist.Count("g2") != 5 {
			t.Errorf("g2 计数应为 5，实际 %d", app.watchlist.Count("g2"))
		}
		if app.watchlist.Count("g1") != 2 {
			t.Errorf("g1 计数应为 2，实际 %d", app.watchlist.Count("g1"))
		}
	})

	t.Run("拉取失败保留现有列表", func(t *testing.T) {
		var fail atomic.Bool
		backend := newFakeBackend(t)
		backend.handle("/watchlist-groups/", func(w http.ResponseWriter, r *http.Request) {
			if fail.Load() {
				writeError(w, http.StatusInternalServerError, "服务器开小差了", "")
				return
			}
			writeSuccess(w, []models.Group{{ID: "g1", Name: "A组", ItemCount: 1}})
		})
		app := newTestApp(t, backend)

		if _, err := app.groups.ListGroups(context.Background()); err != nil {
			t.Fatalf("首次拉取失败: %v", err)
		}

		fail.Store(true)
		if _, err := app.groups.ListGroups(context.Background()); err == nil {
			t.Fatal("后端失败时应返回错误")
		}
		if got := app.groups.Groups(); len(got) != 1 || got[0].ID != "g1" {
			t.Errorf("失败后应保留上一次的列表: %+v", got)
		}
	})

	t.Run("当前分组消失时回落到默认分组", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.handle("/watchlist-groups/", func(w http.ResponseWriter, r *http.Request) {
			writeSuccess(w, []models.Group{{ID: "g1", Name: "A组"}})
		})
		app := newTestApp(t, backend)
		app.session.SetActiveGroup("ghost")

		if _, err := app.groups.ListGroups(context.Background()); err != nil {
			t.Fatalf("拉取分组失败: %v", err)
		}
		if app.session.ActiveGroupID() != DefaultGroupID {
			t.Errorf("失效分组应回落到 default，实际 %s", app.session.ActiveGroupID())
		}
	})
}

// TestCreateGroup 测试新建分组
func TestCreateGroup(t *testing.T) {
	t.Run("新建成功并切换为当前分组", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.handle("/watchlist-groups/", func(w http.ResponseWriter, r *http.Request) {
			writeSuccess(w, models.Group{ID: "g7", Name: "医药股", ItemCount: 0})
		})
		app := newTestApp(t, backend)

		group, err := app.groups.CreateGroup(context.Background(), "医药股")
		if err != nil {
			t.Fatalf("新建分组失败: %v", err)
		}
		if group.ID != "g7" {
			t.Errorf("分组 ID 不符: %s", group.ID)
		}
		if app.session.ActiveGroupID() != "g7" {
			t.Errorf("新建后应切换为当前分组，实际 %s", app.session.ActiveGroupID())
		}
		if app.watchlist.Count("g7") != 0 {
			t.Errorf("新分组计数应为 0，实际 %d", app.watchlist.Count("g7"))
		}
	})

	t.Run("空名称不发请求", func(t *testing.T) {
		backend := newFakeBackend(t)
		var hits atomic.Int32
		backend.handle("/watchlist-groups/", func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			writeSuccess(w, models.Group{})
		})
		app := newTestApp(t, backend)

		if _, err := app.groups.CreateGroup(context.Background(), "   "); !errors.Is(err, ErrEmptyGroupName) {
			t.Fatalf("期望 ErrEmptyGroupName，实际 %v", err)
		}
		if hits.Load() != 0 {
			t.Error("空名称不应发出请求")
		}
	})

	t.Run("重名冲突保留本地状态", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.handle("/watchlist-groups/", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				writeError(w, http.StatusBadRequest, "分组名称已存在", "duplicate")
				return
			}
			writeSuccess(w, []models.Group{})
		})
		app := newTestApp(t, backend)
		app.session.SetActiveGroup("g1")

		if _, err := app.groups.CreateGroup(context.Background(), "A组"); err == nil {
			t.Fatal("重名应返回错误")
		}
		if app.session.ActiveGroupID() != "g1" {
			t.Errorf("失败不应改动当前分组，实际 %s", app.session.ActiveGroupID())
		}
	})
}

// TestRenameGroup 测试重命名分组
func TestRenameGroup(t *testing.T) {
	t.Run("默认分组只改本地不发请求", func(t *testing.T) {
		backend := newFakeBackend(t)
		var hits atomic.Int32
		backend.handle("/", func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			writeSuccess(w, nil)
		})
		app := newTestApp(t, backend)

		if err := app.groups.RenameGroup(context.Background(), DefaultGroupID, "我的持仓"); err != nil {
			t.Fatalf("重命名默认分组失败: %v", err)
		}
		if hits.Load() != 0 {
			t.Error("默认分组改名不应发出请求")
		}
		if name := app.groups.DefaultGroupName(); name != "我的持仓" {
			t.Errorf("默认分组名应为 我的持仓，实际 %s", name)
		}

		// 新名字持久化到本地存储
		if v, ok := app.store.GetString(storage.KeyDefaultGroupName); !ok || v != "我的持仓" {
			t.Errorf("本地存储未持久化默认分组名: %s", v)
		}
	})

	t.Run("普通分组走服务端并刷新", func(t *testing.T) {
		backend := newFakeBackend(t)
		var patched atomic.Bool
		backend.handle("/watchlist-groups/", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPatch {
				patched.Store(true)
				writeSuccess(w, nil)
				return
			}
			writeSuccess(w, []models.Group{{ID: "g1", Name: "新名字"}})
		})
		app := newTestApp(t, backend)

		if err := app.groups.RenameGroup(context.Background(), "g1", "新名字"); err != nil {
			t.Fatalf("重命名失败: %v", err)
		}
		if !patched.Load() {
			t.Error("未发出 PATCH 请求")
		}
		if got := app.groups.Groups(); len(got) != 1 || got[0].Name != "新名字" {
			t.Errorf("刷新后的列表不符: %+v", got)
		}
	})
}

// TestDeleteGroup 测试删除分组
func TestDeleteGroup(t *testing.T) {
	t.Run("默认分组不可删除", func(t *testing.T) {
		backend := newFakeBackend(t)
		var hits atomic.Int32
		backend.handle("/", func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			writeSuccess(w, nil)
		})
		app := newTestApp(t, backend)

		if err := app.groups.DeleteGroup(context.Background(), DefaultGroupID); !errors.Is(err, ErrDefaultGroupImmutable) {
			t.Fatalf("期望 ErrDefaultGroupImmutable，实际 %v", err)
		}
		if hits.Load() != 0 {
			t.Error("删除默认分组不应发出请求")
		}
	})

	t.Run("删除当前分组后回落到默认分组", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.handle("/watchlist-groups/", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodDelete:
				writeSuccess(w, nil)
			default:
				writeSuccess(w, []models.Group{{ID: "g1", Name: "A组"}})
			}
		})
		app := newTestApp(t, backend)
		app.session.SetActiveGroup("g2")

		if err := app.groups.DeleteGroup(context.Background(), "g2"); err != nil {
			t.Fatalf("删除分组失败: %v", err)
		}
		if app.session.ActiveGroupID() != DefaultGroupID {
			t.Errorf("删除当前分组后应回落到 default，实际 %s", app.session.ActiveGroupID())
		}
	})

	t.Run("删除后刷新失败不回滚", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.handle("/watchlist-groups/", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodDelete:
				writeSuccess(w, nil)
			default:
				writeError(w, http.StatusInternalServerError, "刷新失败", "")
			}
		})
		app := newTestApp(t, backend)

		if err := app.groups.DeleteGroup(context.Background(), "g1"); err != nil {
			t.Fatalf("刷新失败不应让删除整体报错: %v", err)
		}
	})
}
